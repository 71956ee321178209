package repository

import (
	"context"
	"time"

	"dispatch/internal/domain"
)

// OrderRepository defines the persistence operations for orders.
//
// The guarded mutations (Accept, Reject, UpdateStatus, Cancel) are
// conditional on the stored status and report whether a row was changed.
// false with a nil error means the guard did not match: the caller lost a
// race or attempted an illegal transition, and the stored row is untouched.
type OrderRepository interface {
	// Create persists a new order.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by ID.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// GetAll retrieves all orders.
	GetAll(ctx context.Context) ([]*domain.Order, error)

	// Accept moves a PENDING order to ACCEPTED and fixes its rider.
	Accept(ctx context.Context, id, riderID string, at time.Time) (bool, error)

	// Reject moves a PENDING order to REJECTED and stores the reason.
	Reject(ctx context.Context, id, riderID, reason string, at time.Time) (bool, error)

	// UpdateStatus performs a plain guarded transition from -> to.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time) (bool, error)

	// Cancel moves any non-terminal order to CANCELLED and records the actor.
	Cancel(ctx context.Context, id, actor string, at time.Time) (bool, error)
}
