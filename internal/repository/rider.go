package repository

import (
	"context"

	"dispatch/internal/domain"
)

// RiderRepository defines the persistence operations for riders.
type RiderRepository interface {
	// Create adds a new rider.
	Create(ctx context.Context, rider *domain.Rider) error

	// GetByID retrieves a rider by ID, including the current location row.
	GetByID(ctx context.Context, id string) (*domain.Rider, error)

	// GetByPhone retrieves a rider by phone number.
	GetByPhone(ctx context.Context, phone string) (*domain.Rider, error)

	// GetAll retrieves all riders.
	GetAll(ctx context.Context) ([]*domain.Rider, error)

	// ListAvailable retrieves riders that are online or on an active shift,
	// with their current location joined in. This is the candidate set
	// handed to the matcher.
	ListAvailable(ctx context.Context) ([]*domain.Rider, error)

	// SetFlags updates the online / shift flags of a rider.
	SetFlags(ctx context.Context, id string, online, shiftActive bool) error
}

// RiderLocationRepository owns the single current-location row per rider.
// There is never more than one row per rider; pings overwrite in place.
type RiderLocationRepository interface {
	// Upsert writes the rider's current position, replacing any prior row.
	// Last write wins; older-timestamp pings are not rejected.
	Upsert(ctx context.Context, riderID string, loc domain.RiderLocation) error

	// Get retrieves the rider's current position, or ErrNotFound when the
	// rider has never pinged.
	Get(ctx context.Context, riderID string) (*domain.RiderLocation, error)
}
