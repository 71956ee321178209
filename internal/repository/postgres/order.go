package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// OrderRepository is a PostgreSQL implementation of repository.OrderRepository.
type OrderRepository struct {
	q Querier
}

// NewOrderRepository creates a new PostgreSQL order repository.
func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{q: db}
}

// terminalStatuses is inlined into guard predicates. DELIVERED is terminal
// for every transition except DELIVERED -> COMPLETED, which UpdateStatus
// expresses with an explicit from-status.
const terminalStatuses = `('DELIVERED', 'COMPLETED', 'REJECTED', 'CANCELLED')`

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (id, customer_id, rider_id, status, order_type, destination_lat, destination_lng, delivery_address, items, total_price, delivery_fee, discount_amount, voucher_id, payment_method, rejection_reason, cancelled_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	var riderID sql.NullString
	if order.RiderID != "" {
		riderID = sql.NullString{String: order.RiderID, Valid: true}
	}

	var destLat, destLng sql.NullFloat64
	if order.Destination != nil {
		destLat = sql.NullFloat64{Float64: order.Destination.Lat, Valid: true}
		destLng = sql.NullFloat64{Float64: order.Destination.Lng, Valid: true}
	}

	var voucherID sql.NullString
	if order.VoucherID != "" {
		voucherID = sql.NullString{String: order.VoucherID, Valid: true}
	}

	items, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}

	_, err = r.q.ExecContext(ctx, query,
		order.ID,
		order.CustomerID,
		riderID,
		order.Status,
		order.OrderType,
		destLat,
		destLng,
		order.DeliveryAddress,
		items,
		order.TotalPrice,
		order.DeliveryFee,
		order.DiscountAmount,
		voucherID,
		order.PaymentMethod,
		nullString(order.RejectionReason),
		nullString(order.CancelledBy),
		order.CreatedAt,
		order.UpdatedAt,
	)

	return err
}

const selectOrder = `
	SELECT id, customer_id, rider_id, status, order_type, destination_lat, destination_lng, delivery_address, items, total_price, delivery_fee, discount_amount, voucher_id, payment_method, rejection_reason, cancelled_by, created_at, updated_at
	FROM orders
`

// GetByID retrieves an order by ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	row := r.q.QueryRowContext(ctx, selectOrder+` WHERE id = $1`, id)

	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return order, nil
}

// GetAll retrieves all orders, newest first.
func (r *OrderRepository) GetAll(ctx context.Context) ([]*domain.Order, error) {
	rows, err := r.q.QueryContext(ctx, selectOrder+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	return orders, rows.Err()
}

// Accept moves a PENDING order to ACCEPTED. The predicate also pins the
// addressed rider, so a concurrent accept by another rider changes nothing.
// The single conditional UPDATE serializes racing accepts on the one
// authoritative row: exactly one caller sees a row change.
func (r *OrderRepository) Accept(ctx context.Context, id, riderID string, at time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'ACCEPTED', rider_id = $2, updated_at = $3
		WHERE id = $1 AND status = 'PENDING' AND (rider_id IS NULL OR rider_id = $2)
	`

	res, err := r.q.ExecContext(ctx, query, id, riderID, at)
	if err != nil {
		return false, err
	}
	return oneRowChanged(res)
}

// Reject moves a PENDING order to REJECTED, storing the reason.
func (r *OrderRepository) Reject(ctx context.Context, id, riderID, reason string, at time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'REJECTED', rider_id = $2, rejection_reason = $3, updated_at = $4
		WHERE id = $1 AND status = 'PENDING' AND (rider_id IS NULL OR rider_id = $2)
	`

	res, err := r.q.ExecContext(ctx, query, id, riderID, reason, at)
	if err != nil {
		return false, err
	}
	return oneRowChanged(res)
}

// UpdateStatus performs a guarded from -> to transition.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`

	res, err := r.q.ExecContext(ctx, query, id, from, to, at)
	if err != nil {
		return false, err
	}
	return oneRowChanged(res)
}

// Cancel moves any non-terminal order to CANCELLED.
func (r *OrderRepository) Cancel(ctx context.Context, id, actor string, at time.Time) (bool, error) {
	query := `
		UPDATE orders
		SET status = 'CANCELLED', cancelled_by = $2, updated_at = $3
		WHERE id = $1 AND status NOT IN ` + terminalStatuses

	res, err := r.q.ExecContext(ctx, query, id, actor, at)
	if err != nil {
		return false, err
	}
	return oneRowChanged(res)
}

func oneRowChanged(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		order           domain.Order
		riderID         sql.NullString
		destLat         sql.NullFloat64
		destLng         sql.NullFloat64
		items           []byte
		voucherID       sql.NullString
		rejectionReason sql.NullString
		cancelledBy     sql.NullString
	)

	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&riderID,
		&order.Status,
		&order.OrderType,
		&destLat,
		&destLng,
		&order.DeliveryAddress,
		&items,
		&order.TotalPrice,
		&order.DeliveryFee,
		&order.DiscountAmount,
		&voucherID,
		&order.PaymentMethod,
		&rejectionReason,
		&cancelledBy,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.RiderID = riderID.String
	order.VoucherID = voucherID.String
	order.RejectionReason = rejectionReason.String
	order.CancelledBy = cancelledBy.String

	if destLat.Valid && destLng.Valid {
		order.Destination = &domain.Coordinate{Lat: destLat.Float64, Lng: destLng.Float64}
	}

	if len(items) > 0 {
		if err := json.Unmarshal(items, &order.Items); err != nil {
			return nil, err
		}
	}

	return &order, nil
}
