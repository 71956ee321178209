package domain

import "time"

// OrderPatch is a partial change to an order, as carried on the change feed.
// Only non-nil fields are part of the change; a patch is never a full record.
type OrderPatch struct {
	OrderID         string       `json:"order_id"`
	Status          *OrderStatus `json:"status,omitempty"`
	RiderID         *string      `json:"rider_id,omitempty"`
	RejectionReason *string      `json:"rejection_reason,omitempty"`
	CancelledBy     *string      `json:"cancelled_by,omitempty"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// OrderStatusChanged is emitted for every committed status transition.
type OrderStatusChanged struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
}

// DeliveryCompleted is emitted exactly once when an order reaches DELIVERED.
type DeliveryCompleted struct {
	OrderID string
}
