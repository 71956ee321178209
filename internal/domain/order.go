package domain

import "time"

// OrderStatus represents the current status of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusAccepted   OrderStatus = "ACCEPTED"
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusRejected   OrderStatus = "REJECTED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// Terminal reports whether no further mutation is allowed from the status.
// DELIVERED counts as terminal even though it may still advance to COMPLETED;
// that single exception is encoded in CanTransition.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCompleted, OrderStatusRejected, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal status transition.
func CanTransition(from, to OrderStatus) bool {
	switch to {
	case OrderStatusAccepted:
		return from == OrderStatusPending
	case OrderStatusRejected:
		return from == OrderStatusPending
	case OrderStatusInProgress:
		return from == OrderStatusAccepted
	case OrderStatusDelivered:
		return from == OrderStatusInProgress
	case OrderStatusCompleted:
		return from == OrderStatusDelivered
	case OrderStatusCancelled:
		return !from.Terminal()
	}
	return false
}

// OrderType represents how an order is fulfilled.
type OrderType string

const (
	OrderTypeOutletPickup   OrderType = "OUTLET_PICKUP"
	OrderTypeOutletDelivery OrderType = "OUTLET_DELIVERY"
	OrderTypeOnTheWheels    OrderType = "ON_THE_WHEELS"
)

// RequiresDestination reports whether the order type needs a drop-off point.
func (t OrderType) RequiresDestination() bool {
	return t == OrderTypeOutletDelivery || t == OrderTypeOnTheWheels
}

// PaymentMethod represents the payment method chosen at checkout.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodWallet PaymentMethod = "WALLET"
)

// Coordinate is a lat/lng point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// OrderItem is a single line of a finalized checkout payload.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

// Order represents a dispatch order in the system.
// Once the status reaches a terminal value, no field but UpdatedAt changes.
type Order struct {
	ID              string
	CustomerID      string
	RiderID         string // empty until accepted, fixed once accepted
	Status          OrderStatus
	OrderType       OrderType
	Destination     *Coordinate // nil for pickup orders
	DeliveryAddress string
	Items           []OrderItem
	TotalPrice      float64
	DeliveryFee     float64
	DiscountAmount  float64
	VoucherID       string
	PaymentMethod   PaymentMethod
	RejectionReason string
	CancelledBy     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
