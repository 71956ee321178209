package service

import "errors"

var (
	// ErrIllegalTransition is returned when a status transition is not legal
	// from the order's stored state. The stored order is left untouched.
	ErrIllegalTransition = errors.New("illegal order transition")

	// ErrMissingDestination is returned when a delivery order type is
	// created without a destination.
	ErrMissingDestination = errors.New("delivery order requires a destination")

	// ErrInvalidOrderType is returned for an unknown order type.
	ErrInvalidOrderType = errors.New("invalid order type")

	// ErrInvalidCustomerID is returned when the customer ID is empty.
	ErrInvalidCustomerID = errors.New("invalid customer id")

	// ErrInvalidOrderID is returned when the order ID is empty.
	ErrInvalidOrderID = errors.New("invalid order id")

	// ErrInvalidRiderID is returned when the rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrRiderNotAddressed is returned when a rider acts on an order that is
	// addressed to a different rider.
	ErrRiderNotAddressed = errors.New("order addressed to a different rider")

	// ErrRiderBusy is returned when the rider's accept lock is already held,
	// i.e. another accept for the same rider is in flight.
	ErrRiderBusy = errors.New("rider has an accept in flight")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")
)
