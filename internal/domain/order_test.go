package domain

import "testing"

var allStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusAccepted,
	OrderStatusInProgress,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusRejected,
	OrderStatusCancelled,
}

func TestCanTransition_Matrix(t *testing.T) {
	t.Parallel()

	legal := map[OrderStatus][]OrderStatus{
		OrderStatusPending:    {OrderStatusAccepted, OrderStatusRejected, OrderStatusCancelled},
		OrderStatusAccepted:   {OrderStatusInProgress, OrderStatusCancelled},
		OrderStatusInProgress: {OrderStatusDelivered, OrderStatusCancelled},
		OrderStatusDelivered:  {OrderStatusCompleted},
		OrderStatusCompleted:  {},
		OrderStatusRejected:   {},
		OrderStatusCancelled:  {},
	}

	for _, from := range allStatuses {
		allowed := map[OrderStatus]bool{}
		for _, to := range legal[from] {
			allowed[to] = true
		}
		for _, to := range allStatuses {
			if got := CanTransition(from, to); got != allowed[to] {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, allowed[to])
			}
		}
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	t.Parallel()

	if CanTransition(OrderStatusPending, "SHIPPED") {
		t.Error("unknown target status must not be reachable")
	}
	if CanTransition("SHIPPED", OrderStatusAccepted) {
		t.Error("unknown source status must not reach ACCEPTED")
	}
}

func TestTerminal(t *testing.T) {
	t.Parallel()

	terminal := map[OrderStatus]bool{
		OrderStatusDelivered: true,
		OrderStatusCompleted: true,
		OrderStatusRejected:  true,
		OrderStatusCancelled: true,
	}

	for _, s := range allStatuses {
		if got := s.Terminal(); got != terminal[s] {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, terminal[s])
		}
	}
}

func TestOrderType_RequiresDestination(t *testing.T) {
	t.Parallel()

	cases := []struct {
		orderType OrderType
		want      bool
	}{
		{OrderTypeOutletPickup, false},
		{OrderTypeOutletDelivery, true},
		{OrderTypeOnTheWheels, true},
	}

	for _, tc := range cases {
		if got := tc.orderType.RequiresDestination(); got != tc.want {
			t.Errorf("%s.RequiresDestination() = %v, want %v", tc.orderType, got, tc.want)
		}
	}
}

func TestRiderLocation_CoordinateNilSafe(t *testing.T) {
	t.Parallel()

	var loc *RiderLocation
	if loc.Coordinate() != nil {
		t.Error("nil location must yield a nil coordinate")
	}

	loc = &RiderLocation{Lat: -6.2, Lng: 106.8}
	c := loc.Coordinate()
	if c == nil || c.Lat != -6.2 || c.Lng != 106.8 {
		t.Errorf("unexpected coordinate %+v", c)
	}
}
