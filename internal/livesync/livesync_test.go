package livesync

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/feed"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

type recordingNotifier struct {
	mu     sync.Mutex
	orders []string
}

func (n *recordingNotifier) NotifyDelivered(orderID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, orderID)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.orders)
}

func statusPatch(orderID string, status domain.OrderStatus) []byte {
	b, _ := json.Marshal(domain.OrderPatch{
		OrderID:   orderID,
		Status:    &status,
		UpdatedAt: time.Now(),
	})
	return b
}

func TestSubscribeOrder_DeliversPatchesInOrder(t *testing.T) {
	f := feed.NewMemoryFeed()
	s := New(f, testLogger(), nil)
	ctx := context.Background()

	var mu sync.Mutex
	var got []domain.OrderStatus
	h, err := s.SubscribeOrder(ctx, "o-1", func(p domain.OrderPatch) {
		mu.Lock()
		got = append(got, *p.Status)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer s.Unsubscribe(h)

	want := []domain.OrderStatus{
		domain.OrderStatusAccepted,
		domain.OrderStatusInProgress,
	}
	for _, st := range want {
		if err := f.Publish(ctx, feed.OrderTopic("o-1"), statusPatch("o-1", st)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n == len(want) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("received %d patches, want %d", n, len(want))
		case <-time.After(10 * time.Millisecond):
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("patch %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSubscribeOrder_DeliveredRaisesUserNotification(t *testing.T) {
	f := feed.NewMemoryFeed()
	notifier := &recordingNotifier{}
	s := New(f, testLogger(), notifier)
	ctx := context.Background()

	h, err := s.SubscribeOrder(ctx, "o-1", func(domain.OrderPatch) {})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer s.Unsubscribe(h)

	_ = f.Publish(ctx, feed.OrderTopic("o-1"), statusPatch("o-1", domain.OrderStatusAccepted))
	_ = f.Publish(ctx, feed.OrderTopic("o-1"), statusPatch("o-1", domain.OrderStatusDelivered))

	deadline := time.After(2 * time.Second)
	for notifier.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("notifier never signalled")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// Only the delivered patch signals, not the accepted one.
	time.Sleep(50 * time.Millisecond)
	if got := notifier.count(); got != 1 {
		t.Errorf("notifier signalled %d times, want 1", got)
	}
}

func TestUnsubscribe_IsIdempotentAndStopsDelivery(t *testing.T) {
	f := feed.NewMemoryFeed()
	s := New(f, testLogger(), nil)
	ctx := context.Background()

	var mu sync.Mutex
	received := 0
	h, err := s.SubscribeOrder(ctx, "o-1", func(domain.OrderPatch) {
		mu.Lock()
		received++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	s.Unsubscribe(h)
	s.Unsubscribe(h) // second call must be safe
	s.Unsubscribe(nil)

	_ = f.Publish(ctx, feed.OrderTopic("o-1"), statusPatch("o-1", domain.OrderStatusAccepted))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if received != 0 {
		t.Errorf("received %d events after unsubscribe, want 0", received)
	}
}

func TestSubscribeRiderLocation_DeliversUpdates(t *testing.T) {
	f := feed.NewMemoryFeed()
	s := New(f, testLogger(), nil)
	ctx := context.Background()

	updates := make(chan domain.RiderLocation, 1)
	h, err := s.SubscribeRiderLocation(ctx, "r-1", func(loc domain.RiderLocation) {
		updates <- loc
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer s.Unsubscribe(h)

	loc := domain.RiderLocation{Lat: -6.21, Lng: 106.8, UpdatedAt: time.Now()}
	payload, _ := json.Marshal(loc)
	_ = f.Publish(ctx, feed.RiderLocationTopic("r-1"), payload)

	select {
	case got := <-updates:
		if got.Lat != loc.Lat || got.Lng != loc.Lng {
			t.Errorf("got %+v, want %+v", got, loc)
		}
	case <-time.After(time.Second):
		t.Fatal("location update never arrived")
	}
}

type failingFeed struct{}

func (failingFeed) Publish(context.Context, string, []byte) error { return errors.New("down") }
func (failingFeed) Subscribe(context.Context, string) (feed.Subscription, error) {
	return nil, errors.New("down")
}

func TestSubscribeOrder_EstablishmentFailureDegrades(t *testing.T) {
	s := New(failingFeed{}, testLogger(), nil)

	h, err := s.SubscribeOrder(context.Background(), "o-1", func(domain.OrderPatch) {})
	if err != nil {
		t.Fatalf("degraded mode must not hard-fail, got %v", err)
	}
	defer s.Unsubscribe(h)

	if !h.Degraded() {
		t.Error("expected handle to report degraded mode")
	}
}

func TestSubscribeOrder_FlagsDegradedAfterTransportLoss(t *testing.T) {
	f := feed.NewMemoryFeed()
	s := New(f, testLogger(), nil)
	s.retryInterval = 10 * time.Millisecond
	ctx := context.Background()

	updates := make(chan domain.OrderPatch, 4)
	h, err := s.SubscribeOrder(ctx, "o-1", func(p domain.OrderPatch) { updates <- p })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer s.Unsubscribe(h)

	// Drop every subscriber, simulating transport loss.
	f.Shutdown()

	// The old hub is gone for good; LiveSync keeps retrying against it and
	// stays degraded until the transport heals.
	deadline := time.After(2 * time.Second)
	for !h.Degraded() {
		select {
		case <-deadline:
			t.Fatal("handle never flagged degraded after transport loss")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

type countingSub struct {
	ch     chan feed.Message
	closed atomic.Bool
}

func (s *countingSub) Messages() <-chan feed.Message { return s.ch }
func (s *countingSub) Close() error {
	s.closed.Store(true)
	return nil
}

// countingFeed fails the first Subscribe after arm(), then hands out
// subscriptions whose Close calls it records.
type countingFeed struct {
	mu   sync.Mutex
	subs []*countingSub
	fail bool
}

func (f *countingFeed) arm() {
	f.mu.Lock()
	f.fail = true
	f.mu.Unlock()
}

func (f *countingFeed) Publish(context.Context, string, []byte) error { return nil }

func (f *countingFeed) Subscribe(context.Context, string) (feed.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		f.fail = false
		return nil, errors.New("down")
	}
	sub := &countingSub{ch: make(chan feed.Message)}
	f.subs = append(f.subs, sub)
	return sub, nil
}

func (f *countingFeed) open() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subs {
		if !s.closed.Load() {
			n++
		}
	}
	return n
}

func TestUnsubscribe_ClosesFeedEstablishedDuringTeardown(t *testing.T) {
	ctx := context.Background()
	f := &countingFeed{}

	// Land unsubscribes at varying points around the in-flight resubscribe.
	// Every subscription the feed ever hands out must end up closed, even
	// when the resubscribe commits while the teardown is already underway.
	for i := 0; i < 100; i++ {
		f.arm()
		s := New(f, testLogger(), nil)
		s.retryInterval = time.Microsecond

		h, err := s.SubscribeOrder(ctx, "o-1", func(domain.OrderPatch) {})
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		time.Sleep(time.Duration(i%7) * time.Microsecond)
		s.Unsubscribe(h)
	}

	deadline := time.After(2 * time.Second)
	for f.open() > 0 {
		select {
		case <-deadline:
			t.Fatalf("%d feed subscriptions left open after unsubscribe", f.open())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestApplyPatch_PartialUpdateOnly(t *testing.T) {
	snapshot := domain.Order{
		ID:         "o-1",
		CustomerID: "c-1",
		RiderID:    "r-1",
		Status:     domain.OrderStatusAccepted,
		TotalPrice: 42000,
	}

	status := domain.OrderStatusInProgress
	now := time.Now()
	next := ApplyPatch(snapshot, domain.OrderPatch{
		OrderID:   "o-1",
		Status:    &status,
		UpdatedAt: now,
	})

	if next.Status != domain.OrderStatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", next.Status)
	}
	if next.RiderID != "r-1" || next.CustomerID != "c-1" || next.TotalPrice != 42000 {
		t.Error("fields absent from the patch must keep their value")
	}
	if !next.UpdatedAt.Equal(now) {
		t.Error("updated_at not applied")
	}
	if snapshot.Status != domain.OrderStatusAccepted {
		t.Error("input snapshot must not be mutated")
	}
}

func TestApplyPatch_RejectionReason(t *testing.T) {
	snapshot := domain.Order{ID: "o-1", Status: domain.OrderStatusPending}

	status := domain.OrderStatusRejected
	reason := "stok habis"
	next := ApplyPatch(snapshot, domain.OrderPatch{
		OrderID:         "o-1",
		Status:          &status,
		RejectionReason: &reason,
	})

	if next.Status != domain.OrderStatusRejected || next.RejectionReason != "stok habis" {
		t.Errorf("got status=%s reason=%q", next.Status, next.RejectionReason)
	}
}
