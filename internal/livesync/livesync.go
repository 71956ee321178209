package livesync

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/feed"
	"dispatch/internal/metrics"
)

const defaultRetryInterval = 2 * time.Second

// UserNotifier receives the side-channel "notify user" signal raised when an
// order reaches DELIVERED. Alert and sound delivery belong to the consumer.
type UserNotifier interface {
	NotifyDelivered(orderID string)
}

// OrderHandler receives partial order patches in commit order.
type OrderHandler func(domain.OrderPatch)

// LocationHandler receives a rider's current position on every update.
type LocationHandler func(domain.RiderLocation)

// LiveSync bridges the store's change feed to per-screen subscribers.
// Order and location streams for the same order are independent; no
// ordering is guaranteed between them.
type LiveSync struct {
	feed          feed.ChangeFeed
	log           *slog.Logger
	notifier      UserNotifier // optional
	retryInterval time.Duration
}

// New creates a LiveSync over the given change feed. notifier may be nil.
func New(changeFeed feed.ChangeFeed, log *slog.Logger, notifier UserNotifier) *LiveSync {
	return &LiveSync{
		feed:          changeFeed,
		log:           log,
		notifier:      notifier,
		retryInterval: defaultRetryInterval,
	}
}

// Handle identifies one open subscription.
type Handle struct {
	topic    string
	cancel   context.CancelFunc
	closed   atomic.Bool
	degraded atomic.Bool

	mu  sync.Mutex
	sub feed.Subscription
}

// Degraded reports whether the subscription is currently running without an
// established feed. The UI should fall back to manual refresh against the
// stored snapshot while this holds; LiveSync keeps retrying in background.
func (h *Handle) Degraded() bool {
	return h.degraded.Load()
}

func (h *Handle) setSub(sub feed.Subscription) {
	h.mu.Lock()
	h.sub = sub
	h.mu.Unlock()
}

func (h *Handle) closeSub() {
	h.mu.Lock()
	if h.sub != nil {
		_ = h.sub.Close()
		h.sub = nil
	}
	h.mu.Unlock()
}

// SubscribeOrder opens a change feed scoped to one order row. Every
// committed status change reaches onChange in commit order. Updates missed
// while disconnected are not replayed; the caller should re-read the stored
// order after a degraded period.
func (s *LiveSync) SubscribeOrder(ctx context.Context, orderID string, onChange OrderHandler) (*Handle, error) {
	deliver := func(payload []byte) {
		var patch domain.OrderPatch
		if err := json.Unmarshal(payload, &patch); err != nil {
			s.log.Warn("dropping malformed order patch", "order_id", orderID, "error", err)
			return
		}
		onChange(patch)
		if patch.Status != nil && *patch.Status == domain.OrderStatusDelivered && s.notifier != nil {
			s.notifier.NotifyDelivered(patch.OrderID)
		}
	}
	return s.subscribe(ctx, feed.OrderTopic(orderID), deliver)
}

// SubscribeRiderLocation opens a change feed scoped to one rider's
// current-location row.
func (s *LiveSync) SubscribeRiderLocation(ctx context.Context, riderID string, onChange LocationHandler) (*Handle, error) {
	deliver := func(payload []byte) {
		var loc domain.RiderLocation
		if err := json.Unmarshal(payload, &loc); err != nil {
			s.log.Warn("dropping malformed location update", "rider_id", riderID, "error", err)
			return
		}
		onChange(loc)
	}
	return s.subscribe(ctx, feed.RiderLocationTopic(riderID), deliver)
}

// subscribe establishes the feed and starts the pump. Establishment failure
// does not hard-fail: the handle comes back degraded and retries in
// background so the screen stays usable on its last snapshot.
func (s *LiveSync) subscribe(ctx context.Context, topic string, deliver func([]byte)) (*Handle, error) {
	subCtx, cancel := context.WithCancel(ctx)
	h := &Handle{topic: topic, cancel: cancel}

	sub, err := s.feed.Subscribe(subCtx, topic)
	if err != nil {
		s.log.Warn("feed subscribe failed, entering degraded mode", "topic", topic, "error", err)
		h.degraded.Store(true)
	} else {
		h.setSub(sub)
	}

	metrics.ActiveSubscriptions.Inc()
	go s.run(subCtx, h, sub, deliver)
	return h, nil
}

// Unsubscribe releases the upstream feed and the local listener. Idempotent:
// safe to call more than once and after the feed already closed. No events
// are delivered after the first call returns the handle to closed state.
func (s *LiveSync) Unsubscribe(h *Handle) {
	if h == nil {
		return
	}
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	h.cancel()
	h.closeSub()
	metrics.ActiveSubscriptions.Dec()
}

// run pumps messages to deliver until the handle is unsubscribed,
// re-establishing the feed after transport loss.
func (s *LiveSync) run(ctx context.Context, h *Handle, sub feed.Subscription, deliver func([]byte)) {
	for {
		if sub == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.retryInterval):
			}

			metrics.FeedResubscribes.Inc()
			newSub, err := s.feed.Subscribe(ctx, h.topic)
			if err != nil {
				s.log.Warn("feed resubscribe failed", "topic", h.topic, "error", err)
				continue
			}
			if h.closed.Load() {
				_ = newSub.Close()
				return
			}
			h.setSub(newSub)
			// Unsubscribe may have run between the closed check and
			// setSub; its closeSub saw no subscription, so close here.
			if h.closed.Load() {
				h.closeSub()
				return
			}
			h.degraded.Store(false)
			sub = newSub
		}

		open := s.drain(ctx, h, sub, deliver)
		if !open {
			return
		}

		// Transport lost while still subscribed: flag and retry. Updates
		// published in the gap are not redelivered.
		h.setSub(nil)
		h.degraded.Store(true)
		s.log.Warn("feed transport lost", "topic", h.topic)
		sub = nil
	}
}

// drain consumes messages until the channel closes or the context ends.
// Returns false when the subscription should not be re-established.
func (s *LiveSync) drain(ctx context.Context, h *Handle, sub feed.Subscription, deliver func([]byte)) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case msg, ok := <-sub.Messages():
			if !ok {
				return !h.closed.Load() && ctx.Err() == nil
			}
			if h.closed.Load() {
				return false
			}
			deliver(msg.Payload)
		}
	}
}
