package feed

import (
	"context"
	"sync"
)

// Message is a single row-level change notification.
type Message struct {
	Topic   string
	Payload []byte
}

// Subscription is one open stream of changes for a topic. Messages arrive in
// the order they were published. The channel is closed when the subscription
// is closed or the transport is lost; Close is safe to call more than once.
type Subscription interface {
	Messages() <-chan Message
	Close() error
}

// ChangeFeed is the asynchronous change-notification primitive the rest of
// the system coordinates through. The two client processes never share
// memory; everything crosses this boundary.
type ChangeFeed interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// OrderTopic is the feed topic scoped to a single order row.
func OrderTopic(orderID string) string {
	return "order:" + orderID
}

// RiderLocationTopic is the feed topic scoped to a rider's current location.
func RiderLocationTopic(riderID string) string {
	return "rider:" + riderID + ":location"
}

// MemoryFeed is an in-process ChangeFeed used by tests and as a fallback
// when no broker is configured. Publish fans out under the lock, so each
// subscriber observes messages in commit order.
type MemoryFeed struct {
	mu     sync.Mutex
	subs   map[string][]*memorySubscription
	closed bool
}

// NewMemoryFeed creates an empty in-process feed.
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[string][]*memorySubscription)}
}

// Publish delivers the payload to every live subscriber of the topic.
func (f *MemoryFeed) Publish(ctx context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFeedClosed
	}

	for _, sub := range f.subs[topic] {
		sub.deliver(Message{Topic: topic, Payload: payload})
	}
	return nil
}

// Subscribe opens a stream for one topic.
func (f *MemoryFeed) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrFeedClosed
	}

	sub := &memorySubscription{
		feed:  f,
		topic: topic,
		ch:    make(chan Message, 64),
	}
	f.subs[topic] = append(f.subs[topic], sub)
	return sub, nil
}

// Shutdown closes every open subscription. Subscribers observe a closed
// message channel, the same signal as a lost transport.
func (f *MemoryFeed) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for _, subs := range f.subs {
		for _, sub := range subs {
			sub.closeChannel()
		}
	}
	f.subs = make(map[string][]*memorySubscription)
}

func (f *MemoryFeed) remove(sub *memorySubscription) {
	f.mu.Lock()
	defer f.mu.Unlock()

	subs := f.subs[sub.topic]
	for i, s := range subs {
		if s == sub {
			f.subs[sub.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

type memorySubscription struct {
	feed   *MemoryFeed
	topic  string
	ch     chan Message
	closed sync.Once
}

func (s *memorySubscription) Messages() <-chan Message { return s.ch }

// Close releases the subscription. Idempotent.
func (s *memorySubscription) Close() error {
	s.closed.Do(func() {
		s.feed.remove(s)
		close(s.ch)
	})
	return nil
}

func (s *memorySubscription) closeChannel() {
	s.closed.Do(func() { close(s.ch) })
}

func (s *memorySubscription) deliver(msg Message) {
	select {
	case s.ch <- msg:
	default:
		// Slow subscriber: drop rather than block publishers. The feed makes
		// no delivery guarantee for consumers that cannot keep up.
	}
}
