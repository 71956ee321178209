package feed

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// RedisFeed implements ChangeFeed over Redis pub/sub. Redis delivers
// messages per channel in publish order, which gives subscribers commit
// order for a single row's topic. Messages published while a subscriber is
// disconnected are not replayed.
type RedisFeed struct {
	client *redis.Client
}

// NewRedisFeed creates a ChangeFeed backed by the given Redis client.
func NewRedisFeed(client *redis.Client) *RedisFeed {
	return &RedisFeed{client: client}
}

// Publish sends the payload to the topic's channel.
func (f *RedisFeed) Publish(ctx context.Context, topic string, payload []byte) error {
	return f.client.Publish(ctx, topic, payload).Err()
}

// Subscribe opens a pub/sub channel scoped to one topic.
func (f *RedisFeed) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := f.client.Subscribe(ctx, topic)

	// Confirm the subscription is established before handing it out, so a
	// dead broker surfaces here rather than as a silent empty stream.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	sub := &redisSubscription{
		ps:    ps,
		topic: topic,
		ch:    make(chan Message, 64),
	}
	go sub.pump()
	return sub, nil
}

var _ ChangeFeed = (*RedisFeed)(nil)
var _ ChangeFeed = (*MemoryFeed)(nil)

type redisSubscription struct {
	ps     *redis.PubSub
	topic  string
	ch     chan Message
	closed sync.Once
}

func (s *redisSubscription) Messages() <-chan Message { return s.ch }

// Close releases the upstream pub/sub channel. Idempotent.
func (s *redisSubscription) Close() error {
	var err error
	s.closed.Do(func() {
		err = s.ps.Close()
	})
	return err
}

// pump copies upstream messages into the local channel. When the upstream
// channel closes (explicit Close or transport loss) the local channel closes
// too, which is the disconnect signal consumers react to.
func (s *redisSubscription) pump() {
	defer close(s.ch)
	for msg := range s.ps.Channel() {
		s.ch <- Message{Topic: msg.Channel, Payload: []byte(msg.Payload)}
	}
}
