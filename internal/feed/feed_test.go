package feed

import (
	"context"
	"testing"
	"time"
)

func TestMemoryFeed_DeliversInPublishOrder(t *testing.T) {
	f := NewMemoryFeed()
	ctx := context.Background()

	sub, err := f.Subscribe(ctx, OrderTopic("o-1"))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	payloads := []string{"a", "b", "c"}
	for _, p := range payloads {
		if err := f.Publish(ctx, OrderTopic("o-1"), []byte(p)); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	for i, want := range payloads {
		select {
		case msg := <-sub.Messages():
			if string(msg.Payload) != want {
				t.Errorf("message %d = %q, want %q", i, msg.Payload, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}

func TestMemoryFeed_TopicsAreIndependent(t *testing.T) {
	f := NewMemoryFeed()
	ctx := context.Background()

	orderSub, _ := f.Subscribe(ctx, OrderTopic("o-1"))
	defer orderSub.Close()

	if err := f.Publish(ctx, RiderLocationTopic("r-1"), []byte("ping")); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-orderSub.Messages():
		t.Fatalf("order subscriber received foreign message: %q", msg.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscription_CloseIsIdempotent(t *testing.T) {
	f := NewMemoryFeed()
	sub, err := f.Subscribe(context.Background(), OrderTopic("o-1"))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := sub.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	// No delivery after close; the channel must be closed.
	_ = f.Publish(context.Background(), OrderTopic("o-1"), []byte("late"))
	if msg, ok := <-sub.Messages(); ok {
		t.Fatalf("received message after close: %q", msg.Payload)
	}
}

func TestMemoryFeed_ShutdownClosesSubscribers(t *testing.T) {
	f := NewMemoryFeed()
	sub, _ := f.Subscribe(context.Background(), OrderTopic("o-1"))

	f.Shutdown()

	select {
	case _, ok := <-sub.Messages():
		if ok {
			t.Fatal("expected closed channel after shutdown")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after shutdown")
	}

	if err := f.Publish(context.Background(), OrderTopic("o-1"), nil); err != ErrFeedClosed {
		t.Fatalf("publish after shutdown: got %v, want ErrFeedClosed", err)
	}
}
