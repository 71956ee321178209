package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"dispatch/internal/domain"
)

const publishTimeout = 2 * time.Second

// Event kinds on the wire.
const (
	kindOrderCreated      = "order_created"
	kindStatusChanged     = "order_status_changed"
	kindDeliveryCompleted = "delivery_completed"
)

// envelope is the wire format for order lifecycle events.
type envelope struct {
	Kind      string      `json:"kind"`
	OrderID   string      `json:"order_id"`
	Payload   interface{} `json:"payload,omitempty"`
	EmittedAt time.Time   `json:"emitted_at"`
}

// KafkaPublisher publishes order lifecycle events for downstream consumers
// (notification fan-out, analytics). Messages are keyed by order ID so one
// order's events stay in partition order.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &KafkaPublisher{writer: w}
}

// OrderCreated publishes the creation event with the full order snapshot.
func (p *KafkaPublisher) OrderCreated(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, envelope{
		Kind:      kindOrderCreated,
		OrderID:   order.ID,
		Payload:   order,
		EmittedAt: time.Now(),
	})
}

// OrderStatusChanged publishes a committed transition.
func (p *KafkaPublisher) OrderStatusChanged(ctx context.Context, e domain.OrderStatusChanged) error {
	return p.publish(ctx, envelope{
		Kind:      kindStatusChanged,
		OrderID:   e.OrderID,
		Payload:   e,
		EmittedAt: time.Now(),
	})
}

// DeliveryCompleted publishes the terminal delivery signal.
func (p *KafkaPublisher) DeliveryCompleted(ctx context.Context, e domain.DeliveryCompleted) error {
	return p.publish(ctx, envelope{
		Kind:      kindDeliveryCompleted,
		OrderID:   e.OrderID,
		EmittedAt: time.Now(),
	})
}

func (p *KafkaPublisher) publish(ctx context.Context, env envelope) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	value, err := json.Marshal(env)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.OrderID),
		Value: value,
	})
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
