package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"
)

// EventKind identifies a customer-facing order notification.
type EventKind string

const (
	EventOrderConfirmation    EventKind = "order_confirmation"
	EventShippingUpdate       EventKind = "shipping_update"
	EventDeliveryConfirmation EventKind = "delivery_confirmation"
)

// Notifier delivers order event notifications. Delivery is best-effort:
// callers treat send failures as log-worthy, never as reasons to roll back
// the state change that triggered them.
type Notifier interface {
	Send(ctx context.Context, orderID string, kind EventKind) error
}

// Nop discards every notification. Used in tests and offline tooling.
type Nop struct{}

func (Nop) Send(context.Context, string, EventKind) error { return nil }

type event struct {
	OrderID   string    `json:"order_id"`
	Kind      EventKind `json:"kind"`
	Timestamp int64     `json:"timestamp"`
}

// messageWriter is the slice of kafka.Writer the notifier needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaNotifier publishes order events to a Kafka topic, throttled
// client-side so a burst of order activity cannot flood the broker.
type KafkaNotifier struct {
	writer  messageWriter
	limiter *rate.Limiter
}

// NewKafkaNotifier connects a notifier to the given brokers and topic,
// allowing at most perSecond sends sustained.
func NewKafkaNotifier(brokers []string, topic string, perSecond float64) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaNotifier{
		writer:  w,
		limiter: rate.NewLimiter(rate.Limit(perSecond), int(perSecond)+1),
	}
}

func (n *KafkaNotifier) Send(ctx context.Context, orderID string, kind EventKind) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}

	payload, err := json.Marshal(event{
		OrderID:   orderID,
		Kind:      kind,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}

	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(orderID),
		Value: payload,
	})
}

func (n *KafkaNotifier) Close() error {
	if c, ok := n.writer.(*kafka.Writer); ok {
		return c.Close()
	}
	return nil
}
