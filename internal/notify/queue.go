package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"time"
)

// NewEnvelope wraps an email into a versioned EmailRequested event.
func NewEnvelope(producer string, e orders.Email) (orders.Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return orders.Envelope{}, fmt.Errorf("encode email: %w", err)
	}
	return orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventEmailRequested,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: e.OrderID,
		Payload:       payload,
	}, nil
}

type kafkaPublisher interface {
	TryPublish(key, value []byte, headers ...kafkago.Header) error
}

// KafkaQueue enqueues emails on the Kafka producer buffer without waiting
// for the broker.
type KafkaQueue struct {
	P        kafkaPublisher
	Producer string
}

func (q *KafkaQueue) Enqueue(_ context.Context, e orders.Email) error {
	env, err := NewEnvelope(q.Producer, e)
	if err != nil {
		return err
	}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return q.P.TryPublish(orders.PartitionKey(e.OrderID), b,
		kafkago.Header{Key: "event_type", Value: []byte(env.EventType)})
}

type rabbitPublisher interface {
	Publish(ctx context.Context, routingKey, messageID string, body []byte) error
}

// RabbitQueue publishes emails to the notify exchange.
type RabbitQueue struct {
	C        rabbitPublisher
	Producer string
	Timeout  time.Duration
}

func (q *RabbitQueue) Enqueue(ctx context.Context, e orders.Email) error {
	env, err := NewEnvelope(q.Producer, e)
	if err != nil {
		return err
	}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	timeout := q.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	// The request context may already be finishing; publishing must not depend on it.
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return q.C.Publish(pctx, orders.RoutingEmailRequested, env.EventID, b)
}
