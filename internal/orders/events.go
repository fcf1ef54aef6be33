package orders

import (
	"context"
	"encoding/json"
	"time"
)

const (
	EventEmailRequested = "EmailRequested"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // one of the Event* constants
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g. "marketplace-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // usually the order id
	Payload       json.RawMessage `json:"payload"`
}

// Email is one outgoing message. OrderID is only used for correlation.
type Email struct {
	To      string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	OrderID string `json:"order_id,omitempty"`
}

// Notifier hands an email to the asynchronous delivery queue. It must not
// wait for delivery.
type Notifier interface {
	Enqueue(ctx context.Context, e Email) error
}
