package notify

import (
	"context"
	"encoding/json"
	"github.com/ariefcatur/go-marketplace-orders/internal/kafka"
	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
	"log"
	"time"
)

// Dedup claims event ids so redelivered events are sent once.
type Dedup interface {
	First(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// Worker delivers EmailRequested events. Handle returns an error only when
// the message should be redelivered (shutdown mid-retry); every other
// outcome, including a terminal send failure, is logged and acknowledged.
type Worker struct {
	Mailer     Mailer
	Dedup      Dedup // optional
	MaxRetries int
	Base       time.Duration
	Sleep      func(ctx context.Context, d time.Duration) error
}

func (w *Worker) Handle(ctx context.Context, body []byte) error {
	var env orders.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		log.Printf("[notify] drop malformed event: %v", err)
		return nil
	}
	if env.EventType != orders.EventEmailRequested {
		return nil
	}
	e, err := kafka.UnwrapPayload[orders.Email](env.Payload)
	if err != nil {
		log.Printf("[notify] drop event %s: %v", env.EventID, err)
		return nil
	}
	if e.To == "" {
		log.Printf("[notify] drop event %s: no recipient", env.EventID)
		return nil
	}

	if w.Dedup != nil && env.EventID != "" {
		first, err := w.Dedup.First(ctx, env.EventID)
		if err != nil {
			log.Printf("[notify] dedup %s: %v (sending anyway)", env.EventID, err)
		} else if !first {
			log.Printf("[notify] skip duplicate event %s", env.EventID)
			return nil
		}
	}

	attempts := w.MaxRetries + 1
	for i := 0; i < attempts; i++ {
		err = w.Mailer.Send(ctx, e)
		if err == nil {
			log.Printf("[notify] sent %q to %s (order %s)", e.Subject, e.To, e.OrderID)
			return nil
		}
		if i == attempts-1 {
			break
		}
		wait := w.backoff(i)
		log.Printf("[notify] send %q to %s failed (attempt %d/%d), retry in %v: %v",
			e.Subject, e.To, i+1, attempts, wait, err)
		if serr := w.sleep(ctx, wait); serr != nil {
			w.release(env.EventID)
			return serr
		}
	}
	log.Printf("[notify] giving up on %q to %s after %d attempt(s): %v", e.Subject, e.To, attempts, err)
	return nil
}

func (w *Worker) backoff(attempt int) time.Duration {
	return w.Base << attempt
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) error {
	if w.Sleep != nil {
		return w.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (w *Worker) release(id string) {
	if w.Dedup == nil || id == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Dedup.Release(ctx, id); err != nil {
		log.Printf("[notify] release %s: %v", id, err)
	}
}
