package orders

import (
	"context"
	"github.com/google/uuid"
	"log"
	"time"
)

// Service implements the basket, order and partner operations. All state
// changes run inside one Store transaction together with their history
// entries; emails are enqueued only after that transaction commits.
type Service struct {
	Store    Store
	Notifier Notifier
	Cache    StatusCache // optional
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// effects collects what a transaction wants done once it has committed.
type effects struct {
	emails  []Email
	touched []string
}

func (e *effects) mail(m Email) {
	if m.To == "" {
		log.Printf("[notify] skip %q for order %s: recipient has no email", m.Subject, m.OrderID)
		return
	}
	e.emails = append(e.emails, m)
}

func (e *effects) touch(orderID string) { e.touched = append(e.touched, orderID) }

func (s *Service) run(ctx context.Context, fn func(ctx context.Context, tx Tx, fx *effects) error) error {
	var fx effects
	err := s.Store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		fx = effects{}
		return fn(ctx, tx, &fx)
	})
	if err != nil {
		return err
	}
	if s.Cache != nil {
		for _, id := range fx.touched {
			s.Cache.Forget(ctx, id)
		}
	}
	for _, m := range fx.emails {
		if s.Notifier == nil {
			break
		}
		if err := s.Notifier.Enqueue(ctx, m); err != nil {
			log.Printf("[notify] enqueue %q to %s failed: %v", m.Subject, m.To, err)
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, tx Tx, orderID string, a *Actor, action Action, details map[string]any) error {
	e := HistoryEntry{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Action:    action,
		Details:   details,
		CreatedAt: s.now(),
	}
	if a != nil && a.UserID != "" {
		uid := a.UserID
		e.UserID = &uid
	}
	return tx.AppendHistory(ctx, e)
}

// transition moves o to the next status and records a status_updated entry.
func (s *Service) transition(ctx context.Context, tx Tx, fx *effects, o *Order, to Status, a *Actor) error {
	if !CanTransition(o.Status, to) {
		return Validation("invalid status transition from "+string(o.Status)+" to "+string(to), nil)
	}
	from := o.Status
	o.Status = to
	o.UpdatedAt = s.now()
	if err := tx.UpdateOrder(ctx, *o); err != nil {
		return err
	}
	fx.touch(o.ID)
	return s.record(ctx, tx, o.ID, a, ActionStatusUpdated, map[string]any{
		"from": string(from),
		"to":   string(to),
	})
}
