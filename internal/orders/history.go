package orders

import "time"

type Action string

const (
	ActionStatusUpdated  Action = "status_updated"
	ActionItemRejected   Action = "item_rejected"
	ActionItemConfirmed  Action = "item_confirmed"
	ActionOrderAssembled Action = "order_assembled"
	ActionOrderCanceled  Action = "order_canceled"
	ActionPartnerAction  Action = "partner_action"
)

// HistoryEntry is an append-only audit record. UserID is nil for system actions.
type HistoryEntry struct {
	ID        string         `json:"id"`
	OrderID   string         `json:"order_id"`
	Action    Action         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	UserID    *string        `json:"user_id"`
	CreatedAt time.Time      `json:"created_at"`
}
