package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventType names a change notification.
type EventType string

const (
	EventBalanceChanged       EventType = "balance.changed"
	EventRequestStatusChanged EventType = "request.status_changed"
)

// Event is pushed to subscribers after a commit. Delivery is at-least-once;
// consumers de-duplicate on ID.
type Event struct {
	ID         string           `json:"id"`
	Type       EventType        `json:"type"`
	AccountID  string           `json:"account_id"`
	RequestID  string           `json:"request_id,omitempty"`
	Balance    *decimal.Decimal `json:"balance,omitempty"`
	Status     FundsStatus      `json:"status,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}
