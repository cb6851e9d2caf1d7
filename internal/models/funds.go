package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FundsKind tells deposits and withdrawals apart.
type FundsKind string

const (
	KindDeposit    FundsKind = "deposit"
	KindWithdrawal FundsKind = "withdrawal"
)

// FundsStatus is the review state of a FundsRequest.
type FundsStatus string

const (
	StatusPending   FundsStatus = "pending"
	StatusApproved  FundsStatus = "approved"  // deposit credited
	StatusCompleted FundsStatus = "completed" // withdrawal paid out
	StatusRejected  FundsStatus = "rejected"
)

// Terminal reports whether no further transition is allowed.
func (s FundsStatus) Terminal() bool {
	return s != StatusPending
}

// FundsAction is a reviewer decision.
type FundsAction string

const (
	ActionApprove  FundsAction = "approve"
	ActionComplete FundsAction = "complete"
	ActionReject   FundsAction = "reject"
)

// FundsRequest is a user-submitted deposit or withdrawal awaiting manual review.
// ExternalReference holds the chain tx hash for deposits and the destination
// address for withdrawals.
type FundsRequest struct {
	ID                string          `json:"id" db:"id"`
	AccountID         string          `json:"account_id" db:"account_id"`
	Kind              FundsKind       `json:"kind" db:"kind"`
	Amount            decimal.Decimal `json:"amount" db:"amount"`
	Fee               decimal.Decimal `json:"fee" db:"fee"`
	Currency          string          `json:"currency" db:"currency"`
	Network           string          `json:"network" db:"network"`
	ExternalReference string          `json:"external_reference" db:"external_reference"`
	Status            FundsStatus     `json:"status" db:"status"`
	ReviewedBy        *string         `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt        *time.Time      `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// NetAmount is what the user receives on-chain for a withdrawal.
func (r *FundsRequest) NetAmount() decimal.Decimal {
	net := r.Amount.Sub(r.Fee)
	if net.IsNegative() {
		return decimal.Zero
	}
	return net
}

// MarshalJSON adds net_amount to withdrawals.
func (r FundsRequest) MarshalJSON() ([]byte, error) {
	type plain FundsRequest
	out := struct {
		plain
		NetAmount *decimal.Decimal `json:"net_amount,omitempty"`
	}{plain: plain(r)}
	if r.Kind == KindWithdrawal {
		net := r.NetAmount()
		out.NetAmount = &net
	}
	return json.Marshal(out)
}

// FundsFilter narrows request listings. Zero values match everything.
type FundsFilter struct {
	AccountID string
	Kind      FundsKind
	Status    FundsStatus
	Limit     int
}

// NextFundsStatus computes the status a request moves to under action, or
// ErrInvalidTransition when the move is not allowed.
func NextFundsStatus(kind FundsKind, cur FundsStatus, action FundsAction) (FundsStatus, error) {
	if !cur.Terminal() {
		switch {
		case action == ActionReject:
			return StatusRejected, nil
		case kind == KindDeposit && action == ActionApprove:
			return StatusApproved, nil
		case kind == KindWithdrawal && action == ActionComplete:
			return StatusCompleted, nil
		}
	}
	return cur, fmt.Errorf("%w: %s %s --%s--> ?", ErrInvalidTransition, kind, cur, action)
}
