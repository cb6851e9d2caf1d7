// Package audit records money-moving and privilege-changing operations as
// structured log entries on a dedicated "audit" logger.
package audit

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type AuditEvent struct {
	Timestamp time.Time
	EventType string
	RefID     string // wager, funds request or role grant
	AccountID string
	ActorID   string
	Amount    decimal.Decimal
	Status    string
	Details   map[string]string
}

type AuditLogger struct {
	log *zap.Logger
}

func NewAuditLogger(base *zap.Logger) *AuditLogger {
	if base == nil {
		base = zap.NewNop()
	}
	return &AuditLogger{log: base.Named("audit")}
}

func (a *AuditLogger) LogWager(wagerID, accountID, game string, bet, payout decimal.Decimal) {
	a.write(AuditEvent{
		EventType: "WAGER_SETTLED",
		RefID:     wagerID,
		AccountID: accountID,
		ActorID:   accountID,
		Amount:    bet,
		Status:    "SUCCESS",
		Details:   map[string]string{"game_type": game, "payout": payout.StringFixed(2)},
	})
}

func (a *AuditLogger) LogFundsRequest(requestID, accountID, kind string, amount decimal.Decimal) {
	a.write(AuditEvent{
		EventType: "FUNDS_REQUESTED",
		RefID:     requestID,
		AccountID: accountID,
		ActorID:   accountID,
		Amount:    amount,
		Status:    "PENDING",
		Details:   map[string]string{"kind": kind},
	})
}

func (a *AuditLogger) LogFundsTransition(requestID, accountID, actorID, from, to string, amount decimal.Decimal) {
	a.write(AuditEvent{
		EventType: "FUNDS_TRANSITION",
		RefID:     requestID,
		AccountID: accountID,
		ActorID:   actorID,
		Amount:    amount,
		Status:    to,
		Details:   map[string]string{"from": from},
	})
}

func (a *AuditLogger) LogRoleChange(userID, actorID, role, operation string) {
	a.write(AuditEvent{
		EventType: operation,
		RefID:     userID + ":" + role,
		AccountID: userID,
		ActorID:   actorID,
		Status:    "SUCCESS",
		Details:   map[string]string{"role": role},
	})
}

func (a *AuditLogger) LogError(refID, accountID, operation string, err error) {
	a.write(AuditEvent{
		EventType: operation,
		RefID:     refID,
		AccountID: accountID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (a *AuditLogger) write(event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	a.log.Info("AUDIT",
		zap.Time("timestamp", event.Timestamp),
		zap.String("event_type", event.EventType),
		zap.String("ref_id", event.RefID),
		zap.String("account_id", event.AccountID),
		zap.String("actor_id", event.ActorID),
		zap.String("amount", event.Amount.StringFixed(2)),
		zap.String("status", event.Status),
		zap.Any("details", event.Details),
	)
}
