package audit

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestAuditLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	a := NewAuditLogger(zap.New(core))

	a.LogWager("w-1", "acct-1", "lottery", decimal.NewFromInt(10), decimal.RequireFromString("35.5"))
	a.LogFundsTransition("r-1", "acct-1", "admin-1", "pending", "approved", decimal.NewFromInt(50))
	a.LogError("r-2", "acct-1", "FUNDS_TRANSITION", errors.New("insufficient funds"))

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "audit", entries[0].LoggerName)

	wager := entries[0].ContextMap()
	assert.Equal(t, "WAGER_SETTLED", wager["event_type"])
	assert.Equal(t, "10.00", wager["amount"])

	transition := entries[1].ContextMap()
	assert.Equal(t, "admin-1", transition["actor_id"])
	assert.Equal(t, "approved", transition["status"])

	failed := entries[2].ContextMap()
	assert.Equal(t, "FAILED", failed["status"])
}

func TestAuditLogger_NilBase(t *testing.T) {
	a := NewAuditLogger(nil)
	assert.NotPanics(t, func() { a.LogRoleChange("u", "admin", "moderator", "ROLE_GRANTED") })
}
