package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Account is the ledger row for a single player. Balances are only changed
// through the settlement engine or the funds workflow.
type Account struct {
	ID           string          `json:"id" db:"id"`
	Username     string          `json:"username" db:"username"`
	Balance      decimal.Decimal `json:"balance" db:"balance"`
	TotalWagered decimal.Decimal `json:"total_wagered" db:"total_wagered"`
	TotalWon     decimal.Decimal `json:"total_won" db:"total_won"`
	ReferralCode string          `json:"referral_code" db:"referral_code"`
	ReferredBy   *string         `json:"referred_by,omitempty" db:"referred_by"`
	Version      int             `json:"version" db:"version"` // bumped on every balance change
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// GameType identifies a minigame.
type GameType string

const (
	GameLottery GameType = "lottery"
	GameScratch GameType = "scratch"
	GameChest   GameType = "chest"
	GameRunner  GameType = "runner"
)

// WagerRecord is one settled game round. Rows are append-only.
type WagerRecord struct {
	ID             string          `json:"id" db:"id"`
	AccountID      string          `json:"account_id" db:"account_id"`
	GameType       GameType        `json:"game_type" db:"game_type"`
	BetAmount      decimal.Decimal `json:"bet_amount" db:"bet_amount"`
	Payout         decimal.Decimal `json:"payout" db:"payout"`
	BalanceAfter   decimal.Decimal `json:"balance_after" db:"balance_after"`
	Result         Metadata        `json:"result" db:"result"`
	IdempotencyKey *string         `json:"-" db:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// Metadata type for JSONB fields
type Metadata map[string]any

// Value implements driver.Valuer for Metadata
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for Metadata
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(b, m)
}
