package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order on startup. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id            TEXT PRIMARY KEY,
		username      TEXT NOT NULL DEFAULT '',
		balance       NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		total_wagered NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (total_wagered >= 0),
		total_won     NUMERIC(20,2) NOT NULL DEFAULT 0 CHECK (total_won >= 0),
		referral_code TEXT NOT NULL UNIQUE,
		referred_by   TEXT REFERENCES accounts(id),
		version       INTEGER NOT NULL DEFAULT 1,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_accounts_referred_by ON accounts (referred_by)`,

	`CREATE TABLE IF NOT EXISTS wager_records (
		id              TEXT PRIMARY KEY,
		account_id      TEXT NOT NULL REFERENCES accounts(id),
		game_type       TEXT NOT NULL,
		bet_amount      NUMERIC(20,2) NOT NULL CHECK (bet_amount > 0),
		payout          NUMERIC(20,2) NOT NULL CHECK (payout >= 0),
		balance_after   NUMERIC(20,2) NOT NULL,
		result          JSONB NOT NULL DEFAULT '{}',
		idempotency_key TEXT,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_wager_records_account ON wager_records (account_id, created_at DESC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_wager_records_idempotency
		ON wager_records (account_id, idempotency_key) WHERE idempotency_key IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS funds_requests (
		id                 TEXT PRIMARY KEY,
		account_id         TEXT NOT NULL REFERENCES accounts(id),
		kind               TEXT NOT NULL CHECK (kind IN ('deposit', 'withdrawal')),
		amount             NUMERIC(20,2) NOT NULL CHECK (amount > 0),
		fee                NUMERIC(20,2) NOT NULL DEFAULT 0,
		currency           TEXT NOT NULL,
		network            TEXT NOT NULL,
		external_reference TEXT NOT NULL,
		status             TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'approved', 'completed', 'rejected')),
		reviewed_by        TEXT,
		reviewed_at        TIMESTAMPTZ,
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_funds_requests_account ON funds_requests (account_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_funds_requests_status ON funds_requests (status, kind)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_funds_requests_deposit_reference
		ON funds_requests (network, external_reference) WHERE kind = 'deposit'`,

	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id    TEXT NOT NULL,
		role       TEXT NOT NULL CHECK (role IN ('admin', 'moderator', 'user')),
		granted_by TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, role)
	)`,
}

// EnsureSchema creates the ledger tables and indexes if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
