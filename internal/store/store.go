// Package store persists accounts, wager records, funds requests and role
// grants. Every balance mutation goes through Update, which serializes
// callers per account and commits all staged changes together or none.
package store

import (
	"context"
	"time"

	"github.com/cryptoarcade/backend/internal/models"
	"github.com/shopspring/decimal"
)

// Tx is the critical section handed to an Update callback. It is only valid
// for the duration of the callback.
type Tx interface {
	// Account returns the locked account as of the last change made in this Tx.
	Account() models.Account
	// Adjust applies delta to the balance, failing with ErrInsufficientFunds
	// if the result would be negative.
	Adjust(delta decimal.Decimal) (decimal.Decimal, error)
	RecordStats(wagered, won decimal.Decimal) error
	AppendWager(rec *models.WagerRecord) error
	// FundsRequest loads a request owned by the locked account.
	FundsRequest(id string) (*models.FundsRequest, error)
	// SetFundsRequestStatus moves a pending request to status.
	SetFundsRequestStatus(id string, status models.FundsStatus, reviewer string, at time.Time) error
}

// AccountStore is the ledger side of the store.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	FindAccountByReferralCode(ctx context.Context, code string) (*models.Account, error)
	ListReferredAccounts(ctx context.Context, referrerID string) ([]*models.Account, error)
	Update(ctx context.Context, accountID string, fn func(Tx) error) error
	ListWagers(ctx context.Context, accountID string, limit int) ([]*models.WagerRecord, error)
	GetWagerByIdempotencyKey(ctx context.Context, accountID, key string) (*models.WagerRecord, error)
}

// FundsStore holds deposit and withdrawal requests.
type FundsStore interface {
	InsertFundsRequest(ctx context.Context, req *models.FundsRequest) error
	GetFundsRequest(ctx context.Context, id string) (*models.FundsRequest, error)
	ListFundsRequests(ctx context.Context, filter models.FundsFilter) ([]*models.FundsRequest, error)
}

// RoleStore holds role grants.
type RoleStore interface {
	ListRoles(ctx context.Context, userID string) ([]models.Role, error)
	GrantRole(ctx context.Context, grant models.RoleGrant) error
	RevokeRole(ctx context.Context, userID string, role models.Role) error
}

// Store is implemented by PostgresStore and MemoryStore.
type Store interface {
	AccountStore
	FundsStore
	RoleStore
}

const defaultListLimit = 50

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultListLimit
	}
	return limit
}
