package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cryptoarcade/backend/internal/events"
	"github.com/cryptoarcade/backend/internal/logger"
	"github.com/cryptoarcade/backend/internal/models"
	"github.com/cryptoarcade/backend/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const referralCodeAttempts = 3

// LedgerService is the account-facing side of the ledger. Every balance
// change goes through store.Update so callers on the same account are
// serialized.
type LedgerService struct {
	store     store.AccountStore
	publisher events.Publisher
	retries   int
}

func NewLedgerService(st store.AccountStore, publisher events.Publisher, publishRetries int) *LedgerService {
	return &LedgerService{
		store:     st,
		publisher: publisher,
		retries:   publishRetries,
	}
}

// CreateAccount opens a zero-balance account for id. referredBy is an
// optional referral code of an existing account.
func (s *LedgerService) CreateAccount(ctx context.Context, id, username, referredBy string) (*models.Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: account id is required", models.ErrInvalidRequest)
	}

	acct := &models.Account{ID: id, Username: strings.TrimSpace(username)}
	if code := strings.ToUpper(strings.TrimSpace(referredBy)); code != "" {
		referrer, err := s.store.FindAccountByReferralCode(ctx, code)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown referral code", models.ErrInvalidRequest)
			}
			return nil, err
		}
		acct.ReferredBy = &referrer.ID
	}

	var err error
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		acct.ReferralCode = newReferralCode()
		if err = s.store.CreateAccount(ctx, acct); err == nil {
			logger.InfoCtx(ctx, "account created",
				zap.String("account_id", acct.ID), zap.String("referral_code", acct.ReferralCode))
			return acct, nil
		}
		if !errors.Is(err, models.ErrAccountExists) {
			return nil, err
		}
		// either the id is taken or the generated code collided
		if _, getErr := s.store.GetAccount(ctx, id); getErr == nil {
			return nil, models.ErrAccountExists
		}
	}
	return nil, fmt.Errorf("create account %s: %w", id, err)
}

func newReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *LedgerService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return s.store.GetAccount(ctx, id)
}

func (s *LedgerService) GetBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	acct, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return acct.Balance, nil
}

// AdjustBalance applies delta atomically and returns the new balance. A
// change that would take the balance below zero fails with
// ErrInsufficientFunds and leaves it untouched.
func (s *LedgerService) AdjustBalance(ctx context.Context, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.store.Update(ctx, id, func(tx store.Tx) error {
		var err error
		balance, err = tx.Adjust(delta)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	events.PublishWithRetry(ctx, s.publisher, balanceEvent(id, balance), s.retries)
	return balance, nil
}

// RecordStats adds to the lifetime counters. Negative amounts are an
// integrity violation.
func (s *LedgerService) RecordStats(ctx context.Context, id string, wagered, won decimal.Decimal) error {
	return s.store.Update(ctx, id, func(tx store.Tx) error {
		return tx.RecordStats(wagered, won)
	})
}

func (s *LedgerService) ListWagers(ctx context.Context, id string, limit int) ([]*models.WagerRecord, error) {
	if _, err := s.store.GetAccount(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListWagers(ctx, id, limit)
}

func balanceEvent(accountID string, balance decimal.Decimal) models.Event {
	return models.Event{
		ID:         uuid.NewString(),
		Type:       models.EventBalanceChanged,
		AccountID:  accountID,
		Balance:    &balance,
		OccurredAt: time.Now().UTC(),
	}
}

func statusEvent(req *models.FundsRequest) models.Event {
	return models.Event{
		ID:         uuid.NewString(),
		Type:       models.EventRequestStatusChanged,
		AccountID:  req.AccountID,
		RequestID:  req.ID,
		Status:     req.Status,
		OccurredAt: time.Now().UTC(),
	}
}
