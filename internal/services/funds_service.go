package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cryptoarcade/backend/internal/audit"
	"github.com/cryptoarcade/backend/internal/config"
	"github.com/cryptoarcade/backend/internal/events"
	"github.com/cryptoarcade/backend/internal/logger"
	"github.com/cryptoarcade/backend/internal/metrics"
	"github.com/cryptoarcade/backend/internal/models"
	"github.com/cryptoarcade/backend/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RoleChecker is the part of AccessService other services depend on.
type RoleChecker interface {
	RequireRole(ctx context.Context, userID string, role models.Role) error
}

// FundsRequestInput is what a player submits for a deposit or withdrawal.
// ExternalReference is the chain tx hash for deposits and the destination
// address for withdrawals.
type FundsRequestInput struct {
	Kind              models.FundsKind
	Amount            decimal.Decimal
	Currency          string
	Network           string
	ExternalReference string
}

// FundsService runs the manual-review deposit and withdrawal workflow.
// Funds move only on approval or completion, inside the same ledger
// mutation that changes the request status.
type FundsService struct {
	store     store.Store
	cfg       *config.FundsConfig
	access    RoleChecker
	validator *ValidationHelper
	publisher events.Publisher
	retries   int
	audit     *audit.AuditLogger
	now       func() time.Time
}

func NewFundsService(st store.Store, cfg *config.FundsConfig, access RoleChecker, validator *ValidationHelper,
	publisher events.Publisher, publishRetries int, auditLog *audit.AuditLogger) *FundsService {
	if auditLog == nil {
		auditLog = audit.NewAuditLogger(nil)
	}
	if validator == nil {
		validator = NewValidationHelper()
	}
	return &FundsService{
		store:     st,
		cfg:       cfg,
		access:    access,
		validator: validator,
		publisher: publisher,
		retries:   publishRetries,
		audit:     auditLog,
		now:       time.Now,
	}
}

// CreateFundsRequest validates and stores a pending request. Withdrawals
// must be covered by the balance at creation; the balance is checked again
// on completion.
func (s *FundsService) CreateFundsRequest(ctx context.Context, accountID string, in FundsRequestInput) (*models.FundsRequest, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.cfg.Currency
	}
	if currency != s.cfg.Currency {
		return nil, fmt.Errorf("%w: only %s is supported", models.ErrInvalidRequest, s.cfg.Currency)
	}
	network, ok := s.cfg.Network(strings.ToUpper(strings.TrimSpace(in.Network)))
	if !ok {
		return nil, fmt.Errorf("%w: unsupported network %q", models.ErrInvalidRequest, in.Network)
	}
	ref := strings.TrimSpace(in.ExternalReference)

	acct, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	req := &models.FundsRequest{
		ID:                uuid.NewString(),
		AccountID:         accountID,
		Kind:              in.Kind,
		Currency:          currency,
		Network:           network.Name,
		ExternalReference: ref,
		Status:            models.StatusPending,
		Fee:               decimal.Zero,
		CreatedAt:         s.now().UTC(),
	}

	switch in.Kind {
	case models.KindDeposit:
		amount := in.Amount.Round(2)
		if amount.LessThan(s.cfg.DepositMin) || amount.GreaterThan(s.cfg.DepositMax) {
			return nil, fmt.Errorf("%w: deposit must be between %s and %s", models.ErrInvalidRequest,
				s.cfg.DepositMin.StringFixed(2), s.cfg.DepositMax.StringFixed(2))
		}
		if len(ref) < s.cfg.TxHashMinLength || len(ref) > s.cfg.TxHashMaxLength ||
			s.validator.ValidateVar(ref, "tx_hash") != nil {
			return nil, fmt.Errorf("%w: invalid transaction hash", models.ErrInvalidRequest)
		}
		req.Amount = amount

	case models.KindWithdrawal:
		if !Money(in.Amount) {
			return nil, fmt.Errorf("%w: amount must be positive with at most two decimals", models.ErrInvalidRequest)
		}
		if in.Amount.LessThan(s.cfg.WithdrawalMin) || !in.Amount.GreaterThan(network.WithdrawalFee) {
			return nil, fmt.Errorf("%w: minimum withdrawal is %s", models.ErrInvalidRequest, s.cfg.WithdrawalMin.StringFixed(2))
		}
		if err := s.validator.ValidateVar(ref, "required,"+network.AddressTag); err != nil {
			return nil, fmt.Errorf("%w: invalid %s address", models.ErrInvalidRequest, network.Name)
		}
		if in.Amount.GreaterThan(acct.Balance) {
			return nil, models.ErrInsufficientFunds
		}
		req.Amount = in.Amount
		req.Fee = network.WithdrawalFee

	default:
		return nil, fmt.Errorf("%w: unknown request kind %q", models.ErrInvalidRequest, in.Kind)
	}

	if err := s.store.InsertFundsRequest(ctx, req); err != nil {
		return nil, err
	}

	s.audit.LogFundsRequest(req.ID, accountID, string(req.Kind), req.Amount)
	metrics.RecordFundsTransition(string(req.Kind), string(req.Status))
	logger.InfoCtx(ctx, "funds request created",
		zap.String("request_id", req.ID),
		zap.String("account_id", accountID),
		zap.String("kind", string(req.Kind)),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("network", req.Network))
	events.PublishWithRetry(ctx, s.publisher, statusEvent(req), s.retries)

	return req, nil
}

// ApproveDeposit credits a pending deposit and marks it approved.
func (s *FundsService) ApproveDeposit(ctx context.Context, actorID, requestID string) (*models.FundsRequest, error) {
	return s.transition(ctx, actorID, requestID, models.ActionApprove)
}

// CompleteWithdrawal debits a pending withdrawal and marks it completed. If
// the balance no longer covers it the request stays pending.
func (s *FundsService) CompleteWithdrawal(ctx context.Context, actorID, requestID string) (*models.FundsRequest, error) {
	return s.transition(ctx, actorID, requestID, models.ActionComplete)
}

// Reject closes a pending request without moving funds.
func (s *FundsService) Reject(ctx context.Context, actorID, requestID string) (*models.FundsRequest, error) {
	return s.transition(ctx, actorID, requestID, models.ActionReject)
}

func (s *FundsService) transition(ctx context.Context, actorID, requestID string, action models.FundsAction) (*models.FundsRequest, error) {
	if err := s.access.RequireRole(ctx, actorID, models.RoleAdmin); err != nil {
		return nil, err
	}

	req, err := s.store.GetFundsRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if _, err := models.NextFundsStatus(req.Kind, req.Status, action); err != nil {
		return nil, err
	}

	var (
		updated models.FundsRequest
		balance *decimal.Decimal
	)
	at := s.now().UTC()
	err = s.store.Update(ctx, req.AccountID, func(tx store.Tx) error {
		cur, err := tx.FundsRequest(requestID)
		if err != nil {
			return err
		}
		next, err := models.NextFundsStatus(cur.Kind, cur.Status, action)
		if err != nil {
			return err
		}

		var delta decimal.Decimal
		switch next {
		case models.StatusApproved:
			delta = cur.Amount
		case models.StatusCompleted:
			delta = cur.Amount.Neg()
		}
		if !delta.IsZero() {
			b, err := tx.Adjust(delta)
			if err != nil {
				return err
			}
			balance = &b
		}

		if err := tx.SetFundsRequestStatus(requestID, next, actorID, at); err != nil {
			return err
		}

		updated = *cur
		updated.Status = next
		updated.ReviewedBy = &actorID
		updated.ReviewedAt = &at
		updated.UpdatedAt = at
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrBusy) {
			metrics.RecordBusy()
		}
		s.audit.LogError(requestID, req.AccountID, "FUNDS_TRANSITION", err)
		return nil, err
	}

	s.audit.LogFundsTransition(requestID, updated.AccountID, actorID, string(req.Status), string(updated.Status), updated.Amount)
	metrics.RecordFundsTransition(string(updated.Kind), string(updated.Status))
	logger.InfoCtx(ctx, "funds request reviewed",
		zap.String("request_id", requestID),
		zap.String("account_id", updated.AccountID),
		zap.String("actor_id", actorID),
		zap.String("status", string(updated.Status)))

	events.PublishWithRetry(ctx, s.publisher, statusEvent(&updated), s.retries)
	if balance != nil {
		events.PublishWithRetry(ctx, s.publisher, balanceEvent(updated.AccountID, *balance), s.retries)
	}
	return &updated, nil
}

// ListForAccount returns the caller's own requests, newest first.
func (s *FundsService) ListForAccount(ctx context.Context, accountID string, kind models.FundsKind, status models.FundsStatus, limit int) ([]*models.FundsRequest, error) {
	return s.store.ListFundsRequests(ctx, models.FundsFilter{AccountID: accountID, Kind: kind, Status: status, Limit: limit})
}

// ListAll is the admin review queue.
func (s *FundsService) ListAll(ctx context.Context, actorID string, filter models.FundsFilter) ([]*models.FundsRequest, error) {
	if err := s.access.RequireRole(ctx, actorID, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.store.ListFundsRequests(ctx, filter)
}
