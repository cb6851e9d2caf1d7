package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cryptoarcade/backend/internal/audit"
	"github.com/cryptoarcade/backend/internal/events"
	"github.com/cryptoarcade/backend/internal/games"
	"github.com/cryptoarcade/backend/internal/logger"
	"github.com/cryptoarcade/backend/internal/metrics"
	"github.com/cryptoarcade/backend/internal/models"
	"github.com/cryptoarcade/backend/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettleRequest is one round as submitted by a player. Tier is read for
// chests and Seconds for runner rounds.
type SettleRequest struct {
	AccountID      string
	GameType       models.GameType
	BetAmount      decimal.Decimal
	Tier           string
	Seconds        int
	IdempotencyKey string
}

type SettleResult struct {
	WagerID    string          `json:"wager_id"`
	GameType   models.GameType `json:"game_type"`
	BetAmount  decimal.Decimal `json:"bet_amount"`
	Payout     decimal.Decimal `json:"payout"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Won        bool            `json:"won"`
	Result     models.Metadata `json:"result"`
	SettledAt  time.Time       `json:"settled_at"`
	Replayed   bool            `json:"replayed,omitempty"`
}

type SettlementOptions struct {
	LockTTL        time.Duration
	ResultTTL      time.Duration
	PublishRetries int
}

func (o SettlementOptions) withDefaults() SettlementOptions {
	if o.LockTTL <= 0 {
		o.LockTTL = 10 * time.Second
	}
	if o.ResultTTL <= 0 {
		o.ResultTTL = time.Minute
	}
	if o.PublishRetries <= 0 {
		o.PublishRetries = 3
	}
	return o
}

// SettlementService debits the stake, decides the outcome with a server
// seeded RNG, credits the payout and appends the wager record in a single
// serialized ledger mutation.
type SettlementService struct {
	store     store.AccountStore
	games     games.Config
	idem      IdempotencyStore
	publisher events.Publisher
	audit     *audit.AuditLogger
	opts      SettlementOptions
	newSource func() games.Source
	now       func() time.Time
}

func NewSettlementService(st store.AccountStore, cfg games.Config, idem IdempotencyStore,
	publisher events.Publisher, auditLog *audit.AuditLogger, opts SettlementOptions) *SettlementService {
	if idem == nil {
		idem = NewMemoryIdempotency()
	}
	if auditLog == nil {
		auditLog = audit.NewAuditLogger(nil)
	}
	return &SettlementService{
		store:     st,
		games:     cfg,
		idem:      idem,
		publisher: publisher,
		audit:     auditLog,
		opts:      opts.withDefaults(),
		newSource: games.NewSource,
		now:       time.Now,
	}
}

// Games exposes the active game table.
func (s *SettlementService) Games() games.Config { return s.games }

func (s *SettlementService) Settle(ctx context.Context, req SettleRequest) (res *SettleResult, err error) {
	start := time.Now()
	req.IdempotencyKey = strings.TrimSpace(req.IdempotencyKey)
	defer func() {
		game := string(req.GameType)
		if errors.Is(err, models.ErrUnknownGame) {
			game = "unknown"
		}
		metrics.RecordSettle(game, settleLabel(res, err), start)
	}()

	play := games.Play{Game: req.GameType, Bet: req.BetAmount, Tier: req.Tier, Seconds: req.Seconds}
	if err := s.games.ValidateStake(play); err != nil {
		return nil, err
	}

	if req.IdempotencyKey != "" {
		scoped := req.AccountID + ":" + req.IdempotencyKey
		if cached, ok := s.cachedResult(ctx, scoped); ok {
			return checkReplay(cached, req)
		}

		release, lockErr := s.idem.Acquire(ctx, scoped, s.opts.LockTTL)
		if lockErr != nil {
			if cached, ok := s.cachedResult(ctx, scoped); ok {
				return checkReplay(cached, req)
			}
			if errors.Is(lockErr, models.ErrDuplicateInFlight) {
				return nil, lockErr
			}
			return nil, fmt.Errorf("idempotency lock: %w", lockErr)
		}
		defer release()

		// the cache may have expired while the wager row is still there
		rec, lookupErr := s.store.GetWagerByIdempotencyKey(ctx, req.AccountID, req.IdempotencyKey)
		if lookupErr == nil {
			return checkReplay(replayFromRecord(rec), req)
		}
		if !errors.Is(lookupErr, models.ErrNotFound) {
			return nil, lookupErr
		}

		defer func() {
			if err == nil {
				s.saveResult(ctx, scoped, res)
			}
		}()
	}

	return s.settle(ctx, req, play)
}

func (s *SettlementService) settle(ctx context.Context, req SettleRequest, play games.Play) (*SettleResult, error) {
	var res *SettleResult

	err := s.store.Update(ctx, req.AccountID, func(tx store.Tx) error {
		if tx.Account().Balance.LessThan(req.BetAmount) {
			return models.ErrInsufficientFunds
		}
		balance, err := tx.Adjust(req.BetAmount.Neg())
		if err != nil {
			return err
		}

		outcome, err := s.games.Play(play, s.newSource())
		if err != nil {
			return err
		}
		if outcome.Payout.IsPositive() {
			if balance, err = tx.Adjust(outcome.Payout); err != nil {
				return err
			}
		}

		rec := &models.WagerRecord{
			ID:           uuid.NewString(),
			AccountID:    req.AccountID,
			GameType:     req.GameType,
			BetAmount:    req.BetAmount,
			Payout:       outcome.Payout,
			BalanceAfter: balance,
			Result:       outcome.Result,
			CreatedAt:    s.now().UTC(),
		}
		if req.IdempotencyKey != "" {
			key := req.IdempotencyKey
			rec.IdempotencyKey = &key
		}
		if err := tx.AppendWager(rec); err != nil {
			return err
		}
		if err := tx.RecordStats(req.BetAmount, outcome.Payout); err != nil {
			return err
		}

		res = &SettleResult{
			WagerID:    rec.ID,
			GameType:   rec.GameType,
			BetAmount:  rec.BetAmount,
			Payout:     rec.Payout,
			NewBalance: balance,
			Won:        outcome.Won,
			Result:     rec.Result,
			SettledAt:  rec.CreatedAt,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrBusy) {
			metrics.RecordBusy()
		}
		if errors.Is(err, models.ErrIntegrity) {
			s.audit.LogError(req.IdempotencyKey, req.AccountID, "WAGER_SETTLED", err)
			logger.ErrorCtx(ctx, "settlement integrity violation",
				zap.String("account_id", req.AccountID), zap.String("game_type", string(req.GameType)), zap.Error(err))
		}
		return nil, err
	}

	metrics.RecordVolume(string(res.GameType), res.BetAmount, res.Payout)
	s.audit.LogWager(res.WagerID, req.AccountID, string(res.GameType), res.BetAmount, res.Payout)
	logger.InfoCtx(ctx, "wager settled",
		zap.String("wager_id", res.WagerID),
		zap.String("account_id", req.AccountID),
		zap.String("game_type", string(res.GameType)),
		zap.String("bet", res.BetAmount.StringFixed(2)),
		zap.String("payout", res.Payout.StringFixed(2)))
	events.PublishWithRetry(ctx, s.publisher, balanceEvent(req.AccountID, res.NewBalance), s.opts.PublishRetries)

	return res, nil
}

func (s *SettlementService) cachedResult(ctx context.Context, key string) (*SettleResult, bool) {
	data, ok := s.idem.Result(ctx, key)
	if !ok {
		return nil, false
	}
	var res SettleResult
	if err := json.Unmarshal(data, &res); err != nil {
		logger.WarnCtx(ctx, "discarding unreadable settlement cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	res.Replayed = true
	return &res, true
}

func (s *SettlementService) saveResult(ctx context.Context, key string, res *SettleResult) {
	data, err := json.Marshal(res)
	if err != nil {
		logger.WarnCtx(ctx, "settlement result not cached", zap.Error(err))
		return
	}
	s.idem.SaveResult(ctx, key, data, s.opts.ResultTTL)
}

// checkReplay refuses to answer a reused key with a wager that was placed on
// a different game or stake.
func checkReplay(res *SettleResult, req SettleRequest) (*SettleResult, error) {
	if res.GameType != req.GameType || !res.BetAmount.Equal(req.BetAmount) {
		return nil, fmt.Errorf("%w: idempotency key %q was used for a different wager", models.ErrInvalidRequest, req.IdempotencyKey)
	}
	return res, nil
}

func replayFromRecord(rec *models.WagerRecord) *SettleResult {
	won, _ := rec.Result["won"].(bool)
	return &SettleResult{
		WagerID:    rec.ID,
		GameType:   rec.GameType,
		BetAmount:  rec.BetAmount,
		Payout:     rec.Payout,
		NewBalance: rec.BalanceAfter,
		Won:        won,
		Result:     rec.Result,
		SettledAt:  rec.CreatedAt,
		Replayed:   true,
	}
}

func settleLabel(res *SettleResult, err error) string {
	switch {
	case err == nil && res.Replayed:
		return "replayed"
	case err == nil && res.Won:
		return "won"
	case err == nil:
		return "lost"
	case errors.Is(err, models.ErrInvalidStake), errors.Is(err, models.ErrUnknownGame):
		return "invalid_stake"
	case errors.Is(err, models.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, models.ErrBusy):
		return "busy"
	case errors.Is(err, models.ErrDuplicateInFlight):
		return "duplicate"
	}
	return "error"
}
