package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cryptoarcade/backend/internal/games"
	"github.com/cryptoarcade/backend/internal/logger"
	"github.com/cryptoarcade/backend/internal/models"
	"github.com/cryptoarcade/backend/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RunSession is an open runner round. Nothing is debited until the run is
// settled on exit or timeout.
type RunSession struct {
	ID        string    `json:"run_id"`
	AccountID string    `json:"account_id"`
	StartedAt time.Time `json:"started_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RunnerService tracks open runs in process and settles them through the
// settlement engine. One run per account.
type RunnerService struct {
	settlement *SettlementService
	accounts   store.AccountStore
	cfg        games.RunnerConfig

	mu   sync.Mutex
	runs map[string]*RunSession // by account
	now  func() time.Time
}

func NewRunnerService(settlement *SettlementService, accounts store.AccountStore) *RunnerService {
	return &RunnerService{
		settlement: settlement,
		accounts:   accounts,
		cfg:        settlement.Games().Runner,
		runs:       make(map[string]*RunSession),
		now:        time.Now,
	}
}

// StartRun opens a run. The balance must cover a full-length run.
func (s *RunnerService) StartRun(ctx context.Context, accountID string) (*RunSession, error) {
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if acct.Balance.LessThan(s.cfg.MaxCost()) {
		return nil, fmt.Errorf("%w: a run needs %s available", models.ErrInsufficientFunds, s.cfg.MaxCost().StringFixed(2))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[accountID]; ok {
		return nil, models.ErrRunInProgress
	}
	now := s.now()
	run := &RunSession{
		ID:        uuid.NewString(),
		AccountID: accountID,
		StartedAt: now,
		ExpiresAt: now.Add(s.cfg.MaxDuration),
	}
	s.runs[accountID] = run

	logger.InfoCtx(ctx, "runner started", zap.String("account_id", accountID), zap.String("run_id", run.ID))
	cp := *run
	return &cp, nil
}

// ExitRun settles the caller's run for the whole seconds elapsed, clamped
// to [1, max].
func (s *RunnerService) ExitRun(ctx context.Context, accountID, runID string) (*SettleResult, error) {
	run, err := s.take(accountID, runID)
	if err != nil {
		return nil, err
	}
	return s.finish(ctx, run, s.elapsedSeconds(run))
}

// Active returns the caller's open run, if any.
func (s *RunnerService) Active(accountID string) (*RunSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[accountID]
	if !ok {
		return nil, false
	}
	cp := *run
	return &cp, true
}

// Sweep settles every run past its deadline at the maximum length.
func (s *RunnerService) Sweep(ctx context.Context) int {
	now := s.now()
	expired := s.takeWhere(func(run *RunSession) bool { return !now.Before(run.ExpiresAt) })
	return s.settleAll(ctx, expired, func(*RunSession) int { return s.cfg.MaxSeconds() })
}

// Drain settles every open run at its elapsed length. Sessions live in
// memory, so this runs on shutdown.
func (s *RunnerService) Drain(ctx context.Context) int {
	open := s.takeWhere(func(*RunSession) bool { return true })
	return s.settleAll(ctx, open, s.elapsedSeconds)
}

func (s *RunnerService) takeWhere(match func(*RunSession) bool) []*RunSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*RunSession
	for accountID, run := range s.runs {
		if match(run) {
			out = append(out, run)
			delete(s.runs, accountID)
		}
	}
	return out
}

func (s *RunnerService) settleAll(ctx context.Context, runs []*RunSession, seconds func(*RunSession) int) int {
	settled := 0
	for _, run := range runs {
		if _, err := s.finish(ctx, run, seconds(run)); err != nil {
			logger.WarnCtx(ctx, "runner settlement failed",
				zap.String("account_id", run.AccountID), zap.String("run_id", run.ID), zap.Error(err))
			continue
		}
		settled++
	}
	return settled
}

// Run sweeps expired runs every interval until ctx is done.
func (s *RunnerService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(ctx); n > 0 {
				logger.Info("runner sweep settled expired runs", zap.Int("count", n))
			}
		}
	}
}

func (s *RunnerService) take(accountID, runID string) (*RunSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[accountID]
	if !ok || run.ID != runID {
		return nil, fmt.Errorf("%w: run %s", models.ErrNotFound, runID)
	}
	delete(s.runs, accountID)
	return run, nil
}

// restore puts a run back after a settlement that can be retried.
func (s *RunnerService) restore(run *RunSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.AccountID]; !ok {
		s.runs[run.AccountID] = run
	}
}

func (s *RunnerService) elapsedSeconds(run *RunSession) int {
	secs := int(s.now().Sub(run.StartedAt) / time.Second)
	if secs < 1 {
		secs = 1
	}
	if max := s.cfg.MaxSeconds(); secs > max {
		secs = max
	}
	return secs
}

func (s *RunnerService) finish(ctx context.Context, run *RunSession, seconds int) (*SettleResult, error) {
	res, err := s.settlement.Settle(ctx, SettleRequest{
		AccountID:      run.AccountID,
		GameType:       models.GameRunner,
		BetAmount:      s.cfg.CostPerSecond.Mul(decimal.NewFromInt(int64(seconds))),
		Seconds:        seconds,
		IdempotencyKey: "runner:" + run.ID,
	})
	if err != nil {
		if errors.Is(err, models.ErrBusy) || errors.Is(err, models.ErrDuplicateInFlight) {
			s.restore(run)
		}
		return nil, err
	}
	return res, nil
}
