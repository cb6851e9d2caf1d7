package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cryptoarcade/backend/internal/models"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process Store used for local runs and tests. Each
// account has a one-slot lock acquired with a bounded wait; changes made in an
// Update are staged on copies and applied only when the callback succeeds.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	wagers   map[string][]*models.WagerRecord
	requests map[string]*models.FundsRequest
	roles    map[string]map[models.Role]models.RoleGrant

	locksMu sync.Mutex
	locks   map[string]chan struct{}

	opts Options
}

func NewMemoryStore(opts Options) *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*models.Account),
		wagers:   make(map[string][]*models.WagerRecord),
		requests: make(map[string]*models.FundsRequest),
		roles:    make(map[string]map[models.Role]models.RoleGrant),
		locks:    make(map[string]chan struct{}),
		opts:     opts.withDefaults(),
	}
}

func (s *MemoryStore) CreateAccount(ctx context.Context, acct *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[acct.ID]; ok {
		return models.ErrAccountExists
	}
	for _, a := range s.accounts {
		if a.ReferralCode == acct.ReferralCode {
			return models.ErrAccountExists
		}
	}

	now := time.Now()
	acct.Balance = decimal.Zero
	acct.TotalWagered = decimal.Zero
	acct.TotalWon = decimal.Zero
	acct.Version = 1
	acct.CreatedAt = now
	acct.UpdatedAt = now

	cp := *acct
	s.accounts[acct.ID] = &cp
	return nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) FindAccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.ReferralCode == code {
			cp := *a
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *MemoryStore) ListReferredAccounts(ctx context.Context, referrerID string) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Account, 0)
	for _, a := range s.accounts {
		if a.ReferredBy != nil && *a.ReferredBy == referrerID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// acquire takes the account's lock, waiting at most LockWait.
func (s *MemoryStore) acquire(ctx context.Context, accountID string) (func(), error) {
	s.locksMu.Lock()
	ch, ok := s.locks[accountID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[accountID] = ch
	}
	s.locksMu.Unlock()

	timer := time.NewTimer(s.opts.LockWait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: lock wait exceeded for account %s", models.ErrBusy, accountID)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", models.ErrBusy, ctx.Err())
	}
}

func (s *MemoryStore) Update(ctx context.Context, accountID string, fn func(Tx) error) error {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return err
	}

	release, err := s.acquire(ctx, accountID)
	if err != nil {
		return err
	}
	defer release()

	original, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}
	tx := &memTx{
		store:    s,
		account:  *original,
		statuses: make(map[string]memStatusChange),
	}

	if err := fn(tx); err != nil {
		return err
	}

	if tx.account.Balance.IsNegative() ||
		tx.account.TotalWagered.LessThan(original.TotalWagered) ||
		tx.account.TotalWon.LessThan(original.TotalWon) {
		return fmt.Errorf("%w: account %s", models.ErrIntegrity, accountID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	acct := tx.account
	if tx.dirty {
		acct.UpdatedAt = now
	}
	s.accounts[accountID] = &acct
	s.wagers[accountID] = append(s.wagers[accountID], tx.wagers...)
	for id, change := range tx.statuses {
		req := s.requests[id]
		req.Status = change.status
		reviewer := change.reviewer
		at := change.at
		req.ReviewedBy = &reviewer
		req.ReviewedAt = &at
		req.UpdatedAt = at
	}
	return nil
}

func (s *MemoryStore) ListWagers(ctx context.Context, accountID string, limit int) ([]*models.WagerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.wagers[accountID]
	limit = clampLimit(limit)
	out := make([]*models.WagerRecord, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *all[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) GetWagerByIdempotencyKey(ctx context.Context, accountID, key string) (*models.WagerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.wagers[accountID] {
		if w.IdempotencyKey != nil && *w.IdempotencyKey == key {
			cp := *w
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (s *MemoryStore) InsertFundsRequest(ctx context.Context, req *models.FundsRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[req.AccountID]; !ok {
		return models.ErrNotFound
	}
	if req.Kind == models.KindDeposit {
		for _, r := range s.requests {
			if r.Kind == models.KindDeposit && r.Network == req.Network && r.ExternalReference == req.ExternalReference {
				return models.ErrDuplicateReference
			}
		}
	}

	req.UpdatedAt = req.CreatedAt
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *MemoryStore) GetFundsRequest(ctx context.Context, id string) (*models.FundsRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.requests[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) ListFundsRequests(ctx context.Context, filter models.FundsFilter) ([]*models.FundsRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.FundsRequest, 0)
	for _, r := range s.requests {
		if filter.AccountID != "" && r.AccountID != filter.AccountID {
			continue
		}
		if filter.Kind != "" && r.Kind != filter.Kind {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit := clampLimit(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListRoles(ctx context.Context, userID string) ([]models.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	roles := make([]models.Role, 0, len(s.roles[userID]))
	for r := range s.roles[userID] {
		roles = append(roles, r)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	return roles, nil
}

func (s *MemoryStore) GrantRole(ctx context.Context, grant models.RoleGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.roles[grant.UserID] == nil {
		s.roles[grant.UserID] = make(map[models.Role]models.RoleGrant)
	}
	if _, ok := s.roles[grant.UserID][grant.Role]; ok {
		return models.ErrRoleExists
	}
	grant.CreatedAt = time.Now()
	s.roles[grant.UserID][grant.Role] = grant
	return nil
}

func (s *MemoryStore) RevokeRole(ctx context.Context, userID string, role models.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[userID][role]; !ok {
		return models.ErrNotFound
	}
	delete(s.roles[userID], role)
	return nil
}

type memStatusChange struct {
	status   models.FundsStatus
	reviewer string
	at       time.Time
}

type memTx struct {
	store    *MemoryStore
	account  models.Account
	dirty    bool
	wagers   []*models.WagerRecord
	statuses map[string]memStatusChange
}

func (t *memTx) Account() models.Account { return t.account }

func (t *memTx) Adjust(delta decimal.Decimal) (decimal.Decimal, error) {
	next := t.account.Balance.Add(delta)
	if next.IsNegative() {
		return t.account.Balance, models.ErrInsufficientFunds
	}
	t.account.Balance = next
	t.account.Version++
	t.dirty = true
	return next, nil
}

func (t *memTx) RecordStats(wagered, won decimal.Decimal) error {
	if wagered.IsNegative() || won.IsNegative() {
		return fmt.Errorf("%w: negative stats increment", models.ErrIntegrity)
	}
	t.account.TotalWagered = t.account.TotalWagered.Add(wagered)
	t.account.TotalWon = t.account.TotalWon.Add(won)
	t.dirty = true
	return nil
}

func (t *memTx) AppendWager(rec *models.WagerRecord) error {
	if rec.IdempotencyKey != nil {
		key := *rec.IdempotencyKey
		if _, err := t.store.GetWagerByIdempotencyKey(context.Background(), t.account.ID, key); err == nil {
			return models.ErrDuplicateInFlight
		}
		for _, w := range t.wagers {
			if w.IdempotencyKey != nil && *w.IdempotencyKey == key {
				return models.ErrDuplicateInFlight
			}
		}
	}
	cp := *rec
	t.wagers = append(t.wagers, &cp)
	return nil
}

func (t *memTx) FundsRequest(id string) (*models.FundsRequest, error) {
	req, err := t.store.GetFundsRequest(context.Background(), id)
	if err != nil {
		return nil, err
	}
	if req.AccountID != t.account.ID {
		return nil, models.ErrNotFound
	}
	if change, ok := t.statuses[id]; ok {
		req.Status = change.status
	}
	return req, nil
}

func (t *memTx) SetFundsRequestStatus(id string, status models.FundsStatus, reviewer string, at time.Time) error {
	req, err := t.FundsRequest(id)
	if err != nil {
		return err
	}
	if req.Status != models.StatusPending {
		return models.ErrInvalidTransition
	}
	t.statuses[id] = memStatusChange{status: status, reviewer: reviewer, at: at}
	return nil
}
