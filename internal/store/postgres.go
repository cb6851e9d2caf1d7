package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cryptoarcade/backend/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	accountColumns = `id, username, balance, total_wagered, total_won, referral_code, referred_by, version, created_at, updated_at`
	wagerColumns   = `id, account_id, game_type, bet_amount, payout, balance_after, result, idempotency_key, created_at`
	fundsColumns   = `id, account_id, kind, amount, fee, currency, network, external_reference, status, reviewed_by, reviewed_at, created_at, updated_at`
)

// Options tunes the transactional behaviour of the stores.
type Options struct {
	// TxTimeout bounds an Update when the caller's context has no deadline.
	TxTimeout time.Duration
	// LockWait bounds how long an Update waits for the account lock.
	LockWait time.Duration
}

func (o Options) withDefaults() Options {
	if o.TxTimeout <= 0 {
		o.TxTimeout = 3 * time.Second
	}
	if o.LockWait <= 0 {
		o.LockWait = 2 * time.Second
	}
	return o
}

// PostgresStore keeps the ledger in Postgres. Per-account serialization is a
// row lock (SELECT ... FOR UPDATE) bounded by lock_timeout, and every balance
// change is a conditional UPDATE that refuses to go below zero.
type PostgresStore struct {
	db   *sqlx.DB
	opts Options
}

func NewPostgresStore(db *sql.DB, opts Options) *PostgresStore {
	return &PostgresStore{
		db:   sqlx.NewDb(db, "postgres"),
		opts: opts.withDefaults(),
	}
}

func (s *PostgresStore) CreateAccount(ctx context.Context, acct *models.Account) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, username, balance, total_wagered, total_won, referral_code, referred_by, version, created_at, updated_at)
		VALUES ($1, $2, 0, 0, 0, $3, $4, 1, $5, $5)`,
		acct.ID, acct.Username, acct.ReferralCode, acct.ReferredBy, now)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrAccountExists
		}
		return translateError(err)
	}
	acct.Balance = decimal.Zero
	acct.TotalWagered = decimal.Zero
	acct.TotalWon = decimal.Zero
	acct.Version = 1
	acct.CreatedAt = now
	acct.UpdatedAt = now
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var acct models.Account
	err := s.db.GetContext(ctx, &acct, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &acct, nil
}

func (s *PostgresStore) FindAccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	var acct models.Account
	err := s.db.GetContext(ctx, &acct, `SELECT `+accountColumns+` FROM accounts WHERE referral_code = $1`, code)
	if err != nil {
		return nil, notFound(err)
	}
	return &acct, nil
}

func (s *PostgresStore) ListReferredAccounts(ctx context.Context, referrerID string) ([]*models.Account, error) {
	var accounts []*models.Account
	err := s.db.SelectContext(ctx, &accounts,
		`SELECT `+accountColumns+` FROM accounts WHERE referred_by = $1 ORDER BY created_at DESC`, referrerID)
	if err != nil {
		return nil, translateError(err)
	}
	return accounts, nil
}

// Update locks the account row and runs fn inside one SQL transaction.
func (s *PostgresStore) Update(ctx context.Context, accountID string, fn func(Tx) error) error {
	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, s.opts.TxTimeout)
		txCtx = c
		defer cancel()
	}

	tx, err := s.db.BeginTxx(txCtx, nil)
	if err != nil {
		return translateError(err)
	}
	defer tx.Rollback()

	lockStmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.opts.LockWait.Milliseconds())
	if _, err := tx.ExecContext(txCtx, lockStmt); err != nil {
		return translateError(err)
	}

	var acct models.Account
	err = tx.GetContext(txCtx, &acct, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, accountID)
	if err != nil {
		return notFound(err)
	}

	if err := fn(&pgTx{ctx: txCtx, tx: tx, account: acct}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return translateError(err)
	}
	return nil
}

func (s *PostgresStore) ListWagers(ctx context.Context, accountID string, limit int) ([]*models.WagerRecord, error) {
	var wagers []*models.WagerRecord
	err := s.db.SelectContext(ctx, &wagers,
		`SELECT `+wagerColumns+` FROM wager_records WHERE account_id = $1 ORDER BY created_at DESC LIMIT $2`,
		accountID, clampLimit(limit))
	if err != nil {
		return nil, translateError(err)
	}
	return wagers, nil
}

func (s *PostgresStore) GetWagerByIdempotencyKey(ctx context.Context, accountID, key string) (*models.WagerRecord, error) {
	var rec models.WagerRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT `+wagerColumns+` FROM wager_records WHERE account_id = $1 AND idempotency_key = $2`, accountID, key)
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

func (s *PostgresStore) InsertFundsRequest(ctx context.Context, req *models.FundsRequest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO funds_requests (id, account_id, kind, amount, fee, currency, network, external_reference, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)`,
		req.ID, req.AccountID, req.Kind, req.Amount, req.Fee, req.Currency, req.Network,
		req.ExternalReference, req.Status, req.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23503" {
			return models.ErrNotFound
		}
		if isUniqueViolation(err) {
			return models.ErrDuplicateReference
		}
		return translateError(err)
	}
	req.UpdatedAt = req.CreatedAt
	return nil
}

func (s *PostgresStore) GetFundsRequest(ctx context.Context, id string) (*models.FundsRequest, error) {
	var req models.FundsRequest
	err := s.db.GetContext(ctx, &req, `SELECT `+fundsColumns+` FROM funds_requests WHERE id = $1`, id)
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (s *PostgresStore) ListFundsRequests(ctx context.Context, filter models.FundsFilter) ([]*models.FundsRequest, error) {
	var (
		conds []string
		args  []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if filter.AccountID != "" {
		add("account_id", filter.AccountID)
	}
	if filter.Kind != "" {
		add("kind", filter.Kind)
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}

	query := `SELECT ` + fundsColumns + ` FROM funds_requests`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, clampLimit(filter.Limit))
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args))

	var reqs []*models.FundsRequest
	if err := s.db.SelectContext(ctx, &reqs, query, args...); err != nil {
		return nil, translateError(err)
	}
	return reqs, nil
}

func (s *PostgresStore) ListRoles(ctx context.Context, userID string) ([]models.Role, error) {
	var roles []models.Role
	err := s.db.SelectContext(ctx, &roles, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, translateError(err)
	}
	return roles, nil
}

func (s *PostgresStore) GrantRole(ctx context.Context, grant models.RoleGrant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_roles (user_id, role, granted_by, created_at)
		VALUES ($1, $2, $3, $4)`,
		grant.UserID, grant.Role, grant.GrantedBy, time.Now())
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrRoleExists
		}
		return translateError(err)
	}
	return nil
}

func (s *PostgresStore) RevokeRole(ctx context.Context, userID string, role models.Role) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, role)
	if err != nil {
		return translateError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

type pgTx struct {
	ctx     context.Context
	tx      *sqlx.Tx
	account models.Account
}

func (t *pgTx) Account() models.Account { return t.account }

func (t *pgTx) Adjust(delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := t.tx.QueryRowxContext(t.ctx, `
		UPDATE accounts
		SET balance = balance + $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND balance + $1 >= 0
		RETURNING balance`,
		delta, time.Now(), t.account.ID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return t.account.Balance, models.ErrInsufficientFunds
		}
		return t.account.Balance, translateError(err)
	}
	if balance.IsNegative() {
		return t.account.Balance, fmt.Errorf("%w: account %s balance %s", models.ErrIntegrity, t.account.ID, balance)
	}

	t.account.Balance = balance
	t.account.Version++
	return balance, nil
}

func (t *pgTx) RecordStats(wagered, won decimal.Decimal) error {
	if wagered.IsNegative() || won.IsNegative() {
		return fmt.Errorf("%w: negative stats increment", models.ErrIntegrity)
	}
	_, err := t.tx.ExecContext(t.ctx, `
		UPDATE accounts
		SET total_wagered = total_wagered + $1, total_won = total_won + $2, updated_at = $3
		WHERE id = $4`,
		wagered, won, time.Now(), t.account.ID)
	if err != nil {
		return translateError(err)
	}
	t.account.TotalWagered = t.account.TotalWagered.Add(wagered)
	t.account.TotalWon = t.account.TotalWon.Add(won)
	return nil
}

func (t *pgTx) AppendWager(rec *models.WagerRecord) error {
	_, err := t.tx.ExecContext(t.ctx, `
		INSERT INTO wager_records (id, account_id, game_type, bet_amount, payout, balance_after, result, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.AccountID, rec.GameType, rec.BetAmount, rec.Payout, rec.BalanceAfter,
		rec.Result, rec.IdempotencyKey, rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateInFlight
		}
		return translateError(err)
	}
	return nil
}

func (t *pgTx) FundsRequest(id string) (*models.FundsRequest, error) {
	var req models.FundsRequest
	err := t.tx.GetContext(t.ctx, &req,
		`SELECT `+fundsColumns+` FROM funds_requests WHERE id = $1 AND account_id = $2 FOR UPDATE`, id, t.account.ID)
	if err != nil {
		return nil, notFound(err)
	}
	return &req, nil
}

func (t *pgTx) SetFundsRequestStatus(id string, status models.FundsStatus, reviewer string, at time.Time) error {
	result, err := t.tx.ExecContext(t.ctx, `
		UPDATE funds_requests
		SET status = $1, reviewed_by = $2, reviewed_at = $3, updated_at = $3
		WHERE id = $4 AND account_id = $5 AND status = 'pending'`,
		status, reviewer, at, id, t.account.ID)
	if err != nil {
		return translateError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	return translateError(err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// translateError maps driver failures onto the ledger error taxonomy.
func translateError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "55P03", "40P01", "40001": // lock_not_available, deadlock_detected, serialization_failure
			return fmt.Errorf("%w: %s", models.ErrBusy, pqErr.Message)
		case "23514": // check_violation
			return fmt.Errorf("%w: %s", models.ErrIntegrity, pqErr.Message)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", models.ErrBusy, err)
	}
	return err
}
