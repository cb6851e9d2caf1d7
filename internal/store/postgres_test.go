package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cryptoarcade/backend/internal/models"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var accountCols = []string{"id", "username", "balance", "total_wagered", "total_won", "referral_code", "referred_by", "version", "created_at", "updated_at"}

func accountRow(id, balance string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(accountCols).
		AddRow(id, "player", balance, "0.00", "0.00", "ABCD1234", nil, 1, now, now)
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db, Options{LockWait: 500 * time.Millisecond}), mock
}

func expectLock(mock sqlmock.Sqlmock, id, balance string) {
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SET LOCAL lock_timeout = '500ms'")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id = \\$1 FOR UPDATE").
		WithArgs(id).
		WillReturnRows(accountRow(id, balance))
}

func TestPostgresStore_GetAccount(t *testing.T) {
	s, mock := newMockStore(t)

	t.Run("found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id = \\$1").
			WithArgs("acct-1").
			WillReturnRows(accountRow("acct-1", "125.50"))

		acct, err := s.GetAccount(context.Background(), "acct-1")
		require.NoError(t, err)
		assert.Equal(t, "acct-1", acct.ID)
		assert.True(t, acct.Balance.Equal(decimal.RequireFromString("125.50")))
		assert.Nil(t, acct.ReferredBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id = \\$1").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(accountCols))

		_, err := s.GetAccount(context.Background(), "ghost")
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_CreateAccount(t *testing.T) {
	s, mock := newMockStore(t)

	t.Run("inserts zeroed account", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO accounts").
			WithArgs("acct-1", "player", "ABCD1234", nil, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		acct := &models.Account{ID: "acct-1", Username: "player", ReferralCode: "ABCD1234"}
		require.NoError(t, s.CreateAccount(context.Background(), acct))
		assert.True(t, acct.Balance.IsZero())
		assert.Equal(t, 1, acct.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO accounts").
			WillReturnError(&pq.Error{Code: "23505"})

		err := s.CreateAccount(context.Background(), &models.Account{ID: "acct-1", ReferralCode: "X"})
		assert.ErrorIs(t, err, models.ErrAccountExists)
	})
}

func TestPostgresStore_UpdateAdjust(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	t.Run("debit commits", func(t *testing.T) {
		expectLock(mock, "acct-1", "100.00")
		mock.ExpectQuery("UPDATE accounts SET balance = balance \\+ \\$1").
			WithArgs(decimal.NewFromInt(-10), sqlmock.AnyArg(), "acct-1").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("90.00"))
		mock.ExpectCommit()

		var got decimal.Decimal
		err := s.Update(ctx, "acct-1", func(tx Tx) error {
			var err error
			got, err = tx.Adjust(decimal.NewFromInt(-10))
			return err
		})
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.NewFromInt(90)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("floor refuses overdraft and rolls back", func(t *testing.T) {
		expectLock(mock, "acct-1", "5.00")
		mock.ExpectQuery("UPDATE accounts SET balance = balance \\+ \\$1").
			WithArgs(decimal.NewFromInt(-10), sqlmock.AnyArg(), "acct-1").
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectRollback()

		err := s.Update(ctx, "acct-1", func(tx Tx) error {
			_, err := tx.Adjust(decimal.NewFromInt(-10))
			return err
		})
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock timeout is busy", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs("acct-1").
			WillReturnError(&pq.Error{Code: "55P03", Message: "canceling statement due to lock timeout"})
		mock.ExpectRollback()

		called := false
		err := s.Update(ctx, "acct-1", func(tx Tx) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, models.ErrBusy)
		assert.False(t, called)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("SET LOCAL lock_timeout").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id = \\$1 FOR UPDATE").
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(accountCols))
		mock.ExpectRollback()

		err := s.Update(ctx, "ghost", func(tx Tx) error { return nil })
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("check violation is integrity", func(t *testing.T) {
		expectLock(mock, "acct-1", "100.00")
		mock.ExpectExec("UPDATE accounts SET total_wagered").
			WillReturnError(&pq.Error{Code: "23514"})
		mock.ExpectRollback()

		err := s.Update(ctx, "acct-1", func(tx Tx) error {
			return tx.RecordStats(decimal.NewFromInt(1), decimal.Zero)
		})
		assert.ErrorIs(t, err, models.ErrIntegrity)
	})

	t.Run("negative stats never reach the database", func(t *testing.T) {
		expectLock(mock, "acct-1", "100.00")
		mock.ExpectRollback()

		err := s.Update(ctx, "acct-1", func(tx Tx) error {
			return tx.RecordStats(decimal.NewFromInt(-1), decimal.Zero)
		})
		assert.ErrorIs(t, err, models.ErrIntegrity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresStore_AppendWagerDuplicate(t *testing.T) {
	s, mock := newMockStore(t)

	expectLock(mock, "acct-1", "100.00")
	mock.ExpectExec("INSERT INTO wager_records").
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	key := "k-1"
	err := s.Update(context.Background(), "acct-1", func(tx Tx) error {
		return tx.AppendWager(&models.WagerRecord{
			ID: "w-1", AccountID: "acct-1", GameType: models.GameLottery,
			BetAmount: decimal.NewFromInt(10), IdempotencyKey: &key, CreatedAt: time.Now(),
		})
	})
	assert.ErrorIs(t, err, models.ErrDuplicateInFlight)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetFundsRequestStatus(t *testing.T) {
	s, mock := newMockStore(t)

	t.Run("pending moves", func(t *testing.T) {
		expectLock(mock, "acct-1", "0.00")
		mock.ExpectExec("UPDATE funds_requests SET status = \\$1").
			WithArgs(models.StatusApproved, "admin-1", sqlmock.AnyArg(), "req-1", "acct-1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := s.Update(context.Background(), "acct-1", func(tx Tx) error {
			return tx.SetFundsRequestStatus("req-1", models.StatusApproved, "admin-1", time.Now())
		})
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("terminal rejects", func(t *testing.T) {
		expectLock(mock, "acct-1", "0.00")
		mock.ExpectExec("UPDATE funds_requests SET status = \\$1").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := s.Update(context.Background(), "acct-1", func(tx Tx) error {
			return tx.SetFundsRequestStatus("req-1", models.StatusRejected, "admin-1", time.Now())
		})
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	})
}

func TestPostgresStore_ListFundsRequests(t *testing.T) {
	s, mock := newMockStore(t)

	cols := []string{"id", "account_id", "kind", "amount", "fee", "currency", "network", "external_reference", "status", "reviewed_by", "reviewed_at", "created_at", "updated_at"}
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM funds_requests WHERE kind = $1 AND status = $2 ORDER BY created_at DESC LIMIT $3")).
		WithArgs(models.KindDeposit, models.StatusPending, 50).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("req-1", "acct-1", "deposit", "50.00", "0.00", "USDT", "TRC-20", "hash", "pending", nil, nil, now, now))

	reqs, err := s.ListFundsRequests(context.Background(), models.FundsFilter{Kind: models.KindDeposit, Status: models.StatusPending})
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, models.StatusPending, reqs[0].Status)
	assert.True(t, reqs[0].Amount.Equal(decimal.NewFromInt(50)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Roles(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT role FROM user_roles WHERE user_id = \\$1").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin").AddRow("user"))
	roles, err := s.ListRoles(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, []models.Role{models.RoleAdmin, models.RoleUser}, roles)

	mock.ExpectExec("INSERT INTO user_roles").WillReturnError(&pq.Error{Code: "23505"})
	err = s.GrantRole(ctx, models.RoleGrant{UserID: "u-1", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, models.ErrRoleExists)

	mock.ExpectExec("DELETE FROM user_roles").WithArgs("u-1", models.RoleModerator).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = s.RevokeRole(ctx, "u-1", models.RoleModerator)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateError(t *testing.T) {
	assert.ErrorIs(t, translateError(&pq.Error{Code: "40P01"}), models.ErrBusy)
	assert.ErrorIs(t, translateError(context.DeadlineExceeded), models.ErrBusy)
	plain := errors.New("boom")
	assert.Equal(t, plain, translateError(plain))
}
