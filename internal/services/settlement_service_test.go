package services

import (
	"context"
	"sync"
	"testing"

	"github.com/cryptoarcade/backend/internal/games"
	"github.com/cryptoarcade/backend/internal/models"
	"github.com/cryptoarcade/backend/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSettlement(st store.AccountStore, draws ...float64) (*SettlementService, *MockPublisher) {
	pub := newMockPublisher()
	s := NewSettlementService(st, games.DefaultConfig(), NewMemoryIdempotency(), pub, nil, SettlementOptions{PublishRetries: 1})
	src := &games.FixedSource{Values: draws}
	s.newSource = func() games.Source { return src }
	return s, pub
}

func TestSettle_ForcedLoss(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	fundedAccount(t, st, "acct-1", "100")
	service, pub := newTestSettlement(st, 0.99)

	res, err := service.Settle(ctx, SettleRequest{AccountID: "acct-1", GameType: models.GameLottery, BetAmount: dec("10")})
	require.NoError(t, err)
	assert.False(t, res.Won)
	assert.True(t, res.Payout.IsZero())
	assert.True(t, res.NewBalance.Equal(dec("90")))

	acct, err := st.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.True(t, acct.Balance.Equal(dec("90")))
	assert.True(t, acct.TotalWagered.Equal(dec("10")))
	assert.True(t, acct.TotalWon.IsZero())

	wagers, err := st.ListWagers(ctx, "acct-1", 10)
	require.NoError(t, err)
	require.Len(t, wagers, 1)
	assert.Equal(t, res.WagerID, wagers[0].ID)
	assert.True(t, wagers[0].BalanceAfter.Equal(dec("90")))

	evs := pub.OfType(models.EventBalanceChanged)
	require.Len(t, evs, 1)
	assert.True(t, evs[0].Balance.Equal(dec("90")))
}

func TestSettle_ForcedWin(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	fundedAccount(t, st, "acct-1", "100")
	service, _ := newTestSettlement(st, 0.1, 0.5)

	res, err := service.Settle(ctx, SettleRequest{AccountID: "acct-1", GameType: models.GameLottery, BetAmount: dec("10")})
	require.NoError(t, err)
	assert.True(t, res.Won)
	assert.True(t, res.Payout.Equal(dec("35")))
	assert.True(t, res.NewBalance.Equal(dec("125")))
	assert.EqualValues(t, 1, res.Result["tickets"])

	acct, _ := st.GetAccount(ctx, "acct-1")
	assert.True(t, acct.TotalWon.Equal(dec("35")))
}

func TestSettle_Rejections(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	fundedAccount(t, st, "acct-1", "5")
	service, pub := newTestSettlement(st, 0.99)

	tests := []struct {
		name string
		req  SettleRequest
		err  error
	}{
		{"zero bet", SettleRequest{GameType: models.GameLottery, BetAmount: dec("0")}, models.ErrInvalidStake},
		{"negative bet", SettleRequest{GameType: models.GameScratch, BetAmount: dec("-5")}, models.ErrInvalidStake},
		{"sub-cent bet", SettleRequest{GameType: models.GameScratch, BetAmount: dec("1.005")}, models.ErrInvalidStake},
		{"unknown game", SettleRequest{GameType: "plinko", BetAmount: dec("1")}, models.ErrUnknownGame},
		{"chest price mismatch", SettleRequest{GameType: models.GameChest, Tier: "bronze", BetAmount: dec("99")}, models.ErrInvalidStake},
		{"insufficient funds", SettleRequest{GameType: models.GameLottery, BetAmount: dec("10")}, models.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.req.AccountID = "acct-1"
			_, err := service.Settle(ctx, tt.req)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	acct, _ := st.GetAccount(ctx, "acct-1")
	assert.True(t, acct.Balance.Equal(dec("5")))
	assert.True(t, acct.TotalWagered.IsZero())
	wagers, _ := st.ListWagers(ctx, "acct-1", 10)
	assert.Empty(t, wagers)
	assert.Empty(t, pub.Published())

	_, err := service.Settle(ctx, SettleRequest{AccountID: "ghost", GameType: models.GameLottery, BetAmount: dec("1")})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSettle_Chest(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	fundedAccount(t, st, "acct-1", "100")
	service, _ := newTestSettlement(st, 0.2, 0.9)

	res, err := service.Settle(ctx, SettleRequest{AccountID: "acct-1", GameType: models.GameChest, Tier: "Bronze", BetAmount: dec("100")})
	require.NoError(t, err)
	assert.Equal(t, "USDT", res.Result["prize"])
	assert.True(t, res.NewBalance.Equal(res.Payout))
}

func TestSettle_IdempotencyKeyReplays(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	fundedAccount(t, st, "acct-1", "100")
	service, _ := newTestSettlement(st, 0.99)

	req := SettleRequest{AccountID: "acct-1", GameType: models.GameScratch, BetAmount: dec("20"), IdempotencyKey: "round-1"}
	first, err := service.Settle(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := service.Settle(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.WagerID, second.WagerID)
	assert.True(t, second.NewBalance.Equal(dec("80")))

	// with the cache gone the stored wager still answers
	service.idem = NewMemoryIdempotency()
	third, err := service.Settle(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.WagerID, third.WagerID)

	acct, _ := st.GetAccount(ctx, "acct-1")
	assert.True(t, acct.Balance.Equal(dec("80")), "stake debited once")
}

func TestSettle_IdempotencyKeyReusedForDifferentWager(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	fundedAccount(t, st, "acct-1", "100")
	service, _ := newTestSettlement(st, 0.99)

	_, err := service.Settle(ctx, SettleRequest{AccountID: "acct-1", GameType: models.GameScratch, BetAmount: dec("20"), IdempotencyKey: "round-1"})
	require.NoError(t, err)

	tests := []struct {
		name string
		req  SettleRequest
	}{
		{"different bet", SettleRequest{AccountID: "acct-1", GameType: models.GameScratch, BetAmount: dec("30"), IdempotencyKey: "round-1"}},
		{"different game", SettleRequest{AccountID: "acct-1", GameType: models.GameLottery, BetAmount: dec("20"), IdempotencyKey: "round-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Settle(ctx, tt.req)
			assert.ErrorIs(t, err, models.ErrInvalidRequest)

			// the durable record is checked the same way once the cache is gone
			service.idem = NewMemoryIdempotency()
			_, err = service.Settle(ctx, tt.req)
			assert.ErrorIs(t, err, models.ErrInvalidRequest)
		})
	}

	acct, _ := st.GetAccount(ctx, "acct-1")
	assert.True(t, acct.Balance.Equal(dec("80")))
	assert.True(t, acct.TotalWagered.Equal(dec("20")))
}

func TestSettle_DuplicateInFlight(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	fundedAccount(t, st, "acct-1", "100")
	service, _ := newTestSettlement(st, 0.99)

	release, err := service.idem.Acquire(ctx, "acct-1:round-1", service.opts.LockTTL)
	require.NoError(t, err)
	defer release()

	_, err = service.Settle(ctx, SettleRequest{AccountID: "acct-1", GameType: models.GameScratch, BetAmount: dec("20"), IdempotencyKey: "round-1"})
	assert.ErrorIs(t, err, models.ErrDuplicateInFlight)
}

func TestSettle_ConcurrentStakesNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	fundedAccount(t, st, "acct-1", "50")
	service, _ := newTestSettlement(st, 0.99)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Settle(ctx, SettleRequest{AccountID: "acct-1", GameType: models.GameLottery, BetAmount: dec("10")})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, succeeded)
	acct, _ := st.GetAccount(ctx, "acct-1")
	assert.True(t, acct.Balance.IsZero())
	assert.True(t, acct.TotalWagered.Equal(dec("50")))
	wagers, _ := st.ListWagers(ctx, "acct-1", 100)
	assert.Len(t, wagers, 5)
}

func TestSettle_BusyAccount(t *testing.T) {
	ctx := context.Background()
	st := newTestStore()
	fundedAccount(t, st, "acct-1", "100")
	service, _ := newTestSettlement(st, 0.99)

	entered := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = st.Update(ctx, "acct-1", func(store.Tx) error {
			close(entered)
			<-done
			return nil
		})
	}()
	<-entered

	_, err := service.Settle(ctx, SettleRequest{AccountID: "acct-1", GameType: models.GameLottery, BetAmount: dec("10")})
	close(done)
	assert.ErrorIs(t, err, models.ErrBusy)

	acct, _ := st.GetAccount(ctx, "acct-1")
	assert.True(t, acct.Balance.Equal(dec("100")))
}
