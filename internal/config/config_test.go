package config

import (
	"testing"
	"time"

	"github.com/cryptoarcade/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGameConfig_Defaults(t *testing.T) {
	cfg := LoadGameConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.30, cfg.Lottery.WinProbability)
	assert.Equal(t, 60*time.Second, cfg.Runner.MaxDuration)
	tier, ok := cfg.Chest.Tier("diamond")
	require.True(t, ok)
	assert.True(t, tier.Price.Equal(decimal.NewFromInt(5000)))
}

func TestLoadGameConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GAME_LOTTERY_WIN_PROBABILITY", "0.25")
	t.Setenv("GAME_CHEST_GOLD_MAX_MULTIPLIER", "10")
	t.Setenv("GAME_SCRATCH_MAX_STAKE", "250")
	t.Setenv("GAME_RUNNER_MAX_DURATION", "30s")
	t.Setenv("GAME_SCRATCH_MIN_MULTIPLIER", "not-a-number")

	cfg := LoadGameConfig()
	assert.Equal(t, 0.25, cfg.Lottery.WinProbability)
	gold, _ := cfg.Chest.Tier("gold")
	assert.Equal(t, 10.0, gold.MaxMultiplier)
	assert.True(t, cfg.Stakes[models.GameScratch].Max.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, 30, cfg.Runner.MaxSeconds())
	assert.Equal(t, 1.5, cfg.Scratch.MinMultiplier, "unparseable values fall back")
}

func TestLoadFundsConfig(t *testing.T) {
	t.Setenv("FUNDS_BEP20_WITHDRAWAL_FEE", "4.5")

	cfg := LoadFundsConfig()
	trc, ok := cfg.Network("TRC-20")
	require.True(t, ok)
	assert.True(t, trc.WithdrawalFee.Equal(decimal.NewFromInt(2)))
	bep, _ := cfg.Network("BEP-20")
	assert.True(t, bep.WithdrawalFee.Equal(decimal.RequireFromString("4.5")))
	_, ok = cfg.Network("ERC-20")
	assert.False(t, ok)
}

func TestViperConfigs(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("ADMIN_BOOTSTRAP_USER_IDS", "u-1, u-2,,")
	_ = Init()

	assert.Equal(t, "memory", GetStorageConfig().Backend)
	assert.Equal(t, 2*time.Second, GetStorageConfig().LockWait)
	assert.Equal(t, []string{"u-1", "u-2"}, GetAuthConfig().BootstrapAdmins)
	assert.Equal(t, "ledger:events", GetEventsConfig().Stream)
	assert.Equal(t, time.Minute, GetIdempotencyConfig().ResultTTL)
	assert.Equal(t, 0.05, GetReferralCommissionRate())
}
