// Package games holds the outcome functions for every minigame. Outcomes are
// pure functions of the game configuration, the stake and a server-side
// random source; nothing the client sends can influence them.
package games

import (
	"fmt"
	"strings"
	"time"

	"github.com/cryptoarcade/backend/internal/models"
	"github.com/shopspring/decimal"
)

// Odds parameterises a fixed-probability game. On a win the payout is the
// stake times a multiplier drawn uniformly from [MinMultiplier, MaxMultiplier].
type Odds struct {
	WinProbability float64
	MinMultiplier  float64
	MaxMultiplier  float64
	UnitPrice      decimal.Decimal // ticket or card price, reported in results
}

// ChestTier is one purchasable chest. The stake must equal Price.
type ChestTier struct {
	Name          string
	Price         decimal.Decimal
	MaxMultiplier float64
}

type ChestConfig struct {
	WinProbability float64
	MinMultiplier  float64
	Tiers          []ChestTier
}

// Tier looks a tier up by name, case-insensitively.
func (c ChestConfig) Tier(name string) (ChestTier, bool) {
	for _, t := range c.Tiers {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return ChestTier{}, false
}

// RunnerConfig drives the per-second accrual model of the endless runner.
type RunnerConfig struct {
	PointsPerSecond  float64
	BoostProbability float64
	BoostStep        float64
	MaxMultiplier    float64
	TrapProbability  float64
	PointsPerDollar  float64
	CostPerSecond    decimal.Decimal
	MaxDuration      time.Duration
}

// MaxSeconds is the longest run that will be charged and simulated.
func (c RunnerConfig) MaxSeconds() int {
	return int(c.MaxDuration / time.Second)
}

// MaxCost is the most a single run can cost.
func (c RunnerConfig) MaxCost() decimal.Decimal {
	return c.CostPerSecond.Mul(decimal.NewFromInt(int64(c.MaxSeconds())))
}

// StakeLimits bounds a single wager. A zero Max means unbounded.
type StakeLimits struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

type Config struct {
	Lottery Odds
	Scratch Odds
	Chest   ChestConfig
	Runner  RunnerConfig
	Stakes  map[models.GameType]StakeLimits
}

// DefaultConfig returns the production odds.
func DefaultConfig() Config {
	return Config{
		Lottery: Odds{WinProbability: 0.30, MinMultiplier: 2.0, MaxMultiplier: 5.0, UnitPrice: decimal.NewFromInt(10)},
		Scratch: Odds{WinProbability: 0.40, MinMultiplier: 1.5, MaxMultiplier: 5.5, UnitPrice: decimal.NewFromInt(20)},
		Chest: ChestConfig{
			WinProbability: 0.50,
			MinMultiplier:  0.5,
			Tiers: []ChestTier{
				{Name: "bronze", Price: decimal.NewFromInt(100), MaxMultiplier: 3},
				{Name: "silver", Price: decimal.NewFromInt(500), MaxMultiplier: 5},
				{Name: "gold", Price: decimal.NewFromInt(1000), MaxMultiplier: 8},
				{Name: "diamond", Price: decimal.NewFromInt(5000), MaxMultiplier: 15},
			},
		},
		Runner: RunnerConfig{
			PointsPerSecond:  10,
			BoostProbability: 0.10,
			BoostStep:        0.5,
			MaxMultiplier:    5,
			TrapProbability:  0.05,
			PointsPerDollar:  10,
			CostPerSecond:    decimal.NewFromInt(1),
			MaxDuration:      60 * time.Second,
		},
		Stakes: map[models.GameType]StakeLimits{
			models.GameLottery: {Min: decimal.NewFromInt(1), Max: decimal.NewFromInt(10000)},
			models.GameScratch: {Min: decimal.NewFromInt(1), Max: decimal.NewFromInt(10000)},
		},
	}
}

func checkProbability(name string, p float64) error {
	if p < 0 || p > 1 {
		return fmt.Errorf("%s %v out of range", name, p)
	}
	return nil
}

// Validate rejects configurations that would make outcomes meaningless.
func (c Config) Validate() error {
	check := func(name string, o Odds) error {
		if err := checkProbability(name+": win probability", o.WinProbability); err != nil {
			return err
		}
		if o.MinMultiplier < 0 || o.MaxMultiplier < o.MinMultiplier {
			return fmt.Errorf("%s: multiplier range [%v, %v] invalid", name, o.MinMultiplier, o.MaxMultiplier)
		}
		return nil
	}
	if err := check("lottery", c.Lottery); err != nil {
		return err
	}
	if err := check("scratch", c.Scratch); err != nil {
		return err
	}
	if err := checkProbability("chest: win probability", c.Chest.WinProbability); err != nil {
		return err
	}
	if c.Chest.MinMultiplier < 0 {
		return fmt.Errorf("chest: negative minimum multiplier")
	}
	if len(c.Chest.Tiers) == 0 {
		return fmt.Errorf("chest: no tiers configured")
	}
	for _, t := range c.Chest.Tiers {
		if !t.Price.IsPositive() || t.MaxMultiplier < c.Chest.MinMultiplier {
			return fmt.Errorf("chest tier %s: invalid price or multiplier", t.Name)
		}
	}
	if err := checkProbability("runner: boost probability", c.Runner.BoostProbability); err != nil {
		return err
	}
	if err := checkProbability("runner: trap probability", c.Runner.TrapProbability); err != nil {
		return err
	}
	if c.Runner.MaxSeconds() < 1 || !c.Runner.CostPerSecond.IsPositive() || c.Runner.PointsPerDollar <= 0 {
		return fmt.Errorf("runner: invalid duration, cost or conversion rate")
	}
	return nil
}
