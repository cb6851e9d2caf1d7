package games

import (
	"fmt"
	"math"

	"github.com/cryptoarcade/backend/internal/models"
	"github.com/shopspring/decimal"
)

// Play is one round as requested by a player.
type Play struct {
	Game    models.GameType
	Bet     decimal.Decimal
	Tier    string // chest only
	Seconds int    // runner only
}

// Outcome is the server-decided result of a round. Payout is truncated to
// cents and never negative.
type Outcome struct {
	Won    bool
	Payout decimal.Decimal
	Result models.Metadata
}

// ValidateStake checks the stake against the game's rules before any money
// moves.
func (c Config) ValidateStake(p Play) error {
	if !p.Bet.IsPositive() {
		return fmt.Errorf("%w: bet must be positive", models.ErrInvalidStake)
	}
	if !p.Bet.Equal(p.Bet.Truncate(2)) {
		return fmt.Errorf("%w: bet has more than two decimal places", models.ErrInvalidStake)
	}

	switch p.Game {
	case models.GameLottery, models.GameScratch:
	case models.GameChest:
		tier, ok := c.Chest.Tier(p.Tier)
		if !ok {
			return fmt.Errorf("%w: unknown chest tier %q", models.ErrInvalidStake, p.Tier)
		}
		if !p.Bet.Equal(tier.Price) {
			return fmt.Errorf("%w: %s chest costs %s", models.ErrInvalidStake, tier.Name, tier.Price.StringFixed(2))
		}
	case models.GameRunner:
		if p.Seconds < 1 || p.Seconds > c.Runner.MaxSeconds() {
			return fmt.Errorf("%w: run length %ds out of range", models.ErrInvalidStake, p.Seconds)
		}
		if !p.Bet.Equal(c.Runner.CostPerSecond.Mul(decimal.NewFromInt(int64(p.Seconds)))) {
			return fmt.Errorf("%w: runner stake must be %s per second", models.ErrInvalidStake, c.Runner.CostPerSecond)
		}
	default:
		return fmt.Errorf("%w: %q", models.ErrUnknownGame, p.Game)
	}

	if lim, ok := c.Stakes[p.Game]; ok {
		if p.Bet.LessThan(lim.Min) {
			return fmt.Errorf("%w: minimum stake is %s", models.ErrInvalidStake, lim.Min.StringFixed(2))
		}
		if lim.Max.IsPositive() && p.Bet.GreaterThan(lim.Max) {
			return fmt.Errorf("%w: maximum stake is %s", models.ErrInvalidStake, lim.Max.StringFixed(2))
		}
	}
	return nil
}

// Play decides the outcome of a validated round.
func (c Config) Play(p Play, rng Source) (Outcome, error) {
	switch p.Game {
	case models.GameLottery:
		out := fixedOdds(c.Lottery, p.Bet, rng)
		out.Result["tickets"] = p.Bet.Div(c.Lottery.UnitPrice).Floor().IntPart()
		return out, nil
	case models.GameScratch:
		out := fixedOdds(c.Scratch, p.Bet, rng)
		out.Result["card_price"] = c.Scratch.UnitPrice.StringFixed(2)
		return out, nil
	case models.GameChest:
		tier, ok := c.Chest.Tier(p.Tier)
		if !ok {
			return Outcome{}, fmt.Errorf("%w: unknown chest tier %q", models.ErrInvalidStake, p.Tier)
		}
		return chest(c.Chest, tier, p.Bet, rng), nil
	case models.GameRunner:
		return runner(c.Runner, p.Seconds, rng), nil
	}
	return Outcome{}, fmt.Errorf("%w: %q", models.ErrUnknownGame, p.Game)
}

func uniform(rng Source, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func payoutFor(bet decimal.Decimal, multiplier float64) decimal.Decimal {
	return bet.Mul(decimal.NewFromFloat(multiplier)).Truncate(2)
}

func roundMultiplier(m float64) float64 {
	return math.Round(m*100) / 100
}

func fixedOdds(o Odds, bet decimal.Decimal, rng Source) Outcome {
	out := Outcome{Payout: decimal.Zero, Result: models.Metadata{"won": false, "multiplier": 0.0}}
	if rng.Float64() >= o.WinProbability {
		return out
	}
	m := uniform(rng, o.MinMultiplier, o.MaxMultiplier)
	out.Won = true
	out.Payout = payoutFor(bet, m)
	out.Result["won"] = true
	out.Result["multiplier"] = roundMultiplier(m)
	return out
}

// ChestPrize labels a chest win by how close its multiplier came to the tier
// maximum.
func ChestPrize(multiplier, max float64) string {
	switch {
	case multiplier > max*0.8:
		return "USDT"
	case multiplier > max*0.5:
		return "BTC"
	}
	return "Bonus Coins"
}

func chest(c ChestConfig, tier ChestTier, bet decimal.Decimal, rng Source) Outcome {
	out := Outcome{Payout: decimal.Zero, Result: models.Metadata{"won": false, "multiplier": 0.0, "tier": tier.Name}}
	if rng.Float64() >= c.WinProbability {
		out.Result["prize"] = "empty"
		return out
	}
	m := uniform(rng, c.MinMultiplier, tier.MaxMultiplier)
	out.Won = true
	out.Payout = payoutFor(bet, m)
	out.Result["won"] = true
	out.Result["multiplier"] = roundMultiplier(m)
	out.Result["prize"] = ChestPrize(m, tier.MaxMultiplier)
	return out
}

// runner simulates seconds ticks: score accrues at PointsPerSecond times the
// current multiplier, then the multiplier may boost and may reset.
func runner(c RunnerConfig, seconds int, rng Source) Outcome {
	mult := 1.0
	score := decimal.Zero
	boosts, traps := 0, 0

	for i := 0; i < seconds; i++ {
		score = score.Add(decimal.NewFromFloat(c.PointsPerSecond * mult))
		if rng.Float64() < c.BoostProbability {
			mult = math.Min(mult+c.BoostStep, c.MaxMultiplier)
			boosts++
		}
		if rng.Float64() < c.TrapProbability {
			mult = 1
			traps++
		}
	}

	payout := score.Div(decimal.NewFromFloat(c.PointsPerDollar)).Truncate(2)
	cost := c.CostPerSecond.Mul(decimal.NewFromInt(int64(seconds)))
	return Outcome{
		Won:    payout.GreaterThan(cost),
		Payout: payout,
		Result: models.Metadata{
			"won":              payout.GreaterThan(cost),
			"score":            score.IntPart(),
			"seconds":          seconds,
			"final_multiplier": mult,
			"boosts":           boosts,
			"traps":            traps,
		},
	}
}
