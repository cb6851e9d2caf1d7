package config

import (
	"strings"

	"github.com/cryptoarcade/backend/internal/games"
	"github.com/cryptoarcade/backend/internal/models"
)

// LoadGameConfig builds the game table from GAME_* environment variables,
// falling back to the production odds.
func LoadGameConfig() games.Config {
	cfg := games.DefaultConfig()

	cfg.Lottery = loadOdds("GAME_LOTTERY", cfg.Lottery)
	cfg.Scratch = loadOdds("GAME_SCRATCH", cfg.Scratch)

	cfg.Chest.WinProbability = getEnvAsFloat("GAME_CHEST_WIN_PROBABILITY", cfg.Chest.WinProbability)
	cfg.Chest.MinMultiplier = getEnvAsFloat("GAME_CHEST_MIN_MULTIPLIER", cfg.Chest.MinMultiplier)
	for i, tier := range cfg.Chest.Tiers {
		prefix := "GAME_CHEST_" + strings.ToUpper(tier.Name)
		cfg.Chest.Tiers[i].Price = getEnvAsDecimal(prefix+"_PRICE", tier.Price)
		cfg.Chest.Tiers[i].MaxMultiplier = getEnvAsFloat(prefix+"_MAX_MULTIPLIER", tier.MaxMultiplier)
	}

	r := &cfg.Runner
	r.PointsPerSecond = getEnvAsFloat("GAME_RUNNER_POINTS_PER_SECOND", r.PointsPerSecond)
	r.BoostProbability = getEnvAsFloat("GAME_RUNNER_BOOST_PROBABILITY", r.BoostProbability)
	r.BoostStep = getEnvAsFloat("GAME_RUNNER_BOOST_STEP", r.BoostStep)
	r.MaxMultiplier = getEnvAsFloat("GAME_RUNNER_MAX_MULTIPLIER", r.MaxMultiplier)
	r.TrapProbability = getEnvAsFloat("GAME_RUNNER_TRAP_PROBABILITY", r.TrapProbability)
	r.PointsPerDollar = getEnvAsFloat("GAME_RUNNER_POINTS_PER_DOLLAR", r.PointsPerDollar)
	r.CostPerSecond = getEnvAsDecimal("GAME_RUNNER_COST_PER_SECOND", r.CostPerSecond)
	r.MaxDuration = getEnvAsDuration("GAME_RUNNER_MAX_DURATION", r.MaxDuration)

	for _, game := range []models.GameType{models.GameLottery, models.GameScratch} {
		prefix := "GAME_" + strings.ToUpper(string(game))
		lim := cfg.Stakes[game]
		cfg.Stakes[game] = games.StakeLimits{
			Min: getEnvAsDecimal(prefix+"_MIN_STAKE", lim.Min),
			Max: getEnvAsDecimal(prefix+"_MAX_STAKE", lim.Max),
		}
	}

	return cfg
}

func loadOdds(prefix string, def games.Odds) games.Odds {
	return games.Odds{
		WinProbability: getEnvAsFloat(prefix+"_WIN_PROBABILITY", def.WinProbability),
		MinMultiplier:  getEnvAsFloat(prefix+"_MIN_MULTIPLIER", def.MinMultiplier),
		MaxMultiplier:  getEnvAsFloat(prefix+"_MAX_MULTIPLIER", def.MaxMultiplier),
		UnitPrice:      getEnvAsDecimal(prefix+"_UNIT_PRICE", def.UnitPrice),
	}
}
