package config

import (
	"github.com/shopspring/decimal"
)

// Network describes a chain the platform accepts USDT on.
type Network struct {
	Name string
	// AddressTag is the validator tag that checks a destination address.
	AddressTag    string
	WithdrawalFee decimal.Decimal
	HouseAddress  string
}

type FundsConfig struct {
	Currency        string
	DepositMin      decimal.Decimal
	DepositMax      decimal.Decimal
	WithdrawalMin   decimal.Decimal
	TxHashMinLength int
	TxHashMaxLength int
	Networks        map[string]Network
}

func LoadFundsConfig() *FundsConfig {
	return &FundsConfig{
		Currency:        getEnv("FUNDS_CURRENCY", "USDT"),
		DepositMin:      getEnvAsDecimal("FUNDS_DEPOSIT_MIN", decimal.NewFromInt(10)),
		DepositMax:      getEnvAsDecimal("FUNDS_DEPOSIT_MAX", decimal.NewFromInt(1000000)),
		WithdrawalMin:   getEnvAsDecimal("FUNDS_WITHDRAWAL_MIN", decimal.NewFromInt(20)),
		TxHashMinLength: getEnvAsInt("FUNDS_TX_HASH_MIN_LENGTH", 32),
		TxHashMaxLength: getEnvAsInt("FUNDS_TX_HASH_MAX_LENGTH", 128),
		Networks: map[string]Network{
			"TRC-20": {
				Name:          "TRC-20",
				AddressTag:    "tron_address",
				WithdrawalFee: getEnvAsDecimal("FUNDS_TRC20_WITHDRAWAL_FEE", decimal.NewFromInt(2)),
				HouseAddress:  getEnv("FUNDS_TRC20_DEPOSIT_ADDRESS", "TXk8rQSAvPvBBNtqSoY6nCfsXWCSSpTVQF"),
			},
			"BEP-20": {
				Name:          "BEP-20",
				AddressTag:    "bsc_address",
				WithdrawalFee: getEnvAsDecimal("FUNDS_BEP20_WITHDRAWAL_FEE", decimal.NewFromInt(3)),
				HouseAddress:  getEnv("FUNDS_BEP20_DEPOSIT_ADDRESS", "0x55d398326f99059fF775485246999027B3197955"),
			},
		},
	}
}

// Network looks a network up by its exact name.
func (c *FundsConfig) Network(name string) (Network, bool) {
	n, ok := c.Networks[name]
	return n, ok
}
