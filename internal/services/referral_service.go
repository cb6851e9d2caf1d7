package services

import (
	"context"

	"github.com/cryptoarcade/backend/internal/store"
	"github.com/shopspring/decimal"
)

// ReferralEarnings is the commission a referrer has accrued on the lifetime
// wagers of the players they brought in.
type ReferralEarnings struct {
	ReferralCode    string          `json:"referral_code"`
	ReferredCount   int             `json:"referred_count"`
	ReferredWagered decimal.Decimal `json:"referred_wagered"`
	CommissionRate  decimal.Decimal `json:"commission_rate"`
	Earnings        decimal.Decimal `json:"earnings"`
}

type ReferralService struct {
	accounts store.AccountStore
	rate     decimal.Decimal
}

func NewReferralService(accounts store.AccountStore, commissionRate float64) *ReferralService {
	return &ReferralService{accounts: accounts, rate: decimal.NewFromFloat(commissionRate)}
}

func (s *ReferralService) Earnings(ctx context.Context, accountID string) (*ReferralEarnings, error) {
	acct, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	referred, err := s.accounts.ListReferredAccounts(ctx, accountID)
	if err != nil {
		return nil, err
	}

	wagered := decimal.Zero
	for _, r := range referred {
		wagered = wagered.Add(r.TotalWagered)
	}
	return &ReferralEarnings{
		ReferralCode:    acct.ReferralCode,
		ReferredCount:   len(referred),
		ReferredWagered: wagered,
		CommissionRate:  s.rate,
		Earnings:        wagered.Mul(s.rate).Truncate(2),
	}, nil
}
