package models

import (
	"fmt"

	"github.com/referral-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// Settings holds the process-wide payout configuration
type Settings struct {
	ReferralPayouts map[types.Tier]decimal.Decimal `json:"referral_payouts"`
	MinPayout       decimal.Decimal                `json:"min_payout"`
}

// DefaultSettings returns the configuration written on first run.
func DefaultSettings() Settings {
	return Settings{
		ReferralPayouts: map[types.Tier]decimal.Decimal{
			types.Tier5:  decimal.NewFromFloat(2.0),
			types.Tier10: decimal.NewFromFloat(4.0),
			types.Tier20: decimal.NewFromFloat(6.0),
		},
		MinPayout: decimal.NewFromFloat(5.0),
	}
}

// PayoutFor returns the fixed credit amount for a tier.
func (s Settings) PayoutFor(tier types.Tier) (decimal.Decimal, bool) {
	amount, ok := s.ReferralPayouts[tier]
	return amount, ok
}

// Validate checks that every tier has a non-negative payout and that the
// minimum payout is not negative.
func (s Settings) Validate() error {
	for _, tier := range types.AllTiers() {
		amount, ok := s.ReferralPayouts[tier]
		if !ok {
			return fmt.Errorf("missing payout for tier %s", tier)
		}
		if amount.IsNegative() {
			return fmt.Errorf("negative payout for tier %s: %s", tier, amount)
		}
	}
	if s.MinPayout.IsNegative() {
		return fmt.Errorf("negative min_payout: %s", s.MinPayout)
	}
	return nil
}

// Clone returns a copy that shares no maps with s.
func (s Settings) Clone() Settings {
	payouts := make(map[types.Tier]decimal.Decimal, len(s.ReferralPayouts))
	for k, v := range s.ReferralPayouts {
		payouts[k] = v
	}
	return Settings{ReferralPayouts: payouts, MinPayout: s.MinPayout}
}
