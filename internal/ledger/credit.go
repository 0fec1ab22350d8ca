package ledger

import (
	"fmt"

	apperrors "github.com/referral-ledger/internal/errors"
	"github.com/referral-ledger/internal/models"
	"github.com/referral-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// Credit describes a referral credit issued to a referrer.
type Credit struct {
	Referrer *models.User
	Tier     types.Tier
	Amount   decimal.Decimal
}

// LogTable records one table of the given tier for user. Activity is counted
// whether or not it leads to a credit.
func (l *Ledger) LogTable(user *models.User, tier types.Tier) error {
	if !tier.IsValid() {
		return apperrors.NewInvalidArgumentError("tier", fmt.Sprintf("unknown tier %q", tier))
	}
	user.Tables[tier]++
	return nil
}

// CreditReferrer credits user's referrer for tier, at most once per tier
// for the lifetime of the referral. It returns nil when no credit is due:
// the user has no referrer or already triggered a credit at this tier.
//
// The guard lives on the referred user's record, so replaying the same
// activity can never credit twice no matter how many users share the
// referrer.
func (l *Ledger) CreditReferrer(user *models.User, tier types.Tier) (*Credit, error) {
	if !user.HasReferrer() {
		return nil, nil
	}
	if user.HasCredited(tier) {
		return nil, nil
	}

	referrer, ok := l.byID[user.ReferrerID]
	if !ok {
		return nil, apperrors.NewInternalError(
			fmt.Sprintf("referrer %s of user %s does not exist", user.ReferrerID, user.ID), nil)
	}
	amount, ok := l.settings.PayoutFor(tier)
	if !ok {
		return nil, apperrors.NewConfigError(fmt.Sprintf("no referral payout configured for tier %s", tier))
	}

	referrer.ReferralsTotal++
	referrer.ReferralsByTier[tier]++
	referrer.EarningsTotal = referrer.EarningsTotal.Add(amount)
	referrer.EarningsPending = referrer.EarningsPending.Add(amount)
	user.CreditedTiers = append(user.CreditedTiers, tier)

	return &Credit{Referrer: referrer, Tier: tier, Amount: amount}, nil
}
