package ledger

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/referral-ledger/internal/errors"
	"github.com/referral-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// AuthorizeAdmin fails with an Unauthorized error unless callerID is the
// single configured administrator. An empty adminID authorizes nobody.
func AuthorizeAdmin(callerID, adminID string) error {
	if adminID == "" || callerID != adminID {
		return apperrors.NewUnauthorizedError(callerID)
	}
	return nil
}

// Payout amount bounds. Money is kept in whole cents.
const (
	AmountPlaces = 2
	// maxExponent bounds the exponent before any arithmetic so that
	// comparisons never rescale to huge coefficients.
	maxExponent = 18
)

// MaxPayoutAmount is the largest amount a single payout may move.
var MaxPayoutAmount = decimal.NewFromInt(1_000_000)

// ParseAmount parses a payout amount. It must be a positive decimal number
// with at most two decimal places, no larger than MaxPayoutAmount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, apperrors.NewInvalidArgumentError("amount", "missing")
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperrors.NewInvalidArgumentError("amount", fmt.Sprintf("not a number: %q", raw))
	}
	if err := ValidateAmount(amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// ValidateAmount checks a decoded payout amount.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperrors.NewInvalidArgumentError("amount", "must be positive")
	}
	if exp := amount.Exponent(); exp < -maxExponent || exp > maxExponent {
		return apperrors.NewInvalidArgumentError("amount", "out of range")
	}
	if !amount.Equal(amount.Round(AmountPlaces)) {
		return apperrors.NewInvalidArgumentError("amount", "more than two decimal places")
	}
	if amount.GreaterThan(MaxPayoutAmount) {
		return apperrors.NewInvalidArgumentError("amount", "exceeds "+MaxPayoutAmount.String())
	}
	return nil
}

// ApplyPayout moves amount from the target's pending balance to paid and
// appends an immutable payout record. On any error the ledger is unchanged.
func (l *Ledger) ApplyPayout(targetID string, amount decimal.Decimal, payoutID string, at time.Time) (models.Payout, error) {
	if err := ValidateAmount(amount); err != nil {
		return models.Payout{}, err
	}
	user, ok := l.byID[targetID]
	if !ok {
		return models.Payout{}, apperrors.NewUserNotFoundError(targetID)
	}
	if amount.GreaterThan(user.EarningsPending) {
		return models.Payout{}, apperrors.NewInsufficientPendingError(targetID, amount, user.EarningsPending)
	}

	user.EarningsPending = user.EarningsPending.Sub(amount)
	user.EarningsPaid = user.EarningsPaid.Add(amount)

	payout := models.Payout{
		ID:     payoutID,
		UserID: targetID,
		Amount: amount,
		Time:   at.UTC(),
	}
	l.payouts = append(l.payouts, payout)
	return payout, nil
}

// RevertPayout undoes the most recent ApplyPayout. It is used when the
// payout could not be persisted, and fails if p is not the last record.
func (l *Ledger) RevertPayout(p models.Payout) error {
	n := len(l.payouts)
	if n == 0 || l.payouts[n-1].ID != p.ID || l.payouts[n-1].UserID != p.UserID {
		return fmt.Errorf("payout %s is not the latest record", p.ID)
	}
	user, ok := l.byID[p.UserID]
	if !ok {
		return fmt.Errorf("payout %s targets unknown user %s", p.ID, p.UserID)
	}

	user.EarningsPending = user.EarningsPending.Add(p.Amount)
	user.EarningsPaid = user.EarningsPaid.Sub(p.Amount)
	l.payouts = l.payouts[:n-1]
	return nil
}
