package storage

import (
	"context"
	"testing"
	"time"

	"github.com/referral-ledger/internal/models"
	"github.com/referral-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// testContext creates a context with timeout for tests
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// sampleCollections returns a small, internally consistent set of records
// for round-trip tests. User "9" is inserted before "10" so that id order
// and insertion order differ.
func sampleCollections() ([]*models.User, []models.Payout, models.Settings) {
	referrer := models.NewUser(models.Identity{ID: "9", Username: "promo"})
	referrer.ReferralsTotal = 1
	referrer.ReferralsByTier[types.Tier5] = 1
	referrer.EarningsTotal = decimal.RequireFromString("2")
	referrer.EarningsPending = decimal.RequireFromString("0.5")
	referrer.EarningsPaid = decimal.RequireFromString("1.5")

	player := models.NewUser(models.Identity{ID: "10", FirstName: "Ana"})
	player.ReferrerID = "9"
	player.Tables[types.Tier5] = 2
	player.CreditedTiers = []types.Tier{types.Tier5}

	payouts := []models.Payout{{
		ID:     "p-1",
		UserID: "9",
		Amount: decimal.RequireFromString("1.5"),
		Time:   time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}}

	return []*models.User{referrer, player}, payouts, models.DefaultSettings()
}
