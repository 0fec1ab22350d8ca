// Package models provides data models for the referral ledger.
package models

import (
	"slices"

	"github.com/referral-ledger/internal/types"
	"github.com/shopspring/decimal"
)

// Identity is the caller identity supplied by the chat transport.
type Identity struct {
	ID        string
	Username  string
	FirstName string
}

// User represents a bot user and their referral earnings
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`

	// ReferrerID is set at most once and never cleared.
	ReferrerID string `json:"referrer_id,omitempty"`

	ReferralsTotal  int              `json:"referrals_total"`
	ReferralsByTier types.TierCounts `json:"referrals_by_tier"`

	// EarningsTotal always equals EarningsPending + EarningsPaid.
	EarningsTotal   decimal.Decimal `json:"earnings_total"`
	EarningsPending decimal.Decimal `json:"earnings_pending"`
	EarningsPaid    decimal.Decimal `json:"earnings_paid"`

	Tables        types.TierCounts `json:"tables"`
	CreditedTiers []types.Tier     `json:"credited_tiers"`
}

// NewUser creates a fresh user record for the given identity.
func NewUser(identity Identity) *User {
	return &User{
		ID:              identity.ID,
		Username:        identity.Username,
		FirstName:       identity.FirstName,
		ReferralsByTier: types.NewTierCounts(),
		EarningsTotal:   decimal.Zero,
		EarningsPending: decimal.Zero,
		EarningsPaid:    decimal.Zero,
		Tables:          types.NewTierCounts(),
		CreditedTiers:   []types.Tier{},
	}
}

// DisplayName prefers the username, then the first name, then the raw id.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.ID
}

// HasReferrer reports whether the user has been bound to a referrer.
func (u *User) HasReferrer() bool {
	return u.ReferrerID != ""
}

// HasCredited reports whether the user already triggered a credit for tier.
func (u *User) HasCredited(tier types.Tier) bool {
	return slices.Contains(u.CreditedTiers, tier)
}

// Normalize fills maps that may be missing from records written by older
// versions so that callers can index them without nil checks.
func (u *User) Normalize() {
	if u.ReferralsByTier == nil {
		u.ReferralsByTier = types.NewTierCounts()
	}
	if u.Tables == nil {
		u.Tables = types.NewTierCounts()
	}
	if u.CreditedTiers == nil {
		u.CreditedTiers = []types.Tier{}
	}
}

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	c := *u
	c.ReferralsByTier = cloneCounts(u.ReferralsByTier)
	c.Tables = cloneCounts(u.Tables)
	c.CreditedTiers = slices.Clone(u.CreditedTiers)
	return &c
}

func cloneCounts(src types.TierCounts) types.TierCounts {
	if src == nil {
		return nil
	}
	dst := make(types.TierCounts, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Stats is the read-only earnings projection of a user.
type Stats struct {
	UserID          string          `json:"userId"`
	ReferralsTotal  int             `json:"referralsTotal"`
	EarningsTotal   decimal.Decimal `json:"earningsTotal"`
	EarningsPending decimal.Decimal `json:"earningsPending"`
	EarningsPaid    decimal.Decimal `json:"earningsPaid"`
}

// LeaderboardEntry is one ranked row of the leaderboard.
type LeaderboardEntry struct {
	Rank          int             `json:"rank"`
	UserID        string          `json:"userId"`
	DisplayName   string          `json:"displayName"`
	EarningsTotal decimal.Decimal `json:"earningsTotal"`
}

// PendingEntry is one row of the administrative pending-payout listing.
type PendingEntry struct {
	UserID          string          `json:"userId"`
	DisplayName     string          `json:"displayName"`
	EarningsPending decimal.Decimal `json:"earningsPending"`
}
