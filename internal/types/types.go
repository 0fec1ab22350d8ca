// Package types provides common type definitions for the referral ledger.
package types

import "fmt"

// Tier represents a table tier label. Tier labels double as the keys of the
// payout table in settings, so they are kept as strings.
type Tier string

const (
	// Tier5 represents the $5 table tier
	Tier5 Tier = "5"
	// Tier10 represents the $10 table tier
	Tier10 Tier = "10"
	// Tier20 represents the $20 table tier
	Tier20 Tier = "20"
)

// AllTiers returns the fixed tier set in ascending order.
func AllTiers() []Tier {
	return []Tier{Tier5, Tier10, Tier20}
}

// IsValid reports whether the tier belongs to the fixed tier set.
func (t Tier) IsValid() bool {
	switch t {
	case Tier5, Tier10, Tier20:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer
func (t Tier) String() string {
	return string(t)
}

// ParseTier parses a tier label such as "10".
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.IsValid() {
		return "", fmt.Errorf("unknown tier: %q", s)
	}
	return t, nil
}

// TierCounts maps each tier to a counter.
type TierCounts map[Tier]int

// NewTierCounts returns a TierCounts with every tier present and zeroed.
func NewTierCounts() TierCounts {
	counts := make(TierCounts, len(AllTiers()))
	for _, t := range AllTiers() {
		counts[t] = 0
	}
	return counts
}

// Total returns the sum over all tiers.
func (c TierCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}
