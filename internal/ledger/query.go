package ledger

import (
	"sort"

	"github.com/referral-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// StatsOf projects a user's earnings.
func StatsOf(u *models.User) models.Stats {
	return models.Stats{
		UserID:          u.ID,
		ReferralsTotal:  u.ReferralsTotal,
		EarningsTotal:   u.EarningsTotal,
		EarningsPending: u.EarningsPending,
		EarningsPaid:    u.EarningsPaid,
	}
}

// Stats returns the projection for userID.
func (l *Ledger) Stats(userID string) (models.Stats, bool) {
	u, ok := l.byID[userID]
	if !ok {
		return models.Stats{}, false
	}
	return StatsOf(u), true
}

// Leaderboard ranks all users by total earnings, highest first, and returns
// at most n entries. Ties keep insertion order.
func (l *Ledger) Leaderboard(n int) []models.LeaderboardEntry {
	if n <= 0 {
		return []models.LeaderboardEntry{}
	}

	ranked := l.Users()
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].EarningsTotal.GreaterThan(ranked[j].EarningsTotal)
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}

	entries := make([]models.LeaderboardEntry, 0, len(ranked))
	for i, u := range ranked {
		entries = append(entries, models.LeaderboardEntry{
			Rank:          i + 1,
			UserID:        u.ID,
			DisplayName:   u.DisplayName(),
			EarningsTotal: u.EarningsTotal,
		})
	}
	return entries
}

// PendingList returns every user whose pending balance is at least
// minPayout, in insertion order.
func (l *Ledger) PendingList(minPayout decimal.Decimal) []models.PendingEntry {
	entries := []models.PendingEntry{}
	for _, u := range l.users {
		if u.EarningsPending.GreaterThanOrEqual(minPayout) {
			entries = append(entries, models.PendingEntry{
				UserID:          u.ID,
				DisplayName:     u.DisplayName(),
				EarningsPending: u.EarningsPending,
			})
		}
	}
	return entries
}
