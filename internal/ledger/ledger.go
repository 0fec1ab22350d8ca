// Package ledger holds the referral-credit ledger: the in-memory users,
// payout records and settings, and the rules that mutate them.
//
// A Ledger performs no I/O and no locking. The owner (see the service
// package) serialises calls and flushes the affected collection after every
// mutation.
package ledger

import (
	"fmt"

	"github.com/referral-ledger/internal/models"
)

// Ledger is the authoritative working copy of the persisted collections.
type Ledger struct {
	users    []*models.User // insertion order, used for stable ranking
	byID     map[string]*models.User
	payouts  []models.Payout
	settings models.Settings
}

// New builds a ledger from loaded collections. Users with an empty or
// duplicate id are dropped; the first occurrence wins.
func New(users []*models.User, payouts []models.Payout, settings models.Settings) *Ledger {
	l := &Ledger{
		users:    make([]*models.User, 0, len(users)),
		byID:     make(map[string]*models.User, len(users)),
		payouts:  append([]models.Payout(nil), payouts...),
		settings: settings.Clone(),
	}
	for _, u := range users {
		if u == nil || u.ID == "" {
			continue
		}
		if _, dup := l.byID[u.ID]; dup {
			continue
		}
		u.Normalize()
		l.users = append(l.users, u)
		l.byID[u.ID] = u
	}
	return l
}

// GetOrCreate returns the user for identity, creating it on first contact.
// The boolean reports whether a new record was created. Display fields are
// only captured at creation.
func (l *Ledger) GetOrCreate(identity models.Identity) (*models.User, bool, error) {
	if identity.ID == "" {
		return nil, false, fmt.Errorf("identity without id")
	}
	if u, ok := l.byID[identity.ID]; ok {
		return u, false, nil
	}
	u := models.NewUser(identity)
	l.users = append(l.users, u)
	l.byID[u.ID] = u
	return u, true, nil
}

// User looks up a user by id.
func (l *Ledger) User(id string) (*models.User, bool) {
	u, ok := l.byID[id]
	return u, ok
}

// Users returns the user collection in insertion order. The slice is a copy;
// the records are shared.
func (l *Ledger) Users() []*models.User {
	return append([]*models.User(nil), l.users...)
}

// Payouts returns a copy of the payout log.
func (l *Ledger) Payouts() []models.Payout {
	return append([]models.Payout(nil), l.payouts...)
}

// Settings returns a copy of the settings snapshot.
func (l *Ledger) Settings() models.Settings {
	return l.settings.Clone()
}

// Len returns the number of users.
func (l *Ledger) Len() int {
	return len(l.users)
}

// ForgetUser undoes the creation of a user whose first flush failed. It
// refuses to drop a user other records depend on.
func (l *Ledger) ForgetUser(id string) {
	if _, ok := l.byID[id]; !ok {
		return
	}
	for _, u := range l.users {
		if u.ReferrerID == id {
			return
		}
	}
	for _, p := range l.payouts {
		if p.UserID == id {
			return
		}
	}

	delete(l.byID, id)
	for i, u := range l.users {
		if u.ID == id {
			l.users = append(l.users[:i], l.users[i+1:]...)
			return
		}
	}
}

// Verify checks the balance invariant and referrer references of every
// user and returns one error per violation.
func (l *Ledger) Verify() []error {
	var errs []error
	for _, u := range l.users {
		if err := CheckBalances(u); err != nil {
			errs = append(errs, err)
		}
		if u.HasReferrer() {
			if _, ok := l.byID[u.ReferrerID]; !ok {
				errs = append(errs, fmt.Errorf("user %s: referrer %s does not exist", u.ID, u.ReferrerID))
			}
		}
	}
	return errs
}

// CheckBalances verifies total == pending + paid and that no balance is
// negative.
func CheckBalances(u *models.User) error {
	if u.EarningsTotal.IsNegative() || u.EarningsPending.IsNegative() || u.EarningsPaid.IsNegative() {
		return fmt.Errorf("user %s: negative balance (total %s, pending %s, paid %s)",
			u.ID, u.EarningsTotal, u.EarningsPending, u.EarningsPaid)
	}
	if !u.EarningsTotal.Equal(u.EarningsPending.Add(u.EarningsPaid)) {
		return fmt.Errorf("user %s: total %s != pending %s + paid %s",
			u.ID, u.EarningsTotal, u.EarningsPending, u.EarningsPaid)
	}
	return nil
}
