package ledger

import (
	"strings"

	"github.com/referral-ledger/internal/models"
)

// ReferralPrefix starts every referral code.
const ReferralPrefix = "ref_"

// ReferralCode returns the referral code that points at userID.
func ReferralCode(userID string) string {
	return ReferralPrefix + userID
}

// ParseReferralCode extracts the referrer id from a "ref_<id>" code.
func ParseReferralCode(code string) (string, bool) {
	target, ok := strings.CutPrefix(code, ReferralPrefix)
	if !ok || target == "" {
		return "", false
	}
	return target, true
}

// BindReferrer binds user to the referrer named by code and reports whether
// the record changed. Malformed codes, self-referral, an already bound user
// and unknown referrers are all silent no-ops. Binding never credits
// anything; it only makes later table activity eligible.
func (l *Ledger) BindReferrer(user *models.User, code string) bool {
	target, ok := ParseReferralCode(code)
	if !ok {
		return false
	}
	if target == user.ID {
		return false
	}
	if user.HasReferrer() {
		return false
	}
	if _, exists := l.byID[target]; !exists {
		return false
	}

	user.ReferrerID = target
	return true
}
