package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// naiveISOLayout matches timestamps written without a zone offset, which
// are interpreted as UTC.
const naiveISOLayout = "2006-01-02T15:04:05.999999999"

// Payout is an immutable record of an administrator payout.
type Payout struct {
	ID     string          `json:"id,omitempty"`
	UserID string          `json:"user"`
	Amount decimal.Decimal `json:"amount"`
	Time   time.Time       `json:"time"`
}

// UnmarshalJSON accepts both RFC 3339 and zone-less ISO 8601 timestamps.
func (p *Payout) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID     string          `json:"id"`
		UserID string          `json:"user"`
		Amount decimal.Decimal `json:"amount"`
		Time   string          `json:"time"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var ts time.Time
	if raw.Time != "" {
		var err error
		ts, err = time.Parse(time.RFC3339Nano, raw.Time)
		if err != nil {
			ts, err = time.ParseInLocation(naiveISOLayout, raw.Time, time.UTC)
			if err != nil {
				return fmt.Errorf("invalid payout time %q: %w", raw.Time, err)
			}
		}
	}

	*p = Payout{ID: raw.ID, UserID: raw.UserID, Amount: raw.Amount, Time: ts}
	return nil
}
