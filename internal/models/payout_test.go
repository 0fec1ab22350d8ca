package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayout_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantTime time.Time
		wantErr  bool
	}{
		{
			name:     "rfc3339",
			raw:      `{"id":"p1","user":"42","amount":"1.5","time":"2026-03-01T10:00:00Z"}`,
			wantTime: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			name:     "zone-less iso with micros",
			raw:      `{"user":"42","amount":1.5,"time":"2026-03-01T10:00:00.250000"}`,
			wantTime: time.Date(2026, 3, 1, 10, 0, 0, 250000000, time.UTC),
		},
		{
			name:    "garbage time",
			raw:     `{"user":"42","amount":1.5,"time":"yesterday"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Payout
			err := json.Unmarshal([]byte(tt.raw), &p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "42", p.UserID)
			assert.True(t, p.Amount.Equal(decimal.RequireFromString("1.5")))
			assert.True(t, p.Time.Equal(tt.wantTime), "time = %v, want %v", p.Time, tt.wantTime)
		})
	}
}
