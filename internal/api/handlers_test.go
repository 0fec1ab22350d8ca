package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	apperrors "github.com/referral-ledger/internal/errors"
	"github.com/referral-ledger/internal/logging"
	"github.com/referral-ledger/internal/models"
	"github.com/referral-ledger/internal/service"
	"github.com/referral-ledger/internal/storage"
	"github.com/referral-ledger/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleGetStats(t *testing.T) {
	ledger := &mockLedger{
		statsFunc: func(userID string) (models.Stats, error) {
			if userID != "42" {
				return models.Stats{}, apperrors.NewUserNotFoundError(userID)
			}
			return models.Stats{
				UserID:          "42",
				ReferralsTotal:  3,
				EarningsTotal:   decimal.NewFromInt(9),
				EarningsPending: decimal.NewFromInt(4),
				EarningsPaid:    decimal.NewFromInt(5),
			}, nil
		},
	}
	s := createTestServer(ledger, nil)

	t.Run("known user", func(t *testing.T) {
		w := doRequest(s, "GET", "/api/users/42/stats", "", "", true)
		require.Equal(t, http.StatusOK, w.Code)

		var stats models.Stats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.Equal(t, 3, stats.ReferralsTotal)
		assert.True(t, stats.EarningsPending.Equal(decimal.NewFromInt(4)))
	})

	t.Run("unknown user", func(t *testing.T) {
		w := doRequest(s, "GET", "/api/users/7/stats", "", "", true)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, apperrors.CodeUserNotFound, decodeError(t, w).Code)
	})
}

func TestHandleGetLeaderboard(t *testing.T) {
	var gotLimit int
	ledger := &mockLedger{
		leaderboardFunc: func(n int) []models.LeaderboardEntry {
			gotLimit = n
			return []models.LeaderboardEntry{
				{Rank: 1, UserID: "42", DisplayName: "promo", EarningsTotal: decimal.NewFromInt(8)},
			}
		},
	}
	s := createTestServer(ledger, nil)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "default", query: "", want: 0},
		{name: "explicit", query: "?limit=3", want: 3},
		{name: "capped", query: "?limit=5000", want: MaxLeaderboardLimit},
		{name: "invalid", query: "?limit=abc", want: 0},
		{name: "negative", query: "?limit=-2", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, "GET", "/api/leaderboard"+tt.query, "", "", true)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, gotLimit)

			var resp struct {
				Entries []models.LeaderboardEntry `json:"entries"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			require.Len(t, resp.Entries, 1)
			assert.Equal(t, "promo", resp.Entries[0].DisplayName)
		})
	}
}

func TestHandleAdminEndpoints_Unauthorized(t *testing.T) {
	ledger := &mockLedger{
		pendingFunc: func(callerID string) (service.PendingReport, error) {
			return service.PendingReport{}, apperrors.NewUnauthorizedError(callerID)
		},
		payoutsFunc: func(callerID string) ([]models.Payout, error) {
			return nil, apperrors.NewUnauthorizedError(callerID)
		},
	}
	s := createTestServer(ledger, nil)

	for _, path := range []string{"/api/payouts/pending", "/api/payouts"} {
		t.Run(path, func(t *testing.T) {
			w := doRequest(s, "GET", path, "", "77", true)
			assert.Equal(t, http.StatusForbidden, w.Code)
			assert.Equal(t, apperrors.CodeUnauthorized, decodeError(t, w).Code)
		})
	}
}

func TestHandleListPayouts(t *testing.T) {
	ledger := &mockLedger{
		payoutsFunc: func(callerID string) ([]models.Payout, error) {
			return []models.Payout{
				{ID: "p-1", UserID: "42", Amount: decimal.NewFromInt(1)},
				{ID: "p-2", UserID: "42", Amount: decimal.NewFromInt(2)},
			}, nil
		},
	}
	s := createTestServer(ledger, nil)

	w := doRequest(s, "GET", "/api/payouts", "", "1", true)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Payouts []models.Payout `json:"payouts"`
		Count   int             `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "p-2", resp.Payouts[1].ID)
}

func TestHandleCreatePayout_Validation(t *testing.T) {
	called := false
	ledger := &mockLedger{
		applyFunc: func(ctx context.Context, callerID, targetID string, amount decimal.Decimal) (models.Payout, error) {
			called = true
			return models.Payout{}, nil
		},
	}
	s := createTestServer(ledger, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "malformed json", body: `{"userId":`, want: ErrCodeInvalidInput},
		{name: "unknown field", body: `{"userId":"42","amount":"1","note":"x"}`, want: ErrCodeInvalidInput},
		{name: "bad amount", body: `{"userId":"42","amount":"lots"}`, want: ErrCodeInvalidInput},
		{name: "missing user", body: `{"amount":"1"}`, want: apperrors.CodeInvalidArgument},
		{name: "missing amount", body: `{"userId":"42"}`, want: apperrors.CodeInvalidArgument},
		{name: "tiny exponent", body: `{"userId":"42","amount":"1e-200000"}`, want: apperrors.CodeInvalidArgument},
		{name: "huge exponent", body: `{"userId":"42","amount":1e200000}`, want: apperrors.CodeInvalidArgument},
		{name: "sub cent", body: `{"userId":"42","amount":0.001}`, want: apperrors.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(s, "POST", "/api/payouts", tt.body, "1", true)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.want, decodeError(t, w).Code)
		})
	}
	assert.False(t, called)
}

func TestHandleCreatePayout_PassesCaller(t *testing.T) {
	var gotCaller, gotTarget string
	var gotAmount decimal.Decimal
	ledger := &mockLedger{
		applyFunc: func(ctx context.Context, callerID, targetID string, amount decimal.Decimal) (models.Payout, error) {
			gotCaller, gotTarget, gotAmount = callerID, targetID, amount
			return models.Payout{ID: "p-9", UserID: targetID, Amount: amount}, nil
		},
	}
	s := createTestServer(ledger, nil)

	w := doRequest(s, "POST", "/api/payouts", `{"userId":"42","amount":1.5}`, "1", true)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "1", gotCaller)
	assert.Equal(t, "42", gotTarget)
	assert.True(t, gotAmount.Equal(decimal.RequireFromString("1.5")))
}

// TestLedgerAPI_EndToEnd drives the API against a real ledger service
// backed by a file store.
func TestLedgerAPI_EndToEnd(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	svc, err := service.Open(ctx, store, service.Options{AdminID: "1", Logger: logging.NewNopLogger()})
	require.NoError(t, err)

	promoter := models.Identity{ID: "42", Username: "promo"}
	player := models.Identity{ID: "77", FirstName: "Ann"}
	_, err = svc.Start(ctx, promoter, nil)
	require.NoError(t, err)
	_, err = svc.Start(ctx, player, []string{"ref_42"})
	require.NoError(t, err)
	_, err = svc.RecordActivity(ctx, player, types.Tier5)
	require.NoError(t, err)
	_, err = svc.RecordActivity(ctx, player, types.Tier20)
	require.NoError(t, err)

	s := createTestServer(svc, nil)

	t.Run("pending", func(t *testing.T) {
		w := doRequest(s, "GET", "/api/payouts/pending", "", "1", true)
		require.Equal(t, http.StatusOK, w.Code)

		var report service.PendingReport
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
		require.Len(t, report.Entries, 1)
		assert.Equal(t, "42", report.Entries[0].UserID)
		assert.True(t, report.Entries[0].EarningsPending.Equal(decimal.NewFromInt(8)))
	})

	t.Run("non admin", func(t *testing.T) {
		w := doRequest(s, "POST", "/api/payouts", `{"userId":"42","amount":"1"}`, "77", true)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("exceeds pending", func(t *testing.T) {
		w := doRequest(s, "POST", "/api/payouts", `{"userId":"42","amount":"100"}`, "1", true)
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, apperrors.CodeInsufficientPending, decodeError(t, w).Code)
	})

	t.Run("non positive", func(t *testing.T) {
		w := doRequest(s, "POST", "/api/payouts", `{"userId":"42","amount":"0"}`, "1", true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown target", func(t *testing.T) {
		w := doRequest(s, "POST", "/api/payouts", `{"userId":"999","amount":"1"}`, "1", true)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("payout", func(t *testing.T) {
		w := doRequest(s, "POST", "/api/payouts", `{"userId":"42","amount":"2.50"}`, "1", true)
		require.Equal(t, http.StatusCreated, w.Code)

		w = doRequest(s, "GET", "/api/users/42/stats", "", "", true)
		require.Equal(t, http.StatusOK, w.Code)
		var stats models.Stats
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
		assert.True(t, stats.EarningsPending.Equal(decimal.RequireFromString("5.5")))
		assert.True(t, stats.EarningsPaid.Equal(decimal.RequireFromString("2.5")))
		assert.True(t, stats.EarningsTotal.Equal(decimal.NewFromInt(8)))
	})

	t.Run("leaderboard", func(t *testing.T) {
		w := doRequest(s, "GET", "/api/leaderboard", "", "", true)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Entries []models.LeaderboardEntry `json:"entries"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotEmpty(t, resp.Entries)
		assert.Equal(t, "42", resp.Entries[0].UserID)
	})
}
