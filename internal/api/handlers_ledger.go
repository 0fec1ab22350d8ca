package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	apperrors "github.com/referral-ledger/internal/errors"
	"github.com/referral-ledger/internal/ledger"
	"github.com/shopspring/decimal"
)

// MaxLeaderboardLimit caps the limit query parameter.
const MaxLeaderboardLimit = 100

// CreatePayoutRequest is the body of POST /api/payouts. Amount accepts a
// JSON string or number.
type CreatePayoutRequest struct {
	UserID string          `json:"userId"`
	Amount decimal.Decimal `json:"amount"`
}

// handleGetStats handles GET /api/users/{id}/stats
func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]

	stats, err := s.ledger.Stats(userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// handleGetLeaderboard handles GET /api/leaderboard?limit=n. A missing or
// invalid limit uses the configured leaderboard size.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"entries": s.ledger.Leaderboard(limit),
	})
}

// handleGetPending handles GET /api/payouts/pending
func (s *Server) handleGetPending(w http.ResponseWriter, r *http.Request) {
	report, err := s.ledger.Pending(r.Header.Get(HeaderUserID))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// handleListPayouts handles GET /api/payouts
func (s *Server) handleListPayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := s.ledger.Payouts(r.Header.Get(HeaderUserID))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"payouts": payouts,
		"count":   len(payouts),
	})
}

// handleCreatePayout handles POST /api/payouts
func (s *Server) handleCreatePayout(w http.ResponseWriter, r *http.Request) {
	var req CreatePayoutRequest
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidInput, "Invalid request body", nil)
		return
	}
	if req.UserID == "" {
		respondServiceError(w, apperrors.NewInvalidArgumentError("userId", "missing"))
		return
	}
	if err := ledger.ValidateAmount(req.Amount); err != nil {
		respondServiceError(w, err)
		return
	}

	payout, err := s.ledger.ApplyPayout(r.Context(), r.Header.Get(HeaderUserID), req.UserID, req.Amount)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, payout)
}
