package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Categorize(nil))
	})

	t.Run("wrapped categorized error is found", func(t *testing.T) {
		inner := NewUnauthorizedError("7")
		wrapped := fmt.Errorf("markpaid: %w", inner)

		got := Categorize(wrapped)
		assert.Same(t, inner, got)
		assert.True(t, IsUnauthorized(wrapped))
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		got := Categorize(stderrors.New("boom"))
		assert.Equal(t, CategorySystem, got.Category)
		assert.Equal(t, http.StatusInternalServerError, got.StatusCode)
	})
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unauthz     bool
		invalid     bool
		insufficent bool
		storage     bool
		userErr     bool
		status      int
	}{
		{
			name:    "unauthorized",
			err:     NewUnauthorizedError("1"),
			unauthz: true,
			userErr: true,
			status:  http.StatusForbidden,
		},
		{
			name:    "invalid argument",
			err:     NewInvalidArgumentError("amount", "not a number"),
			invalid: true,
			userErr: true,
			status:  http.StatusBadRequest,
		},
		{
			name:    "unknown user counts as invalid argument",
			err:     NewUserNotFoundError("99"),
			invalid: true,
			userErr: true,
			status:  http.StatusNotFound,
		},
		{
			name:        "insufficient pending",
			err:         NewInsufficientPendingError("42", decimal.NewFromInt(100), decimal.RequireFromString("0.5")),
			insufficent: true,
			userErr:     true,
			status:      http.StatusConflict,
		},
		{
			name:    "storage",
			err:     NewStorageError("save users", stderrors.New("disk full")),
			storage: true,
			status:  http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unauthz, IsUnauthorized(tt.err))
			assert.Equal(t, tt.invalid, IsInvalidArgument(tt.err))
			assert.Equal(t, tt.insufficent, IsInsufficientPending(tt.err))
			assert.Equal(t, tt.storage, IsStorage(tt.err))
			assert.Equal(t, tt.userErr, IsUserError(tt.err))
			assert.Equal(t, !tt.userErr, IsSystemError(tt.err))
			assert.Equal(t, tt.status, GetHTTPStatusCode(tt.err))
		})
	}
}

func TestStorageError_Unwrap(t *testing.T) {
	cause := stderrors.New("disk full")
	err := NewStorageError("save payouts", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
}
