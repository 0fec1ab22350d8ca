// Package errors provides the categorized error type shared by the ledger
// engines, the command surface and the HTTP API.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryAuthorization represents callers that may not run an operation
	CategoryAuthorization ErrorCategory = "authorization"
	// CategoryInvalidArgument represents malformed or missing arguments
	CategoryInvalidArgument ErrorCategory = "invalid_argument"
	// CategoryInsufficientPending represents payouts above the pending balance
	CategoryInsufficientPending ErrorCategory = "insufficient_pending"
	// CategoryNotFound represents lookups of unknown records
	CategoryNotFound ErrorCategory = "not_found"
	// CategoryStorage represents persistence failures
	CategoryStorage ErrorCategory = "storage"
	// CategoryConfig represents invalid configuration
	CategoryConfig ErrorCategory = "config"
	// CategorySystem represents everything else
	CategorySystem ErrorCategory = "system"
)

// Error codes
const (
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeInvalidArgument     = "INVALID_ARGUMENT"
	CodeUserNotFound        = "USER_NOT_FOUND"
	CodeInsufficientPending = "INSUFFICIENT_PENDING"
	CodeStorage             = "STORAGE_ERROR"
	CodeConfig              = "CONFIG_ERROR"
	CodeInternal            = "INTERNAL_ERROR"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// NewUnauthorizedError creates an error for a non-administrator calling an
// administrator-only operation.
func NewUnauthorizedError(callerID string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryAuthorization,
		StatusCode: http.StatusForbidden,
		Code:       CodeUnauthorized,
		Message:    "caller is not the administrator",
		Details: map[string]interface{}{
			"caller": callerID,
		},
	}
}

// NewInvalidArgumentError creates an invalid argument error
func NewInvalidArgumentError(param string, reason string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryInvalidArgument,
		StatusCode: http.StatusBadRequest,
		Code:       CodeInvalidArgument,
		Message:    fmt.Sprintf("invalid argument '%s': %s", param, reason),
		Details: map[string]interface{}{
			"parameter": param,
			"reason":    reason,
		},
	}
}

// NewUserNotFoundError creates the error returned when a payout targets an
// unknown user. It is an invalid argument from the caller's point of view.
func NewUserNotFoundError(userID string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryInvalidArgument,
		StatusCode: http.StatusNotFound,
		Code:       CodeUserNotFound,
		Message:    fmt.Sprintf("user not found: %s", userID),
		Details: map[string]interface{}{
			"userId": userID,
		},
	}
}

// NewInsufficientPendingError creates the error returned when a payout
// exceeds the pending balance.
func NewInsufficientPendingError(userID string, requested, pending decimal.Decimal) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryInsufficientPending,
		StatusCode: http.StatusConflict,
		Code:       CodeInsufficientPending,
		Message:    fmt.Sprintf("payout %s exceeds pending balance %s", requested.StringFixed(2), pending.StringFixed(2)),
		Details: map[string]interface{}{
			"userId":    userID,
			"requested": requested.String(),
			"pending":   pending.String(),
		},
	}
}

// NewStorageError creates a persistence error
func NewStorageError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryStorage,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeStorage,
		Message:    fmt.Sprintf("storage error during %s", operation),
		Cause:      cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewConfigError creates a configuration error
func NewConfigError(message string) *CategorizedError {
	return &CategorizedError{
		Category:   CategoryConfig,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeConfig,
		Message:    message,
	}
}

// NewInternalError creates an internal error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category:   CategorySystem,
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternal,
		Message:    message,
		Cause:      cause,
	}
}

// Categorize categorizes an existing error. Wrapped categorized errors are
// found through errors.As; anything else becomes an internal error.
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusInternalServerError
}

func hasCategory(err error, category ErrorCategory) bool {
	var catErr *CategorizedError
	return stderrors.As(err, &catErr) && catErr.Category == category
}

// IsUnauthorized reports whether err is an authorization error.
func IsUnauthorized(err error) bool {
	return hasCategory(err, CategoryAuthorization)
}

// IsInvalidArgument reports whether err is an invalid argument error,
// including unknown payout targets.
func IsInvalidArgument(err error) bool {
	return hasCategory(err, CategoryInvalidArgument)
}

// IsInsufficientPending reports whether err rejected a payout above the
// pending balance.
func IsInsufficientPending(err error) bool {
	return hasCategory(err, CategoryInsufficientPending)
}

// IsStorage reports whether err is a persistence failure.
func IsStorage(err error) bool {
	return hasCategory(err, CategoryStorage)
}

// IsUserError determines if an error is a user error (4xx)
func IsUserError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 400 && catErr.StatusCode < 500
}

// IsSystemError determines if an error is a system error (5xx)
func IsSystemError(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	return catErr.StatusCode >= 500
}
