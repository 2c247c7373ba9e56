// Package bankerr holds the domain error taxonomy shared by the account,
// access and banking packages. Callers wrap these sentinels with context and
// match them with errors.Is.
package bankerr

import (
	"errors"
	"net/http"
)

// Amount and balance rule violations.
var (
	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInsufficientFunds is returned when a withdrawal exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDailyWithdrawalLimitExceeded is returned when a savings withdrawal is
	// above the account's daily limit.
	ErrDailyWithdrawalLimitExceeded = errors.New("daily withdrawal limit exceeded")

	// ErrSingleWithdrawalLimitExceeded is returned when a student savings
	// withdrawal is above the per-withdrawal limit.
	ErrSingleWithdrawalLimitExceeded = errors.New("single withdrawal limit exceeded")

	// ErrCreditLimitExceeded is returned when borrowing would push the debt
	// beyond the credit limit.
	ErrCreditLimitExceeded = errors.New("credit limit exceeded")
)

// Access violations.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("forbidden")
)

var (
	// ErrNotFound is returned for unknown accounts and users.
	ErrNotFound = errors.New("not found")

	// ErrInvalidOperation covers requests that are well formed but not allowed
	// in the current state, e.g. closing an account with a non-zero balance.
	ErrInvalidOperation = errors.New("invalid operation")
)

// Status maps a domain error to the HTTP status code handlers respond with.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrDailyWithdrawalLimitExceeded),
		errors.Is(err, ErrSingleWithdrawalLimitExceeded),
		errors.Is(err, ErrCreditLimitExceeded):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrInvalidOperation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
