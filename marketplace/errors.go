/*
errors.go - Error taxonomy for the marketplace

ERROR CATEGORIES:
  1. Visibility   - ErrNotFound (absent, or caller cannot see it)
  2. Authorization - ErrForbidden
  3. Business rules - ErrInsufficientFunds, ErrLimitExceeded, ErrAlreadyPaid
  4. Input         - ErrInvalidInput
  5. Storage       - ErrStoreFailure (transaction rolled back)

Business-rule errors are client-correctable and must never be reported as
not-found or as server faults. The api package maps them to status codes.
*/
package marketplace

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when an entity is absent or hidden from the caller.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller is not a party allowed to act.
	ErrForbidden = errors.New("forbidden")

	// ErrInsufficientFunds is returned when the payer's balance is below the price.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrLimitExceeded is returned when a deposit is above the allowed cap.
	ErrLimitExceeded = errors.New("deposit limit exceeded")

	// ErrAlreadyPaid is returned on a second payment attempt for the same job.
	ErrAlreadyPaid = errors.New("job already paid")

	// ErrInvalidInput is returned for malformed amounts, ranges or limits.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreFailure wraps persistence failures. The enclosing transaction
	// has been rolled back when this is returned.
	ErrStoreFailure = errors.New("store failure")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InsufficientFundsError carries the shortfall of a rejected payment.
type InsufficientFundsError struct {
	ProfileID ProfileID
	JobID     JobID
	Balance   decimal.Decimal
	Price     decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: profile %d has %s, job %d costs %s",
		e.ProfileID, e.Balance.StringFixed(2), e.JobID, e.Price.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// LimitExceededError carries the cap that a deposit went over.
type LimitExceededError struct {
	ProfileID   ProfileID
	Amount      decimal.Decimal
	TotalUnpaid decimal.Decimal
	Limit       decimal.Decimal
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("deposit of %s exceeds limit %s (unpaid jobs total %s)",
		e.Amount.StringFixed(2), e.Limit.StringFixed(2), e.TotalUnpaid.StringFixed(2))
}

func (e *LimitExceededError) Unwrap() error { return ErrLimitExceeded }

// =============================================================================
// ERROR HELPERS
// =============================================================================

func invalidInput(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, msg)
}

// StoreError wraps an unexpected persistence error so callers can tell it
// apart from business-rule rejections.
func StoreError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, op, err)
}

// IsClientError returns true if the caller can correct the request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrLimitExceeded) ||
		errors.Is(err, ErrAlreadyPaid) ||
		errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error hides or lacks the entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
