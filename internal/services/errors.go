package services

import (
	"errors"
	"fmt"
)

var (
	// validation: rejected before any write
	ErrValidation = errors.New("validation failed")

	// state conflicts
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStaleOrder        = errors.New("order not found in expected state")
	ErrAlreadyRated      = errors.New("order already rated")
	ErrNotRatable        = errors.New("order cannot be rated in its current status")

	// insufficient resources
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrMenuItemNotFound  = errors.New("menu item not found")
	ErrInvalidConnection = errors.New("invalid bill-of-materials connection")

	ErrRateLimited = errors.New("rate limit exceeded")

	// ledger / inventory
	ErrEntryNotFound         = errors.New("ledger entry not found")
	ErrEntryImmutable        = errors.New("ledger entry is not a manual entry")
	ErrInventoryItemNotFound = errors.New("inventory item not found")
)

// RateLimitError carries the human readable reason shown to throttled callers.
type RateLimitError struct {
	Reason string
}

func (e *RateLimitError) Error() string { return e.Reason }

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
