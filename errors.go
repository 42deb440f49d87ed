package hold

import (
	"errors"
	"fmt"

	"github.com/xraph/hold/scheduler"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("hold: not found")
	ErrAlreadyExists = errors.New("hold: already exists")
	ErrInvalidInput  = errors.New("hold: invalid input")

	// Resource errors
	ErrResourceNotFound  = errors.New("hold: resource not found")
	ErrInsufficientStock = errors.New("hold: insufficient stock")
	ErrInvalidQuantity   = errors.New("hold: quantity must be at least 1")

	// Claim errors
	ErrClaimNotFound   = errors.New("hold: claim not found")
	ErrAlreadyResolved = errors.New("hold: claim already resolved")
	ErrClaimExpired    = errors.New("hold: claim expired, stock released")

	// Scheduler errors, re-exported so callers match them without importing
	// the scheduler package.
	ErrSchedulerStopped = scheduler.ErrStopped
	ErrScheduleRejected = scheduler.ErrRejected

	// Store errors
	ErrStoreNotReady   = errors.New("hold: store not ready")
	ErrStoreClosed     = errors.New("hold: store is closed")
	ErrMigrationFailed = errors.New("hold: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("hold: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrResourceNotFound) ||
		errors.Is(err, ErrClaimNotFound)
}

// IsConflict returns true if the error reflects a lost race or depleted
// stock rather than caller misuse. These are safe to surface as-is; the
// caller may retry later or treat them as informational.
func IsConflict(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrAlreadyResolved) ||
		errors.Is(err, ErrClaimExpired)
}

// IsRetryable returns true if the error is temporary and the operation can
// be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrScheduleRejected)
}
