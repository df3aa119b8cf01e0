// internal/domain/ledger/errors.go
package ledger

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the ledger error taxonomy. Handlers map these onto HTTP
// statuses; ErrLockTimeout and ErrConflict are retryable.
var (
	ErrValidation            = errors.New("validation failed")
	ErrNotFound              = errors.New("not found")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrBackdatedTransaction  = errors.New("backdated transaction")
	ErrDuplicate             = errors.New("duplicate transaction")
	ErrLockTimeout           = errors.New("lock acquisition timed out")
	ErrConflict              = errors.New("transaction ID conflict")
	ErrImmutableTransaction  = errors.New("transactions are immutable; create an adjustment instead")
)

// ValidationError reports malformed input for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func newValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientInventoryError carries the figures the caller needs to
// self-correct.
type InsufficientInventoryError struct {
	Available int
	Requested int
	BatchLot  string
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for batch %s. Available: %d, Requested: %d",
		e.BatchLot, e.Available, e.Requested)
}

func (e *InsufficientInventoryError) Unwrap() error { return ErrInsufficientInventory }

// BackdatedTransactionError reports a date that precedes the warehouse's
// latest existing transaction.
type BackdatedTransactionError struct {
	Requested time.Time
	Latest    time.Time
}

func (e *BackdatedTransactionError) Error() string {
	return fmt.Sprintf("transaction date %s precedes the warehouse's latest transaction date %s; use an adjustment instead",
		e.Requested.Format("2006-01-02"), e.Latest.Format("2006-01-02"))
}

func (e *BackdatedTransactionError) Unwrap() error { return ErrBackdatedTransaction }
