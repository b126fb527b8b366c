// Package apperr defines the error taxonomy shared by services and handlers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced entity is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")
	// ErrNotEntitled means the business rule requires an active subscription.
	ErrNotEntitled = errors.New("not entitled")
	// ErrConflict means a concurrent mutation won the race; the caller may retry.
	ErrConflict = errors.New("conflict")
)

// ValidationError rejects bad input before any mutation happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
