package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the intake and admin flows.
var (
	// ErrDuplicateSubmission is the submission guard rejection. It is
	// surfaced as a redirect to the already-submitted outcome, never a
	// hard failure.
	ErrDuplicateSubmission = errors.New("feedback already submitted for this patient")

	// ErrDuplicateRecord is a store-level uniqueness violation on
	// patient_id. The unique index is the authoritative guard; the
	// session and pre-insert checks are fast paths only.
	ErrDuplicateRecord = errors.New("record with this patient id already exists")

	// ErrNotFound marks an update or delete against a missing
	// patient_id. Callers report it as a failed operation, not a 5xx.
	ErrNotFound = errors.New("no record matches the given patient id")

	// ErrNothingToDo rejects an admin update/delete that supplied no
	// usable values before it reaches the store.
	ErrNothingToDo = errors.New("no non-empty values supplied")

	// ErrStoreUnavailable and ErrCacheUnavailable wrap connectivity
	// failures. Fatal for the current request; no automatic retry.
	ErrStoreUnavailable = errors.New("record store unavailable")
	ErrCacheUnavailable = errors.New("cache unavailable")
)

// ValidationError reports a malformed or missing form field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message, value string) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
