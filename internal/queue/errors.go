package queue

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no job exists for the requested id.
	ErrNotFound = errors.New("job not found")

	// ErrInvalidState is returned when a command targets a job that is
	// already in a terminal state. The job is left unchanged.
	ErrInvalidState = errors.New("job is in a terminal state")

	// ErrArtifactTooLarge is returned when the uploaded artifact exceeds
	// the configured maximum size. It is a validation error but is kept
	// distinct so the HTTP layer can answer 413 instead of 400.
	ErrArtifactTooLarge = errors.New("artifact exceeds maximum size")
)

// ValidationError rejects a malformed create request. No state change
// happens when it is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a request-validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
