package util

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Handlers translate these to
// HTTP statuses in one place (Fail); internal detail never reaches the
// client.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrDecryption   = errors.New("decryption failed")
)

// ValidationError names the offending field of a malformed input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// RateLimitError carries the machine-readable retry delay for a denied
// request.
type RateLimitError struct {
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %ds", e.RetryAfter)
}
