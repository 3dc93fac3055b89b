package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrValidation is returned when an entity fails write-time validation
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned when a persisted record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrSourceNotFound is returned when a price source id or name is unknown
	ErrSourceNotFound = errors.New("price source not found")

	// ErrAlreadyExists is returned when a unique field collides with a stored record
	ErrAlreadyExists = errors.New("record already exists")

	// ErrNoActiveSources is returned when a scrape request resolves to zero active sources
	ErrNoActiveSources = errors.New("no active price sources available")

	// ErrFetchFailed is returned when a source page cannot be fetched
	ErrFetchFailed = errors.New("source fetch failed")

	// ErrSelectorNoMatch is returned when a required selector matches nothing
	ErrSelectorNoMatch = errors.New("selector matched nothing")

	// ErrUnparseablePrice is returned when extracted price text is not a number
	ErrUnparseablePrice = errors.New("unparseable price")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCircuitOpen is returned when a source is short-circuited after repeated failures
	ErrCircuitOpen = errors.New("source circuit open")
)

// ValidationError describes a single rejected field. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
