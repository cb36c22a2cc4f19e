package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for engine failures.
var (
	// ErrInsufficientData is returned at fit time when fewer than 2 records
	// are supplied. Fatal to training.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrSongNotFound is an exact-match lookup miss. The router recovers by
	// falling back to semantic search.
	ErrSongNotFound = errors.New("song not found")
	// ErrModelNotLoaded means a serve call was made before an index was
	// trained or loaded.
	ErrModelNotLoaded = errors.New("model not loaded")
	// ErrEncoding wraps text-encoder failures.
	ErrEncoding = errors.New("encoding failed")
	// ErrIndexVersion means a persisted bundle does not match the running
	// code's schema. Fatal at load time.
	ErrIndexVersion = errors.New("index version mismatch")

	// Validation sentinels.
	ErrInvalidSong  = errors.New("invalid song")
	ErrInvalidQuery = errors.New("invalid query")
	ErrQueryTooLong = errors.New("query too long")
)

// ValidationError wraps a sentinel with context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
