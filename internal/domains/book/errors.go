package book

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Lookup
	ErrBookNotFound = errors.New("book not found")

	// Input
	ErrValidationFailed = errors.New("book validation failed")
	ErrUnknownField     = errors.New("unknown search field")

	// Store
	ErrStoreUnavailable = errors.New("book store unavailable")
	ErrIndexCreation    = errors.New("book index creation failed")
)

// ValidationError carries per-field messages. It matches ErrValidationFailed with errors.Is.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", ErrValidationFailed, e.Fields)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func unknownField(field, reason string) error {
	return fmt.Errorf("%w: %q %s", ErrUnknownField, field, reason)
}

// Unavailable wraps a store failure so it classifies as ErrStoreUnavailable while
// keeping the original error in the chain.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// ToErrorCode converts error to API error code
func ToErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrBookNotFound):
		return "BOOK_NOT_FOUND"
	case errors.Is(err, ErrValidationFailed):
		return "VALIDATION_FAILED"
	case errors.Is(err, ErrUnknownField):
		return "UNKNOWN_FIELD"
	case errors.Is(err, ErrIndexCreation):
		return "INDEX_CREATION_FAILED"
	case errors.Is(err, ErrStoreUnavailable):
		return "STORE_UNAVAILABLE"
	default:
		return "INTERNAL_ERROR"
	}
}

// ToHTTPStatus converts error to HTTP status code
func ToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrBookNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidationFailed), errors.Is(err, ErrUnknownField):
		return http.StatusBadRequest
	case errors.Is(err, ErrIndexCreation):
		return http.StatusInternalServerError
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
