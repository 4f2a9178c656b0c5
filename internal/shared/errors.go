package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation marks input that failed validation.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate marks a unique constraint conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrUnprocessable marks a well-formed request that business rules reject.
	ErrUnprocessable = errors.New("unprocessable")
)

// ValidationError carries field level details for a failed document validation.
type ValidationError struct {
	Err     error
	Details map[string]string
}

// NewValidationError wraps err with optional field details.
func NewValidationError(err error, details map[string]string) *ValidationError {
	return &ValidationError{Err: err, Details: details}
}

func (e *ValidationError) Error() string {
	if e == nil || e.Err == nil {
		return ErrValidation.Error()
	}
	if len(e.Details) == 0 {
		return e.Err.Error()
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Details[k]))
	}
	return e.Err.Error() + " (" + strings.Join(parts, "; ") + ")"
}

// Unwrap exposes the wrapped sentinel.
func (e *ValidationError) Unwrap() error { return e.Err }

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
