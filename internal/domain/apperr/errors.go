package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation indicates bad input shape or format. The caller may correct and resubmit.
	ErrValidation = errors.New("validation failed")
	// ErrPriceUnavailable indicates a grade, route or currency lookup miss.
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrAllocation indicates the counter transaction did not commit. Safe to retry.
	ErrAllocation = errors.New("order id allocation failed")
	// ErrPersistence indicates the order write failed after an id was allocated.
	ErrPersistence = errors.New("order persistence failed")
	// ErrAudit indicates the history write failed.
	ErrAudit = errors.New("audit write failed")
	// ErrNotFound indicates a missing record.
	ErrNotFound = errors.New("not found")
	// ErrSubmissionInFlight rejects a second submission while one is still running.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrInvalidTransition rejects a status change the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError collects per-field problems.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty ValidationError ready for Add calls.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string]string)}
}

// Add records a problem for field. The first message per field wins.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; exists {
		return
	}
	e.Fields[field] = message
}

// Empty reports whether no problems were recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// OrNil returns nil when there is nothing to report so callers can write `return verr.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Invalid is a shortcut for a single-field ValidationError.
func Invalid(field, message string) error {
	verr := NewValidationError()
	verr.Add(field, message)
	return verr
}
