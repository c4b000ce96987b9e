/*
errors.go - Centralized error types for the expense engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every failure the core can produce is recoverable at the call site: the
  caller surfaces the message and leaves the record unchanged.

ERROR CATEGORIES:
  1. Validation errors - Bad dates, negative amounts, blank rejection reason
  2. Transition errors - Advancing/rejecting from a terminal or unknown status
  3. Scope errors      - Ledger given transactions from several offices/months
  4. Store errors      - Missing records, optimistic-lock conflicts

USAGE:
  Check categories with errors.Is, details with errors.As:

    var verr *generic.ValidationError
    if errors.As(err, &verr) {
        for _, f := range verr.Fields { ... }
    }

SEE ALSO:
  - expense/lifecycle.go: Produces TransitionError and ValidationError
  - pettycash/ledger.go: Produces ScopeError
  - api/handlers.go: Maps categories to HTTP status codes
*/
package generic

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when input breaks a business rule.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition is returned when a status change is not allowed
	// from the current status.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidScope is returned when a ledger computation is given
	// transactions spanning more than one office or month.
	ErrInvalidScope = errors.New("invalid ledger scope")

	// ErrNotFound is returned when a referenced record doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModification is returned when optimistic locking detects
	// that the record changed since it was read.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrTransitionInFlight is returned when a second transition is requested
	// for an expense while an earlier one has not completed.
	ErrTransitionInFlight = errors.New("transition already in flight")

	// ErrDuplicate is returned when a record with the same ID already exists.
	ErrDuplicate = errors.New("duplicate record")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldError is one field → message pair.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError collects every rule violation found in one pass.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError with a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Add appends a field error.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Merge appends the fields of other if it is a ValidationError.
// Any other non-nil error is recorded under the "_" field.
func (e *ValidationError) Merge(other error) {
	if other == nil {
		return
	}
	var verr *ValidationError
	if errors.As(other, &verr) {
		e.Fields = append(e.Fields, verr.Fields...)
		return
	}
	e.Add("_", other.Error())
}

// OrNil returns nil when nothing was recorded so callers can write
// `return verr.OrNil()`.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// Message returns the message recorded for field, or "".
func (e *ValidationError) Message(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// TransitionError describes a refused status change.
type TransitionError struct {
	Action string // "advance", "reject", "submit", "edit"
	From   string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("cannot %s expense in status %q", e.Action, e.From)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ScopeError describes a ledger scope violation.
type ScopeError struct {
	Offices []OfficeID
	Months  []Month
}

func (e *ScopeError) Error() string {
	if len(e.Offices) > 1 {
		return fmt.Sprintf("invalid ledger scope: transactions span %d offices", len(e.Offices))
	}
	return fmt.Sprintf("invalid ledger scope: transactions span %d months", len(e.Months))
}

func (e *ScopeError) Unwrap() error {
	return ErrInvalidScope
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidScope)
}

// IsConflict returns true if the request raced another change.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrTransitionInFlight) ||
		errors.Is(err, ErrDuplicate)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
