/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The API layer maps these to HTTP statuses via the helpers at the bottom.

ERROR CATEGORIES:
  1. Validation errors - rejected before any persistence or budget mutation
  2. Not-found errors  - editing/deleting a nonexistent or not-owned event
  3. Conflict errors   - duplicate budget creation; recovered internally and
                         never surfaced to callers

USAGE:
  if engine.IsClientError(err) { ... 400 ... }
  var verr *engine.ValidationError
  if errors.As(err, &verr) { ... verr.Violations ... }

SEE ALSO:
  - engine.go: Returns these errors
  - api/handlers.go: Maps them to HTTP statuses
*/
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateBudget is returned by stores when a budget record for the
	// same (user, day) already exists. The engine recovers by re-reading the
	// winning record; callers never see this error.
	ErrDuplicateBudget = errors.New("budget record already exists for this day")

	// ErrBudgetNotFound is returned when a delta is applied to a day with no
	// budget record. This indicates a programming error: deltas are only
	// applied after get-or-create.
	ErrBudgetNotFound = errors.New("budget record not found")

	// ErrEventNotFound is returned when amending or deleting an event that
	// does not exist or does not belong to the caller.
	ErrEventNotFound = errors.New("consumption event not found")

	// ErrProfileNotFound is returned when a budget must be created for a
	// user with no stored profile.
	ErrProfileNotFound = errors.New("user profile not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FieldViolation names one invalid input field.
type FieldViolation struct {
	Field   string
	Message string
}

// ValidationError reports the offending field(s) of a rejected request.
// Validation happens before any persistence, so a ValidationError guarantees
// no side effects occurred.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NotFoundError wraps ErrEventNotFound with the offending id.
type NotFoundError struct {
	EventID EventID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("consumption event %s not found", e.EventID)
}

func (e *NotFoundError) Unwrap() error { return ErrEventNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr) || errors.Is(err, ErrProfileNotFound)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEventNotFound)
}
