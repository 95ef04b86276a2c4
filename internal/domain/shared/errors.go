// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
	"time"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation   = errors.New("validation error")
	ErrInvalidID    = errors.New("invalid ID")
	ErrInvalidInput = errors.New("invalid input")

	// State errors
	ErrStateTransition = errors.New("invalid state transition")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Scheduling conflict errors
	ErrConflict        = errors.New("scheduling conflict")
	ErrTutorConflict   = fmt.Errorf("tutor already booked: %w", ErrConflict)
	ErrStudentConflict = fmt.Errorf("student already booked: %w", ErrConflict)

	// Concurrency errors
	ErrLockNotAcquired = errors.New("scheduling lock not acquired")

	// External service errors
	ErrExternalService = errors.New("external service error")
	ErrTimeout         = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "session", "timeslot", "scheduling"
	Op      string // Operation that failed, e.g., "Schedule", "Cancel"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// VALIDATION ERRORS
// Validation failures carry a typed rule plus structured parameters instead of
// preformatted message strings: formatting is a presentation concern.
// ══════════════════════════════════════════════════════════════════════════════

// Rule identifies the business rule a validation error violated.
type Rule string

const (
	RulePastDate                  Rule = "past_date"
	RuleInsufficientAdvanceNotice Rule = "insufficient_advance_notice"
	RuleTooFarInFuture            Rule = "too_far_in_future"
	RuleDurationOutOfRange        Rule = "duration_out_of_range"
	RuleInvalidTimeFormat         Rule = "invalid_time_format"
	RuleInvalidTimeRange          Rule = "invalid_time_range"
	RuleInvalidDayOfWeek          Rule = "invalid_day_of_week"
	RuleRecurrenceEndInPast       Rule = "recurrence_end_in_past"
	RuleEmptyText                 Rule = "empty_text"
	RuleTextTooLong               Rule = "text_too_long"
	RuleTooManyMaterials          Rule = "too_many_materials"
	RuleSlotOverlap               Rule = "slot_overlap"
	RuleInvalidPriority           Rule = "invalid_priority"
)

// ValidationError is a structured validation failure. Min/Max/Actual are
// populated for range rules, Field names the offending attribute.
type ValidationError struct {
	Rule   Rule
	Field  string
	Min    int
	Max    int
	Actual int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch e.Rule {
	case RuleDurationOutOfRange, RuleTextTooLong, RuleTooManyMaterials:
		return fmt.Sprintf("validation: %s violates %s (allowed %d..%d, got %d)",
			e.Field, e.Rule, e.Min, e.Max, e.Actual)
	default:
		return fmt.Sprintf("validation: %s violates %s", e.Field, e.Rule)
	}
}

// Is makes every ValidationError match ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a validation error for a non-range rule.
func NewValidationError(rule Rule, field string) *ValidationError {
	return &ValidationError{Rule: rule, Field: field}
}

// NewRangeError creates a validation error for a bounded numeric rule.
func NewRangeError(rule Rule, field string, min, max, actual int) *ValidationError {
	return &ValidationError{Rule: rule, Field: field, Min: min, Max: max, Actual: actual}
}

// ══════════════════════════════════════════════════════════════════════════════
// CONFLICT & TRANSITION ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// ConflictParty identifies whose calendar the conflict is on.
type ConflictParty string

const (
	ConflictPartyTutor   ConflictParty = "tutor"
	ConflictPartyStudent ConflictParty = "student"
)

// ConflictError reports a scheduling overlap with existing active sessions.
type ConflictError struct {
	Party      ConflictParty
	PartyID    string
	Start      time.Time
	End        time.Time
	SessionIDs []string // conflicting session ids
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s %s already booked between %s and %s (%d sessions)",
		e.Party, e.PartyID,
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339),
		len(e.SessionIDs))
}

// Is matches ErrConflict and the party-specific sentinel.
func (e *ConflictError) Is(target error) bool {
	if target == ErrConflict {
		return true
	}
	if e.Party == ConflictPartyTutor && target == ErrTutorConflict {
		return true
	}
	if e.Party == ConflictPartyStudent && target == ErrStudentConflict {
		return true
	}
	return false
}

// TransitionError reports a lifecycle operation attempted from a state that
// does not permit it.
type TransitionError struct {
	Entity string
	Op     string
	From   string
}

// Error implements the error interface.
func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s.%s: not allowed from status %s", e.Entity, e.Op, e.From)
}

// Is makes every TransitionError match ErrStateTransition.
func (e *TransitionError) Is(target error) bool {
	return target == ErrStateTransition
}

// ══════════════════════════════════════════════════════════════════════════════
// CLASSIFICATION HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput)
}

// IsConflict checks if the error is a scheduling conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsInvalidTransition checks if the error is a state transition error.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrStateTransition)
}

// IsUnauthorized checks if the error is an authorization error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// IsRetryable checks if the operation can be retried as-is. Conflicts and
// validation failures are terminal for the request; only a lost lock race or
// an external hiccup is worth another attempt.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrLockNotAcquired) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrExternalService)
}
