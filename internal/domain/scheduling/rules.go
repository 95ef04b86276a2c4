// Package scheduling holds the scheduling business rules, the conflict
// detector, and the tutor-assignment policy. Everything here is pure domain
// logic: the only collaborators are repository interfaces.
package scheduling

import (
	"strings"
	"time"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RULES
// Central scheduling rule configuration. Immutable after construction and
// injected wherever entities need validation; there is no mutable global.
// ══════════════════════════════════════════════════════════════════════════════

// Rules contains the business-rule bounds for sessions and time slots.
//
// Note the two distinct duration ranges: a time slot is an availability
// window a tutor opens (30 minutes to 8 hours), while a session is a single
// booking inside such a window (15 minutes to 4 hours). The ranges are
// deliberately independent.
type Rules struct {
	// Session duration bounds, minutes.
	SessionMinDuration int
	SessionMaxDuration int

	// Time slot duration bounds, minutes.
	SlotMinDuration int
	SlotMaxDuration int

	// Advance-notice window for scheduling and rescheduling.
	MinAdvanceHours  int
	MaxAdvanceMonths int

	// Text length limits.
	MaxQuestionLength int
	MaxNotesLength    int
	MaxSummaryLength  int
	MaxReasonLength   int
	MaxMaterialLength int
	MaxMaterials      int

	// CandidateStepMinutes is the alignment of generated start times in
	// availability search.
	CandidateStepMinutes int

	// AllowStudentConflicts disables the student-side overlap check when true.
	AllowStudentConflicts bool
}

// DefaultRules returns the production rule set.
func DefaultRules() Rules {
	return Rules{
		SessionMinDuration:    15,
		SessionMaxDuration:    240,
		SlotMinDuration:       30,
		SlotMaxDuration:       480,
		MinAdvanceHours:       2,
		MaxAdvanceMonths:      3,
		MaxQuestionLength:     1000,
		MaxNotesLength:        2000,
		MaxSummaryLength:      5000,
		MaxReasonLength:       500,
		MaxMaterialLength:     500,
		MaxMaterials:          20,
		CandidateStepMinutes:  15,
		AllowStudentConflicts: false,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Duration rules
// ─────────────────────────────────────────────────────────────────────────────

// ValidateSessionDuration checks a session duration against the session bounds.
func (r Rules) ValidateSessionDuration(minutes int) error {
	if minutes < r.SessionMinDuration || minutes > r.SessionMaxDuration {
		return shared.NewRangeError(shared.RuleDurationOutOfRange, "duration",
			r.SessionMinDuration, r.SessionMaxDuration, minutes)
	}
	return nil
}

// ValidateSlotDuration checks a slot duration against the slot bounds.
func (r Rules) ValidateSlotDuration(minutes int) error {
	if minutes < r.SlotMinDuration || minutes > r.SlotMaxDuration {
		return shared.NewRangeError(shared.RuleDurationOutOfRange, "slot duration",
			r.SlotMinDuration, r.SlotMaxDuration, minutes)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Scheduling-date rule
// ─────────────────────────────────────────────────────────────────────────────

// ValidateScheduledDate applies the scheduling-date rule used at creation and
// reschedule time: the date must be strictly in the future, at least
// MinAdvanceHours ahead, and no more than MaxAdvanceMonths ahead. A date
// exactly MinAdvanceHours ahead is accepted.
func (r Rules) ValidateScheduledDate(now, date time.Time) error {
	if !date.After(now) {
		return shared.NewValidationError(shared.RulePastDate, "scheduled_date")
	}
	if date.Before(now.Add(time.Duration(r.MinAdvanceHours) * time.Hour)) {
		return shared.NewRangeError(shared.RuleInsufficientAdvanceNotice, "scheduled_date",
			r.MinAdvanceHours, 0, 0)
	}
	if date.After(now.AddDate(0, r.MaxAdvanceMonths, 0)) {
		return shared.NewRangeError(shared.RuleTooFarInFuture, "scheduled_date",
			0, r.MaxAdvanceMonths, 0)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Text rules
// ─────────────────────────────────────────────────────────────────────────────

func validateText(field, s string, maxLen int, required bool) error {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		if required {
			return shared.NewValidationError(shared.RuleEmptyText, field)
		}
		return nil
	}
	if len(trimmed) > maxLen {
		return shared.NewRangeError(shared.RuleTextTooLong, field, 1, maxLen, len(trimmed))
	}
	return nil
}

// ValidateQuestion checks the student's question (required, bounded).
func (r Rules) ValidateQuestion(s string) error {
	return validateText("student_question", s, r.MaxQuestionLength, true)
}

// ValidateNotes checks the tutor's notes (optional, bounded).
func (r Rules) ValidateNotes(s string) error {
	return validateText("tutor_notes", s, r.MaxNotesLength, false)
}

// ValidateSummary checks the session summary (required at completion, bounded).
func (r Rules) ValidateSummary(s string) error {
	return validateText("session_summary", s, r.MaxSummaryLength, true)
}

// ValidateCancelReason checks the cancellation reason (required, bounded).
func (r Rules) ValidateCancelReason(s string) error {
	return validateText("cancel_reason", s, r.MaxReasonLength, true)
}

// ValidateMaterials checks the session materials list.
func (r Rules) ValidateMaterials(materials []string) error {
	if len(materials) > r.MaxMaterials {
		return shared.NewRangeError(shared.RuleTooManyMaterials, "materials",
			0, r.MaxMaterials, len(materials))
	}
	for _, m := range materials {
		if err := validateText("materials", m, r.MaxMaterialLength, true); err != nil {
			return err
		}
	}
	return nil
}
