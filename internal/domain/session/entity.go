// Package session contains the domain model of a tutoring session: the
// lifecycle state machine, its business-rule guards, and conflict detection
// against a tutor's existing bookings.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/scheduling"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Status is the lifecycle state of a tutoring session.
type Status string

const (
	// StatusRequested - the student has asked for a session; awaiting the tutor.
	StatusRequested Status = "REQUESTED"
	// StatusScheduled - the tutor has confirmed the session.
	StatusScheduled Status = "SCHEDULED"
	// StatusInProgress - the session is currently running.
	StatusInProgress Status = "IN_PROGRESS"
	// StatusCompleted - the session finished normally. Terminal.
	StatusCompleted Status = "COMPLETED"
	// StatusCancelled - the session was cancelled by either party. Terminal.
	StatusCancelled Status = "CANCELLED"
	// StatusNoShow - the student did not appear. Terminal.
	StatusNoShow Status = "NO_SHOW"
)

// IsValid checks that the status is one of the known states.
func (s Status) IsValid() bool {
	switch s {
	case StatusRequested, StatusScheduled, StatusInProgress,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	default:
		return false
	}
}

// IsActive reports whether the session counts toward conflict detection.
func (s Status) IsActive() bool {
	return s == StatusRequested || s == StatusScheduled || s == StatusInProgress
}

// IsFinished reports whether the session reached a terminal state.
func (s Status) IsFinished() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// Priority is the urgency a student attaches to a session request.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// IsValid checks that the priority is one of the known levels.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: TUTORING SESSION
// ══════════════════════════════════════════════════════════════════════════════

// Session is a scheduled tutoring engagement between one student and one
// tutor. It is the sole record of the engagement; student, tutor, and course
// are referenced, never owned.
type Session struct {
	// ID is the session's unique identifier.
	ID shared.SessionID

	// StudentID references the requesting student.
	StudentID shared.StudentID

	// TutorID references the tutor delivering the session.
	TutorID shared.TutorID

	// CourseID references the course the session is about.
	CourseID shared.CourseID

	// ScheduledAt is the absolute start instant.
	ScheduledAt time.Time

	// Duration is the session length in minutes.
	Duration int

	// Status is the current lifecycle state.
	Status Status

	// Priority is the urgency of the request.
	Priority Priority

	// StudentQuestion is what the student wants to cover.
	StudentQuestion string

	// TutorNotes is optional free text the tutor keeps on the session.
	TutorNotes string

	// SessionSummary is written when the session completes.
	SessionSummary string

	// Materials are links or references handed over at completion.
	Materials []string

	// CancelReason is set when the session is cancelled.
	CancelReason string

	// CreatedAt is immutable; UpdatedAt advances on every transition or edit.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSessionParams contains the parameters for requesting a session.
type NewSessionParams struct {
	ID          shared.SessionID
	StudentID   shared.StudentID
	TutorID     shared.TutorID
	CourseID    shared.CourseID
	ScheduledAt time.Time
	Duration    int
	Question    string
	Priority    Priority // optional, defaults to MEDIUM
}

// NewSession creates a session in REQUESTED status, applying every creation
// invariant: id shape, duration bounds, the scheduling-date rule, and the
// question text limit.
func NewSession(params NewSessionParams, rules scheduling.Rules, now time.Time) (*Session, error) {
	if params.ID.IsEmpty() || !params.ID.IsValid() {
		return nil, shared.WrapError("session", "New", shared.ErrInvalidID, "session id must be a UUID", nil)
	}
	if params.StudentID.IsEmpty() || !params.StudentID.IsValid() {
		return nil, shared.WrapError("session", "New", shared.ErrInvalidID, "student id must be a UUID", nil)
	}
	if params.TutorID.IsEmpty() || !params.TutorID.IsValid() {
		return nil, shared.WrapError("session", "New", shared.ErrInvalidID, "tutor id must be a UUID", nil)
	}
	if params.CourseID.IsEmpty() || !params.CourseID.IsValid() {
		return nil, shared.WrapError("session", "New", shared.ErrInvalidID, "course id must be a UUID", nil)
	}

	if err := rules.ValidateSessionDuration(params.Duration); err != nil {
		return nil, err
	}
	if err := rules.ValidateScheduledDate(now, params.ScheduledAt); err != nil {
		return nil, err
	}
	if err := rules.ValidateQuestion(params.Question); err != nil {
		return nil, err
	}

	priority := params.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.IsValid() {
		return nil, shared.NewValidationError(shared.RuleInvalidPriority, "priority")
	}

	nowUTC := now.UTC()
	return &Session{
		ID:              params.ID,
		StudentID:       params.StudentID,
		TutorID:         params.TutorID,
		CourseID:        params.CourseID,
		ScheduledAt:     params.ScheduledAt.UTC(),
		Duration:        params.Duration,
		Status:          StatusRequested,
		Priority:        priority,
		StudentQuestion: strings.TrimSpace(params.Question),
		Materials:       nil,
		CreatedAt:       nowUTC,
		UpdatedAt:       nowUTC,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// EndTime returns the instant the session is scheduled to end.
func (s *Session) EndTime() time.Time {
	return s.ScheduledAt.Add(time.Duration(s.Duration) * time.Minute)
}

// IsActive reports whether the session counts toward conflict detection.
func (s *Session) IsActive() bool { return s.Status.IsActive() }

// IsFinished reports whether the session reached a terminal state.
func (s *Session) IsFinished() bool { return s.Status.IsFinished() }

// IsOverdue reports whether a SCHEDULED session's end has already passed.
func (s *Session) IsOverdue(now time.Time) bool {
	return s.Status == StatusScheduled && s.EndTime().Before(now)
}

// Overlaps reports whether the session's half-open interval
// [ScheduledAt, ScheduledAt+Duration) intersects [start, start+duration).
// A session ending exactly when another starts does not overlap it.
func (s *Session) Overlaps(start time.Time, durationMinutes int) bool {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	return s.ScheduledAt.Before(end) && start.Before(s.EndTime())
}

// ══════════════════════════════════════════════════════════════════════════════
// STATE MACHINE
//
//	REQUESTED ──schedule()──▶ SCHEDULED ──start()──▶ IN_PROGRESS ──complete()──▶ COMPLETED
//	    │                        │  │                     │
//	    │                        │  └──markAsNoShow()──▶ NO_SHOW
//	    └────────cancel()────────┴────────cancel()────── CANCELLED
//
// Every transition bumps UpdatedAt. A disallowed source state yields a
// TransitionError.
// ══════════════════════════════════════════════════════════════════════════════

// Schedule confirms a requested session.
func (s *Session) Schedule() error {
	if s.Status != StatusRequested {
		return s.transitionError("Schedule")
	}
	s.Status = StatusScheduled
	s.touch()
	return nil
}

// Start begins a scheduled session.
func (s *Session) Start() error {
	if s.Status != StatusScheduled {
		return s.transitionError("Start")
	}
	s.Status = StatusInProgress
	s.touch()
	return nil
}

// Complete finishes a running session. The summary is required and bounded;
// materials are optional.
func (s *Session) Complete(summary string, materials []string, rules scheduling.Rules) error {
	if s.Status != StatusInProgress {
		return s.transitionError("Complete")
	}
	if err := rules.ValidateSummary(summary); err != nil {
		return err
	}
	if err := rules.ValidateMaterials(materials); err != nil {
		return err
	}
	s.Status = StatusCompleted
	s.SessionSummary = strings.TrimSpace(summary)
	s.Materials = materials
	s.touch()
	return nil
}

// Cancel cancels the session with a required, bounded reason. Only a
// COMPLETED session cannot be cancelled.
func (s *Session) Cancel(reason string, rules scheduling.Rules) error {
	if s.Status == StatusCompleted {
		return s.transitionError("Cancel")
	}
	if err := rules.ValidateCancelReason(reason); err != nil {
		return err
	}
	s.Status = StatusCancelled
	s.CancelReason = strings.TrimSpace(reason)
	s.touch()
	return nil
}

// MarkAsNoShow records that the student did not appear for a scheduled
// session.
func (s *Session) MarkAsNoShow() error {
	if s.Status != StatusScheduled {
		return s.transitionError("MarkAsNoShow")
	}
	s.Status = StatusNoShow
	s.touch()
	return nil
}

// Reschedule moves the session to a new date, keeping the current status.
// The new date must satisfy the same scheduling-date rule as creation.
// Blocked from COMPLETED and CANCELLED.
func (s *Session) Reschedule(newDate time.Time, rules scheduling.Rules, now time.Time) error {
	if s.Status == StatusCompleted || s.Status == StatusCancelled {
		return s.transitionError("Reschedule")
	}
	if err := rules.ValidateScheduledDate(now, newDate); err != nil {
		return err
	}
	s.ScheduledAt = newDate.UTC()
	s.touch()
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FIELD EDITS
// ══════════════════════════════════════════════════════════════════════════════

// UpdateTutorNotes replaces the tutor's notes. Allowed in any state.
func (s *Session) UpdateTutorNotes(notes string, rules scheduling.Rules) error {
	if err := rules.ValidateNotes(notes); err != nil {
		return err
	}
	s.TutorNotes = strings.TrimSpace(notes)
	s.touch()
	return nil
}

func (s *Session) transitionError(op string) error {
	return &shared.TransitionError{Entity: "session", Op: op, From: string(s.Status)}
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// String returns a compact representation for logging.
func (s *Session) String() string {
	return fmt.Sprintf("Session{ID: %s, Student: %s, Tutor: %s, At: %s, %dmin, %s}",
		s.ID, s.StudentID, s.TutorID,
		s.ScheduledAt.Format(time.RFC3339), s.Duration, s.Status)
}

// Clone creates a copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Materials != nil {
		clone.Materials = append([]string(nil), s.Materials...)
	}
	return &clone
}
