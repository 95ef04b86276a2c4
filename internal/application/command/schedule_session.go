// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/scheduling"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/session"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE SESSION COMMAND
// The scheduling orchestrator: resolves the tutor for the course, checks the
// requested interval for conflicts on both calendars, constructs the session
// through its validating factory, and persists it. Validation and conflict
// checks all happen before the write - a failed request leaves no state
// behind.
// ══════════════════════════════════════════════════════════════════════════════

// ScheduleSessionCommand contains the data to request a tutoring session.
type ScheduleSessionCommand struct {
	// StudentID is the requesting student.
	StudentID string

	// CourseID is the course the session is about.
	CourseID string

	// TutorID optionally pins a specific tutor; empty means "whoever the
	// course assignment policy picks".
	TutorID string

	// ScheduledAt is the requested start instant.
	ScheduledAt time.Time

	// DurationMinutes is the requested session length.
	DurationMinutes int

	// Question is what the student wants to cover.
	Question string

	// Priority is optional (defaults to MEDIUM).
	Priority string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate checks the command's id shapes. Business-rule validation (dates,
// durations, text limits) is the entity factory's job.
func (c ScheduleSessionCommand) Validate() error {
	if _, err := shared.NewStudentID(c.StudentID); err != nil {
		return err
	}
	if _, err := shared.NewCourseID(c.CourseID); err != nil {
		return err
	}
	if c.TutorID != "" {
		if _, err := shared.NewTutorID(c.TutorID); err != nil {
			return err
		}
	}
	return nil
}

// ScheduleSessionResult contains the created session.
type ScheduleSessionResult struct {
	Session *session.Session
	Events  []shared.Event
}

// ─────────────────────────────────────────────────────────────────────────────
// Dependencies
// ─────────────────────────────────────────────────────────────────────────────

// TutorLock serializes the conflict-check-and-write sequence per tutor.
// Without it two concurrent requests for overlapping times can both pass the
// conflict check before either writes.
type TutorLock interface {
	// Acquire takes the tutor's scheduling lock, waiting up to the
	// implementation's bounded wait. Returns shared.ErrLockNotAcquired
	// when the lock could not be taken in time.
	Acquire(ctx context.Context, tutorID shared.TutorID) error

	// Release frees the tutor's scheduling lock.
	Release(ctx context.Context, tutorID shared.TutorID) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// ScheduleSessionHandler handles the ScheduleSessionCommand.
type ScheduleSessionHandler struct {
	sessions  session.Repository
	detector  *session.ConflictDetector
	policy    scheduling.TutorAssignmentPolicy
	lock      TutorLock
	publisher shared.EventPublisher
	rules     scheduling.Rules
	now       func() time.Time
}

// NewScheduleSessionHandler creates a new ScheduleSessionHandler.
func NewScheduleSessionHandler(
	sessions session.Repository,
	detector *session.ConflictDetector,
	policy scheduling.TutorAssignmentPolicy,
	lock TutorLock,
	publisher shared.EventPublisher,
	rules scheduling.Rules,
) *ScheduleSessionHandler {
	return &ScheduleSessionHandler{
		sessions:  sessions,
		detector:  detector,
		policy:    policy,
		lock:      lock,
		publisher: publisher,
		rules:     rules,
		now:       time.Now,
	}
}

// WithClock overrides the handler's clock. Test use only.
func (h *ScheduleSessionHandler) WithClock(now func() time.Time) *ScheduleSessionHandler {
	h.now = now
	return h
}

// Handle executes the schedule session command.
func (h *ScheduleSessionHandler) Handle(ctx context.Context, cmd ScheduleSessionCommand) (*ScheduleSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("schedule_session: %w", err)
	}

	courseID := shared.CourseID(cmd.CourseID)
	var requested *shared.TutorID
	if cmd.TutorID != "" {
		t := shared.TutorID(cmd.TutorID)
		requested = &t
	}

	// 1. Resolve the tutor for the course.
	tutorID, err := h.policy.ResolveTutor(ctx, courseID, requested)
	if err != nil {
		return nil, fmt.Errorf("schedule_session: %w", err)
	}

	// 2. Serialize conflict-check-and-write per tutor.
	if err := h.lock.Acquire(ctx, tutorID); err != nil {
		return nil, fmt.Errorf("schedule_session: %w", err)
	}
	defer func() { _ = h.lock.Release(ctx, tutorID) }()

	// 3. Conflict checks, tutor first, then the student when policy demands.
	if err := h.detector.HasTutorConflict(ctx, tutorID, cmd.ScheduledAt, cmd.DurationMinutes); err != nil {
		return nil, fmt.Errorf("schedule_session: %w", err)
	}
	if !h.rules.AllowStudentConflicts {
		if err := h.detector.HasStudentConflict(ctx, shared.StudentID(cmd.StudentID), cmd.ScheduledAt, cmd.DurationMinutes); err != nil {
			return nil, fmt.Errorf("schedule_session: %w", err)
		}
	}

	// 4. Construct through the validating factory.
	sess, err := session.NewSession(session.NewSessionParams{
		ID:          shared.SessionID(uuid.NewString()),
		StudentID:   shared.StudentID(cmd.StudentID),
		TutorID:     tutorID,
		CourseID:    courseID,
		ScheduledAt: cmd.ScheduledAt,
		Duration:    cmd.DurationMinutes,
		Question:    cmd.Question,
		Priority:    session.Priority(cmd.Priority),
	}, h.rules, h.now())
	if err != nil {
		return nil, fmt.Errorf("schedule_session: %w", err)
	}

	// 5. Persist and announce.
	if err := h.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("schedule_session: save: %w", err)
	}

	event := shared.NewSessionEvent(shared.EventSessionRequested,
		sess.ID.String(), sess.StudentID.String(), sess.TutorID.String(),
		sess.CourseID.String(), string(sess.Status), sess.ScheduledAt, sess.Duration)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	_ = h.publisher.Publish(event)

	return &ScheduleSessionResult{
		Session: sess,
		Events:  []shared.Event{event},
	}, nil
}
