package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/session"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/scheduling"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION LIFECYCLE COMMANDS
// Each operation is a guarded state transition: load the session, check the
// actor is allowed to touch it, let the entity guard the transition, persist,
// announce. The entity owns the state machine; this layer owns authorization
// and persistence.
// ══════════════════════════════════════════════════════════════════════════════

// ConfirmSessionCommand moves a REQUESTED session to SCHEDULED. Tutor only.
type ConfirmSessionCommand struct {
	SessionID     string
	ActorID       string // must be the session's tutor
	CorrelationID string
}

// StartSessionCommand moves a SCHEDULED session to IN_PROGRESS. Tutor only.
type StartSessionCommand struct {
	SessionID     string
	ActorID       string
	CorrelationID string
}

// CompleteSessionCommand finishes an IN_PROGRESS session. Tutor only.
type CompleteSessionCommand struct {
	SessionID     string
	ActorID       string
	Summary       string
	Materials     []string
	CorrelationID string
}

// CancelSessionCommand cancels a session. Student or tutor.
type CancelSessionCommand struct {
	SessionID     string
	ActorID       string // must be the session's student or tutor
	Reason        string
	CorrelationID string
}

// MarkNoShowCommand records a student no-show on a SCHEDULED session. Tutor only.
type MarkNoShowCommand struct {
	SessionID     string
	ActorID       string
	CorrelationID string
}

// RescheduleSessionCommand moves a session to a new date. Student or tutor.
type RescheduleSessionCommand struct {
	SessionID     string
	ActorID       string
	NewDate       time.Time
	CorrelationID string
}

// SessionLifecycleHandler handles all lifecycle transitions on existing
// sessions.
type SessionLifecycleHandler struct {
	sessions  session.Repository
	detector  *session.ConflictDetector
	lock      TutorLock
	publisher shared.EventPublisher
	rules     scheduling.Rules
	now       func() time.Time
}

// NewSessionLifecycleHandler creates a new SessionLifecycleHandler.
func NewSessionLifecycleHandler(
	sessions session.Repository,
	detector *session.ConflictDetector,
	lock TutorLock,
	publisher shared.EventPublisher,
	rules scheduling.Rules,
) *SessionLifecycleHandler {
	return &SessionLifecycleHandler{
		sessions:  sessions,
		detector:  detector,
		lock:      lock,
		publisher: publisher,
		rules:     rules,
		now:       time.Now,
	}
}

// WithClock overrides the handler's clock. Test use only.
func (h *SessionLifecycleHandler) WithClock(now func() time.Time) *SessionLifecycleHandler {
	h.now = now
	return h
}

// ─────────────────────────────────────────────────────────────────────────────
// Operations
// ─────────────────────────────────────────────────────────────────────────────

// Confirm executes the ConfirmSessionCommand.
func (h *SessionLifecycleHandler) Confirm(ctx context.Context, cmd ConfirmSessionCommand) (*session.Session, error) {
	const op = "confirm_session"
	return h.transition(ctx, op, cmd.SessionID, cmd.CorrelationID, shared.EventSessionScheduled,
		func(s *session.Session) error {
			if err := requireTutor(s, cmd.ActorID, op); err != nil {
				return err
			}
			return s.Schedule()
		})
}

// Start executes the StartSessionCommand.
func (h *SessionLifecycleHandler) Start(ctx context.Context, cmd StartSessionCommand) (*session.Session, error) {
	const op = "start_session"
	return h.transition(ctx, op, cmd.SessionID, cmd.CorrelationID, shared.EventSessionStarted,
		func(s *session.Session) error {
			if err := requireTutor(s, cmd.ActorID, op); err != nil {
				return err
			}
			return s.Start()
		})
}

// Complete executes the CompleteSessionCommand.
func (h *SessionLifecycleHandler) Complete(ctx context.Context, cmd CompleteSessionCommand) (*session.Session, error) {
	const op = "complete_session"
	return h.transition(ctx, op, cmd.SessionID, cmd.CorrelationID, shared.EventSessionCompleted,
		func(s *session.Session) error {
			if err := requireTutor(s, cmd.ActorID, op); err != nil {
				return err
			}
			return s.Complete(cmd.Summary, cmd.Materials, h.rules)
		})
}

// Cancel executes the CancelSessionCommand.
func (h *SessionLifecycleHandler) Cancel(ctx context.Context, cmd CancelSessionCommand) (*session.Session, error) {
	const op = "cancel_session"
	return h.transition(ctx, op, cmd.SessionID, cmd.CorrelationID, shared.EventSessionCancelled,
		func(s *session.Session) error {
			if err := requireParticipant(s, cmd.ActorID, op); err != nil {
				return err
			}
			return s.Cancel(cmd.Reason, h.rules)
		})
}

// MarkNoShow executes the MarkNoShowCommand.
func (h *SessionLifecycleHandler) MarkNoShow(ctx context.Context, cmd MarkNoShowCommand) (*session.Session, error) {
	const op = "mark_no_show"
	return h.transition(ctx, op, cmd.SessionID, cmd.CorrelationID, shared.EventSessionNoShow,
		func(s *session.Session) error {
			if err := requireTutor(s, cmd.ActorID, op); err != nil {
				return err
			}
			return s.MarkAsNoShow()
		})
}

// Reschedule executes the RescheduleSessionCommand. The new interval is
// re-checked for tutor conflicts under the tutor's scheduling lock; the
// session being moved does not conflict with itself.
func (h *SessionLifecycleHandler) Reschedule(ctx context.Context, cmd RescheduleSessionCommand) (*session.Session, error) {
	const op = "reschedule_session"

	sess, err := h.sessions.GetByID(ctx, shared.SessionID(cmd.SessionID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := requireParticipant(sess, cmd.ActorID, op); err != nil {
		return nil, err
	}

	if err := h.lock.Acquire(ctx, sess.TutorID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = h.lock.Release(ctx, sess.TutorID) }()

	conflicts, err := h.detector.FindTutorConflicts(ctx, sess.TutorID, cmd.NewDate, sess.Duration)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	conflicts = excludeSession(conflicts, sess.ID)
	if len(conflicts) > 0 {
		ids := make([]string, 0, len(conflicts))
		for _, c := range conflicts {
			ids = append(ids, c.ID.String())
		}
		return nil, fmt.Errorf("%s: %w", op, &shared.ConflictError{
			Party:      shared.ConflictPartyTutor,
			PartyID:    sess.TutorID.String(),
			Start:      cmd.NewDate,
			End:        cmd.NewDate.Add(time.Duration(sess.Duration) * time.Minute),
			SessionIDs: ids,
		})
	}

	if err := sess.Reschedule(cmd.NewDate, h.rules, h.now()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := h.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("%s: save: %w", op, err)
	}

	h.publish(sess, shared.EventSessionRescheduled, cmd.CorrelationID)
	return sess, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Internals
// ─────────────────────────────────────────────────────────────────────────────

// transition is the shared load-guard-persist-announce sequence.
func (h *SessionLifecycleHandler) transition(
	ctx context.Context,
	op, sessionID, correlationID string,
	eventType shared.EventType,
	apply func(*session.Session) error,
) (*session.Session, error) {
	sess, err := h.sessions.GetByID(ctx, shared.SessionID(sessionID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := apply(sess); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := h.sessions.Update(ctx, sess); err != nil {
		return nil, fmt.Errorf("%s: save: %w", op, err)
	}

	h.publish(sess, eventType, correlationID)
	return sess, nil
}

func (h *SessionLifecycleHandler) publish(s *session.Session, eventType shared.EventType, correlationID string) {
	event := shared.NewSessionEvent(eventType,
		s.ID.String(), s.StudentID.String(), s.TutorID.String(),
		s.CourseID.String(), string(s.Status), s.ScheduledAt, s.Duration)
	if correlationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(correlationID)
	}
	_ = h.publisher.Publish(event)
}

func requireTutor(s *session.Session, actorID, op string) error {
	if s.TutorID.String() != actorID {
		return shared.NewDomainError("session", op, shared.ErrUnauthorized,
			"actor is not the session's tutor")
	}
	return nil
}

func requireParticipant(s *session.Session, actorID, op string) error {
	if s.TutorID.String() != actorID && s.StudentID.String() != actorID {
		return shared.NewDomainError("session", op, shared.ErrUnauthorized,
			"actor is neither the session's student nor its tutor")
	}
	return nil
}

func excludeSession(sessions []*session.Session, id shared.SessionID) []*session.Session {
	out := sessions[:0]
	for _, s := range sessions {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}
