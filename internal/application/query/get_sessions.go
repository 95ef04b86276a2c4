package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/session"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
	"github.com/tutorhub/tutorhub-scheduling/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION QUERIES
// Read-side listings over the session store. These never mutate and never
// lock; they read whatever is committed.
// ══════════════════════════════════════════════════════════════════════════════

// GetSessionQuery fetches one session by id.
type GetSessionQuery struct {
	SessionID string

	// ActorID must be the session's student or tutor.
	ActorID string
}

// ListSessionsQuery lists a party's sessions with pagination and filters.
type ListSessionsQuery struct {
	// PartyID is the student or tutor whose sessions are listed.
	PartyID string

	// Status filters by lifecycle state when non-empty.
	Status string

	// UpcomingOnly restricts to sessions scheduled from now on.
	UpcomingOnly bool

	Offset int
	Limit  int
}

// TutorDayQuery fetches a tutor's schedule for one calendar day.
type TutorDayQuery struct {
	TutorID string
	Date    time.Time
}

// TutorStatsQuery counts a tutor's sessions per lifecycle state.
type TutorStatsQuery struct {
	TutorID string
}

// TutorStats is the per-state session tally for one tutor.
type TutorStats struct {
	TutorID   string `json:"tutor_id"`
	Requested int    `json:"requested"`
	Scheduled int    `json:"scheduled"`
	Completed int    `json:"completed"`
	Cancelled int    `json:"cancelled"`
	NoShow    int    `json:"no_show"`
	Total     int    `json:"total"`
}

// GetSessionsHandler handles all session read queries.
type GetSessionsHandler struct {
	sessions session.Repository
	now      func() time.Time
}

// NewGetSessionsHandler creates a new GetSessionsHandler.
func NewGetSessionsHandler(sessions session.Repository) *GetSessionsHandler {
	return &GetSessionsHandler{sessions: sessions, now: time.Now}
}

// WithClock overrides the handler's clock. Test use only.
func (h *GetSessionsHandler) WithClock(now func() time.Time) *GetSessionsHandler {
	h.now = now
	return h
}

// GetByID returns one session. Only the session's participants may read it.
func (h *GetSessionsHandler) GetByID(ctx context.Context, q GetSessionQuery) (*session.Session, error) {
	const op = "get_session"

	sess, err := h.sessions.GetByID(ctx, shared.SessionID(q.SessionID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if sess.StudentID.String() != q.ActorID && sess.TutorID.String() != q.ActorID {
		return nil, shared.NewDomainError("session", op, shared.ErrUnauthorized,
			"actor is neither the session's student nor its tutor")
	}
	return sess, nil
}

// ListByStudent returns a student's sessions, newest first.
func (h *GetSessionsHandler) ListByStudent(ctx context.Context, q ListSessionsQuery) ([]*session.Session, error) {
	const op = "list_student_sessions"

	studentID, err := shared.NewStudentID(q.PartyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts, err := listOptions(q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sessions, err := h.sessions.GetByStudent(ctx, studentID, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sessions, nil
}

// ListByTutor returns a tutor's sessions, newest first.
func (h *GetSessionsHandler) ListByTutor(ctx context.Context, q ListSessionsQuery) ([]*session.Session, error) {
	const op = "list_tutor_sessions"

	tutorID, err := shared.NewTutorID(q.PartyID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	opts, err := listOptions(q)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sessions, err := h.sessions.GetByTutor(ctx, tutorID, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return sessions, nil
}

// TutorDay returns a tutor's active sessions starting on the given day,
// ordered by start time.
func (h *GetSessionsHandler) TutorDay(ctx context.Context, q TutorDayQuery) ([]*session.Session, error) {
	const op = "tutor_day"

	tutorID, err := shared.NewTutorID(q.TutorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	from := timeutil.StartOfDay(q.Date)
	sessions, err := h.sessions.GetByTutorAndDateRange(ctx, tutorID, from, from.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var active []*session.Session
	for _, s := range sessions {
		if s.IsActive() {
			active = append(active, s)
		}
	}
	return active, nil
}

// Stats returns a tutor's per-state session counts.
func (h *GetSessionsHandler) Stats(ctx context.Context, q TutorStatsQuery) (*TutorStats, error) {
	const op = "tutor_stats"

	tutorID, err := shared.NewTutorID(q.TutorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stats := &TutorStats{TutorID: q.TutorID}
	counts := []struct {
		status session.Status
		dest   *int
	}{
		{session.StatusRequested, &stats.Requested},
		{session.StatusScheduled, &stats.Scheduled},
		{session.StatusCompleted, &stats.Completed},
		{session.StatusCancelled, &stats.Cancelled},
		{session.StatusNoShow, &stats.NoShow},
	}
	for _, c := range counts {
		n, err := h.sessions.CountByTutor(ctx, tutorID, c.status)
		if err != nil {
			return nil, fmt.Errorf("%s: count %s: %w", op, c.status, err)
		}
		*c.dest = n
	}

	total, err := h.sessions.CountByTutor(ctx, tutorID, "")
	if err != nil {
		return nil, fmt.Errorf("%s: count total: %w", op, err)
	}
	stats.Total = total
	return stats, nil
}

func listOptions(q ListSessionsQuery) (session.ListOptions, error) {
	opts := session.DefaultListOptions()
	if q.Offset > 0 {
		opts.Offset = q.Offset
	}
	if q.Limit > 0 {
		opts = opts.WithLimit(q.Limit)
	}
	if q.Status != "" {
		status := session.Status(q.Status)
		if !status.IsValid() {
			return session.ListOptions{}, shared.NewDomainError("session", "list", shared.ErrInvalidInput,
				"unknown session status")
		}
		opts = opts.WithStatus(status)
	}
	opts.UpcomingOnly = q.UpcomingOnly
	return opts, nil
}
