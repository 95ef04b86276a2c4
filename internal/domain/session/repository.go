package session

import (
	"context"
	"time"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
)

// Repository defines the persistence contract for tutoring sessions. The
// store is the sole source of truth for what sessions currently exist;
// implementations live in infrastructure/persistence.
type Repository interface {
	// Create stores a new session.
	// Returns shared.ErrAlreadyExists if the id is taken.
	Create(ctx context.Context, s *Session) error

	// GetByID returns a session by id.
	// Returns shared.ErrNotFound if the session does not exist.
	GetByID(ctx context.Context, id shared.SessionID) (*Session, error)

	// Update persists a mutated session.
	// Returns shared.ErrNotFound if the session does not exist.
	Update(ctx context.Context, s *Session) error

	// Delete removes a session. Administrative use only; sessions are never
	// deleted in the normal flow.
	Delete(ctx context.Context, id shared.SessionID) error

	// GetByStudent returns a student's sessions, newest first.
	GetByStudent(ctx context.Context, studentID shared.StudentID, opts ListOptions) ([]*Session, error)

	// GetByTutor returns a tutor's sessions, newest first.
	GetByTutor(ctx context.Context, tutorID shared.TutorID, opts ListOptions) ([]*Session, error)

	// GetByTutorAndDateRange returns a tutor's sessions whose scheduled
	// start falls in [from, to). This is the day-window prefetch used by
	// conflict detection.
	GetByTutorAndDateRange(ctx context.Context, tutorID shared.TutorID, from, to time.Time) ([]*Session, error)

	// GetActiveByStudent returns the student's sessions with status in
	// {REQUESTED, SCHEDULED, IN_PROGRESS}.
	GetActiveByStudent(ctx context.Context, studentID shared.StudentID) ([]*Session, error)

	// CountByTutor returns the number of sessions a tutor has, filtered by
	// status when status is non-empty.
	CountByTutor(ctx context.Context, tutorID shared.TutorID, status Status) (int, error)
}

// ListOptions contains pagination and filter parameters for listings.
type ListOptions struct {
	// Offset is the pagination offset.
	Offset int

	// Limit is the maximum number of records (default 50).
	Limit int

	// Status filters by lifecycle state when non-empty.
	Status Status

	// UpcomingOnly restricts to sessions scheduled from now on.
	UpcomingOnly bool
}

// DefaultListOptions returns the default pagination.
func DefaultListOptions() ListOptions {
	return ListOptions{Offset: 0, Limit: 50}
}

// WithStatus sets the status filter.
func (o ListOptions) WithStatus(status Status) ListOptions {
	o.Status = status
	return o
}

// WithLimit sets the page size.
func (o ListOptions) WithLimit(limit int) ListOptions {
	o.Limit = limit
	return o
}
