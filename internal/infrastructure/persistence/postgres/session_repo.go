package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/session"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const sessionColumns = `
	id, student_id, tutor_id, course_id, scheduled_at, duration_minutes,
	status, priority, student_question, tutor_notes, session_summary,
	materials, cancel_reason, created_at, updated_at`

// SessionRepository implements session.Repository for PostgreSQL.
type SessionRepository struct {
	conn *Connection
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(conn *Connection) *SessionRepository {
	return &SessionRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, s *session.Session) error {
	query := `
		INSERT INTO tutoring_sessions (` + sessionColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	materialsJSON, err := marshalMaterials(s.Materials)
	if err != nil {
		return err
	}

	_, err = r.conn.Exec(ctx, query,
		s.ID.String(),
		s.StudentID.String(),
		s.TutorID.String(),
		s.CourseID.String(),
		s.ScheduledAt,
		s.Duration,
		string(s.Status),
		string(s.Priority),
		s.StudentQuestion,
		s.TutorNotes,
		s.SessionSummary,
		materialsJSON,
		s.CancelReason,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("session", "create", shared.ErrAlreadyExists,
				"session id already exists")
		}
		if IsExclusionViolation(err) {
			return shared.WrapError("session", "create", shared.ErrTutorConflict,
				"tutor calendar overlap rejected by database", err)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetByID returns a session by id.
func (r *SessionRepository) GetByID(ctx context.Context, id shared.SessionID) (*session.Session, error) {
	query := `SELECT` + sessionColumns + ` FROM tutoring_sessions WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id.String())
	return r.scanSession(row)
}

// Update persists a mutated session.
func (r *SessionRepository) Update(ctx context.Context, s *session.Session) error {
	query := `
		UPDATE tutoring_sessions SET
			scheduled_at = $1,
			duration_minutes = $2,
			status = $3,
			priority = $4,
			tutor_notes = $5,
			session_summary = $6,
			materials = $7,
			cancel_reason = $8,
			updated_at = $9
		WHERE id = $10
	`

	materialsJSON, err := marshalMaterials(s.Materials)
	if err != nil {
		return err
	}

	result, err := r.conn.Exec(ctx, query,
		s.ScheduledAt,
		s.Duration,
		string(s.Status),
		string(s.Priority),
		s.TutorNotes,
		s.SessionSummary,
		materialsJSON,
		s.CancelReason,
		s.UpdatedAt,
		s.ID.String(),
	)
	if err != nil {
		if IsExclusionViolation(err) {
			return shared.WrapError("session", "update", shared.ErrTutorConflict,
				"tutor calendar overlap rejected by database", err)
		}
		return fmt.Errorf("failed to update session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.NewDomainError("session", "update", shared.ErrNotFound, "session does not exist")
	}

	return nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, id shared.SessionID) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM tutoring_sessions WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.NewDomainError("session", "delete", shared.ErrNotFound, "session does not exist")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Listings
// ─────────────────────────────────────────────────────────────────────────────

// GetByStudent returns a student's sessions, newest first.
func (r *SessionRepository) GetByStudent(ctx context.Context, studentID shared.StudentID, opts session.ListOptions) ([]*session.Session, error) {
	query, args := r.buildListQuery("student_id", studentID.String(), opts)
	return r.querySessions(ctx, query, args...)
}

// GetByTutor returns a tutor's sessions, newest first.
func (r *SessionRepository) GetByTutor(ctx context.Context, tutorID shared.TutorID, opts session.ListOptions) ([]*session.Session, error) {
	query, args := r.buildListQuery("tutor_id", tutorID.String(), opts)
	return r.querySessions(ctx, query, args...)
}

// GetByTutorAndDateRange returns a tutor's sessions starting in [from, to).
func (r *SessionRepository) GetByTutorAndDateRange(ctx context.Context, tutorID shared.TutorID, from, to time.Time) ([]*session.Session, error) {
	query := `
		SELECT` + sessionColumns + `
		FROM tutoring_sessions
		WHERE tutor_id = $1 AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at ASC
	`
	return r.querySessions(ctx, query, tutorID.String(), from, to)
}

// GetActiveByStudent returns the student's sessions in an active state.
func (r *SessionRepository) GetActiveByStudent(ctx context.Context, studentID shared.StudentID) ([]*session.Session, error) {
	query := `
		SELECT` + sessionColumns + `
		FROM tutoring_sessions
		WHERE student_id = $1 AND status IN ('REQUESTED', 'SCHEDULED', 'IN_PROGRESS')
		ORDER BY scheduled_at ASC
	`
	return r.querySessions(ctx, query, studentID.String())
}

// CountByTutor returns the number of a tutor's sessions, filtered by status
// when status is non-empty.
func (r *SessionRepository) CountByTutor(ctx context.Context, tutorID shared.TutorID, status session.Status) (int, error) {
	var count int
	var err error
	if status == "" {
		err = r.conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM tutoring_sessions WHERE tutor_id = $1`,
			tutorID.String(),
		).Scan(&count)
	} else {
		err = r.conn.QueryRow(ctx,
			`SELECT COUNT(*) FROM tutoring_sessions WHERE tutor_id = $1 AND status = $2`,
			tutorID.String(), string(status),
		).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

// buildListQuery assembles a filtered, paginated listing for one party column.
func (r *SessionRepository) buildListQuery(partyColumn, partyID string, opts session.ListOptions) (string, []interface{}) {
	query := `SELECT` + sessionColumns + `
		FROM tutoring_sessions
		WHERE ` + partyColumn + ` = $1`
	args := []interface{}{partyID}

	if opts.Status != "" {
		args = append(args, string(opts.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if opts.UpcomingOnly {
		query += " AND scheduled_at >= NOW()"
	}

	query += " ORDER BY scheduled_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = session.DefaultListOptions().Limit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	args = append(args, opts.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	return query, args
}

// querySessions executes a query and scans the resulting sessions.
func (r *SessionRepository) querySessions(ctx context.Context, query string, args ...interface{}) ([]*session.Session, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*session.Session
	for rows.Next() {
		s, err := r.scanSessionFromRows(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return sessions, nil
}

// scanSession scans a single session from a row.
func (r *SessionRepository) scanSession(row pgx.Row) (*session.Session, error) {
	s, err := scanSessionFields(row.Scan)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("session", "get", shared.ErrNotFound, "session does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return s, nil
}

// scanSessionFromRows scans a session during rows iteration.
func (r *SessionRepository) scanSessionFromRows(rows pgx.Rows) (*session.Session, error) {
	s, err := scanSessionFields(rows.Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	return s, nil
}

func scanSessionFields(scan func(dest ...interface{}) error) (*session.Session, error) {
	var s session.Session
	var id, studentID, tutorID, courseID, status, priority string
	var materialsJSON []byte

	err := scan(
		&id,
		&studentID,
		&tutorID,
		&courseID,
		&s.ScheduledAt,
		&s.Duration,
		&status,
		&priority,
		&s.StudentQuestion,
		&s.TutorNotes,
		&s.SessionSummary,
		&materialsJSON,
		&s.CancelReason,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.ID = shared.SessionID(id)
	s.StudentID = shared.StudentID(studentID)
	s.TutorID = shared.TutorID(tutorID)
	s.CourseID = shared.CourseID(courseID)
	s.Status = session.Status(status)
	s.Priority = session.Priority(priority)
	s.ScheduledAt = s.ScheduledAt.UTC()

	if len(materialsJSON) > 0 {
		if err := json.Unmarshal(materialsJSON, &s.Materials); err != nil {
			return nil, fmt.Errorf("failed to unmarshal materials: %w", err)
		}
	}
	if len(s.Materials) == 0 {
		s.Materials = nil
	}

	return &s, nil
}

func marshalMaterials(materials []string) ([]byte, error) {
	if materials == nil {
		materials = []string{}
	}
	data, err := json.Marshal(materials)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal materials: %w", err)
	}
	return data, nil
}
