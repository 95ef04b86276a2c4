package session

import (
	"context"
	"fmt"
	"time"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/scheduling"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
	"github.com/tutorhub/tutorhub-scheduling/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFLICT DETECTOR
// Domain service answering: would a session at [start, start+duration)
// double-book this tutor (or student)? Only active sessions count; finished
// ones never conflict. The repository prefetch narrows by day, the final
// accept/reject decision is always the interval-overlap test.
// ══════════════════════════════════════════════════════════════════════════════

// ConflictDetector finds active sessions overlapping a candidate interval.
type ConflictDetector struct {
	repo  Repository
	rules scheduling.Rules
}

// NewConflictDetector creates a conflict detector over the session store.
func NewConflictDetector(repo Repository, rules scheduling.Rules) *ConflictDetector {
	return &ConflictDetector{repo: repo, rules: rules}
}

// FindTutorConflicts returns the tutor's active sessions whose half-open
// intervals intersect [start, start+duration).
func (d *ConflictDetector) FindTutorConflicts(ctx context.Context, tutorID shared.TutorID, start time.Time, durationMinutes int) ([]*Session, error) {
	// The prefetch window is widened by the maximum session duration so a
	// session started late the previous day still gets considered.
	from := timeutil.StartOfDay(start).Add(-time.Duration(d.rules.SessionMaxDuration) * time.Minute)
	to := timeutil.StartOfDay(start).Add(24 * time.Hour)

	candidates, err := d.repo.GetByTutorAndDateRange(ctx, tutorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("conflict detector: prefetch tutor sessions: %w", err)
	}

	return filterOverlapping(candidates, start, durationMinutes), nil
}

// HasTutorConflict reports whether scheduling the interval would double-book
// the tutor, returning a ConflictError describing the overlap when it would.
func (d *ConflictDetector) HasTutorConflict(ctx context.Context, tutorID shared.TutorID, start time.Time, durationMinutes int) error {
	conflicts, err := d.FindTutorConflicts(ctx, tutorID, start, durationMinutes)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		return nil
	}
	return conflictError(shared.ConflictPartyTutor, tutorID.String(), start, durationMinutes, conflicts)
}

// FindStudentConflicts returns the student's active sessions whose intervals
// intersect [start, start+duration). Student-side conflicts are policy: the
// caller consults Rules.AllowStudentConflicts before invoking this.
func (d *ConflictDetector) FindStudentConflicts(ctx context.Context, studentID shared.StudentID, start time.Time, durationMinutes int) ([]*Session, error) {
	candidates, err := d.repo.GetActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("conflict detector: fetch student sessions: %w", err)
	}
	return filterOverlapping(candidates, start, durationMinutes), nil
}

// HasStudentConflict reports whether the interval overlaps any of the
// student's active sessions.
func (d *ConflictDetector) HasStudentConflict(ctx context.Context, studentID shared.StudentID, start time.Time, durationMinutes int) error {
	conflicts, err := d.FindStudentConflicts(ctx, studentID, start, durationMinutes)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		return nil
	}
	return conflictError(shared.ConflictPartyStudent, studentID.String(), start, durationMinutes, conflicts)
}

// filterOverlapping keeps the active sessions whose intervals intersect the
// candidate interval.
func filterOverlapping(sessions []*Session, start time.Time, durationMinutes int) []*Session {
	var conflicts []*Session
	for _, s := range sessions {
		if !s.IsActive() {
			continue
		}
		if s.Overlaps(start, durationMinutes) {
			conflicts = append(conflicts, s)
		}
	}
	return conflicts
}

func conflictError(party shared.ConflictParty, partyID string, start time.Time, durationMinutes int, conflicts []*Session) error {
	ids := make([]string, 0, len(conflicts))
	for _, c := range conflicts {
		ids = append(ids, c.ID.String())
	}
	return &shared.ConflictError{
		Party:      party,
		PartyID:    partyID,
		Start:      start,
		End:        start.Add(time.Duration(durationMinutes) * time.Minute),
		SessionIDs: ids,
	}
}
