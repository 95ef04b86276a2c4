package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/timeslot"
)

// ══════════════════════════════════════════════════════════════════════════════
// TIME SLOT REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

const slotColumns = `
	id, tutor_id, day_of_week, start_minutes, end_minutes,
	is_available, recurrence_end_date, created_at, updated_at`

// TimeSlotRepository implements timeslot.Repository for PostgreSQL.
type TimeSlotRepository struct {
	conn *Connection
}

// NewTimeSlotRepository creates a new TimeSlotRepository.
func NewTimeSlotRepository(conn *Connection) *TimeSlotRepository {
	return &TimeSlotRepository{conn: conn}
}

// ─────────────────────────────────────────────────────────────────────────────
// CRUD Operations
// ─────────────────────────────────────────────────────────────────────────────

// Create stores a new slot.
func (r *TimeSlotRepository) Create(ctx context.Context, slot *timeslot.TimeSlot) error {
	query := `
		INSERT INTO time_slots (` + slotColumns + `
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.conn.Exec(ctx, query,
		slot.ID.String(),
		slot.TutorID.String(),
		int(slot.DayOfWeek),
		slot.Start.Minutes(),
		slot.End.Minutes(),
		slot.IsAvailable,
		slot.RecurrenceEndDate,
		slot.CreatedAt,
		slot.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("timeslot", "create", shared.ErrAlreadyExists,
				"slot id already exists")
		}
		if IsExclusionViolation(err) {
			return shared.WrapError("timeslot", "create", shared.ErrValidation,
				"overlapping availability window rejected by database", err)
		}
		return fmt.Errorf("failed to create time slot: %w", err)
	}

	return nil
}

// GetByID returns a slot by id.
func (r *TimeSlotRepository) GetByID(ctx context.Context, id shared.SlotID) (*timeslot.TimeSlot, error) {
	query := `SELECT` + slotColumns + ` FROM time_slots WHERE id = $1`

	row := r.conn.QueryRow(ctx, query, id.String())
	return r.scanSlot(row)
}

// Update persists a mutated slot.
func (r *TimeSlotRepository) Update(ctx context.Context, slot *timeslot.TimeSlot) error {
	query := `
		UPDATE time_slots SET
			day_of_week = $1,
			start_minutes = $2,
			end_minutes = $3,
			is_available = $4,
			recurrence_end_date = $5,
			updated_at = $6
		WHERE id = $7
	`

	result, err := r.conn.Exec(ctx, query,
		int(slot.DayOfWeek),
		slot.Start.Minutes(),
		slot.End.Minutes(),
		slot.IsAvailable,
		slot.RecurrenceEndDate,
		slot.UpdatedAt,
		slot.ID.String(),
	)
	if err != nil {
		if IsExclusionViolation(err) {
			return shared.WrapError("timeslot", "update", shared.ErrValidation,
				"overlapping availability window rejected by database", err)
		}
		return fmt.Errorf("failed to update time slot: %w", err)
	}

	if result.RowsAffected() == 0 {
		return shared.NewDomainError("timeslot", "update", shared.ErrNotFound, "slot does not exist")
	}

	return nil
}

// Delete removes a slot.
func (r *TimeSlotRepository) Delete(ctx context.Context, id shared.SlotID) error {
	result, err := r.conn.Exec(ctx, `DELETE FROM time_slots WHERE id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete time slot: %w", err)
	}
	if result.RowsAffected() == 0 {
		return shared.NewDomainError("timeslot", "delete", shared.ErrNotFound, "slot does not exist")
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Listings
// ─────────────────────────────────────────────────────────────────────────────

// GetByTutor returns all slots declared by a tutor.
func (r *TimeSlotRepository) GetByTutor(ctx context.Context, tutorID shared.TutorID) ([]*timeslot.TimeSlot, error) {
	query := `
		SELECT` + slotColumns + `
		FROM time_slots
		WHERE tutor_id = $1
		ORDER BY day_of_week, start_minutes
	`
	return r.querySlots(ctx, query, tutorID.String())
}

// GetByTutorAndDay returns a tutor's slots on a weekday, ordered by start time.
func (r *TimeSlotRepository) GetByTutorAndDay(ctx context.Context, tutorID shared.TutorID, day time.Weekday) ([]*timeslot.TimeSlot, error) {
	query := `
		SELECT` + slotColumns + `
		FROM time_slots
		WHERE tutor_id = $1 AND day_of_week = $2
		ORDER BY start_minutes
	`
	return r.querySlots(ctx, query, tutorID.String(), int(day))
}

// GetByTutorsAndDay returns the slots of a set of tutors on a weekday.
func (r *TimeSlotRepository) GetByTutorsAndDay(ctx context.Context, tutorIDs []shared.TutorID, day time.Weekday) ([]*timeslot.TimeSlot, error) {
	if len(tutorIDs) == 0 {
		return []*timeslot.TimeSlot{}, nil
	}

	placeholders := make([]string, len(tutorIDs))
	args := make([]interface{}, 0, len(tutorIDs)+1)
	for i, id := range tutorIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args = append(args, id.String())
	}
	args = append(args, int(day))

	query := fmt.Sprintf(`
		SELECT`+slotColumns+`
		FROM time_slots
		WHERE tutor_id IN (%s) AND day_of_week = $%d
		ORDER BY tutor_id, start_minutes
	`, strings.Join(placeholders, ", "), len(args))

	return r.querySlots(ctx, query, args...)
}

// FindOverlapping returns the tutor's slots on the weekday whose minute
// ranges intersect [start, end).
func (r *TimeSlotRepository) FindOverlapping(ctx context.Context, tutorID shared.TutorID, day time.Weekday, start, end timeslot.ClockTime) ([]*timeslot.TimeSlot, error) {
	query := `
		SELECT` + slotColumns + `
		FROM time_slots
		WHERE tutor_id = $1 AND day_of_week = $2
		  AND start_minutes < $3 AND $4 < end_minutes
		ORDER BY start_minutes
	`
	return r.querySlots(ctx, query, tutorID.String(), int(day), end.Minutes(), start.Minutes())
}

// GetAllActive returns every slot that is available and whose recurrence has
// not ended as of now.
func (r *TimeSlotRepository) GetAllActive(ctx context.Context, now time.Time) ([]*timeslot.TimeSlot, error) {
	query := `
		SELECT` + slotColumns + `
		FROM time_slots
		WHERE is_available = TRUE
		  AND (recurrence_end_date IS NULL OR recurrence_end_date > $1)
		ORDER BY tutor_id, day_of_week, start_minutes
	`
	return r.querySlots(ctx, query, now)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPER METHODS
// ══════════════════════════════════════════════════════════════════════════════

func (r *TimeSlotRepository) querySlots(ctx context.Context, query string, args ...interface{}) ([]*timeslot.TimeSlot, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time slots: %w", err)
	}
	defer rows.Close()

	var slots []*timeslot.TimeSlot
	for rows.Next() {
		slot, err := scanSlotFields(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time slot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return slots, nil
}

func (r *TimeSlotRepository) scanSlot(row pgx.Row) (*timeslot.TimeSlot, error) {
	slot, err := scanSlotFields(row.Scan)
	if IsNoRows(err) {
		return nil, shared.NewDomainError("timeslot", "get", shared.ErrNotFound, "slot does not exist")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan time slot: %w", err)
	}
	return slot, nil
}

func scanSlotFields(scan func(dest ...interface{}) error) (*timeslot.TimeSlot, error) {
	var slot timeslot.TimeSlot
	var id, tutorID string
	var dayOfWeek, startMinutes, endMinutes int
	var recurrenceEnd *time.Time

	err := scan(
		&id,
		&tutorID,
		&dayOfWeek,
		&startMinutes,
		&endMinutes,
		&slot.IsAvailable,
		&recurrenceEnd,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	slot.ID = shared.SlotID(id)
	slot.TutorID = shared.TutorID(tutorID)
	slot.DayOfWeek = time.Weekday(dayOfWeek)
	slot.Start = timeslot.ClockTime(startMinutes)
	slot.End = timeslot.ClockTime(endMinutes)
	if recurrenceEnd != nil {
		end := recurrenceEnd.UTC()
		slot.RecurrenceEndDate = &end
	}

	return &slot, nil
}
