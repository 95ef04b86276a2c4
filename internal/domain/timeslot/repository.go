package timeslot

import (
	"context"
	"time"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
)

// Repository defines the persistence contract for time slots.
// Implementations live in infrastructure/persistence.
type Repository interface {
	// Create stores a new slot.
	// Returns shared.ErrAlreadyExists if the id is taken.
	Create(ctx context.Context, slot *TimeSlot) error

	// GetByID returns a slot by id.
	// Returns shared.ErrNotFound if the slot does not exist.
	GetByID(ctx context.Context, id shared.SlotID) (*TimeSlot, error)

	// Update persists a mutated slot.
	// Returns shared.ErrNotFound if the slot does not exist.
	Update(ctx context.Context, slot *TimeSlot) error

	// Delete removes a slot on explicit tutor-initiated removal.
	// Returns shared.ErrNotFound if the slot does not exist.
	Delete(ctx context.Context, id shared.SlotID) error

	// GetByTutor returns all slots declared by a tutor.
	GetByTutor(ctx context.Context, tutorID shared.TutorID) ([]*TimeSlot, error)

	// GetByTutorAndDay returns a tutor's slots on a weekday, ordered by
	// start time.
	GetByTutorAndDay(ctx context.Context, tutorID shared.TutorID, day time.Weekday) ([]*TimeSlot, error)

	// GetByTutorsAndDay returns the slots of a set of tutors on a weekday,
	// ordered by tutor then start time. Used by availability search.
	GetByTutorsAndDay(ctx context.Context, tutorIDs []shared.TutorID, day time.Weekday) ([]*TimeSlot, error)

	// FindOverlapping returns the tutor's existing slots that overlap the
	// candidate window. Used at slot-creation time to reject overlapping
	// availability.
	FindOverlapping(ctx context.Context, tutorID shared.TutorID, day time.Weekday, start, end ClockTime) ([]*TimeSlot, error)

	// GetAllActive returns every slot that is available and whose recurrence
	// has not ended as of now.
	GetAllActive(ctx context.Context, now time.Time) ([]*TimeSlot, error)
}
