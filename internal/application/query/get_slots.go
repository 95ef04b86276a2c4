package query

import (
	"context"
	"fmt"
	"time"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/timeslot"
)

// ListTutorSlotsQuery lists a tutor's declared availability windows.
type ListTutorSlotsQuery struct {
	TutorID string

	// Day restricts to one weekday when non-nil.
	Day *time.Weekday

	// ActiveOnly drops unavailable and recurrence-expired windows.
	ActiveOnly bool
}

// GetSlotsHandler handles availability read queries.
type GetSlotsHandler struct {
	slots timeslot.Repository
	now   func() time.Time
}

// NewGetSlotsHandler creates a new GetSlotsHandler.
func NewGetSlotsHandler(slots timeslot.Repository) *GetSlotsHandler {
	return &GetSlotsHandler{slots: slots, now: time.Now}
}

// WithClock overrides the handler's clock. Test use only.
func (h *GetSlotsHandler) WithClock(now func() time.Time) *GetSlotsHandler {
	h.now = now
	return h
}

// ListByTutor returns a tutor's slots, optionally restricted to one weekday.
func (h *GetSlotsHandler) ListByTutor(ctx context.Context, q ListTutorSlotsQuery) ([]*timeslot.TimeSlot, error) {
	const op = "list_tutor_slots"

	tutorID, err := shared.NewTutorID(q.TutorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var slots []*timeslot.TimeSlot
	if q.Day != nil {
		slots, err = h.slots.GetByTutorAndDay(ctx, tutorID, *q.Day)
	} else {
		slots, err = h.slots.GetByTutor(ctx, tutorID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !q.ActiveOnly {
		return slots, nil
	}
	now := h.now()
	var active []*timeslot.TimeSlot
	for _, s := range slots {
		if s.IsCurrentlyActive(now) {
			active = append(active, s)
		}
	}
	return active, nil
}
