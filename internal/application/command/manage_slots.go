package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/scheduling"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/timeslot"
)

// ══════════════════════════════════════════════════════════════════════════════
// TIME SLOT MANAGEMENT COMMANDS
// Tutors declare, adjust, and withdraw their recurring availability windows.
// Creating or resizing a window rejects overlap with the tutor's existing
// slots on the same weekday.
// ══════════════════════════════════════════════════════════════════════════════

// CreateTimeSlotCommand declares a new availability window.
type CreateTimeSlotCommand struct {
	TutorID           string
	DayOfWeek         int    // 0=Sunday..6=Saturday
	StartTime         string // zero-padded "HH:MM"
	EndTime           string // zero-padded "HH:MM"
	RecurrenceEndDate *time.Time
	CorrelationID     string
}

// UpdateTimeSlotCommand adjusts an existing window. Zero-valued fields are
// left untouched; Availability and RecurrenceEndDate use pointers to
// distinguish "unset" from "set to the zero value".
type UpdateTimeSlotCommand struct {
	SlotID              string
	ActorID             string // must be the owning tutor
	StartTime           string
	EndTime             string
	DayOfWeek           *int
	Availability        *bool
	RecurrenceEndDate   *time.Time
	ClearRecurrenceEnd  bool
	CorrelationID       string
}

// RemoveTimeSlotCommand withdraws a window entirely.
type RemoveTimeSlotCommand struct {
	SlotID        string
	ActorID       string // must be the owning tutor
	CorrelationID string
}

// TimeSlotHandler handles availability management commands.
type TimeSlotHandler struct {
	slots     timeslot.Repository
	publisher shared.EventPublisher
	rules     scheduling.Rules
	now       func() time.Time
}

// NewTimeSlotHandler creates a new TimeSlotHandler.
func NewTimeSlotHandler(slots timeslot.Repository, publisher shared.EventPublisher, rules scheduling.Rules) *TimeSlotHandler {
	return &TimeSlotHandler{
		slots:     slots,
		publisher: publisher,
		rules:     rules,
		now:       time.Now,
	}
}

// WithClock overrides the handler's clock. Test use only.
func (h *TimeSlotHandler) WithClock(now func() time.Time) *TimeSlotHandler {
	h.now = now
	return h
}

// Create executes the CreateTimeSlotCommand.
func (h *TimeSlotHandler) Create(ctx context.Context, cmd CreateTimeSlotCommand) (*timeslot.TimeSlot, error) {
	const op = "create_timeslot"

	tutorID, err := shared.NewTutorID(cmd.TutorID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	slot, err := timeslot.NewTimeSlot(timeslot.NewTimeSlotParams{
		ID:                shared.SlotID(uuid.NewString()),
		TutorID:           tutorID,
		DayOfWeek:         cmd.DayOfWeek,
		StartTime:         cmd.StartTime,
		EndTime:           cmd.EndTime,
		RecurrenceEndDate: cmd.RecurrenceEndDate,
	}, h.rules, h.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := h.rejectOverlap(ctx, op, slot, ""); err != nil {
		return nil, err
	}

	if err := h.slots.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("%s: save: %w", op, err)
	}

	h.publish(slot, shared.EventTimeSlotCreated, cmd.CorrelationID)
	return slot, nil
}

// Update executes the UpdateTimeSlotCommand.
func (h *TimeSlotHandler) Update(ctx context.Context, cmd UpdateTimeSlotCommand) (*timeslot.TimeSlot, error) {
	const op = "update_timeslot"

	slot, err := h.slots.GetByID(ctx, shared.SlotID(cmd.SlotID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if slot.TutorID.String() != cmd.ActorID {
		return nil, shared.NewDomainError("timeslot", op, shared.ErrUnauthorized,
			"actor is not the slot's owner")
	}

	switch {
	case cmd.StartTime != "" && cmd.EndTime != "":
		err = slot.UpdateTimeRange(cmd.StartTime, cmd.EndTime, h.rules)
	case cmd.StartTime != "":
		err = slot.UpdateStartTime(cmd.StartTime, h.rules)
	case cmd.EndTime != "":
		err = slot.UpdateEndTime(cmd.EndTime, h.rules)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cmd.DayOfWeek != nil {
		if err := slot.UpdateDayOfWeek(*cmd.DayOfWeek); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	if cmd.Availability != nil {
		slot.SetAvailability(*cmd.Availability)
	}
	if cmd.RecurrenceEndDate != nil || cmd.ClearRecurrenceEnd {
		if err := slot.SetRecurrenceEndDate(cmd.RecurrenceEndDate, h.now()); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	// Resizing or moving the window re-runs the overlap check, excluding
	// the slot itself.
	if cmd.StartTime != "" || cmd.EndTime != "" || cmd.DayOfWeek != nil {
		if err := h.rejectOverlap(ctx, op, slot, slot.ID); err != nil {
			return nil, err
		}
	}

	if err := h.slots.Update(ctx, slot); err != nil {
		return nil, fmt.Errorf("%s: save: %w", op, err)
	}

	h.publish(slot, shared.EventTimeSlotUpdated, cmd.CorrelationID)
	return slot, nil
}

// Remove executes the RemoveTimeSlotCommand.
func (h *TimeSlotHandler) Remove(ctx context.Context, cmd RemoveTimeSlotCommand) error {
	const op = "remove_timeslot"

	slot, err := h.slots.GetByID(ctx, shared.SlotID(cmd.SlotID))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if slot.TutorID.String() != cmd.ActorID {
		return shared.NewDomainError("timeslot", op, shared.ErrUnauthorized,
			"actor is not the slot's owner")
	}

	if err := h.slots.Delete(ctx, slot.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	h.publish(slot, shared.EventTimeSlotRemoved, cmd.CorrelationID)
	return nil
}

// rejectOverlap fails with a SlotOverlap validation error when the window
// collides with another of the tutor's slots.
func (h *TimeSlotHandler) rejectOverlap(ctx context.Context, op string, slot *timeslot.TimeSlot, exclude shared.SlotID) error {
	overlapping, err := h.slots.FindOverlapping(ctx, slot.TutorID, slot.DayOfWeek, slot.Start, slot.End)
	if err != nil {
		return fmt.Errorf("%s: overlap check: %w", op, err)
	}
	for _, other := range overlapping {
		if other.ID != exclude {
			return fmt.Errorf("%s: %w", op,
				shared.NewValidationError(shared.RuleSlotOverlap, "time_range"))
		}
	}
	return nil
}

func (h *TimeSlotHandler) publish(slot *timeslot.TimeSlot, eventType shared.EventType, correlationID string) {
	event := shared.NewTimeSlotEvent(eventType,
		slot.ID.String(), slot.TutorID.String(),
		int(slot.DayOfWeek), slot.Start.String(), slot.End.String())
	if correlationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(correlationID)
	}
	_ = h.publisher.Publish(event)
}
