// Package timeslot contains the domain model of a tutor's recurring weekly
// availability window. This is pure business logic with no external dependencies.
package timeslot

import (
	"fmt"
	"time"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/scheduling"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ClockTime is a wall-clock time of day stored as minutes since midnight.
// It is parsed from and rendered as a zero-padded 24-hour "HH:MM" string.
type ClockTime int

// ParseClockTime parses a strict zero-padded "HH:MM" string.
// "9:00", "24:00" and "09:60" are all rejected.
func ParseClockTime(s string) (ClockTime, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, shared.NewValidationError(shared.RuleInvalidTimeFormat, "time")
	}
	var hh, mm int
	if _, err := fmt.Sscanf(s, "%02d:%02d", &hh, &mm); err != nil {
		return 0, shared.NewValidationError(shared.RuleInvalidTimeFormat, "time")
	}
	if hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, shared.NewValidationError(shared.RuleInvalidTimeFormat, "time")
	}
	return ClockTime(hh*60 + mm), nil
}

// ClockTimeOf extracts the wall-clock time of day from an instant (UTC).
func ClockTimeOf(t time.Time) ClockTime {
	u := t.UTC()
	return ClockTime(u.Hour()*60 + u.Minute())
}

// String renders the time as a zero-padded "HH:MM" string.
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Minutes returns the minutes since midnight.
func (c ClockTime) Minutes() int { return int(c) }

// Before reports whether c is earlier in the day than other.
func (c ClockTime) Before(other ClockTime) bool { return c < other }

// Add returns the clock time n minutes later. The result may run past
// midnight; callers validate ranges themselves.
func (c ClockTime) Add(minutes int) ClockTime { return c + ClockTime(minutes) }

// OnDate materializes the absolute instant of this clock time on the given
// calendar day (UTC).
func (c ClockTime) OnDate(date time.Time) time.Time {
	u := date.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), int(c)/60, int(c)%60, 0, 0, time.UTC)
}

// ══════════════════════════════════════════════════════════════════════════════
// TIME SLOT ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// TimeSlot is a tutor's recurring weekly availability window. It is owned
// exclusively by the tutor whose id it carries; sessions reference slots only
// indirectly, through availability search.
type TimeSlot struct {
	// ID is the slot's unique identifier.
	ID shared.SlotID

	// TutorID is the owning tutor.
	TutorID shared.TutorID

	// DayOfWeek is the weekday the slot recurs on (0=Sunday..6=Saturday).
	DayOfWeek time.Weekday

	// Start and End bound the window as a half-open interval [Start, End).
	Start ClockTime
	End   ClockTime

	// IsAvailable marks whether the tutor currently offers this window.
	IsAvailable bool

	// RecurrenceEndDate, when set, is the instant after which the recurring
	// slot no longer applies.
	RecurrenceEndDate *time.Time

	// CreatedAt is immutable; UpdatedAt advances on every mutation.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTimeSlotParams contains the parameters for declaring availability.
type NewTimeSlotParams struct {
	ID                shared.SlotID
	TutorID           shared.TutorID
	DayOfWeek         int
	StartTime         string // zero-padded "HH:MM"
	EndTime           string // zero-padded "HH:MM"
	RecurrenceEndDate *time.Time
}

// NewTimeSlot creates a validated availability window. A freshly created
// slot is always available.
func NewTimeSlot(params NewTimeSlotParams, rules scheduling.Rules, now time.Time) (*TimeSlot, error) {
	if params.ID.IsEmpty() || !params.ID.IsValid() {
		return nil, shared.WrapError("timeslot", "New", shared.ErrInvalidID, "slot id must be a UUID", nil)
	}
	if params.TutorID.IsEmpty() || !params.TutorID.IsValid() {
		return nil, shared.WrapError("timeslot", "New", shared.ErrInvalidID, "tutor id must be a UUID", nil)
	}
	if params.DayOfWeek < 0 || params.DayOfWeek > 6 {
		return nil, shared.NewValidationError(shared.RuleInvalidDayOfWeek, "day_of_week")
	}

	start, err := ParseClockTime(params.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := ParseClockTime(params.EndTime)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(start, end, rules); err != nil {
		return nil, err
	}
	if err := validateRecurrenceEnd(params.RecurrenceEndDate, now); err != nil {
		return nil, err
	}

	nowUTC := now.UTC()
	return &TimeSlot{
		ID:                params.ID,
		TutorID:           params.TutorID,
		DayOfWeek:         time.Weekday(params.DayOfWeek),
		Start:             start,
		End:               end,
		IsAvailable:       true,
		RecurrenceEndDate: params.RecurrenceEndDate,
		CreatedAt:         nowUTC,
		UpdatedAt:         nowUTC,
	}, nil
}

// validateWindow enforces start < end and the slot duration bounds.
func validateWindow(start, end ClockTime, rules scheduling.Rules) error {
	if !start.Before(end) {
		return shared.NewValidationError(shared.RuleInvalidTimeRange, "time_range")
	}
	return rules.ValidateSlotDuration(end.Minutes() - start.Minutes())
}

// validateRecurrenceEnd enforces that the recurrence end, if present, is
// strictly in the future.
func validateRecurrenceEnd(endDate *time.Time, now time.Time) error {
	if endDate != nil && !endDate.After(now) {
		return shared.NewValidationError(shared.RuleRecurrenceEndInPast, "recurrence_end_date")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERIES
// ══════════════════════════════════════════════════════════════════════════════

// OverlapsWith reports whether two slots share a weekday and their minute
// ranges intersect. The relation is symmetric; slots on different weekdays
// never overlap regardless of times.
func (s *TimeSlot) OverlapsWith(other *TimeSlot) bool {
	if s.DayOfWeek != other.DayOfWeek {
		return false
	}
	return s.Start < other.End && other.Start < s.End
}

// ContainsTime reports whether t falls inside the half-open window
// [Start, End): the start is contained, the end is not.
func (s *TimeSlot) ContainsTime(t ClockTime) bool {
	return s.Start <= t && t < s.End
}

// IsCurrentlyActive reports whether the slot still applies: it is available
// and its recurrence has not ended.
func (s *TimeSlot) IsCurrentlyActive(now time.Time) bool {
	if !s.IsAvailable {
		return false
	}
	return s.RecurrenceEndDate == nil || s.RecurrenceEndDate.After(now)
}

// DurationMinutes returns the window length in minutes.
func (s *TimeSlot) DurationMinutes() int {
	return s.End.Minutes() - s.Start.Minutes()
}

// ══════════════════════════════════════════════════════════════════════════════
// GUARDED MUTATIONS
// Mutation is confined to these operations; each re-validates the invariants
// before committing and bumps UpdatedAt.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateStartTime moves the window start, keeping the end.
func (s *TimeSlot) UpdateStartTime(startTime string, rules scheduling.Rules) error {
	start, err := ParseClockTime(startTime)
	if err != nil {
		return err
	}
	if err := validateWindow(start, s.End, rules); err != nil {
		return err
	}
	s.Start = start
	s.touch()
	return nil
}

// UpdateEndTime moves the window end, keeping the start.
func (s *TimeSlot) UpdateEndTime(endTime string, rules scheduling.Rules) error {
	end, err := ParseClockTime(endTime)
	if err != nil {
		return err
	}
	if err := validateWindow(s.Start, end, rules); err != nil {
		return err
	}
	s.End = end
	s.touch()
	return nil
}

// UpdateTimeRange replaces both bounds atomically.
func (s *TimeSlot) UpdateTimeRange(startTime, endTime string, rules scheduling.Rules) error {
	start, err := ParseClockTime(startTime)
	if err != nil {
		return err
	}
	end, err := ParseClockTime(endTime)
	if err != nil {
		return err
	}
	if err := validateWindow(start, end, rules); err != nil {
		return err
	}
	s.Start = start
	s.End = end
	s.touch()
	return nil
}

// UpdateDayOfWeek moves the slot to another weekday.
func (s *TimeSlot) UpdateDayOfWeek(dayOfWeek int) error {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return shared.NewValidationError(shared.RuleInvalidDayOfWeek, "day_of_week")
	}
	s.DayOfWeek = time.Weekday(dayOfWeek)
	s.touch()
	return nil
}

// SetAvailability toggles whether the tutor currently offers the window.
func (s *TimeSlot) SetAvailability(available bool) {
	s.IsAvailable = available
	s.touch()
}

// SetRecurrenceEndDate sets or clears the recurrence end. A non-nil end must
// be strictly in the future.
func (s *TimeSlot) SetRecurrenceEndDate(endDate *time.Time, now time.Time) error {
	if err := validateRecurrenceEnd(endDate, now); err != nil {
		return err
	}
	s.RecurrenceEndDate = endDate
	s.touch()
	return nil
}

func (s *TimeSlot) touch() {
	s.UpdatedAt = time.Now().UTC()
}

// String returns a compact representation for logging.
func (s *TimeSlot) String() string {
	return fmt.Sprintf("TimeSlot{ID: %s, Tutor: %s, %s %s-%s, available: %t}",
		s.ID, s.TutorID, s.DayOfWeek, s.Start, s.End, s.IsAvailable)
}

// Clone creates a copy of the slot.
func (s *TimeSlot) Clone() *TimeSlot {
	if s == nil {
		return nil
	}
	clone := *s
	if s.RecurrenceEndDate != nil {
		end := *s.RecurrenceEndDate
		clone.RecurrenceEndDate = &end
	}
	return &clone
}
