// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/scheduling"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/session"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/timeslot"
	"github.com/tutorhub/tutorhub-scheduling/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIND OPEN TIMES QUERY
// Availability search: given a course, a calendar day, and a desired duration,
// return every start time a student could actually book. A start time is open
// when it sits inside one of the eligible tutors' active windows, the whole
// session fits before the window closes, and the tutor's calendar is free for
// the full interval.
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultSearchTimeout bounds a single availability search.
	DefaultSearchTimeout = 10 * time.Second

	// DefaultSearchParallelism bounds concurrent per-slot conflict scans.
	DefaultSearchParallelism = 8
)

// FindOpenTimesQuery contains the search parameters.
type FindOpenTimesQuery struct {
	// CourseID selects which tutors' availability is searched.
	CourseID string

	// TutorID optionally restricts the search to one tutor. A tutor not
	// assigned to the course yields an empty result, not an error.
	TutorID string

	// Date is the calendar day to search (the time of day is ignored).
	Date time.Time

	// DurationMinutes is the desired session length.
	DurationMinutes int
}

// Validate checks the query parameters' shapes.
func (q FindOpenTimesQuery) Validate() error {
	if _, err := shared.NewCourseID(q.CourseID); err != nil {
		return err
	}
	if q.TutorID != "" {
		if _, err := shared.NewTutorID(q.TutorID); err != nil {
			return err
		}
	}
	return nil
}

// SlotOpening is one availability window with its bookable start times.
type SlotOpening struct {
	SlotID    string   `json:"slot_id"`
	TutorID   string   `json:"tutor_id"`
	SlotStart string   `json:"slot_start"` // "HH:MM"
	SlotEnd   string   `json:"slot_end"`   // "HH:MM"
	// StartTimes are the bookable "HH:MM" starts, ascending.
	StartTimes []string `json:"start_times"`
}

// FindOpenTimesResult is the assembled search result. Openings follow the
// repository's slot order (tutor, then start time) and each opening's start
// times ascend, so identical inputs always produce identical output.
type FindOpenTimesResult struct {
	Date            time.Time     `json:"date"`
	DayOfWeek       time.Weekday  `json:"day_of_week"`
	DurationMinutes int           `json:"duration_minutes"`
	Openings        []SlotOpening `json:"openings"`

	// TotalSlotsWithOpenings counts the windows that have at least one
	// bookable start.
	TotalSlotsWithOpenings int `json:"total_slots_with_openings"`
}

// OpenTimesCache caches assembled search results. Get returns
// shared.ErrNotFound on a miss; both operations are best-effort for the
// handler, a cache failure never fails the search.
type OpenTimesCache interface {
	Get(ctx context.Context, key string) (*FindOpenTimesResult, error)
	Set(ctx context.Context, key string, result *FindOpenTimesResult) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// FindOpenTimesHandler handles the FindOpenTimesQuery.
type FindOpenTimesHandler struct {
	slots       timeslot.Repository
	detector    *session.ConflictDetector
	policy      scheduling.TutorAssignmentPolicy
	cache       OpenTimesCache // optional
	rules       scheduling.Rules
	timeout     time.Duration
	parallelism int
	now         func() time.Time
}

// NewFindOpenTimesHandler creates a new FindOpenTimesHandler. cache may be
// nil to run without result caching.
func NewFindOpenTimesHandler(
	slots timeslot.Repository,
	detector *session.ConflictDetector,
	policy scheduling.TutorAssignmentPolicy,
	cache OpenTimesCache,
	rules scheduling.Rules,
) *FindOpenTimesHandler {
	return &FindOpenTimesHandler{
		slots:       slots,
		detector:    detector,
		policy:      policy,
		cache:       cache,
		rules:       rules,
		timeout:     DefaultSearchTimeout,
		parallelism: DefaultSearchParallelism,
		now:         time.Now,
	}
}

// WithTimeout overrides the per-search timeout.
func (h *FindOpenTimesHandler) WithTimeout(d time.Duration) *FindOpenTimesHandler {
	h.timeout = d
	return h
}

// WithParallelism overrides the bounded per-slot concurrency.
func (h *FindOpenTimesHandler) WithParallelism(n int) *FindOpenTimesHandler {
	if n > 0 {
		h.parallelism = n
	}
	return h
}

// WithClock overrides the handler's clock. Test use only.
func (h *FindOpenTimesHandler) WithClock(now func() time.Time) *FindOpenTimesHandler {
	h.now = now
	return h
}

// Handle executes the availability search.
func (h *FindOpenTimesHandler) Handle(ctx context.Context, q FindOpenTimesQuery) (*FindOpenTimesResult, error) {
	const op = "find_open_times"

	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := h.rules.ValidateSessionDuration(q.DurationMinutes); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	day := q.Date.UTC().Weekday()
	result := &FindOpenTimesResult{
		Date:            timeutil.StartOfDay(q.Date),
		DayOfWeek:       day,
		DurationMinutes: q.DurationMinutes,
		Openings:        []SlotOpening{},
	}

	cacheKey := h.cacheKey(q)
	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, cacheKey); err == nil {
			return cached, nil
		}
	}

	// 1. Which tutors may be searched. Empty means nothing is available.
	var requested *shared.TutorID
	if q.TutorID != "" {
		t := shared.TutorID(q.TutorID)
		requested = &t
	}
	tutors, err := h.policy.EligibleTutors(ctx, shared.CourseID(q.CourseID), requested)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(tutors) == 0 {
		return result, nil
	}

	// 2. Their windows on the requested weekday, active ones only.
	allSlots, err := h.slots.GetByTutorsAndDay(ctx, tutors, day)
	if err != nil {
		return nil, fmt.Errorf("%s: load slots: %w", op, err)
	}
	now := h.now()
	var active []*timeslot.TimeSlot
	for _, s := range allSlots {
		if s.IsCurrentlyActive(now) {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		h.cacheSet(ctx, cacheKey, result)
		return result, nil
	}

	// 3. Per-slot candidate generation and conflict scans, bounded-parallel.
	// Each goroutine writes only its own index so assembly stays in slot
	// order regardless of completion order.
	openings := make([]SlotOpening, len(active))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.parallelism)
	for i, slot := range active {
		i, slot := i, slot
		g.Go(func() error {
			opening, err := h.scanSlot(gctx, slot, q.Date, q.DurationMinutes, now)
			if err != nil {
				return err
			}
			openings[i] = opening
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, o := range openings {
		if len(o.StartTimes) > 0 {
			result.Openings = append(result.Openings, o)
			result.TotalSlotsWithOpenings++
		}
	}

	h.cacheSet(ctx, cacheKey, result)
	return result, nil
}

// scanSlot generates the slot's candidate start times and keeps the ones the
// tutor's calendar is free for. Candidates begin at the window start and
// advance in CandidateStepMinutes increments; a candidate is only considered
// when the full session fits before the window closes, so a 30-minute request
// against an 09:00-10:00 window yields 09:00, 09:15, and 09:30.
func (h *FindOpenTimesHandler) scanSlot(ctx context.Context, slot *timeslot.TimeSlot, date time.Time, durationMinutes int, now time.Time) (SlotOpening, error) {
	opening := SlotOpening{
		SlotID:    slot.ID.String(),
		TutorID:   slot.TutorID.String(),
		SlotStart: slot.Start.String(),
		SlotEnd:   slot.End.String(),
	}

	for c := slot.Start; c.Add(durationMinutes) <= slot.End; c = c.Add(h.rules.CandidateStepMinutes) {
		startAt := c.OnDate(date)

		// Candidates that could not actually be booked (already past, or
		// inside the advance-notice window) are silently skipped.
		if err := h.rules.ValidateScheduledDate(now, startAt); err != nil {
			continue
		}

		conflicts, err := h.detector.FindTutorConflicts(ctx, slot.TutorID, startAt, durationMinutes)
		if err != nil {
			return SlotOpening{}, err
		}
		if len(conflicts) == 0 {
			opening.StartTimes = append(opening.StartTimes, c.String())
		}
	}
	return opening, nil
}

func (h *FindOpenTimesHandler) cacheKey(q FindOpenTimesQuery) string {
	return fmt.Sprintf("open_times:%s:%s:%s:%d",
		q.CourseID, q.TutorID, q.Date.UTC().Format("2006-01-02"), q.DurationMinutes)
}

func (h *FindOpenTimesHandler) cacheSet(ctx context.Context, key string, result *FindOpenTimesResult) {
	if h.cache == nil {
		return
	}
	_ = h.cache.Set(ctx, key, result)
}
