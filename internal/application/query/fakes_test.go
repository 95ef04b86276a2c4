package query

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/session"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/timeslot"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY TEST DOUBLES
// ══════════════════════════════════════════════════════════════════════════════

type fakeSlotRepo struct {
	mu    sync.Mutex
	slots []*timeslot.TimeSlot
}

func (r *fakeSlotRepo) add(slot *timeslot.TimeSlot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = append(r.slots, slot)
}

func (r *fakeSlotRepo) Create(ctx context.Context, slot *timeslot.TimeSlot) error {
	r.add(slot.Clone())
	return nil
}

func (r *fakeSlotRepo) GetByID(ctx context.Context, id shared.SlotID) (*timeslot.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if s.ID == id {
			return s.Clone(), nil
		}
	}
	return nil, shared.NewDomainError("timeslot", "get", shared.ErrNotFound, "no such slot")
}

func (r *fakeSlotRepo) Update(ctx context.Context, slot *timeslot.TimeSlot) error { return nil }

func (r *fakeSlotRepo) Delete(ctx context.Context, id shared.SlotID) error { return nil }

func (r *fakeSlotRepo) GetByTutor(ctx context.Context, tutorID shared.TutorID) ([]*timeslot.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*timeslot.TimeSlot
	for _, s := range r.slots {
		if s.TutorID == tutorID {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (r *fakeSlotRepo) GetByTutorAndDay(ctx context.Context, tutorID shared.TutorID, day time.Weekday) ([]*timeslot.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*timeslot.TimeSlot
	for _, s := range r.slots {
		if s.TutorID == tutorID && s.DayOfWeek == day {
			out = append(out, s.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (r *fakeSlotRepo) GetByTutorsAndDay(ctx context.Context, tutorIDs []shared.TutorID, day time.Weekday) ([]*timeslot.TimeSlot, error) {
	var out []*timeslot.TimeSlot
	for _, id := range tutorIDs {
		slots, _ := r.GetByTutorAndDay(ctx, id, day)
		out = append(out, slots...)
	}
	return out, nil
}

func (r *fakeSlotRepo) FindOverlapping(ctx context.Context, tutorID shared.TutorID, day time.Weekday, start, end timeslot.ClockTime) ([]*timeslot.TimeSlot, error) {
	return nil, nil
}

func (r *fakeSlotRepo) GetAllActive(ctx context.Context, now time.Time) ([]*timeslot.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*timeslot.TimeSlot
	for _, s := range r.slots {
		if s.IsCurrentlyActive(now) {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions []*session.Session

	listCalls int
}

func (r *fakeSessionRepo) add(s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *session.Session) error {
	r.add(s.Clone())
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id shared.SessionID) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.ID == id {
			return s.Clone(), nil
		}
	}
	return nil, shared.NewDomainError("session", "get", shared.ErrNotFound, "no such session")
}

func (r *fakeSessionRepo) Update(ctx context.Context, s *session.Session) error { return nil }

func (r *fakeSessionRepo) Delete(ctx context.Context, id shared.SessionID) error { return nil }

func (r *fakeSessionRepo) GetByStudent(ctx context.Context, studentID shared.StudentID, opts session.ListOptions) ([]*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []*session.Session
	for _, s := range r.sessions {
		if s.StudentID != studentID {
			continue
		}
		if opts.Status != "" && s.Status != opts.Status {
			continue
		}
		out = append(out, s.Clone())
	}
	return out, nil
}

func (r *fakeSessionRepo) GetByTutor(ctx context.Context, tutorID shared.TutorID, opts session.ListOptions) ([]*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []*session.Session
	for _, s := range r.sessions {
		if s.TutorID != tutorID {
			continue
		}
		if opts.Status != "" && s.Status != opts.Status {
			continue
		}
		out = append(out, s.Clone())
	}
	return out, nil
}

func (r *fakeSessionRepo) GetByTutorAndDateRange(ctx context.Context, tutorID shared.TutorID, from, to time.Time) ([]*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*session.Session
	for _, s := range r.sessions {
		if s.TutorID != tutorID {
			continue
		}
		if s.ScheduledAt.Before(from) || !s.ScheduledAt.Before(to) {
			continue
		}
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	return out, nil
}

func (r *fakeSessionRepo) GetActiveByStudent(ctx context.Context, studentID shared.StudentID) ([]*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*session.Session
	for _, s := range r.sessions {
		if s.StudentID == studentID && s.IsActive() {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) CountByTutor(ctx context.Context, tutorID shared.TutorID, status session.Status) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.TutorID != tutorID {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		n++
	}
	return n, nil
}

// ─────────────────────────────────────────────────────────────────────────────

// fakeLookup serves a static course-to-tutors assignment table.
type fakeLookup struct {
	assignments map[shared.CourseID][]shared.TutorID
	err         error
	calls       int
}

func (l *fakeLookup) GetTutorsForCourse(ctx context.Context, courseID shared.CourseID) ([]shared.TutorID, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.assignments[courseID], nil
}

// ─────────────────────────────────────────────────────────────────────────────

// memoryCache is a map-backed OpenTimesCache.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]*FindOpenTimesResult
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]*FindOpenTimesResult)}
}

func (c *memoryCache) Get(ctx context.Context, key string) (*FindOpenTimesResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	result, ok := c.entries[key]
	if !ok {
		return nil, shared.NewDomainError("cache", "get", shared.ErrNotFound, "cache miss")
	}
	return result, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, result *FindOpenTimesResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result
	c.sets++
	return nil
}
