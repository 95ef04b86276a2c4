package command

import (
	"context"
	"sync"
	"time"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/session"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/timeslot"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY TEST DOUBLES
// ══════════════════════════════════════════════════════════════════════════════

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[shared.SessionID]*session.Session

	createErr error
	updateErr error
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[shared.SessionID]*session.Session)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.sessions[s.ID]; ok {
		return shared.ErrAlreadyExists
	}
	r.sessions[s.ID] = s.Clone()
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id shared.SessionID) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, shared.NewDomainError("session", "get", shared.ErrNotFound, "no such session")
	}
	return s.Clone(), nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.sessions[s.ID]; !ok {
		return shared.ErrNotFound
	}
	r.sessions[s.ID] = s.Clone()
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id shared.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) GetByStudent(ctx context.Context, studentID shared.StudentID, opts session.ListOptions) ([]*session.Session, error) {
	return nil, nil
}

func (r *fakeSessionRepo) GetByTutor(ctx context.Context, tutorID shared.TutorID, opts session.ListOptions) ([]*session.Session, error) {
	return nil, nil
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

type fakeSlotRepo struct {
	mu    sync.Mutex
	slots map[shared.SlotID]*timeslot.TimeSlot
}

func newFakeSlotRepo() *fakeSlotRepo {
	return &fakeSlotRepo{slots: make(map[shared.SlotID]*timeslot.TimeSlot)}
}

func (r *fakeSlotRepo) Create(ctx context.Context, slot *timeslot.TimeSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[slot.ID]; ok {
		return shared.ErrAlreadyExists
	}
	r.slots[slot.ID] = slot.Clone()
	return nil
}

func (r *fakeSlotRepo) GetByID(ctx context.Context, id shared.SlotID) (*timeslot.TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.slots[id]
	if !ok {
		return nil, shared.NewDomainError("timeslot", "get", shared.ErrNotFound, "no such slot")
	}
	return slot.Clone(), nil
}

func (r *fakeSlotRepo) Update(ctx context.Context, slot *timeslot.TimeSlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[slot.ID]; !ok {
		return shared.ErrNotFound
	}
	r.slots[slot.ID] = slot.Clone()
	return nil
}

func (r *fakeSlotRepo) Delete(ctx context.Context, id shared.SlotID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.slots, id)
	return nil
}

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
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*timeslot.TimeSlot
	for _, s := range r.slots {
		if s.TutorID != tutorID || s.DayOfWeek != day {
			continue
		}
		if s.Start < end && start < s.End {
			out = append(out, s.Clone())
		}
	}
	return out, nil
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

// fakeLock counts acquisitions and can simulate contention.
type fakeLock struct {
	mu       sync.Mutex
	acquired int
	released int
	fail     bool
}

func (l *fakeLock) Acquire(ctx context.Context, tutorID shared.TutorID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail {
		return shared.WrapError("scheduling", "acquire_lock", shared.ErrLockNotAcquired,
			"tutor calendar is locked by a concurrent request", nil)
	}
	l.acquired++
	return nil
}

func (l *fakeLock) Release(ctx context.Context, tutorID shared.TutorID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.released++
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────

// capturingPublisher records every published event.
type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────

// fakeLookup serves a static course-to-tutors assignment table.
type fakeLookup struct {
	assignments map[shared.CourseID][]shared.TutorID
	err         error
}

func (l *fakeLookup) GetTutorsForCourse(ctx context.Context, courseID shared.CourseID) ([]shared.TutorID, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.assignments[courseID], nil
}
