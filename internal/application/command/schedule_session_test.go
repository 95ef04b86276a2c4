package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/scheduling"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/session"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
)

var (
	testStudentID = "11111111-1111-1111-1111-111111111111"
	testTutorID   = "22222222-2222-2222-2222-222222222222"
	testCourseID  = "33333333-3333-3333-3333-333333333333"
	otherTutorID  = "44444444-4444-4444-4444-444444444444"
	otherActorID  = "99999999-9999-9999-9999-999999999999"

	testNow = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
)

type scheduleFixture struct {
	repo      *fakeSessionRepo
	lock      *fakeLock
	publisher *capturingPublisher
	handler   *ScheduleSessionHandler
}

func newScheduleFixture(t *testing.T) *scheduleFixture {
	t.Helper()
	rules := scheduling.DefaultRules()
	repo := newFakeSessionRepo()
	lock := &fakeLock{}
	publisher := &capturingPublisher{}
	policy := scheduling.NewFirstAssignedPolicy(&fakeLookup{
		assignments: map[shared.CourseID][]shared.TutorID{
			shared.CourseID(testCourseID): {shared.TutorID(testTutorID), shared.TutorID(otherTutorID)},
		},
	})
	detector := session.NewConflictDetector(repo, rules)
	handler := NewScheduleSessionHandler(repo, detector, policy, lock, publisher, rules).
		WithClock(func() time.Time { return testNow })
	return &scheduleFixture{repo: repo, lock: lock, publisher: publisher, handler: handler}
}

func validScheduleCommand() ScheduleSessionCommand {
	return ScheduleSessionCommand{
		StudentID:       testStudentID,
		CourseID:        testCourseID,
		ScheduledAt:     testNow.Add(24 * time.Hour),
		DurationMinutes: 60,
		Question:        "need help with interfaces",
	}
}

func TestScheduleSession_Success(t *testing.T) {
	ctx := context.Background()
	f := newScheduleFixture(t)

	result, err := f.handler.Handle(ctx, validScheduleCommand())
	require.NoError(t, err)
	require.NotNil(t, result.Session)

	sess := result.Session
	assert.Equal(t, session.StatusRequested, sess.Status)
	assert.Equal(t, testStudentID, sess.StudentID.String())
	assert.Equal(t, testTutorID, sess.TutorID.String(), "policy picks the first assigned tutor")
	assert.Equal(t, testCourseID, sess.CourseID.String())

	stored, err := f.repo.GetByID(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, stored.ID)

	assert.Equal(t, []shared.EventType{shared.EventSessionRequested}, f.publisher.types())
	assert.Equal(t, 1, f.lock.acquired)
	assert.Equal(t, 1, f.lock.released, "lock is released after the write")
}

func TestScheduleSession_RequestedTutor(t *testing.T) {
	ctx := context.Background()
	f := newScheduleFixture(t)

	cmd := validScheduleCommand()
	cmd.TutorID = otherTutorID
	result, err := f.handler.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, otherTutorID, result.Session.TutorID.String())

	// A tutor not assigned to the course is rejected.
	cmd.TutorID = otherActorID
	_, err = f.handler.Handle(ctx, cmd)
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestScheduleSession_NoTutorAssigned(t *testing.T) {
	ctx := context.Background()
	rules := scheduling.DefaultRules()
	repo := newFakeSessionRepo()
	policy := scheduling.NewFirstAssignedPolicy(&fakeLookup{assignments: map[shared.CourseID][]shared.TutorID{}})
	handler := NewScheduleSessionHandler(repo, session.NewConflictDetector(repo, rules),
		policy, &fakeLock{}, &capturingPublisher{}, rules).
		WithClock(func() time.Time { return testNow })

	_, err := handler.Handle(ctx, validScheduleCommand())
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
	assert.Empty(t, repo.sessions)
}

func TestScheduleSession_TutorConflict(t *testing.T) {
	ctx := context.Background()
	f := newScheduleFixture(t)

	first, err := f.handler.Handle(ctx, validScheduleCommand())
	require.NoError(t, err)

	// A second request overlapping the first is rejected.
	cmd := validScheduleCommand()
	cmd.StudentID = otherActorID
	cmd.ScheduledAt = first.Session.ScheduledAt.Add(30 * time.Minute)
	_, err = f.handler.Handle(ctx, cmd)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrTutorConflict))
	assert.Len(t, f.repo.sessions, 1, "the conflicting request leaves no state behind")

	// Back to back is fine.
	cmd.ScheduledAt = first.Session.EndTime()
	_, err = f.handler.Handle(ctx, cmd)
	assert.NoError(t, err)
}

func TestScheduleSession_StudentConflict(t *testing.T) {
	ctx := context.Background()
	f := newScheduleFixture(t)

	first, err := f.handler.Handle(ctx, validScheduleCommand())
	require.NoError(t, err)

	// Same student, different tutor, overlapping time.
	cmd := validScheduleCommand()
	cmd.TutorID = otherTutorID
	cmd.ScheduledAt = first.Session.ScheduledAt.Add(15 * time.Minute)
	_, err = f.handler.Handle(ctx, cmd)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrStudentConflict))
}

func TestScheduleSession_StudentConflictsAllowedByPolicy(t *testing.T) {
	ctx := context.Background()
	rules := scheduling.DefaultRules()
	rules.AllowStudentConflicts = true

	repo := newFakeSessionRepo()
	policy := scheduling.NewFirstAssignedPolicy(&fakeLookup{
		assignments: map[shared.CourseID][]shared.TutorID{
			shared.CourseID(testCourseID): {shared.TutorID(testTutorID), shared.TutorID(otherTutorID)},
		},
	})
	handler := NewScheduleSessionHandler(repo, session.NewConflictDetector(repo, rules),
		policy, &fakeLock{}, &capturingPublisher{}, rules).
		WithClock(func() time.Time { return testNow })

	first, err := handler.Handle(ctx, validScheduleCommand())
	require.NoError(t, err)

	cmd := validScheduleCommand()
	cmd.TutorID = otherTutorID
	cmd.ScheduledAt = first.Session.ScheduledAt.Add(15 * time.Minute)
	_, err = handler.Handle(ctx, cmd)
	assert.NoError(t, err, "policy permits the student to double-book themselves")
}

func TestScheduleSession_LockContention(t *testing.T) {
	ctx := context.Background()
	f := newScheduleFixture(t)
	f.lock.fail = true

	_, err := f.handler.Handle(ctx, validScheduleCommand())
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrLockNotAcquired))
	assert.True(t, shared.IsRetryable(err))
	assert.Empty(t, f.repo.sessions)
}

func TestScheduleSession_CancelThenRebook(t *testing.T) {
	ctx := context.Background()
	f := newScheduleFixture(t)
	rules := scheduling.DefaultRules()

	first, err := f.handler.Handle(ctx, validScheduleCommand())
	require.NoError(t, err)

	lifecycle := NewSessionLifecycleHandler(f.repo, session.NewConflictDetector(f.repo, rules),
		f.lock, f.publisher, rules).
		WithClock(func() time.Time { return testNow })
	_, err = lifecycle.Cancel(ctx, CancelSessionCommand{
		SessionID: first.Session.ID.String(),
		ActorID:   testStudentID,
		Reason:    "found the answer",
	})
	require.NoError(t, err)

	// The freed interval can be booked again.
	cmd := validScheduleCommand()
	cmd.StudentID = otherActorID
	_, err = f.handler.Handle(ctx, cmd)
	assert.NoError(t, err)
}

func TestScheduleSession_InvalidCommands(t *testing.T) {
	ctx := context.Background()
	f := newScheduleFixture(t)

	tests := []struct {
		name   string
		mutate func(*ScheduleSessionCommand)
	}{
		{"bad student id", func(c *ScheduleSessionCommand) { c.StudentID = "nope" }},
		{"bad course id", func(c *ScheduleSessionCommand) { c.CourseID = "" }},
		{"bad tutor id", func(c *ScheduleSessionCommand) { c.TutorID = "nope" }},
		{"duration too short", func(c *ScheduleSessionCommand) { c.DurationMinutes = 5 }},
		{"scheduled too soon", func(c *ScheduleSessionCommand) { c.ScheduledAt = testNow.Add(time.Hour) }},
		{"empty question", func(c *ScheduleSessionCommand) { c.Question = "" }},
		{"unknown priority", func(c *ScheduleSessionCommand) { c.Priority = "ASAP" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := validScheduleCommand()
			tt.mutate(&cmd)
			_, err := f.handler.Handle(ctx, cmd)
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err))
		})
	}
	assert.Empty(t, f.repo.sessions)
}

func TestScheduleSession_CorrelationID(t *testing.T) {
	ctx := context.Background()
	f := newScheduleFixture(t)

	cmd := validScheduleCommand()
	cmd.CorrelationID = "req-42"
	result, err := f.handler.Handle(ctx, cmd)
	require.NoError(t, err)
	require.Len(t, result.Events, 1)

	event, ok := result.Events[0].(shared.SessionEvent)
	require.True(t, ok)
	assert.Equal(t, "req-42", event.CorrelationID)
}
