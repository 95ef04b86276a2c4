package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/scheduling"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/session"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
)

var otherActorID = "99999999-9999-9999-9999-999999999999"

func seedSession(t *testing.T, repo *fakeSessionRepo, id string, start time.Time, status session.Status) *session.Session {
	t.Helper()
	rules := scheduling.DefaultRules()
	sess, err := session.NewSession(session.NewSessionParams{
		ID:          shared.SessionID(id),
		StudentID:   shared.StudentID(testStudentID),
		TutorID:     shared.TutorID(testTutorID),
		CourseID:    shared.CourseID(testCourseID),
		ScheduledAt: start,
		Duration:    60,
		Question:    "seeded session",
	}, rules, testNow)
	require.NoError(t, err)

	switch status {
	case session.StatusRequested:
	case session.StatusScheduled:
		require.NoError(t, sess.Schedule())
	case session.StatusCancelled:
		require.NoError(t, sess.Cancel("seeded cancellation", rules))
	case session.StatusCompleted:
		require.NoError(t, sess.Schedule())
		require.NoError(t, sess.Start())
		require.NoError(t, sess.Complete("seeded summary", nil, rules))
	default:
		t.Fatalf("unsupported status %s", status)
	}
	repo.add(sess)
	return sess
}

func TestGetSessions_GetByID(t *testing.T) {
	ctx := context.Background()
	repo := &fakeSessionRepo{}
	handler := NewGetSessionsHandler(repo)
	sess := seedSession(t, repo, "cccccccc-0000-0000-0000-000000000001",
		testNow.Add(24*time.Hour), session.StatusRequested)

	// Both participants may read it.
	for _, actor := range []string{testStudentID, testTutorID} {
		got, err := handler.GetByID(ctx, GetSessionQuery{SessionID: sess.ID.String(), ActorID: actor})
		require.NoError(t, err, "actor %s", actor)
		assert.Equal(t, sess.ID, got.ID)
	}

	// A stranger may not.
	_, err := handler.GetByID(ctx, GetSessionQuery{SessionID: sess.ID.String(), ActorID: otherActorID})
	require.Error(t, err)
	assert.True(t, shared.IsUnauthorized(err))

	_, err = handler.GetByID(ctx, GetSessionQuery{
		SessionID: "cccccccc-0000-0000-0000-0000000000ff", ActorID: testStudentID,
	})
	assert.True(t, shared.IsNotFound(err))
}

func TestGetSessions_Listings(t *testing.T) {
	ctx := context.Background()
	repo := &fakeSessionRepo{}
	handler := NewGetSessionsHandler(repo)

	seedSession(t, repo, "cccccccc-0000-0000-0000-000000000001",
		testNow.Add(24*time.Hour), session.StatusRequested)
	seedSession(t, repo, "cccccccc-0000-0000-0000-000000000002",
		testNow.Add(48*time.Hour), session.StatusScheduled)
	seedSession(t, repo, "cccccccc-0000-0000-0000-000000000003",
		testNow.Add(72*time.Hour), session.StatusCancelled)

	all, err := handler.ListByStudent(ctx, ListSessionsQuery{PartyID: testStudentID})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	scheduled, err := handler.ListByTutor(ctx, ListSessionsQuery{
		PartyID: testTutorID, Status: string(session.StatusScheduled),
	})
	require.NoError(t, err)
	require.Len(t, scheduled, 1)
	assert.Equal(t, session.StatusScheduled, scheduled[0].Status)

	// An unknown status filter is rejected before the store is consulted.
	calls := repo.listCalls
	_, err = handler.ListByStudent(ctx, ListSessionsQuery{PartyID: testStudentID, Status: "PENDING"})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
	assert.Equal(t, calls, repo.listCalls)

	_, err = handler.ListByStudent(ctx, ListSessionsQuery{PartyID: "nope"})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}

func TestGetSessions_TutorDay(t *testing.T) {
	ctx := context.Background()
	repo := &fakeSessionRepo{}
	handler := NewGetSessionsHandler(repo)

	day := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	morning := seedSession(t, repo, "cccccccc-0000-0000-0000-000000000001",
		day.Add(9*time.Hour), session.StatusScheduled)
	afternoon := seedSession(t, repo, "cccccccc-0000-0000-0000-000000000002",
		day.Add(14*time.Hour), session.StatusRequested)
	// Cancelled and out-of-day sessions do not show.
	seedSession(t, repo, "cccccccc-0000-0000-0000-000000000003",
		day.Add(11*time.Hour), session.StatusCancelled)
	seedSession(t, repo, "cccccccc-0000-0000-0000-000000000004",
		day.Add(25*time.Hour), session.StatusScheduled)

	sessions, err := handler.TutorDay(ctx, TutorDayQuery{TutorID: testTutorID, Date: day.Add(13 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, morning.ID, sessions[0].ID, "ordered by start time")
	assert.Equal(t, afternoon.ID, sessions[1].ID)
}

func TestGetSessions_Stats(t *testing.T) {
	ctx := context.Background()
	repo := &fakeSessionRepo{}
	handler := NewGetSessionsHandler(repo)

	seedSession(t, repo, "cccccccc-0000-0000-0000-000000000001",
		testNow.Add(24*time.Hour), session.StatusRequested)
	seedSession(t, repo, "cccccccc-0000-0000-0000-000000000002",
		testNow.Add(48*time.Hour), session.StatusScheduled)
	seedSession(t, repo, "cccccccc-0000-0000-0000-000000000003",
		testNow.Add(72*time.Hour), session.StatusScheduled)
	seedSession(t, repo, "cccccccc-0000-0000-0000-000000000004",
		testNow.Add(96*time.Hour), session.StatusCompleted)

	stats, err := handler.Stats(ctx, TutorStatsQuery{TutorID: testTutorID})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Requested)
	assert.Equal(t, 2, stats.Scheduled)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 0, stats.Cancelled)
	assert.Equal(t, 0, stats.NoShow)
	assert.Equal(t, 4, stats.Total)
}
