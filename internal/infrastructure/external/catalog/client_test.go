package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
	"github.com/tutorhub/tutorhub-scheduling/pkg/circuitbreaker"
)

var (
	testCourseID = shared.CourseID("33333333-3333-3333-3333-333333333333")
	tutorA       = "22222222-2222-2222-2222-222222222222"
	tutorB       = "44444444-4444-4444-4444-444444444444"
)

func testConfig(baseURL string) ClientConfig {
	cfg := DefaultClientConfig(baseURL)
	cfg.APIKey = "test-key"
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestClient_GetTutorsForCourse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/courses/"+testCourseID.String()+"/tutors", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"course_id": testCourseID.String(),
			"tutor_ids": []string{tutorA, tutorB},
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	tutors, err := client.GetTutorsForCourse(context.Background(), testCourseID)
	require.NoError(t, err)
	assert.Equal(t, []shared.TutorID{shared.TutorID(tutorA), shared.TutorID(tutorB)}, tutors)
}

func TestClient_UnknownCourseIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	tutors, err := client.GetTutorsForCourse(context.Background(), testCourseID)
	require.NoError(t, err, "an unknown course is empty, not an error")
	assert.Empty(t, tutors)
	assert.NotNil(t, tutors)
}

func TestClient_MalformedTutorIDsAreSkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"course_id": testCourseID.String(),
			"tutor_ids": []string{tutorA, "not-a-uuid", tutorB},
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	tutors, err := client.GetTutorsForCourse(context.Background(), testCourseID)
	require.NoError(t, err)
	assert.Equal(t, []shared.TutorID{shared.TutorID(tutorA), shared.TutorID(tutorB)}, tutors)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "catalog warming up"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"course_id": testCourseID.String(),
			"tutor_ids": []string{tutorA},
		})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	tutors, err := client.GetTutorsForCourse(context.Background(), testCourseID)
	require.NoError(t, err)
	assert.Equal(t, []shared.TutorID{shared.TutorID(tutorA)}, tutors)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_PersistentServerErrorSurfaces(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	_, err := client.GetTutorsForCourse(context.Background(), testCourseID)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrExternalService)
	assert.Equal(t, int32(3), calls.Load(), "every attempt is used")
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		_ = json.NewEncoder(w).Encode(map[string]string{"code": "forbidden", "message": "bad api key"})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	_, err := client.GetTutorsForCourse(context.Background(), testCourseID)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	assert.Equal(t, int32(1), calls.Load(), "4xx responses are not retried")
}

func TestClient_OpenBreakerShortCircuits(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Breaker = circuitbreaker.Config{
		Name:             "catalog",
		FailureThreshold: 2,
		Timeout:          time.Minute,
	}
	client := NewClient(cfg, nil)

	// Two failing attempts trip the breaker; the third retry is rejected
	// without reaching the server.
	_, err := client.GetTutorsForCourse(context.Background(), testCourseID)
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())

	_, err = client.GetTutorsForCourse(context.Background(), testCourseID)
	require.Error(t, err)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load(), "an open breaker never hits the network")
}

func TestClient_MalformedBodyIsExternalError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil)
	_, err := client.GetTutorsForCourse(context.Background(), testCourseID)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrExternalService)
}
