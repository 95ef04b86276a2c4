package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }

func succeeding(context.Context) error { return nil }

func newTestBreaker(failureThreshold, successThreshold int, timeout time.Duration) *CircuitBreaker {
	return New(Config{
		Name:             "test",
		FailureThreshold: failureThreshold,
		SuccessThreshold: successThreshold,
		Timeout:          timeout,
	})
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	ctx := context.Background()
	cb := newTestBreaker(3, 1, time.Minute)

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
		assert.Equal(t, StateClosed, cb.State())
	}

	assert.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	// While open, calls are rejected without running fn.
	ran := false
	err := cb.Execute(ctx, func(context.Context) error { ran = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, ran)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	ctx := context.Background()
	cb := newTestBreaker(3, 1, time.Minute)

	assert.Error(t, cb.Execute(ctx, failing))
	assert.Error(t, cb.Execute(ctx, failing))
	assert.NoError(t, cb.Execute(ctx, succeeding))
	assert.Error(t, cb.Execute(ctx, failing))
	assert.Error(t, cb.Execute(ctx, failing))

	assert.Equal(t, StateClosed, cb.State(), "non-consecutive failures do not open the circuit")
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	ctx := context.Background()
	cb := newTestBreaker(1, 2, 20*time.Millisecond)

	assert.Error(t, cb.Execute(ctx, failing))
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	// The first probe succeeds but the success threshold is two.
	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	ctx := context.Background()
	cb := newTestBreaker(1, 1, 20*time.Millisecond)

	assert.Error(t, cb.Execute(ctx, failing))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, cb.State())

	assert.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_HalfOpenLimitsConcurrentProbes(t *testing.T) {
	ctx := context.Background()
	cb := newTestBreaker(1, 1, 10*time.Millisecond)

	assert.Error(t, cb.Execute(ctx, failing))
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	release := make(chan struct{})
	probeDone := make(chan error, 1)
	go func() {
		probeDone <- cb.Execute(ctx, func(context.Context) error {
			<-release
			return nil
		})
	}()

	// Wait for the probe to occupy the half-open slot.
	deadline := time.After(time.Second)
	for {
		cb.mu.Lock()
		inFlight := cb.halfOpenInFlight
		cb.mu.Unlock()
		if inFlight == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("probe never started")
		case <-time.After(time.Millisecond):
		}
	}

	err := cb.Execute(ctx, succeeding)
	assert.ErrorIs(t, err, ErrTooManyRequests)

	close(release)
	require.NoError(t, <-probeDone)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	ctx := context.Background()
	benign := errors.New("not found")
	cb := New(Config{
		Name:             "test",
		FailureThreshold: 1,
		IsFailure:        func(err error) bool { return !errors.Is(err, benign) },
	})

	// Filtered errors pass through without tripping the breaker.
	assert.ErrorIs(t, cb.Execute(ctx, func(context.Context) error { return benign }), benign)
	assert.Equal(t, StateClosed, cb.State())

	assert.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	ctx := context.Background()

	type change struct{ from, to State }
	var changes []change
	cb := New(Config{
		Name:             "catalog",
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          10 * time.Millisecond,
		OnStateChange: func(name string, from, to State) {
			assert.Equal(t, "catalog", name)
			changes = append(changes, change{from, to})
		},
	})

	assert.Error(t, cb.Execute(ctx, failing))
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, cb.Execute(ctx, succeeding))

	assert.Equal(t, []change{
		{StateClosed, StateOpen},
		{StateOpen, StateHalfOpen},
		{StateHalfOpen, StateClosed},
	}, changes)
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cfg := DefaultConfig("catalog")
	assert.Equal(t, "catalog", cfg.Name)
	assert.Equal(t, 5, cfg.FailureThreshold)
	assert.Equal(t, 2, cfg.SuccessThreshold)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 1, cfg.MaxHalfOpenRequests)

	// Zero-valued config fields fall back to the defaults.
	cb := New(Config{Name: "zero"})
	assert.Equal(t, 5, cb.config.FailureThreshold)
	assert.Equal(t, 2, cb.config.SuccessThreshold)

	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
