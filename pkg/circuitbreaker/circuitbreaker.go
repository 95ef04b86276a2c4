// Package circuitbreaker implements the Circuit Breaker pattern for fault
// tolerance. It protects the scheduling core from hammering the course
// catalog service while it is down.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the current state of the circuit breaker.
type State int

const (
	// StateClosed is the normal state - requests are allowed through.
	StateClosed State = iota
	// StateOpen is the failure state - requests are blocked.
	StateOpen
	// StateHalfOpen is the recovery state - limited requests allowed to test recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Common errors.
var (
	// ErrCircuitOpen is returned when the circuit is open and requests are blocked.
	ErrCircuitOpen = errors.New("circuit breaker is open")
	// ErrTooManyRequests is returned when too many requests are made in half-open state.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Config holds circuit breaker configuration.
type Config struct {
	// Name identifies this circuit breaker (for logging/metrics).
	Name string

	// FailureThreshold is the number of consecutive failures before opening
	// the circuit.
	FailureThreshold int

	// SuccessThreshold is the number of successes in half-open state before
	// closing the circuit.
	SuccessThreshold int

	// Timeout is how long to wait in open state before transitioning to half-open.
	Timeout time.Duration

	// MaxHalfOpenRequests is the maximum number of concurrent probes in
	// half-open state.
	MaxHalfOpenRequests int

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(name string, from, to State)

	// IsFailure determines if an error should be counted as a failure.
	// If nil, all non-nil errors are counted as failures.
	IsFailure func(error) bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		MaxHalfOpenRequests: 1,
	}
}

// CircuitBreaker guards calls to an unreliable dependency.
type CircuitBreaker struct {
	config Config

	mu               sync.Mutex
	state            State
	failures         int
	successes        int
	halfOpenInFlight int
	openedAt         time.Time
}

// New creates a circuit breaker in the closed state.
func New(config Config) *CircuitBreaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxHalfOpenRequests <= 0 {
		config.MaxHalfOpenRequests = 1
	}
	return &CircuitBreaker{config: config, state: StateClosed}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// Execute runs fn through the breaker. When the circuit is open the call is
// rejected with ErrCircuitOpen without invoking fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.afterCall(err)
	return err
}

// beforeCall admits or rejects a call and reserves a half-open probe slot.
func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenInFlight >= cb.config.MaxHalfOpenRequests {
			return ErrTooManyRequests
		}
		cb.halfOpenInFlight++
	}
	return nil
}

// afterCall records the outcome and drives state transitions.
func (cb *CircuitBreaker) afterCall(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.currentState()
	if state == StateHalfOpen {
		cb.halfOpenInFlight--
	}

	failed := err != nil
	if cb.config.IsFailure != nil {
		failed = err != nil && cb.config.IsFailure(err)
	}

	if failed {
		cb.onFailure(state)
	} else {
		cb.onSuccess(state)
	}
}

func (cb *CircuitBreaker) onFailure(state State) {
	switch state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.transition(StateClosed, StateOpen)
		}
	case StateHalfOpen:
		cb.transition(StateHalfOpen, StateOpen)
	}
}

func (cb *CircuitBreaker) onSuccess(state State) {
	switch state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transition(StateHalfOpen, StateClosed)
		}
	}
}

// currentState folds the open-state timeout into the answer: an open circuit
// whose timeout elapsed reads as half-open. Callers hold cb.mu.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.config.Timeout {
		cb.setState(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) transition(from, to State) {
	if cb.state != from {
		return
	}
	cb.setState(to)
}

func (cb *CircuitBreaker) setState(to State) {
	from := cb.state
	cb.state = to
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenInFlight = 0
	if to == StateOpen {
		cb.openedAt = time.Now()
	}
	if cb.config.OnStateChange != nil && from != to {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
