package reliability

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

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

// CircuitBreaker protects an operation against a persistently failing
// gateway: after enough consecutive failures it opens and fails fast,
// probes again once a cooldown has passed, and closes after enough
// successful probes.
type CircuitBreaker struct {
	mu              sync.RWMutex
	state           State
	failures        int
	successes       int
	currentHalfOpen int
	lastFailureTime time.Time

	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	halfOpenRequests int
}

// CircuitBreakerOption configures the circuit breaker.
type CircuitBreakerOption func(*CircuitBreaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(threshold int) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.failureThreshold = threshold
	}
}

// WithSuccessThreshold sets how many successes in half-open close it again.
func WithSuccessThreshold(threshold int) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.successThreshold = threshold
	}
}

// WithCooldown sets how long the circuit stays open before probing.
func WithCooldown(cooldown time.Duration) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.cooldown = cooldown
	}
}

// WithHalfOpenRequests sets the in-flight probe limit while half-open.
func WithHalfOpenRequests(requests int) CircuitBreakerOption {
	return func(cb *CircuitBreaker) {
		cb.halfOpenRequests = requests
	}
}

// NewCircuitBreaker creates a circuit breaker with the given options.
func NewCircuitBreaker(options ...CircuitBreakerOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: 5,
		successThreshold: 3,
		cooldown:         30 * time.Second,
		halfOpenRequests: 3,
	}

	for _, opt := range options {
		opt(cb)
	}

	return cb
}

// Execute runs fn under circuit breaker protection. When the circuit is
// open the call fails immediately with a CircuitBreakerError and fn is
// never invoked.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := cb.canExecute(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	err := fn()
	cb.recordResult(err)
	return err
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// GetStats returns the current failure and success streaks and the time of
// the last failure.
func (cb *CircuitBreaker) GetStats() (failures, successes int, lastFailure time.Time) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.failures, cb.successes, cb.lastFailureTime
}

// Reset forces the circuit back to closed with clean counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.currentHalfOpen = 0
}

func (cb *CircuitBreaker) canExecute() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		nextProbe := cb.lastFailureTime.Add(cb.cooldown)
		if time.Now().After(nextProbe) {
			cb.state = StateHalfOpen
			cb.currentHalfOpen = 1
			cb.successes = 0
			return nil
		}
		return &CircuitBreakerError{
			State:            cb.state,
			Failures:         cb.failures,
			FailureThreshold: cb.failureThreshold,
			LastFailure:      cb.lastFailureTime,
			NextProbe:        nextProbe,
		}

	case StateHalfOpen:
		if cb.currentHalfOpen >= cb.halfOpenRequests {
			return &CircuitBreakerError{
				State:            cb.state,
				Failures:         cb.failures,
				FailureThreshold: cb.failureThreshold,
				LastFailure:      cb.lastFailureTime,
				NextProbe:        time.Now().Add(time.Second),
			}
		}
		cb.currentHalfOpen++
		return nil

	default:
		return ErrUnknownState
	}
}

func (cb *CircuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailureTime = time.Now()

		switch cb.state {
		case StateClosed:
			if cb.failures >= cb.failureThreshold {
				cb.state = StateOpen
			}
		case StateHalfOpen:
			// One failure while probing reopens the circuit.
			cb.state = StateOpen
			cb.currentHalfOpen = 0
		}

		if cb.state != StateClosed {
			cb.successes = 0
		}
		return
	}

	cb.successes++

	switch cb.state {
	case StateHalfOpen:
		if cb.successes >= cb.successThreshold {
			cb.state = StateClosed
			cb.failures = 0
			cb.currentHalfOpen = 0
		}
	case StateClosed:
		cb.failures = 0
	}
}
