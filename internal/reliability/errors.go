package reliability

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownState is returned for an unrecognized circuit state.
	ErrUnknownState = errors.New("circuit breaker: unknown state")

	// ErrNonRetryable marks an error that must never be retried.
	ErrNonRetryable = errors.New("retry: error is not retryable")
)

// CircuitBreakerError reports an execution blocked by an open or saturated
// circuit.
type CircuitBreakerError struct {
	State            State
	Failures         int
	FailureThreshold int
	LastFailure      time.Time
	NextProbe        time.Time
}

func (e *CircuitBreakerError) Error() string {
	switch e.State {
	case StateOpen:
		probeIn := time.Until(e.NextProbe).Round(time.Second)
		return fmt.Sprintf("circuit breaker open: blocked (failures=%d/%d, probe in %v)",
			e.Failures, e.FailureThreshold, probeIn)
	case StateHalfOpen:
		return "circuit breaker half-open: probe limit reached"
	default:
		return fmt.Sprintf("circuit breaker error: unexpected state %v", e.State)
	}
}

// IsRetryable reports whether a later attempt could pass the breaker.
func (e *CircuitBreakerError) IsRetryable() bool {
	return e.State != StateOpen || time.Now().After(e.NextProbe)
}

// RetryError reports an operation that kept failing until its retry policy
// gave up.
type RetryError struct {
	Op          string
	Attempts    int
	MaxAttempts int
	LastError   error
	Duration    time.Duration
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retry failed: %s after %d/%d attempts over %v: %v",
		e.Op, e.Attempts, e.MaxAttempts, e.Duration.Round(time.Millisecond), e.LastError)
}

func (e *RetryError) Unwrap() error {
	return e.LastError
}

// IsRetryableError checks whether an error should be retried.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrNonRetryable) {
		return false
	}

	var cbErr *CircuitBreakerError
	if errors.As(err, &cbErr) {
		return cbErr.IsRetryable()
	}

	return isRetryableError(err)
}
