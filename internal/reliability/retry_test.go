package reliability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExponentialBackoff(t *testing.T) {
	t.Run("creates with jitter enabled", func(t *testing.T) {
		eb := NewExponentialBackoff(100*time.Millisecond, 5*time.Second, 2.0, 3)

		assert.Equal(t, 100*time.Millisecond, eb.InitialInterval)
		assert.Equal(t, 5*time.Second, eb.MaxInterval)
		assert.Equal(t, 2.0, eb.Multiplier)
		assert.Equal(t, 3, eb.MaxAttempts)
		assert.True(t, eb.Jitter)
	})

	t.Run("ShouldRetry respects max attempts", func(t *testing.T) {
		eb := NewExponentialBackoff(100*time.Millisecond, time.Second, 2.0, 3)

		for i := 0; i < 3; i++ {
			shouldRetry, delay := eb.ShouldRetry(i, errors.New("dial failed"))
			assert.True(t, shouldRetry)
			assert.Greater(t, delay, time.Duration(0))
		}

		shouldRetry, delay := eb.ShouldRetry(3, errors.New("dial failed"))
		assert.False(t, shouldRetry)
		assert.Equal(t, time.Duration(0), delay)
	})

	t.Run("NextDelay grows exponentially and caps at the max", func(t *testing.T) {
		eb := NewExponentialBackoff(100*time.Millisecond, 10*time.Second, 2.0, 5)
		eb.Jitter = false

		tests := []struct {
			attempt  int
			expected time.Duration
		}{
			{0, 100 * time.Millisecond},
			{1, 200 * time.Millisecond},
			{2, 400 * time.Millisecond},
			{3, 800 * time.Millisecond},
			{10, 10 * time.Second},
		}

		for _, tt := range tests {
			assert.Equal(t, tt.expected, eb.NextDelay(tt.attempt), "attempt %d", tt.attempt)
		}
	})

	t.Run("NextDelay stays within the jitter band", func(t *testing.T) {
		eb := NewExponentialBackoff(time.Second, 10*time.Second, 2.0, 5)

		sawVariation := false
		var first time.Duration
		for i := 0; i < 10; i++ {
			delay := eb.NextDelay(0)
			assert.GreaterOrEqual(t, delay, 850*time.Millisecond)
			assert.LessOrEqual(t, delay, 1150*time.Millisecond)
			if i == 0 {
				first = delay
			} else if delay != first {
				sawVariation = true
			}
		}
		assert.True(t, sawVariation, "jitter should vary the delay")
	})

	t.Run("does not retry errors that declare themselves fatal", func(t *testing.T) {
		eb := NewExponentialBackoff(100*time.Millisecond, time.Second, 2.0, 3)

		fatal := RetryableError{Err: errors.New("bad credentials"), Retryable: false}
		shouldRetry, _ := eb.ShouldRetry(0, fatal)
		assert.False(t, shouldRetry)
	})
}

func TestFixedDelay(t *testing.T) {
	t.Run("returns a constant delay", func(t *testing.T) {
		fd := NewFixedDelay(250*time.Millisecond, 4)

		assert.Equal(t, 250*time.Millisecond, fd.NextDelay(0))
		assert.Equal(t, 250*time.Millisecond, fd.NextDelay(3))
		assert.Equal(t, 4, fd.MaxRetries())
	})

	t.Run("stops after max attempts", func(t *testing.T) {
		fd := NewFixedDelay(time.Millisecond, 2)

		shouldRetry, _ := fd.ShouldRetry(1, errors.New("dial failed"))
		assert.True(t, shouldRetry)
		shouldRetry, _ = fd.ShouldRetry(2, errors.New("dial failed"))
		assert.False(t, shouldRetry)
	})
}

func TestRetry(t *testing.T) {
	t.Run("returns immediately on success", func(t *testing.T) {
		policy := NewFixedDelay(time.Millisecond, 3)
		calls := 0

		err := Retry(context.Background(), policy, func() error {
			calls++
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries until the function succeeds", func(t *testing.T) {
		policy := NewFixedDelay(time.Millisecond, 5)
		calls := 0

		err := Retry(context.Background(), policy, func() error {
			calls++
			if calls < 3 {
				return errors.New("dial failed")
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after the policy is exhausted", func(t *testing.T) {
		policy := NewFixedDelay(time.Millisecond, 2)
		calls := 0
		want := errors.New("dial failed")

		err := Retry(context.Background(), policy, func() error {
			calls++
			return want
		})

		assert.ErrorIs(t, err, want)
		assert.Equal(t, 3, calls, "initial attempt plus two retries")
	})

	t.Run("stops immediately on a non-retryable error", func(t *testing.T) {
		policy := NewFixedDelay(time.Millisecond, 5)
		calls := 0

		err := Retry(context.Background(), policy, func() error {
			calls++
			return RetryableError{Err: errors.New("bad credentials"), Retryable: false}
		})

		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("honors context cancellation between attempts", func(t *testing.T) {
		policy := NewFixedDelay(time.Second, 5)
		ctx, cancel := context.WithCancel(context.Background())

		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()

		err := Retry(ctx, policy, func() error {
			return errors.New("dial failed")
		})

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestIsRetryableError(t *testing.T) {
	t.Run("nil is not retryable", func(t *testing.T) {
		assert.False(t, IsRetryableError(nil))
	})

	t.Run("unknown errors default to retryable", func(t *testing.T) {
		assert.True(t, IsRetryableError(errors.New("mystery")))
	})

	t.Run("sentinel non-retryable errors are final", func(t *testing.T) {
		assert.False(t, IsRetryableError(ErrNonRetryable))
	})

	t.Run("open circuit errors are not retryable before the probe time", func(t *testing.T) {
		err := &CircuitBreakerError{
			State:     StateOpen,
			NextProbe: time.Now().Add(time.Minute),
		}
		assert.False(t, IsRetryableError(err))
	})

	t.Run("open circuit errors become retryable after the probe time", func(t *testing.T) {
		err := &CircuitBreakerError{
			State:     StateOpen,
			NextProbe: time.Now().Add(-time.Second),
		}
		assert.True(t, IsRetryableError(err))
	})
}
