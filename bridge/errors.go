package bridge

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotConnected is returned when a command is executed while the
	// bridge has no established connection.
	ErrNotConnected = errors.New("bridge: not connected")

	// ErrClosed marks requests that were still pending when the
	// connection went away.
	ErrClosed = errors.New("bridge: connection closed")

	// ErrAuthRejected is returned when the gateway refuses the API key
	// presented during connection setup.
	ErrAuthRejected = errors.New("bridge: authentication rejected")

	// ErrTooManyPending is returned when a new request would exceed the
	// configured pending-request cap.
	ErrTooManyPending = errors.New("bridge: too many pending requests")
)

// ConnectionError reports a failure to establish or use the gateway
// connection. Op names the operation that failed.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bridge: %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("bridge: %s failed", e.Op)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether retrying the failed operation could succeed.
// Rejected credentials stay rejected; everything else is transient.
func (e *ConnectionError) IsRetryable() bool {
	return !errors.Is(e.Err, ErrAuthRejected)
}

// TimeoutError reports that a single command execution exceeded its
// deadline. The connection itself stays up; only the one call fails.
type TimeoutError struct {
	Command string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("bridge: command %q timed out after %v", e.Command, e.Elapsed)
}

// Timeout marks the error for net.Error style timeout checks.
func (e *TimeoutError) Timeout() bool { return true }

// IsRetryable reports true: the gateway may simply have been slow.
func (e *TimeoutError) IsRetryable() bool { return true }

// IsConnectionError reports whether err is a bridge connection failure.
func IsConnectionError(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsTimeout reports whether err is a bridge request timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
