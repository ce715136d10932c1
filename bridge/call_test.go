package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubExecutor returns a canned result or error for any command.
type stubExecutor struct {
	result json.RawMessage
	err    error

	lastCommand string
	lastArgs    []any
}

func (s *stubExecutor) Execute(ctx context.Context, command string, args ...any) (json.RawMessage, error) {
	s.lastCommand = command
	s.lastArgs = args
	return s.result, s.err
}

func (s *stubExecutor) ExecuteTimeout(ctx context.Context, timeout time.Duration, command string, args ...any) (json.RawMessage, error) {
	return s.Execute(ctx, command, args...)
}

func TestCall(t *testing.T) {
	t.Run("should decode the result into the requested type", func(t *testing.T) {
		ex := &stubExecutor{result: json.RawMessage(`{"id":"a1","name":"scout"}`)}

		type agent struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}
		got, err := Call[agent](context.Background(), ex, "get_agent", "a1")

		require.NoError(t, err)
		assert.Equal(t, agent{ID: "a1", Name: "scout"}, got)
		assert.Equal(t, "get_agent", ex.lastCommand)
		assert.Equal(t, []any{"a1"}, ex.lastArgs)
	})

	t.Run("should return the zero value for a null result", func(t *testing.T) {
		ex := &stubExecutor{result: json.RawMessage(`null`)}

		got, err := Call[string](context.Background(), ex, "delete_agent", "a1")

		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("should propagate executor errors without decoding", func(t *testing.T) {
		want := errors.New("not connected")
		ex := &stubExecutor{err: want}

		_, err := Call[int](context.Background(), ex, "block_number")

		assert.ErrorIs(t, err, want)
	})

	t.Run("should name the command when decoding fails", func(t *testing.T) {
		ex := &stubExecutor{result: json.RawMessage(`"not a number"`)}

		_, err := Call[int](context.Background(), ex, "block_number")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "block_number")
	})
}
