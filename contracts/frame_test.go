package contracts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	t.Run("should generate unique correlation IDs", func(t *testing.T) {
		first := NewRequest("ping", nil)
		second := NewRequest("ping", nil)

		assert.NotEmpty(t, first.ID)
		assert.NotEmpty(t, second.ID)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("should normalize nil args to an empty array on the wire", func(t *testing.T) {
		req := NewRequest("list_agents", nil)

		data, err := json.Marshal(req)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"args":[]`)
	})

	t.Run("should keep args positional", func(t *testing.T) {
		req := NewRequest("transfer", []any{"alice", "bob", 42})

		data, err := json.Marshal(req)
		require.NoError(t, err)

		var decoded Request
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "transfer", decoded.Command)
		require.Len(t, decoded.Args, 3)
		assert.Equal(t, "alice", decoded.Args[0])
		assert.Equal(t, "bob", decoded.Args[1])
	})
}

func TestFrameKind(t *testing.T) {
	t.Run("should classify frames with an id as responses", func(t *testing.T) {
		frame, err := ParseFrame([]byte(`{"id":"abc-123","result":{"ok":true}}`))
		require.NoError(t, err)

		assert.Equal(t, KindResponse, frame.Kind())
		assert.Equal(t, "abc-123", frame.ID)
		assert.JSONEq(t, `{"ok":true}`, string(frame.Result))
	})

	t.Run("should classify frames with an event type as events", func(t *testing.T) {
		frame, err := ParseFrame([]byte(`{"event":"agent_status","data":{"agent_id":"a1"}}`))
		require.NoError(t, err)

		assert.Equal(t, KindEvent, frame.Kind())
		assert.Equal(t, "agent_status", frame.Event)
	})

	t.Run("should treat a frame carrying both fields as an event", func(t *testing.T) {
		frame, err := ParseFrame([]byte(`{"id":"abc-123","event":"agent_log","data":"hi"}`))
		require.NoError(t, err)

		assert.Equal(t, KindEvent, frame.Kind())
	})

	t.Run("should mark frames with neither field as unknown", func(t *testing.T) {
		frame, err := ParseFrame([]byte(`{"foo":"bar"}`))
		require.NoError(t, err)

		assert.Equal(t, KindUnknown, frame.Kind())
	})

	t.Run("should reject invalid JSON", func(t *testing.T) {
		_, err := ParseFrame([]byte(`{not json`))
		assert.Error(t, err)
	})
}

func TestFrameBuilders(t *testing.T) {
	t.Run("should round-trip a response frame", func(t *testing.T) {
		frame, err := NewResponse("req-1", map[string]any{"balance": 100})
		require.NoError(t, err)

		data, err := json.Marshal(frame)
		require.NoError(t, err)

		decoded, err := ParseFrame(data)
		require.NoError(t, err)
		assert.Equal(t, KindResponse, decoded.Kind())
		assert.Equal(t, "req-1", decoded.ID)
		assert.JSONEq(t, `{"balance":100}`, string(decoded.Result))
	})

	t.Run("should round-trip an event frame", func(t *testing.T) {
		frame, err := NewEvent("block_finalized", map[string]any{"number": 7})
		require.NoError(t, err)

		data, err := json.Marshal(frame)
		require.NoError(t, err)

		decoded, err := ParseFrame(data)
		require.NoError(t, err)
		assert.Equal(t, KindEvent, decoded.Kind())
		assert.Equal(t, "block_finalized", decoded.Event)
		assert.JSONEq(t, `{"number":7}`, string(decoded.Data))
	})

	t.Run("should reject unencodable payloads", func(t *testing.T) {
		_, err := NewResponse("req-1", func() {})
		assert.Error(t, err)
	})
}
