package swarmgate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmgate/swarmgate-go/bridge"
	"github.com/swarmgate/swarmgate-go/config"
	"github.com/swarmgate/swarmgate-go/contracts"
	"github.com/swarmgate/swarmgate-go/internal/reliability"
)

// memConn is an in-memory gateway: every written request is answered by the
// respond function on the same connection.
type memConn struct {
	respond   func(contracts.Request) (any, bool)
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newMemConn(respond func(contracts.Request) (any, bool)) *memConn {
	return &memConn{
		respond: respond,
		inbound: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (c *memConn) ReadMessage(ctx context.Context) ([]byte, error) {
	select {
	case data := <-c.inbound:
		return data, nil
	case <-c.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *memConn) WriteMessage(ctx context.Context, data []byte) error {
	var req contracts.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return err
	}
	result, ok := c.respond(req)
	if !ok {
		return nil
	}
	frame, err := contracts.NewResponse(req.ID, result)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	select {
	case c.inbound <- payload:
	case <-c.closed:
	}
	return nil
}

func (c *memConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *memConn) pushEvent(t *testing.T, event string, data any) {
	t.Helper()
	frame, err := contracts.NewEvent(event, data)
	require.NoError(t, err)
	payload, err := json.Marshal(frame)
	require.NoError(t, err)
	c.inbound <- payload
}

// memDialer hands out memConns and can fail a number of leading dials.
type memDialer struct {
	mu       sync.Mutex
	respond  func(contracts.Request) (any, bool)
	conns    []*memConn
	dials    int
	failures int
}

func newMemDialer(respond func(contracts.Request) (any, bool)) *memDialer {
	if respond == nil {
		respond = scriptedGateway(nil)
	}
	return &memDialer{respond: respond}
}

func (d *memDialer) Dial(ctx context.Context) (bridge.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("gateway unreachable")
	}
	conn := newMemConn(d.respond)
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *memDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *memDialer) lastConn() *memConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// scriptedGateway answers each command from the script; unknown commands get
// an ok envelope so round trips always complete.
func scriptedGateway(script map[string]any) func(contracts.Request) (any, bool) {
	return func(req contracts.Request) (any, bool) {
		if script != nil {
			if result, ok := script[req.Command]; ok {
				return result, true
			}
		}
		return map[string]any{"ok": true}, true
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, dialer *memDialer, cfg config.Config, opts ...ClientOption) *Client {
	t.Helper()
	opts = append([]ClientOption{WithLogger(quietLogger()), WithDialer(dialer)}, opts...)
	client, err := NewClient(cfg, opts...)
	require.NoError(t, err)
	return client
}

func TestNewClient(t *testing.T) {
	t.Run("should reject an invalid configuration", func(t *testing.T) {
		_, err := NewClient(config.Config{})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid config")
	})

	t.Run("should build with the default websocket transport", func(t *testing.T) {
		client, err := NewClient(config.Default(), WithLogger(quietLogger()))

		require.NoError(t, err)
		assert.Equal(t, bridge.StateDisconnected, client.State())
	})

	t.Run("should wire every manager onto the shared bridge", func(t *testing.T) {
		client := newTestClient(t, newMemDialer(nil), config.Default())

		assert.NotNil(t, client.Agents())
		assert.NotNil(t, client.Swarms())
		assert.NotNil(t, client.Wallet())
		assert.NotNil(t, client.Chain())
		assert.NotNil(t, client.Storage())
		assert.False(t, client.IsConnected())
	})
}

func TestClientConnect(t *testing.T) {
	t.Run("should connect and ping the gateway", func(t *testing.T) {
		dialer := newMemDialer(scriptedGateway(map[string]any{"ping": "pong"}))
		client := newTestClient(t, dialer, config.Default())

		require.NoError(t, client.Connect(context.Background()))
		defer client.Close()

		assert.True(t, client.IsConnected())
		assert.NoError(t, client.Ping(context.Background()))
		assert.GreaterOrEqual(t, client.Stats().Requests, uint64(1))
	})

	t.Run("should authenticate with the configured api key", func(t *testing.T) {
		var authArgs atomic.Value
		respond := func(req contracts.Request) (any, bool) {
			if req.Command == "authenticate" {
				authArgs.Store(req.Args)
				return true, true
			}
			return map[string]any{"ok": true}, true
		}
		dialer := newMemDialer(respond)
		cfg := config.Default()
		cfg.APIKey = "sg-secret"
		client := newTestClient(t, dialer, cfg)

		require.NoError(t, client.Connect(context.Background()))
		defer client.Close()

		require.NotNil(t, authArgs.Load())
		assert.Equal(t, []any{"sg-secret"}, authArgs.Load())
	})

	t.Run("should retry failed dials when a policy is configured", func(t *testing.T) {
		dialer := newMemDialer(nil)
		dialer.failures = 2
		client := newTestClient(t, dialer, config.Default(),
			WithConnectRetryPolicy(reliability.NewFixedDelay(5*time.Millisecond, 5)))

		require.NoError(t, client.Connect(context.Background()))
		defer client.Close()

		assert.Equal(t, 3, dialer.dialCount())
		assert.True(t, client.IsConnected())
	})

	t.Run("should give up after exhausting the retry policy", func(t *testing.T) {
		dialer := newMemDialer(nil)
		dialer.failures = 10
		client := newTestClient(t, dialer, config.Default(),
			WithConnectRetryPolicy(reliability.NewFixedDelay(time.Millisecond, 2)))

		err := client.Connect(context.Background())

		require.Error(t, err)
		assert.True(t, bridge.IsConnectionError(err))
		assert.Equal(t, 3, dialer.dialCount())
		assert.False(t, client.IsConnected())
	})

	t.Run("should not retry a rejected api key", func(t *testing.T) {
		respond := func(req contracts.Request) (any, bool) {
			if req.Command == "authenticate" {
				return false, true
			}
			return map[string]any{"ok": true}, true
		}
		dialer := newMemDialer(respond)
		cfg := config.Default()
		cfg.APIKey = "wrong-key"
		client := newTestClient(t, dialer, cfg,
			WithConnectRetryPolicy(reliability.NewFixedDelay(time.Millisecond, 5)))

		err := client.Connect(context.Background())

		require.Error(t, err)
		assert.ErrorIs(t, err, bridge.ErrAuthRejected)
		assert.Equal(t, 1, dialer.dialCount())
		assert.False(t, client.IsConnected())
	})

	t.Run("should connect without retries by default", func(t *testing.T) {
		dialer := newMemDialer(nil)
		dialer.failures = 1
		client := newTestClient(t, dialer, config.Default())

		err := client.Connect(context.Background())

		require.Error(t, err)
		assert.Equal(t, 1, dialer.dialCount())
	})
}

func TestClientExecute(t *testing.T) {
	t.Run("should forward raw commands through the escape hatch", func(t *testing.T) {
		dialer := newMemDialer(scriptedGateway(map[string]any{
			"custom_op": map[string]any{"answer": 42},
		}))
		client := newTestClient(t, dialer, config.Default())
		require.NoError(t, client.Connect(context.Background()))
		defer client.Close()

		raw, err := client.Execute(context.Background(), "custom_op", "x", 1)

		require.NoError(t, err)
		assert.JSONEq(t, `{"answer":42}`, string(raw))
	})

	t.Run("should route manager calls through the live bridge", func(t *testing.T) {
		dialer := newMemDialer(scriptedGateway(map[string]any{
			"block_number": 90210,
			"get_balance":  map[string]any{"address": "0xabc", "amount": "7"},
		}))
		client := newTestClient(t, dialer, config.Default())
		require.NoError(t, client.Connect(context.Background()))
		defer client.Close()

		number, err := client.Chain().BlockNumber(context.Background())
		require.NoError(t, err)
		assert.Equal(t, uint64(90210), number)

		balance, err := client.Wallet().Balance(context.Background(), "0xabc")
		require.NoError(t, err)
		assert.Equal(t, "7", balance.Amount)

		assert.Zero(t, client.PendingCount())
	})

	t.Run("should fail fast when not connected", func(t *testing.T) {
		client := newTestClient(t, newMemDialer(nil), config.Default())

		_, err := client.Execute(context.Background(), "ping")

		assert.True(t, bridge.IsConnectionError(err))
	})
}

func TestClientEvents(t *testing.T) {
	t.Run("should deliver typed events to OnEvent handlers", func(t *testing.T) {
		dialer := newMemDialer(nil)
		client := newTestClient(t, dialer, config.Default())
		require.NoError(t, client.Connect(context.Background()))
		defer client.Close()

		var got atomic.Value
		OnEvent(client, EventBlockFinalized, func(e BlockFinalizedEvent) {
			got.Store(e)
		})

		dialer.lastConn().pushEvent(t, EventBlockFinalized, BlockFinalizedEvent{Number: 42, Hash: "0xb"})

		require.Eventually(t, func() bool {
			return got.Load() != nil
		}, time.Second, 5*time.Millisecond)
		event := got.Load().(BlockFinalizedEvent)
		assert.Equal(t, uint64(42), event.Number)
		assert.Equal(t, "0xb", event.Hash)
	})

	t.Run("should skip event payloads that do not decode", func(t *testing.T) {
		dialer := newMemDialer(nil)
		client := newTestClient(t, dialer, config.Default())
		require.NoError(t, client.Connect(context.Background()))
		defer client.Close()

		var delivered atomic.Int32
		OnEvent(client, EventBlockFinalized, func(e BlockFinalizedEvent) {
			delivered.Add(1)
		})

		conn := dialer.lastConn()
		conn.pushEvent(t, EventBlockFinalized, map[string]any{"number": "not-a-number"})
		conn.pushEvent(t, EventBlockFinalized, BlockFinalizedEvent{Number: 7})

		require.Eventually(t, func() bool {
			return client.Stats().Events == 2
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, int32(1), delivered.Load())
	})

	t.Run("should unregister through the returned raw handler", func(t *testing.T) {
		dialer := newMemDialer(nil)
		client := newTestClient(t, dialer, config.Default())
		require.NoError(t, client.Connect(context.Background()))
		defer client.Close()

		var delivered atomic.Int32
		raw := OnEvent(client, EventAgentStatus, func(e AgentStatusEvent) {
			delivered.Add(1)
		})
		client.Off(EventAgentStatus, raw)

		conn := dialer.lastConn()
		conn.pushEvent(t, EventAgentStatus, AgentStatusEvent{AgentID: "ag-1", Status: "done"})

		require.Eventually(t, func() bool {
			return client.Stats().Events == 1
		}, time.Second, 5*time.Millisecond)
		assert.Zero(t, delivered.Load())
	})
}

func TestClientClose(t *testing.T) {
	t.Run("should disconnect and reject further commands", func(t *testing.T) {
		dialer := newMemDialer(nil)
		client := newTestClient(t, dialer, config.Default())
		require.NoError(t, client.Connect(context.Background()))

		require.NoError(t, client.Close())

		assert.False(t, client.IsConnected())
		assert.Equal(t, bridge.StateDisconnected, client.State())
		assert.Error(t, client.Ping(context.Background()))
	})

	t.Run("should be idempotent", func(t *testing.T) {
		dialer := newMemDialer(nil)
		client := newTestClient(t, dialer, config.Default())
		require.NoError(t, client.Connect(context.Background()))

		require.NoError(t, client.Close())
		require.NoError(t, client.Close())
	})

	t.Run("should support reconnecting after close", func(t *testing.T) {
		dialer := newMemDialer(scriptedGateway(map[string]any{"ping": "pong"}))
		client := newTestClient(t, dialer, config.Default())

		require.NoError(t, client.Connect(context.Background()))
		require.NoError(t, client.Close())
		require.NoError(t, client.Connect(context.Background()))
		defer client.Close()

		assert.Equal(t, 2, dialer.dialCount())
		assert.NoError(t, client.Ping(context.Background()))
	})
}
