package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/swarmgate/swarmgate-go/contracts"
	"github.com/swarmgate/swarmgate-go/internal/reliability"
)

// DefaultTimeout bounds Execute calls when no per-call timeout is given.
const DefaultTimeout = 30 * time.Second

// State identifies the connection lifecycle phase of a Bridge.
type State int32

const (
	// StateDisconnected means no connection exists. Initial and terminal.
	StateDisconnected State = iota
	// StateConnecting means a dial (and optional authenticate) is underway.
	StateConnecting
	// StateConnected means the receive loop is running and commands flow.
	StateConnected
	// StateClosing means an orderly Disconnect is tearing the link down.
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time snapshot of bridge activity counters.
type Stats struct {
	Requests        uint64 `json:"requests"`
	Responses       uint64 `json:"responses"`
	Timeouts        uint64 `json:"timeouts"`
	LateResponses   uint64 `json:"late_responses"`
	Events          uint64 `json:"events"`
	HandlerPanics   uint64 `json:"handler_panics"`
	MalformedFrames uint64 `json:"malformed_frames"`
}

// Executor is the command execution surface of a Bridge. Managers and
// helpers depend on it rather than on the concrete type.
type Executor interface {
	Execute(ctx context.Context, command string, args ...any) (json.RawMessage, error)
	ExecuteTimeout(ctx context.Context, timeout time.Duration, command string, args ...any) (json.RawMessage, error)
}

// Bridge multiplexes concurrent command executions over one gateway
// connection and fans out server-pushed events to registered handlers.
// Responses are matched to callers by correlation ID, so they may arrive
// in any order relative to the requests.
//
// A Bridge never reconnects on its own: when the connection fails, every
// pending request is resolved with a ConnectionError and the bridge goes
// back to StateDisconnected until Connect is called again.
type Bridge struct {
	dialer         Dialer
	logger         *slog.Logger
	apiKey         string
	defaultTimeout time.Duration
	maxPending     int
	breaker        *reliability.CircuitBreaker

	state atomic.Int32

	// connMu serializes Connect and Disconnect against each other.
	connMu sync.Mutex

	// writeMu serializes frame writes and guards conn. The receive loop
	// never takes it; it owns the Conn it was started with.
	writeMu sync.Mutex
	conn    Conn

	recvCancel context.CancelFunc
	recvDone   chan struct{}

	pending *pendingTable
	events  *eventRegistry

	requests        atomic.Uint64
	responses       atomic.Uint64
	timeouts        atomic.Uint64
	lateResponses   atomic.Uint64
	eventCount      atomic.Uint64
	handlerPanics   atomic.Uint64
	malformedFrames atomic.Uint64
}

// Config holds construction settings for a Bridge.
type Config struct {
	Logger         *slog.Logger
	DefaultTimeout time.Duration
	APIKey         string
	MaxPending     int
	CircuitBreaker *reliability.CircuitBreaker
}

// Option configures a Bridge at construction time.
type Option func(*Config)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithDefaultTimeout sets the per-call deadline used by Execute.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.DefaultTimeout = timeout
	}
}

// WithAPIKey sets the key presented in the authenticate command issued
// right after each successful dial. Empty disables authentication.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithMaxPending caps the number of concurrently pending requests.
// Zero or negative means unlimited.
func WithMaxPending(max int) Option {
	return func(c *Config) {
		c.MaxPending = max
	}
}

// WithCircuitBreaker guards the request write path with cb, failing fast
// while the gateway is unhealthy.
func WithCircuitBreaker(cb *reliability.CircuitBreaker) Option {
	return func(c *Config) {
		c.CircuitBreaker = cb
	}
}

// New creates a bridge that connects through dialer. The bridge starts
// disconnected; call Connect before executing commands.
func New(dialer Dialer, opts ...Option) (*Bridge, error) {
	if dialer == nil {
		return nil, fmt.Errorf("dialer cannot be nil")
	}

	config := &Config{
		Logger:         slog.Default(),
		DefaultTimeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(config)
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = DefaultTimeout
	}

	b := &Bridge{
		dialer:         dialer,
		logger:         config.Logger,
		apiKey:         config.APIKey,
		defaultTimeout: config.DefaultTimeout,
		maxPending:     config.MaxPending,
		breaker:        config.CircuitBreaker,
		pending:        newPendingTable(),
		events:         newEventRegistry(config.Logger),
	}
	b.state.Store(int32(StateDisconnected))
	return b, nil
}

// State returns the current connection state.
func (b *Bridge) State() State {
	return State(b.state.Load())
}

// IsConnected reports whether commands can currently be executed.
func (b *Bridge) IsConnected() bool {
	return b.State() == StateConnected
}

// PendingCount returns the number of requests awaiting a response.
func (b *Bridge) PendingCount() int {
	return b.pending.count()
}

// Stats returns a snapshot of the bridge activity counters.
func (b *Bridge) Stats() Stats {
	return Stats{
		Requests:        b.requests.Load(),
		Responses:       b.responses.Load(),
		Timeouts:        b.timeouts.Load(),
		LateResponses:   b.lateResponses.Load(),
		Events:          b.eventCount.Load(),
		HandlerPanics:   b.handlerPanics.Load(),
		MalformedFrames: b.malformedFrames.Load(),
	}
}

// Connect dials the gateway, starts the receive loop, and, when an API key
// is configured, performs the authenticate exchange. Calling Connect while
// already connected is a no-op. On any failure the bridge is left
// disconnected and the error describes the failing step.
func (b *Bridge) Connect(ctx context.Context) error {
	b.connMu.Lock()
	defer b.connMu.Unlock()

	if b.State() == StateConnected {
		return nil
	}

	b.state.Store(int32(StateConnecting))
	b.logger.Debug("connecting to gateway")

	conn, err := b.dialer.Dial(ctx)
	if err != nil {
		b.state.Store(int32(StateDisconnected))
		return &ConnectionError{Op: "dial", Err: err}
	}

	recvCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	b.writeMu.Lock()
	b.conn = conn
	b.writeMu.Unlock()
	b.recvCancel = cancel
	b.recvDone = done

	b.state.Store(int32(StateConnected))
	go b.receiveLoop(recvCtx, cancel, conn, done)

	if b.apiKey != "" {
		if err := b.authenticate(ctx); err != nil {
			b.teardownLocked(err)
			return err
		}
	}

	b.logger.Info("connected to gateway")
	return nil
}

// Disconnect closes the connection and resolves every pending request with
// a ConnectionError. It is idempotent and safe to call from any state.
func (b *Bridge) Disconnect(ctx context.Context) error {
	b.connMu.Lock()
	defer b.connMu.Unlock()

	if !b.state.CompareAndSwap(int32(StateConnected), int32(StateClosing)) {
		return nil
	}
	b.teardownLocked(&ConnectionError{Op: "disconnect", Err: ErrClosed})
	b.logger.Info("disconnected from gateway")
	return nil
}

// teardownLocked closes the current connection, waits for the receive loop
// to exit, and fails all pending requests with cause. The caller must hold
// connMu.
func (b *Bridge) teardownLocked(cause error) {
	b.state.Store(int32(StateClosing))
	b.recvCancel()

	b.writeMu.Lock()
	conn := b.conn
	b.conn = nil
	b.writeMu.Unlock()
	if conn != nil {
		if err := conn.Close(); err != nil {
			b.logger.Debug("connection close", "error", err)
		}
	}

	<-b.recvDone
	b.state.Store(int32(StateDisconnected))
	b.failPending(cause)
}

// failPending resolves every pending request with err.
func (b *Bridge) failPending(err error) {
	for _, req := range b.pending.drain() {
		req.resolve(nil, err)
	}
}

// receiveLoop is the single reader for one connection. It owns conn for
// reading and closes it when the transport fails; orderly shutdown happens
// through ctx cancellation from teardownLocked.
func (b *Bridge) receiveLoop(ctx context.Context, cancel context.CancelFunc, conn Conn, done chan struct{}) {
	defer close(done)
	defer cancel()

	for {
		data, err := conn.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.handleReadFailure(conn, err)
			return
		}
		b.handleFrame(data)
	}
}

// handleReadFailure tears the bridge down after an unexpected transport
// error. Only the loop that wins the Connected -> Disconnected transition
// performs teardown; a concurrent Disconnect owns it otherwise.
func (b *Bridge) handleReadFailure(conn Conn, err error) {
	if !b.state.CompareAndSwap(int32(StateConnected), int32(StateDisconnected)) {
		return
	}
	b.logger.Error("connection lost", "error", err)
	if cerr := conn.Close(); cerr != nil {
		b.logger.Debug("connection close", "error", cerr)
	}
	b.failPending(&ConnectionError{Op: "read", Err: err})
}

// handleFrame routes one inbound frame to the pending table or the event
// registry. Malformed frames are counted and skipped; the loop survives.
func (b *Bridge) handleFrame(data []byte) {
	frame, err := contracts.ParseFrame(data)
	if err != nil {
		b.malformedFrames.Add(1)
		b.logger.Warn("malformed frame", "error", err)
		return
	}

	switch frame.Kind() {
	case contracts.KindEvent:
		b.eventCount.Add(1)
		_, panicked := b.events.dispatch(frame.Event, frame.Data)
		if panicked > 0 {
			b.handlerPanics.Add(uint64(panicked))
		}
	case contracts.KindResponse:
		b.resolveResponse(frame.ID, frame.Result)
	default:
		b.malformedFrames.Add(1)
		b.logger.Warn("unroutable frame", "frame", string(data))
	}
}

// resolveResponse hands a response to the caller registered under id. A
// response with no pending entry arrived after its caller timed out or
// disconnected; it is counted and dropped without error.
func (b *Bridge) resolveResponse(id string, result json.RawMessage) {
	req, ok := b.pending.take(id)
	if !ok {
		b.lateResponses.Add(1)
		b.logger.Debug("late response discarded", "id", id)
		return
	}
	b.responses.Add(1)
	req.resolve(result, nil)
}

// Execute sends command with positional args and blocks until the matching
// response arrives, the default timeout elapses, or ctx is cancelled.
// The returned raw result is the gateway's result field, passed through
// without interpretation.
func (b *Bridge) Execute(ctx context.Context, command string, args ...any) (json.RawMessage, error) {
	return b.ExecuteTimeout(ctx, b.defaultTimeout, command, args...)
}

// ExecuteTimeout is Execute with a per-call timeout. A non-positive timeout
// falls back to the default. The timeout bounds one call only; other
// in-flight requests and the connection are unaffected when it fires.
func (b *Bridge) ExecuteTimeout(ctx context.Context, timeout time.Duration, command string, args ...any) (json.RawMessage, error) {
	if command == "" {
		return nil, fmt.Errorf("command cannot be empty")
	}
	if timeout <= 0 {
		timeout = b.defaultTimeout
	}
	return b.execute(ctx, timeout, command, args)
}

func (b *Bridge) execute(ctx context.Context, timeout time.Duration, command string, args []any) (json.RawMessage, error) {
	if b.State() != StateConnected {
		return nil, &ConnectionError{Op: "execute", Err: ErrNotConnected}
	}
	if b.maxPending > 0 && b.pending.count() >= b.maxPending {
		return nil, ErrTooManyPending
	}

	req := contracts.NewRequest(command, args)
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	p := newPendingRequest(req.ID, command)
	b.pending.add(p)
	b.requests.Add(1)

	b.logger.Debug("executing command",
		"command", command,
		"id", req.ID,
		"timeout", timeout)

	if err := b.writeFrame(ctx, data); err != nil {
		b.pending.take(p.ID)
		return nil, &ConnectionError{Op: "write", Err: err}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-p.done:
		return res.result, res.err

	case <-timer.C:
		if _, ok := b.pending.take(p.ID); ok {
			b.timeouts.Add(1)
			return nil, &TimeoutError{Command: command, Elapsed: timeout}
		}
		// The response won the race; it is already in the channel.
		res := <-p.done
		return res.result, res.err

	case <-ctx.Done():
		if _, ok := b.pending.take(p.ID); ok {
			return nil, ctx.Err()
		}
		res := <-p.done
		return res.result, res.err
	}
}

// writeFrame sends one frame, serialized against all other writers. When a
// circuit breaker is configured it wraps the write so repeated transport
// failures start failing fast.
func (b *Bridge) writeFrame(ctx context.Context, data []byte) error {
	write := func() error {
		b.writeMu.Lock()
		defer b.writeMu.Unlock()
		if b.conn == nil {
			return ErrNotConnected
		}
		return b.conn.WriteMessage(ctx, data)
	}

	if b.breaker != nil {
		return b.breaker.Execute(ctx, write)
	}
	return write()
}

// authenticate performs the one-shot credential exchange. Unlike every
// other command, the bridge interprets this result itself: a rejected key
// must fail Connect.
func (b *Bridge) authenticate(ctx context.Context) error {
	result, err := b.ExecuteTimeout(ctx, b.defaultTimeout, "authenticate", b.apiKey)
	if err != nil {
		return &ConnectionError{Op: "authenticate", Err: err}
	}
	if !authAccepted(result) {
		return &ConnectionError{Op: "authenticate", Err: ErrAuthRejected}
	}
	return nil
}

// authAccepted interprets the authenticate response. Gateways answer with
// either a bare boolean or an object carrying a success field; any other
// shape counts as accepted since results are otherwise opaque to the
// bridge.
func authAccepted(result json.RawMessage) bool {
	if len(result) == 0 {
		return true
	}
	var ok bool
	if err := json.Unmarshal(result, &ok); err == nil {
		return ok
	}
	var status struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(result, &status); err == nil && status.Success != nil {
		return *status.Success
	}
	return true
}

// On registers handler for server-pushed events of the given type.
// Registrations survive disconnects and reconnects.
func (b *Bridge) On(eventType string, handler EventHandler) {
	b.events.on(eventType, handler)
}

// Off removes a previously registered handler, matched by function
// identity. Passing a nil handler removes every handler for the type.
func (b *Bridge) Off(eventType string, handler EventHandler) {
	b.events.off(eventType, handler)
}
