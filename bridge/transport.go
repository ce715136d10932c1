package bridge

import "context"

// Conn is one established message connection to a gateway. Implementations
// preserve frame boundaries: one ReadMessage returns exactly one frame as
// written by the peer, and one WriteMessage sends exactly one frame.
//
// The bridge reads from a single goroutine and serializes writes itself, so
// implementations need not support concurrent calls to the same method.
// Close must unblock any in-flight ReadMessage.
type Conn interface {
	ReadMessage(ctx context.Context) ([]byte, error)
	WriteMessage(ctx context.Context, data []byte) error
	Close() error
}

// Dialer opens connections to a gateway. Dial is invoked once per Connect;
// the bridge never redials on its own.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a plain function to the Dialer interface.
type DialerFunc func(ctx context.Context) (Conn, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context) (Conn, error) {
	return f(ctx)
}
