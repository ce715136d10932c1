// Package websocket provides the default gateway transport. Each frame
// travels as one websocket text message.
package websocket

import (
	"context"
	"fmt"
	"io"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/swarmgate/swarmgate-go/bridge"
)

// DefaultReadLimit bounds a single inbound frame.
const DefaultReadLimit = 1 << 20 // 1 MiB

// Dialer opens websocket connections to a gateway endpoint.
type Dialer struct {
	// URL is the gateway endpoint, e.g. "ws://gateway:8765/ws".
	URL string
	// Header is sent with the opening handshake.
	Header http.Header
	// ReadLimit caps one inbound frame in bytes. Zero means
	// DefaultReadLimit.
	ReadLimit int64
	// HTTPClient overrides the client used for the handshake.
	HTTPClient *http.Client
}

// Dial implements bridge.Dialer.
func (d *Dialer) Dial(ctx context.Context) (bridge.Conn, error) {
	if d.URL == "" {
		return nil, fmt.Errorf("websocket URL cannot be empty")
	}

	conn, _, err := ws.Dial(ctx, d.URL, &ws.DialOptions{
		HTTPHeader: d.Header,
		HTTPClient: d.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", d.URL, err)
	}

	limit := d.ReadLimit
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	conn.SetReadLimit(limit)

	return &Conn{conn: conn}, nil
}

// Conn adapts a websocket connection to the bridge transport interface.
type Conn struct {
	conn *ws.Conn
}

// ReadMessage returns the next frame. A normal or going-away closure
// surfaces as io.EOF.
func (c *Conn) ReadMessage(ctx context.Context) ([]byte, error) {
	_, data, err := c.conn.Read(ctx)
	if err != nil {
		switch ws.CloseStatus(err) {
		case ws.StatusNormalClosure, ws.StatusGoingAway:
			return nil, io.EOF
		}
		return nil, err
	}
	return data, nil
}

// WriteMessage sends one frame as a text message.
func (c *Conn) WriteMessage(ctx context.Context, data []byte) error {
	return c.conn.Write(ctx, ws.MessageText, data)
}

// Close performs the closing handshake.
func (c *Conn) Close() error {
	return c.conn.Close(ws.StatusNormalClosure, "")
}
