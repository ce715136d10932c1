// Package tcp provides a newline-delimited JSON transport over plain TCP
// or unix sockets, for gateways daemonized next to the client.
package tcp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/swarmgate/swarmgate-go/bridge"
)

// DefaultMaxFrameSize bounds one inbound frame.
const DefaultMaxFrameSize = 1 << 20 // 1 MiB

// Dialer opens stream connections to a gateway.
type Dialer struct {
	// Network is "tcp" or "unix". Empty means "tcp".
	Network string
	// Address is the gateway address, e.g. "127.0.0.1:8765" or a socket
	// path for unix networks.
	Address string
	// MaxFrameSize caps one inbound frame in bytes. Zero means
	// DefaultMaxFrameSize.
	MaxFrameSize int
}

// Dial implements bridge.Dialer.
func (d *Dialer) Dial(ctx context.Context) (bridge.Conn, error) {
	if d.Address == "" {
		return nil, fmt.Errorf("address cannot be empty")
	}
	network := d.Network
	if network == "" {
		network = "tcp"
	}

	var nd net.Dialer
	conn, err := nd.DialContext(ctx, network, d.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", d.Address, err)
	}
	return NewConn(conn, d.MaxFrameSize), nil
}

// Conn frames messages as newline-terminated JSON lines over a stream
// connection.
type Conn struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

// NewConn wraps an established stream connection. maxFrameSize bounds one
// inbound line; zero or negative means DefaultMaxFrameSize.
func NewConn(conn net.Conn, maxFrameSize int) *Conn {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	initial := 64 * 1024
	if initial > maxFrameSize {
		initial = maxFrameSize
	}
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, initial), maxFrameSize)
	return &Conn{conn: conn, scanner: scanner}
}

// ReadMessage returns the next non-empty line. Cancelling ctx aborts a
// blocked read by expiring the connection's read deadline.
func (c *Conn) ReadMessage(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	watcherDone := make(chan struct{})
	go func() {
		defer close(watcherDone)
		select {
		case <-ctx.Done():
			c.conn.SetReadDeadline(time.Now())
		case <-stop:
		}
	}()

	line, err := c.readLine()

	close(stop)
	<-watcherDone

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return line, nil
}

func (c *Conn) readLine() ([]byte, error) {
	for c.scanner.Scan() {
		line := c.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		data := make([]byte, len(line))
		copy(data, line)
		return data, nil
	}
	if err := c.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// WriteMessage sends one frame followed by a newline. A ctx deadline is
// applied as the write deadline.
func (c *Conn) WriteMessage(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}

	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, data...)
	buf = append(buf, '\n')
	_, err := c.conn.Write(buf)
	return err
}

// Close closes the underlying connection, unblocking any pending read.
func (c *Conn) Close() error {
	return c.conn.Close()
}
