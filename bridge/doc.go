// Package bridge multiplexes concurrent command executions over a single
// gateway connection and fans out server-pushed events to registered
// handlers.
//
// Key capabilities:
//
//   - Correlated request/response: every request carries a generated ID
//     that the gateway echoes back, so responses can arrive in any order
//     and still reach the caller that is waiting for them
//   - Per-call timeouts that fail one request without disturbing the
//     connection or other in-flight requests
//   - Server-push events dispatched to handlers in registration order,
//     with panic isolation per handler
//   - Explicit lifecycle: Connect and Disconnect are the only operations
//     that change the connection; the bridge never reconnects by itself
//
// Usage:
//
//	b, err := bridge.New(dialer,
//	    bridge.WithAPIKey("secret"),
//	    bridge.WithDefaultTimeout(10*time.Second))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := b.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Disconnect(context.Background())
//
//	b.On("agent_status", func(data json.RawMessage) {
//	    // inspect data
//	})
//
//	result, err := b.Execute(ctx, "ping")
//
// Typed results are available through the generic helper:
//
//	balance, err := bridge.Call[Balance](ctx, b, "get_balance", "wallet-1")
package bridge
