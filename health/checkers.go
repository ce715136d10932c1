package health

import (
	"context"
	"fmt"
	"time"
)

// Pinger issues a round trip to the gateway. *swarmgate.Client satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GatewayChecker probes gateway reachability with a ping round trip.
type GatewayChecker struct {
	pinger        Pinger
	degradedAfter time.Duration
}

// NewGatewayChecker creates a gateway checker. Round trips slower than
// degradedAfter report degraded; zero disables the latency verdict.
func NewGatewayChecker(pinger Pinger, degradedAfter time.Duration) *GatewayChecker {
	return &GatewayChecker{
		pinger:        pinger,
		degradedAfter: degradedAfter,
	}
}

func (g *GatewayChecker) Name() string {
	return "gateway"
}

func (g *GatewayChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	err := g.pinger.Ping(ctx)
	elapsed := time.Since(start)

	result := CheckResult{
		Name:      g.Name(),
		Duration:  elapsed,
		Timestamp: time.Now(),
		Details: map[string]any{
			"roundTrip": elapsed.String(),
		},
	}

	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = "gateway unreachable"
		result.Error = err.Error()
		return result
	}

	if g.degradedAfter > 0 && elapsed > g.degradedAfter {
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("gateway round trip %v exceeds %v", elapsed, g.degradedAfter)
		return result
	}

	result.Status = StatusHealthy
	result.Message = "gateway reachable"
	return result
}

// BridgeSource exposes the connection facts the bridge checker needs.
// *bridge.Bridge satisfies it.
type BridgeSource interface {
	IsConnected() bool
	PendingCount() int
}

// BridgeChecker inspects the local connection: disconnected is unhealthy,
// a request backlog over maxBacklog is degraded.
type BridgeChecker struct {
	source     BridgeSource
	maxBacklog int
}

// NewBridgeChecker creates a bridge checker. Zero maxBacklog disables the
// backlog verdict.
func NewBridgeChecker(source BridgeSource, maxBacklog int) *BridgeChecker {
	return &BridgeChecker{
		source:     source,
		maxBacklog: maxBacklog,
	}
}

func (b *BridgeChecker) Name() string {
	return "bridge"
}

func (b *BridgeChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	connected := b.source.IsConnected()
	pending := b.source.PendingCount()

	result := CheckResult{
		Name:      b.Name(),
		Duration:  time.Since(start),
		Timestamp: time.Now(),
		Details: map[string]any{
			"connected": connected,
			"pending":   pending,
		},
	}

	if !connected {
		result.Status = StatusUnhealthy
		result.Message = "bridge disconnected"
		return result
	}

	if b.maxBacklog > 0 && pending > b.maxBacklog {
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("%d pending requests exceed backlog limit %d", pending, b.maxBacklog)
		return result
	}

	result.Status = StatusHealthy
	result.Message = fmt.Sprintf("connected, %d pending", pending)
	return result
}
