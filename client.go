// Copyright 2025 Swarmgate Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package swarmgate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/swarmgate/swarmgate-go/bridge"
	"github.com/swarmgate/swarmgate-go/config"
	"github.com/swarmgate/swarmgate-go/internal/reliability"
	"github.com/swarmgate/swarmgate-go/transports/websocket"
)

// Client is the main entry point for swarmgate-go. It owns one bridge
// connection to the gateway and exposes the platform domains through
// managers. All manager methods are thin forwards: they package arguments
// into a gateway command and decode the response, nothing more.
type Client struct {
	bridge       *bridge.Bridge
	logger       *slog.Logger
	connectRetry reliability.RetryPolicy

	agents  *AgentManager
	swarms  *SwarmManager
	wallet  *WalletManager
	chain   *ChainManager
	storage *StorageManager
}

// NewClient creates a client from cfg. Without WithDialer the client speaks
// websocket to cfg's gateway URL.
func NewClient(cfg config.Config, options ...ClientOption) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cc := &clientConfig{
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(cc)
	}

	dialer := cc.dialer
	if dialer == nil {
		dialer = &websocket.Dialer{URL: cfg.URL()}
	}

	bridgeOpts := []bridge.Option{
		bridge.WithLogger(cc.logger),
		bridge.WithAPIKey(cfg.APIKey),
		bridge.WithDefaultTimeout(cfg.DefaultTimeout.Std()),
	}
	if cc.breaker != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithCircuitBreaker(cc.breaker))
	}
	if cc.maxPending > 0 {
		bridgeOpts = append(bridgeOpts, bridge.WithMaxPending(cc.maxPending))
	}

	b, err := bridge.New(dialer, bridgeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge: %w", err)
	}

	c := &Client{
		bridge:       b,
		logger:       cc.logger,
		connectRetry: cc.connectRetry,
	}
	c.agents = NewAgentManager(b)
	c.swarms = NewSwarmManager(b)
	c.wallet = NewWalletManager(b)
	c.chain = NewChainManager(b)
	c.storage = NewStorageManager(b)
	return c, nil
}

// NewClientFromFile loads the configuration file at path (environment
// overrides applied) and creates a client from it.
func NewClientFromFile(path string, options ...ClientOption) (*Client, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return NewClient(cfg, options...)
}

// Connect establishes the gateway connection. With a connect retry policy
// configured, failed dials are retried per the policy; an authentication
// rejection is never retried.
func (c *Client) Connect(ctx context.Context) error {
	if c.connectRetry == nil {
		return c.bridge.Connect(ctx)
	}
	return reliability.Retry(ctx, c.connectRetry, func() error {
		return c.bridge.Connect(ctx)
	})
}

// Close disconnects from the gateway and fails all in-flight requests.
func (c *Client) Close() error {
	return c.bridge.Disconnect(context.Background())
}

// Ping issues a gateway round trip.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.bridge.Execute(ctx, "ping")
	return err
}

// Execute forwards an arbitrary command with positional args and returns the
// raw result. Managers cover the platform surface; Execute is the escape
// hatch for commands they do not.
func (c *Client) Execute(ctx context.Context, command string, args ...any) (json.RawMessage, error) {
	return c.bridge.Execute(ctx, command, args...)
}

// ExecuteTimeout is Execute with a per-call timeout.
func (c *Client) ExecuteTimeout(ctx context.Context, timeout time.Duration, command string, args ...any) (json.RawMessage, error) {
	return c.bridge.ExecuteTimeout(ctx, timeout, command, args...)
}

// On registers handler for gateway events of the given type.
func (c *Client) On(eventType string, handler bridge.EventHandler) {
	c.bridge.On(eventType, handler)
}

// Off removes a registered handler. A nil handler clears the whole type.
func (c *Client) Off(eventType string, handler bridge.EventHandler) {
	c.bridge.Off(eventType, handler)
}

// State returns the connection state.
func (c *Client) State() bridge.State {
	return c.bridge.State()
}

// IsConnected reports whether the gateway connection is up.
func (c *Client) IsConnected() bool {
	return c.bridge.IsConnected()
}

// PendingCount returns the number of requests awaiting a response.
func (c *Client) PendingCount() int {
	return c.bridge.PendingCount()
}

// Stats returns a snapshot of the bridge activity counters.
func (c *Client) Stats() bridge.Stats {
	return c.bridge.Stats()
}

// Agents returns the agent lifecycle manager.
func (c *Client) Agents() *AgentManager {
	return c.agents
}

// Swarms returns the swarm orchestration manager.
func (c *Client) Swarms() *SwarmManager {
	return c.swarms
}

// Wallet returns the wallet manager.
func (c *Client) Wallet() *WalletManager {
	return c.wallet
}

// Chain returns the blockchain manager.
func (c *Client) Chain() *ChainManager {
	return c.chain
}

// Storage returns the object storage manager.
func (c *Client) Storage() *StorageManager {
	return c.storage
}

// clientConfig holds client construction options.
type clientConfig struct {
	logger       *slog.Logger
	dialer       bridge.Dialer
	breaker      *reliability.CircuitBreaker
	connectRetry reliability.RetryPolicy
	maxPending   int
}

// ClientOption configures the client.
type ClientOption func(*clientConfig)

// WithLogger sets the logger for all components.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(cc *clientConfig) {
		cc.logger = logger
	}
}

// WithDialer replaces the default websocket transport.
func WithDialer(dialer bridge.Dialer) ClientOption {
	return func(cc *clientConfig) {
		cc.dialer = dialer
	}
}

// WithCircuitBreaker guards command writes with cb.
func WithCircuitBreaker(cb *reliability.CircuitBreaker) ClientOption {
	return func(cc *clientConfig) {
		cc.breaker = cb
	}
}

// WithConnectRetryPolicy makes Connect retry failed dials. The bridge never
// retries or reconnects on its own; this opt-in policy applies to Connect
// calls only.
func WithConnectRetryPolicy(policy reliability.RetryPolicy) ClientOption {
	return func(cc *clientConfig) {
		cc.connectRetry = policy
	}
}

// WithMaxPending caps concurrently pending requests.
func WithMaxPending(max int) ClientOption {
	return func(cc *clientConfig) {
		cc.maxPending = max
	}
}
