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
	"encoding/json"
	"time"

	"github.com/swarmgate/swarmgate-go/bridge"
)

// Event types pushed by the gateway.
const (
	EventAgentStatus    = "agent_status"
	EventAgentLog       = "agent_log"
	EventSwarmProgress  = "swarm_progress"
	EventBlockFinalized = "block_finalized"
	EventBalanceChanged = "balance_changed"
)

// AgentStatusEvent reports an agent lifecycle transition.
type AgentStatusEvent struct {
	AgentID string `json:"agent_id"`
	RunID   string `json:"run_id,omitempty"`
	Status  string `json:"status"`
}

// AgentLogEvent carries one log line emitted by a running agent.
type AgentLogEvent struct {
	AgentID   string    `json:"agent_id"`
	RunID     string    `json:"run_id,omitempty"`
	Level     string    `json:"level,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// SwarmProgressEvent reports progress of a swarm run.
type SwarmProgressEvent struct {
	SwarmID  string  `json:"swarm_id"`
	RunID    string  `json:"run_id,omitempty"`
	Stage    string  `json:"stage,omitempty"`
	Progress float64 `json:"progress"`
}

// BlockFinalizedEvent announces a newly finalized block.
type BlockFinalizedEvent struct {
	Number uint64 `json:"number"`
	Hash   string `json:"hash,omitempty"`
}

// BalanceChangedEvent reports a balance movement on a watched address.
type BalanceChangedEvent struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
	Token   string `json:"token,omitempty"`
}

// OnEvent registers a typed handler for eventType and returns the underlying
// raw handler, which is the value to pass to Off when unregistering.
// Payloads that fail to decode into T are logged and skipped.
func OnEvent[T any](c *Client, eventType string, handler func(T)) bridge.EventHandler {
	raw := func(data json.RawMessage) {
		var payload T
		if err := json.Unmarshal(data, &payload); err != nil {
			c.logger.Warn("failed to decode event payload",
				"event", eventType,
				"error", err)
			return
		}
		handler(payload)
	}
	c.bridge.On(eventType, raw)
	return raw
}
