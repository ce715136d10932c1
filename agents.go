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
	"time"

	"github.com/swarmgate/swarmgate-go/bridge"
)

// AgentSpec describes an agent to create.
type AgentSpec struct {
	Name         string         `json:"name"`
	Model        string         `json:"model,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
	Tools        []string       `json:"tools,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Agent is the gateway's record of a deployed agent.
type Agent struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Model        string         `json:"model,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
	Tools        []string       `json:"tools,omitempty"`
	Status       string         `json:"status,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"created_at,omitempty"`
}

// AgentUpdate carries the fields to change; zero fields are left untouched
// by the gateway.
type AgentUpdate struct {
	Name         string         `json:"name,omitempty"`
	Model        string         `json:"model,omitempty"`
	Instructions string         `json:"instructions,omitempty"`
	Tools        []string       `json:"tools,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// AgentRun is the gateway's handle on one task execution.
type AgentRun struct {
	RunID   string          `json:"run_id"`
	AgentID string          `json:"agent_id,omitempty"`
	Status  string          `json:"status"`
	Output  json.RawMessage `json:"output,omitempty"`
}

// AgentManager drives the agent lifecycle. All methods forward to gateway
// commands; agent reasoning runs remotely.
type AgentManager struct {
	exec bridge.Executor
}

// NewAgentManager creates an agent manager on top of exec.
func NewAgentManager(exec bridge.Executor) *AgentManager {
	return &AgentManager{exec: exec}
}

// Create deploys a new agent.
func (m *AgentManager) Create(ctx context.Context, spec AgentSpec) (Agent, error) {
	return bridge.Call[Agent](ctx, m.exec, "create_agent", spec)
}

// Get fetches one agent by ID.
func (m *AgentManager) Get(ctx context.Context, id string) (Agent, error) {
	return bridge.Call[Agent](ctx, m.exec, "get_agent", id)
}

// List returns all agents visible to the caller.
func (m *AgentManager) List(ctx context.Context) ([]Agent, error) {
	return bridge.Call[[]Agent](ctx, m.exec, "list_agents")
}

// Update changes an existing agent and returns its new record.
func (m *AgentManager) Update(ctx context.Context, id string, update AgentUpdate) (Agent, error) {
	return bridge.Call[Agent](ctx, m.exec, "update_agent", id, update)
}

// Delete removes an agent.
func (m *AgentManager) Delete(ctx context.Context, id string) error {
	_, err := m.exec.Execute(ctx, "delete_agent", id)
	return err
}

// Run hands the agent a task. Progress arrives through agent_status and
// agent_log events carrying the returned run ID.
func (m *AgentManager) Run(ctx context.Context, id string, task string) (AgentRun, error) {
	return bridge.Call[AgentRun](ctx, m.exec, "run_agent", id, task)
}
