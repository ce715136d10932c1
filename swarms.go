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

// SwarmSpec describes a swarm to create.
type SwarmSpec struct {
	Name     string         `json:"name"`
	AgentIDs []string       `json:"agent_ids,omitempty"`
	Topology string         `json:"topology,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Swarm is the gateway's record of an agent swarm.
type Swarm struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	AgentIDs  []string       `json:"agent_ids,omitempty"`
	Topology  string         `json:"topology,omitempty"`
	Status    string         `json:"status,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
}

// SwarmRun is the gateway's handle on one swarm task execution.
type SwarmRun struct {
	RunID   string `json:"run_id"`
	SwarmID string `json:"swarm_id,omitempty"`
	Status  string `json:"status"`
}

// SwarmStatus is a point-in-time view of a running swarm.
type SwarmStatus struct {
	SwarmID      string          `json:"swarm_id"`
	Status       string          `json:"status"`
	Progress     float64         `json:"progress,omitempty"`
	ActiveAgents int             `json:"active_agents,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`
}

// OptimizationResult reports the outcome of a remote topology optimization.
type OptimizationResult struct {
	SwarmID   string  `json:"swarm_id"`
	Objective string  `json:"objective,omitempty"`
	Topology  string  `json:"topology,omitempty"`
	Score     float64 `json:"score,omitempty"`
}

// SwarmManager orchestrates multi-agent swarms. The scheduling and
// optimization math runs on the gateway; these methods only forward.
type SwarmManager struct {
	exec bridge.Executor
}

// NewSwarmManager creates a swarm manager on top of exec.
func NewSwarmManager(exec bridge.Executor) *SwarmManager {
	return &SwarmManager{exec: exec}
}

// Create assembles a new swarm from existing agents.
func (m *SwarmManager) Create(ctx context.Context, spec SwarmSpec) (Swarm, error) {
	return bridge.Call[Swarm](ctx, m.exec, "create_swarm", spec)
}

// Get fetches one swarm by ID.
func (m *SwarmManager) Get(ctx context.Context, id string) (Swarm, error) {
	return bridge.Call[Swarm](ctx, m.exec, "get_swarm", id)
}

// List returns all swarms visible to the caller.
func (m *SwarmManager) List(ctx context.Context) ([]Swarm, error) {
	return bridge.Call[[]Swarm](ctx, m.exec, "list_swarms")
}

// Delete disbands a swarm. Its agents survive.
func (m *SwarmManager) Delete(ctx context.Context, id string) error {
	_, err := m.exec.Execute(ctx, "delete_swarm", id)
	return err
}

// Run hands the swarm a task. Progress arrives through swarm_progress
// events carrying the returned run ID.
func (m *SwarmManager) Run(ctx context.Context, id string, task string) (SwarmRun, error) {
	return bridge.Call[SwarmRun](ctx, m.exec, "run_swarm", id, task)
}

// Status reports the current state of a swarm and its active run.
func (m *SwarmManager) Status(ctx context.Context, id string) (SwarmStatus, error) {
	return bridge.Call[SwarmStatus](ctx, m.exec, "swarm_status", id)
}

// Stop aborts the swarm's active run.
func (m *SwarmManager) Stop(ctx context.Context, id string) error {
	_, err := m.exec.Execute(ctx, "stop_swarm", id)
	return err
}

// Optimize asks the gateway to rework the swarm topology toward objective.
func (m *SwarmManager) Optimize(ctx context.Context, id string, objective string) (OptimizationResult, error) {
	return bridge.Call[OptimizationResult](ctx, m.exec, "optimize_swarm", id, objective)
}
