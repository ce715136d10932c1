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

	"github.com/swarmgate/swarmgate-go/bridge"
)

// Transaction is a transaction to submit. Value is a decimal string.
type Transaction struct {
	From  string          `json:"from"`
	To    string          `json:"to"`
	Value string          `json:"value,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Nonce *uint64         `json:"nonce,omitempty"`
}

// TransactionInfo is the gateway's view of a submitted transaction.
type TransactionInfo struct {
	Hash        string `json:"hash"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Value       string `json:"value,omitempty"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	Status      string `json:"status,omitempty"`
}

// ChainManager forwards blockchain operations to the gateway, which holds
// the node connection and executes on the caller's behalf.
type ChainManager struct {
	exec bridge.Executor
}

// NewChainManager creates a chain manager on top of exec.
func NewChainManager(exec bridge.Executor) *ChainManager {
	return &ChainManager{exec: exec}
}

// Submit sends a transaction for execution. Finality arrives later through
// block_finalized events.
func (m *ChainManager) Submit(ctx context.Context, tx Transaction) (TransactionInfo, error) {
	return bridge.Call[TransactionInfo](ctx, m.exec, "submit_transaction", tx)
}

// Transaction fetches a transaction by hash.
func (m *ChainManager) Transaction(ctx context.Context, hash string) (TransactionInfo, error) {
	return bridge.Call[TransactionInfo](ctx, m.exec, "get_transaction", hash)
}

// BlockNumber returns the latest finalized block number.
func (m *ChainManager) BlockNumber(ctx context.Context) (uint64, error) {
	return bridge.Call[uint64](ctx, m.exec, "block_number")
}
