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
	"time"

	"github.com/swarmgate/swarmgate-go/bridge"
)

// Balance is an account balance. Amounts are decimal strings; the gateway
// owns the arithmetic.
type Balance struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
	Token   string `json:"token,omitempty"`
}

// TransferReceipt acknowledges a submitted transfer.
type TransferReceipt struct {
	TxHash string `json:"tx_hash"`
	Status string `json:"status,omitempty"`
}

// TransferRecord is one historical transfer.
type TransferRecord struct {
	TxHash    string    `json:"tx_hash"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Amount    string    `json:"amount"`
	Token     string    `json:"token,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// WalletManager forwards wallet operations to the gateway. Keys and signing
// never leave the platform.
type WalletManager struct {
	exec bridge.Executor
}

// NewWalletManager creates a wallet manager on top of exec.
func NewWalletManager(exec bridge.Executor) *WalletManager {
	return &WalletManager{exec: exec}
}

// Balance returns the current balance of address.
func (m *WalletManager) Balance(ctx context.Context, address string) (Balance, error) {
	return bridge.Call[Balance](ctx, m.exec, "get_balance", address)
}

// Transfer moves amount from one address to another. Amount is a decimal
// string.
func (m *WalletManager) Transfer(ctx context.Context, from, to, amount string) (TransferReceipt, error) {
	return bridge.Call[TransferReceipt](ctx, m.exec, "transfer", from, to, amount)
}

// History returns up to limit past transfers involving address, newest
// first. A non-positive limit leaves the page size to the gateway.
func (m *WalletManager) History(ctx context.Context, address string, limit int) ([]TransferRecord, error) {
	return bridge.Call[[]TransferRecord](ctx, m.exec, "transfer_history", address, limit)
}
