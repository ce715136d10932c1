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

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// StorageManager forwards object storage operations to the gateway's
// key-value store.
type StorageManager struct {
	exec bridge.Executor
}

// NewStorageManager creates a storage manager on top of exec.
func NewStorageManager(exec bridge.Executor) *StorageManager {
	return &StorageManager{exec: exec}
}

// Put stores value under key, replacing any previous object. Value must be
// JSON-encodable.
func (m *StorageManager) Put(ctx context.Context, key string, value any) (ObjectInfo, error) {
	return bridge.Call[ObjectInfo](ctx, m.exec, "store_object", key, value)
}

// Get fetches the object stored under key as raw JSON.
func (m *StorageManager) Get(ctx context.Context, key string) (json.RawMessage, error) {
	return m.exec.Execute(ctx, "fetch_object", key)
}

// GetInto fetches the object stored under key and decodes it into out.
func (m *StorageManager) GetInto(ctx context.Context, key string, out any) error {
	raw, err := m.Get(ctx, key)
	if err != nil {
		return err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// Delete removes the object stored under key.
func (m *StorageManager) Delete(ctx context.Context, key string) error {
	_, err := m.exec.Execute(ctx, "delete_object", key)
	return err
}

// List returns the objects whose keys start with prefix. An empty prefix
// lists everything.
func (m *StorageManager) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	return bridge.Call[[]ObjectInfo](ctx, m.exec, "list_objects", prefix)
}
