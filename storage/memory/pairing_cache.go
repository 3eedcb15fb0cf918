// Copyright 2025 Poiesic Systems
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


// Package memory provides a process-lifetime storage.PairingCache.
//
// It is the fallback when the durable store cannot be opened: the engine keeps
// working for the session but fetches a fresh snapshot every time it starts.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/poiesic/parcelsuggest/core"
	"github.com/poiesic/parcelsuggest/storage"
)

// PairingCache implements storage.PairingCache in memory.
type PairingCache struct {
	mu          sync.RWMutex
	initialized bool
	set         *core.CachedPairingSet
	now         func() time.Time
}

var _ storage.PairingCache = (*PairingCache)(nil)

// NewPairingCache creates an in-memory cache. A nil clock means time.Now.
func NewPairingCache(now func() time.Time) *PairingCache {
	if now == nil {
		now = time.Now
	}
	return &PairingCache{now: now}
}

func (c *PairingCache) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized = true
	return nil
}

func (c *PairingCache) IsValid(ctx context.Context) (bool, error) {
	set, err := c.Read(ctx)
	if err != nil {
		return false, err
	}
	return set.IsCurrent(c.now()), nil
}

func (c *PairingCache) Read(ctx context.Context) (*core.CachedPairingSet, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.initialized {
		return nil, storage.ErrNotInitialized
	}
	return c.set, nil
}

func (c *PairingCache) Write(ctx context.Context, pairings []core.ParcelPairing) (*core.CachedPairingSet, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return nil, storage.ErrNotInitialized
	}
	c.set = core.NewCachedPairingSet(pairings, c.now())
	return c.set, nil
}

func (c *PairingCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return storage.ErrNotInitialized
	}
	c.set = nil
	return nil
}

func (c *PairingCache) Close() error {
	return nil
}
