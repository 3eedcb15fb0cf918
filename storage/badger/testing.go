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


package badger

import (
	"context"
	"time"
)

// NewMemoryPairingCache creates an initialized in-memory badger cache for testing.
// A nil clock means time.Now. Caller must close the cache when done.
func NewMemoryPairingCache(now func() time.Time) (*PairingCache, error) {
	cache := NewPairingCache(WithInMemory(), WithClock(now))
	if err := cache.Init(context.Background()); err != nil {
		return nil, err
	}
	return cache, nil
}
