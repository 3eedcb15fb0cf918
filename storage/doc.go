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


// Package storage provides the persistence abstraction for the pairing snapshot.
//
// The engine keeps exactly one record: the full set of parcel/address pairings
// plus the time and calendar year it was written. The record is valid only while
// its year matches the current year, so the first lookup after January 1 always
// forces a fresh fetch no matter how recently the snapshot was taken.
//
// # Backends
//
//   - badger: durable local store (one directory per user profile)
//   - memory: process-lifetime store, used when the durable store is unavailable
//
// # Usage
//
//	cache := badger.NewPairingCache(badger.WithPath("/path/to/cache"))
//	if err := cache.Init(ctx); err != nil {
//	    if errors.Is(err, storage.ErrStorageUnavailable) {
//	        cache = memory.NewPairingCache()
//	        _ = cache.Init(ctx)
//	    }
//	}
//	defer cache.Close()
//
// # Thread Safety
//
// All cache implementations are safe for concurrent use.
//
// # Context Support
//
// All cache methods accept context.Context. Pass context.Background() for
// operations without specific timeout requirements.
package storage
