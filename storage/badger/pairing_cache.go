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
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/parcelsuggest/core"
	"github.com/poiesic/parcelsuggest/storage"
)

// PairingCache implements storage.PairingCache on top of BadgerDB.
type PairingCache struct {
	path     string
	inMemory bool
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.RWMutex
	backend *Backend
	owned   bool // backend was opened by Init and is closed by Close
}

var _ storage.PairingCache = (*PairingCache)(nil)

// Option configures a PairingCache.
type Option func(*PairingCache)

// WithPath sets the database directory. Ignored for in-memory caches.
func WithPath(path string) Option {
	return func(c *PairingCache) {
		c.path = path
	}
}

// WithInMemory keeps the store in memory only.
func WithInMemory() Option {
	return func(c *PairingCache) {
		c.inMemory = true
	}
}

// WithBackend reuses an already open backend. The cache will not close it.
func WithBackend(backend *Backend) Option {
	return func(c *PairingCache) {
		c.backend = backend
	}
}

// WithClock overrides the time source used for stamping and year checks.
func WithClock(now func() time.Time) Option {
	return func(c *PairingCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *PairingCache) {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
	}
}

// NewPairingCache creates a cache. No I/O happens until Init.
func NewPairingCache(opts ...Option) *PairingCache {
	c := &PairingCache{
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Init opens the badger store. Calling Init on an initialized cache is a no-op.
func (c *PairingCache) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backend != nil {
		if c.backend.IsClosed() {
			return storage.ErrStorageClosed
		}
		return nil
	}
	if !c.inMemory && c.path == "" {
		return fmt.Errorf("%w: no database path configured", storage.ErrStorageUnavailable)
	}

	backend, err := OpenBackend(c.path, c.inMemory, c.logger)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrStorageUnavailable, err)
	}
	c.backend = backend
	c.owned = true
	c.logger.Debug("pairing cache opened", "path", c.path, "inMemory", c.inMemory)
	return nil
}

// IsValid reports whether a record exists for the current calendar year.
func (c *PairingCache) IsValid(ctx context.Context) (bool, error) {
	set, err := c.Read(ctx)
	if err != nil {
		return false, err
	}
	return set.IsCurrent(c.now()), nil
}

// Read returns the stored set, or nil, nil if none exists.
// A record that cannot be decoded is reported as absent and logged.
func (c *PairingCache) Read(ctx context.Context) (*core.CachedPairingSet, error) {
	backend, err := c.acquire()
	if err != nil {
		return nil, err
	}

	var set *core.CachedPairingSet
	err = backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(currentPairingSetKey)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			set, unmarshalErr = storage.UnmarshalPairingSet(val)
			return unmarshalErr
		})
	}, false)

	if errors.Is(err, storage.ErrSerializationFailed) || errors.Is(err, storage.ErrUnsupportedVersion) {
		c.logger.Warn("discarding unreadable pairing set", "err", err)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return set, nil
}

// Write replaces the stored record in a single transaction.
func (c *PairingCache) Write(ctx context.Context, pairings []core.ParcelPairing) (*core.CachedPairingSet, error) {
	backend, err := c.acquire()
	if err != nil {
		return nil, err
	}

	set := core.NewCachedPairingSet(pairings, c.now())
	value := storage.MarshalPairingSet(set)
	err = backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(currentPairingSetKey, value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("pairing set written", "pairings", len(pairings), "year", set.Year, "bytes", len(value))
	return set, nil
}

// Clear deletes the stored record.
func (c *PairingCache) Clear(ctx context.Context) error {
	backend, err := c.acquire()
	if err != nil {
		return err
	}

	return backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(currentPairingSetKey); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Close closes the backend if Init opened it.
func (c *PairingCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.backend == nil || !c.owned || c.backend.IsClosed() {
		return nil
	}
	return c.backend.Close()
}

func (c *PairingCache) acquire() (*Backend, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.backend == nil {
		return nil, storage.ErrNotInitialized
	}
	if c.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}
	return c.backend, nil
}
