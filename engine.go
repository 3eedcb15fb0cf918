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


// Package parcelsuggest is a property search-suggestion engine.
//
// An Engine owns the local pairing cache, the load pipeline and the search
// index built over the current snapshot. Construct one per application and pass
// it to consumers; every suggestion controller created from it shares the same
// read-only index.
package parcelsuggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/poiesic/parcelsuggest/core"
	"github.com/poiesic/parcelsuggest/index"
	"github.com/poiesic/parcelsuggest/ingestion"
	"github.com/poiesic/parcelsuggest/source"
	"github.com/poiesic/parcelsuggest/storage"
	"github.com/poiesic/parcelsuggest/storage/badger"
	"github.com/poiesic/parcelsuggest/storage/memory"
	"github.com/poiesic/parcelsuggest/suggest"
)

// Engine serves suggestions over a cached pairing snapshot.
type Engine struct {
	cache      storage.PairingCache
	persistent bool
	pipeline   *ingestion.Pipeline
	indexOpts  []index.Option
	index      atomic.Pointer[index.Index]
	now        func() time.Time
	logger     *slog.Logger

	mu           sync.Mutex
	loading      bool
	loadErr      error
	fromCache    bool
	snapshotYear int       // Year the installed snapshot is valid for
	retryStale   time.Time // No stale reload is started before this
	listeners    map[int]func()
	nextID       int
	closed       bool
}

// staleRetryDelay spaces out reload attempts for a snapshot from an earlier
// year after one has failed.
const staleRetryDelay = time.Minute

var _ suggest.Backend = (*Engine)(nil)

// CacheStatus describes the persisted snapshot.
type CacheStatus struct {
	Persistent bool // False when running on the in-memory fallback
	Present    bool
	Valid      bool // Present and written this calendar year
	Pairings   int
	Timestamp  time.Time
	Year       int
}

// NewEngine opens the cache and prepares the pipeline. No data is loaded until
// Load or EnsureLoaded is called.
func NewEngine(src source.PairingSource, opts ...EngineOption) (*Engine, error) {
	if src == nil {
		return nil, ErrSourceRequired
	}

	o := &engineOptions{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	// Reject bad index options up front rather than on first load
	if _, err := index.Build(nil, o.indexOptions...); err != nil {
		return nil, err
	}

	cache, persistent, err := openCache(o)
	if err != nil {
		return nil, err
	}

	pipelineOpts := append([]ingestion.Option{ingestion.WithLogger(o.logger), ingestion.WithClock(o.now)}, o.pipelineOptions...)
	pipeline, err := ingestion.NewPipeline(cache, src, pipelineOpts...)
	if err != nil {
		cache.Close()
		return nil, err
	}

	return &Engine{
		cache:      cache,
		persistent: persistent,
		pipeline:   pipeline,
		indexOpts:  append([]index.Option{index.WithLogger(o.logger)}, o.indexOptions...),
		now:        o.now,
		logger:     o.logger,
		listeners:  make(map[int]func()),
	}, nil
}

// openCache initializes the configured cache, falling back to memory when the
// durable store is unavailable.
func openCache(o *engineOptions) (storage.PairingCache, bool, error) {
	ctx := context.Background()

	cache := o.cache
	persistent := !o.inMemory
	if cache == nil {
		bopts := []badger.Option{badger.WithClock(o.now), badger.WithLogger(o.logger)}
		if o.inMemory {
			bopts = append(bopts, badger.WithInMemory())
		} else {
			bopts = append(bopts, badger.WithPath(o.storePath))
		}
		cache = badger.NewPairingCache(bopts...)
	}

	err := cache.Init(ctx)
	if err == nil {
		return cache, persistent, nil
	}
	if !errors.Is(err, storage.ErrStorageUnavailable) {
		return nil, false, err
	}

	o.logger.Warn("pairing cache unavailable, snapshots will not persist", "err", err)
	fallback := memory.NewPairingCache(o.now)
	if err := fallback.Init(ctx); err != nil {
		return nil, false, err
	}
	return fallback, false, nil
}

// Load loads the snapshot synchronously from the cache or the source and
// rebuilds the index if the snapshot changed.
func (e *Engine) Load(ctx context.Context) error {
	if !e.beginLoad(true) {
		return ErrEngineClosed
	}
	result, err := e.pipeline.Load(ctx)
	return e.finishLoad(result, err)
}

// Refresh discards the cached snapshot and fetches a fresh one.
// On failure the previous index, if any, stays in service.
func (e *Engine) Refresh(ctx context.Context) error {
	if !e.beginLoad(true) {
		return ErrEngineClosed
	}
	result, err := e.pipeline.Refresh(ctx)
	return e.finishLoad(result, err)
}

// EnsureLoaded starts a background load when no index is available, or when
// the installed snapshot belongs to an earlier calendar year, and no load is
// running. The current index keeps serving until the reload finishes. It
// returns immediately.
func (e *Engine) EnsureLoaded() {
	if e.index.Load() != nil && !e.stale() {
		return
	}
	if !e.beginLoad(false) {
		return
	}

	err := e.pipeline.LoadAsync(context.Background(), func(r ingestion.Result) {
		if r.Err != nil {
			e.finishLoad(nil, r.Err)
			return
		}
		e.finishLoad(&r, nil)
	})
	if err != nil {
		e.finishLoad(nil, err)
	}
}

// stale reports whether the installed snapshot is from another year and a
// reload may be attempted now.
func (e *Engine) stale() bool {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotYear != now.Year() && !now.Before(e.retryStale)
}

// beginLoad marks a load as running. Unless force is set it refuses when a
// load is already running.
func (e *Engine) beginLoad(force bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || (e.loading && !force) {
		return false
	}
	e.loading = true
	return true
}

func (e *Engine) finishLoad(result *ingestion.Result, err error) error {
	if err == nil {
		e.install(result.Pairings)
	}

	e.mu.Lock()
	e.loading = false
	switch {
	case err == nil:
		e.loadErr = nil
		e.fromCache = result.FromCache
		e.snapshotYear = result.Year
		if e.snapshotYear == 0 {
			e.snapshotYear = e.now().Year()
		}
		e.retryStale = time.Time{}
	case e.index.Load() == nil:
		e.loadErr = err
	default:
		e.retryStale = e.now().Add(staleRetryDelay)
	}
	listeners := make([]func(), 0, len(e.listeners))
	for _, fn := range e.listeners {
		listeners = append(listeners, fn)
	}
	e.mu.Unlock()

	if err != nil {
		e.logger.Error("error loading pairings", "err", err)
	}
	for _, fn := range listeners {
		fn()
	}
	return err
}

// install swaps in an index for pairings unless the current one was built
// from an identical snapshot.
func (e *Engine) install(pairings []core.ParcelPairing) {
	fp := core.FingerprintPairings(pairings)
	if current := e.index.Load(); current != nil && current.Fingerprint() == fp {
		e.logger.Debug("snapshot unchanged, keeping index", "pairings", current.Len())
		return
	}

	start := time.Now()
	ix, err := index.Build(pairings, e.indexOpts...)
	if err != nil {
		// Options were validated in NewEngine.
		e.logger.Error("error building index", "err", err)
		return
	}
	e.index.Store(ix)
	e.logger.Info("index built", "pairings", ix.Len(), "elapsed", time.Since(start))
}

// Search answers a query from the current index. Before the first successful
// load it returns no suggestions.
func (e *Engine) Search(query string) []core.Suggestion {
	ix := e.index.Load()
	if ix == nil {
		return []core.Suggestion{}
	}
	return ix.Search(query)
}

// SearchWithMonitor is Search with a monitor observing each stage.
func (e *Engine) SearchWithMonitor(query string, monitor index.SearchMonitor) []core.Suggestion {
	ix := e.index.Load()
	if ix == nil {
		return []core.Suggestion{}
	}
	return ix.SearchWithMonitor(query, monitor)
}

// SearchWithThreshold overrides the approximate score cut-off for one query.
func (e *Engine) SearchWithThreshold(query string, threshold float64) []core.Suggestion {
	ix := e.index.Load()
	if ix == nil {
		return []core.Suggestion{}
	}
	return ix.SearchWithThreshold(query, threshold)
}

// IsLoading reports whether a load is running.
func (e *Engine) IsLoading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// Err returns the last load failure while no data is available.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadErr
}

// OnReady registers fn to run after every load attempt, successful or not.
func (e *Engine) OnReady(fn func()) (cancel func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.listeners, id)
			e.mu.Unlock()
		})
	}
}

// Pairings returns the snapshot behind the current index, or nil.
func (e *Engine) Pairings() []core.ParcelPairing {
	if ix := e.index.Load(); ix != nil {
		return ix.Pairings()
	}
	return nil
}

// FromCache reports whether the current snapshot was served from the cache.
func (e *Engine) FromCache() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fromCache
}

// NewController creates a suggestion controller backed by this engine.
func (e *Engine) NewController(opts ...suggest.Option) (*suggest.Controller, error) {
	return suggest.NewController(e, append([]suggest.Option{suggest.WithLogger(e.logger)}, opts...)...)
}

// CacheStatus reports on the persisted snapshot.
func (e *Engine) CacheStatus(ctx context.Context) (CacheStatus, error) {
	status := CacheStatus{Persistent: e.persistent}
	set, err := e.cache.Read(ctx)
	if err != nil {
		return status, err
	}
	if set == nil {
		return status, nil
	}
	valid, err := e.cache.IsValid(ctx)
	if err != nil {
		return status, err
	}
	status.Present = true
	status.Valid = valid
	status.Pairings = len(set.Pairings)
	status.Timestamp = set.Timestamp
	status.Year = set.Year
	return status, nil
}

// ClearCache deletes the persisted snapshot. The current index stays in service.
func (e *Engine) ClearCache(ctx context.Context) error {
	return e.cache.Clear(ctx)
}

// Close releases the pipeline and closes the cache.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.listeners = map[int]func(){}
	e.mu.Unlock()

	e.pipeline.Release()
	if err := e.cache.Close(); err != nil {
		e.logger.Error("error closing pairing cache", "err", err)
		return fmt.Errorf("close cache: %w", err)
	}
	return nil
}
