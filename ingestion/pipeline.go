package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/parcelsuggest/core"
	"github.com/poiesic/parcelsuggest/source"
	"github.com/poiesic/parcelsuggest/storage"
)

// Result describes a completed load.
type Result struct {
	Pairings  []core.ParcelPairing
	FromCache bool      // Served from a valid cached snapshot
	Timestamp time.Time // When the served snapshot was written, zero if never cached
	Year      int       // Calendar year the snapshot is valid for
	Dropped   int       // Invalid or duplicate pairings removed during decode
	Err       error     // Set only by LoadAsync
}

// Pipeline orchestrates loading pairings from the cache or the source.
type Pipeline struct {
	cache        storage.PairingCache
	source       source.PairingSource
	decompressor source.Decompressor
	pool         *ants.Pool
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for asynchronous loads.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithDecompressor sets the payload decompressor.
// Default is source.GzipDecompressor with the default size limit.
func WithDecompressor(dec source.Decompressor) Option {
	return func(p *Pipeline) error {
		if dec != nil {
			p.decompressor = dec
		}
		return nil
	}
}

// WithClock sets the time source for the cache year check.
// Default is time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) error {
		if now != nil {
			p.now = now
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new load pipeline. The cache must already be initialized.
func NewPipeline(cache storage.PairingCache, src source.PairingSource, opts ...Option) (*Pipeline, error) {
	if cache == nil {
		return nil, ErrCacheRequired
	}
	if src == nil {
		return nil, ErrSourceRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cache:        cache,
		source:       src,
		decompressor: source.GzipDecompressor{},
		pool:         pool,
		now:          time.Now,
		logger:       slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// Load returns the cached snapshot when it is valid for the current year,
// otherwise fetches, decodes and caches a fresh one.
// Cache failures are logged and treated as a miss.
func (p *Pipeline) Load(ctx context.Context) (*Result, error) {
	if result := p.readCache(ctx); result != nil {
		return result, nil
	}
	return p.fetch(ctx)
}

// Refresh clears the cache and loads a fresh snapshot from the source.
func (p *Pipeline) Refresh(ctx context.Context) (*Result, error) {
	if err := p.cache.Clear(ctx); err != nil {
		p.logger.Warn("error clearing pairing cache", "err", err)
	}
	return p.fetch(ctx)
}

// LoadAsync runs Load on the worker pool and hands the outcome to done.
// done runs on the pool goroutine, so it may do further blocking work.
func (p *Pipeline) LoadAsync(ctx context.Context, done func(Result)) error {
	return p.Submit(func() {
		result, err := p.Load(ctx)
		if err != nil {
			done(Result{Err: err})
			return
		}
		done(*result)
	})
}

// Submit runs work on the pipeline's worker pool.
func (p *Pipeline) Submit(work func()) error {
	return p.pool.Submit(work)
}

// readCache decodes the stored set once and serves it if it is current.
func (p *Pipeline) readCache(ctx context.Context) *Result {
	set, err := p.cache.Read(ctx)
	if err != nil {
		p.logger.Warn("error reading pairing cache", "err", err)
		return nil
	}
	if !set.IsCurrent(p.now()) {
		p.logger.Debug("pairing cache miss")
		return nil
	}

	p.logger.Debug("pairing cache hit", "pairings", len(set.Pairings), "written", set.TimestampISO())
	return &Result{
		Pairings:  set.Pairings,
		FromCache: true,
		Timestamp: set.Timestamp,
		Year:      set.Year,
	}
}

func (p *Pipeline) fetch(ctx context.Context) (*Result, error) {
	start := time.Now()
	payload, err := p.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	pairings, dropped, err := source.DecodeSnapshot(payload, p.decompressor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	if dropped > 0 {
		p.logger.Warn("dropped invalid pairings from snapshot", "dropped", dropped)
	}

	result := &Result{Pairings: pairings, Dropped: dropped, Year: p.now().Year()}
	if set, err := p.cache.Write(ctx, pairings); err != nil {
		p.logger.Warn("error writing pairing cache", "err", err)
	} else if set != nil {
		result.Timestamp = set.Timestamp
		result.Year = set.Year
	}

	p.logger.Info("fetched pairing snapshot",
		"pairings", len(pairings),
		"bytes", len(payload),
		"elapsed", time.Since(start))
	return result, nil
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
