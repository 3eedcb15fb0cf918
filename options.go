package parcelsuggest

import (
	"log/slog"
	"time"

	"github.com/poiesic/parcelsuggest/config"
	"github.com/poiesic/parcelsuggest/index"
	"github.com/poiesic/parcelsuggest/ingestion"
	"github.com/poiesic/parcelsuggest/source"
	"github.com/poiesic/parcelsuggest/storage"
)

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	storePath       string
	inMemory        bool
	cache           storage.PairingCache
	now             func() time.Time
	logger          *slog.Logger
	indexOptions    []index.Option
	pipelineOptions []ingestion.Option
}

// WithStorePath sets the badger directory for the persistent cache.
func WithStorePath(path string) EngineOption {
	return func(o *engineOptions) {
		o.storePath = path
	}
}

// WithInMemory keeps the cache in memory for the life of the engine.
func WithInMemory() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithCache uses cache instead of opening a badger store. The engine
// initializes and closes it.
func WithCache(cache storage.PairingCache) EngineOption {
	return func(o *engineOptions) {
		o.cache = cache
	}
}

// WithClock overrides the time source for the cache year policy.
func WithClock(now func() time.Time) EngineOption {
	return func(o *engineOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

// WithIndexOptions passes options to every index build.
func WithIndexOptions(opts ...index.Option) EngineOption {
	return func(o *engineOptions) {
		o.indexOptions = append(o.indexOptions, opts...)
	}
}

// WithPipelineOptions passes options to the ingestion pipeline.
func WithPipelineOptions(opts ...ingestion.Option) EngineOption {
	return func(o *engineOptions) {
		o.pipelineOptions = append(o.pipelineOptions, opts...)
	}
}

// WithConfig applies the store, index and decompression settings of cfg.
// An empty store path resolves to config.DefaultStorePath().
func WithConfig(cfg *config.Config) EngineOption {
	return func(o *engineOptions) {
		if cfg == nil {
			return
		}
		o.inMemory = cfg.Store.InMemory
		o.storePath = cfg.Store.Path
		if o.storePath == "" && !o.inMemory {
			if path, err := config.DefaultStorePath(); err == nil {
				o.storePath = path
			}
		}
		o.indexOptions = append(o.indexOptions,
			index.WithShortQueryLimit(cfg.Index.ShortQueryLimit),
			index.WithCandidateLimit(cfg.Index.CandidateLimit),
			index.WithThresholds(cfg.Index.ShortThreshold, cfg.Index.Threshold),
			index.WithMaxQueryLength(cfg.Index.MaxQueryLength),
		)
		o.pipelineOptions = append(o.pipelineOptions,
			ingestion.WithDecompressor(source.GzipDecompressor{MaxSize: cfg.Source.MaxInflatedSize}))
	}
}
