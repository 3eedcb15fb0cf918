package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/poiesic/parcelsuggest"
	"github.com/poiesic/parcelsuggest/config"
	"github.com/poiesic/parcelsuggest/source"
	"github.com/urfave/cli/v2"
)

var errNoSource = errors.New("no snapshot source configured: set --url, --file or source.url in the config file")

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, path, err := config.LoadWithPriority(c.String("config"))
	if err != nil {
		return nil, err
	}
	if path != "" {
		slog.Debug("loaded config", "path", path)
	}

	var opts []config.ConfigOption
	if c.IsSet("db") {
		opts = append(opts, config.WithStorePath(c.String("db")))
	}
	if c.IsSet("in-memory") {
		opts = append(opts, config.WithInMemory(c.Bool("in-memory")))
	}
	if c.IsSet("url") {
		opts = append(opts, config.WithSourceURL(c.String("url")))
	}
	if c.IsSet("file") {
		opts = append(opts, config.WithSourceFile(c.String("file")))
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if c.IsSet("token") {
		cfg.Source.Token = c.String("token")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newSource picks the HTTP endpoint when one is configured, else the local file.
func newSource(cfg *config.Config) (source.PairingSource, error) {
	switch {
	case cfg.Source.URL != "":
		return source.NewHTTPSource(cfg.Source.URL,
			source.WithHTTPClient(&http.Client{Timeout: cfg.Source.Timeout.Duration}),
			source.WithBearerToken(cfg.Source.Token),
			source.WithRetry(cfg.Source.MaxAttempts, cfg.Source.RetryDelay.Duration),
			source.WithHTTPLogger(slog.Default()),
		)
	case cfg.Source.File != "":
		return source.FileSource{Path: cfg.Source.File}, nil
	default:
		return nil, errNoSource
	}
}

// unconfiguredSource lets cache commands open an engine without a source.
type unconfiguredSource struct{}

func (unconfiguredSource) Fetch(context.Context) ([]byte, error) {
	return nil, errNoSource
}

// openEngine builds an engine from the resolved config. With requireSource
// unset a missing source is tolerated until something fetches.
func openEngine(c *cli.Context, requireSource bool) (*parcelsuggest.Engine, *config.Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}

	src, err := newSource(cfg)
	if errors.Is(err, errNoSource) && !requireSource {
		src, err = unconfiguredSource{}, nil
	}
	if err != nil {
		return nil, nil, err
	}

	engine, err := parcelsuggest.NewEngine(src,
		parcelsuggest.WithConfig(cfg),
		parcelsuggest.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, cfg, nil
}
