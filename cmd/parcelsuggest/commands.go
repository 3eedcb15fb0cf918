package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/poiesic/parcelsuggest"
	"github.com/poiesic/parcelsuggest/config"
	"github.com/poiesic/parcelsuggest/core"
	"github.com/poiesic/parcelsuggest/index"
	"github.com/poiesic/parcelsuggest/server"
	"github.com/poiesic/parcelsuggest/suggest"
	"github.com/urfave/cli/v2"
)

func fetchCommand(c *cli.Context) error {
	ctx := context.Background()

	engine, _, err := openEngine(c, true)
	if err != nil {
		return err
	}
	defer engine.Close()

	if c.Bool("refresh") {
		err = engine.Refresh(ctx)
	} else {
		err = engine.Load(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to load pairings: %w", err)
	}

	origin := "source"
	if engine.FromCache() {
		origin = "cache"
	}
	fmt.Fprintf(c.App.Writer, "Loaded %d pairings from %s\n", len(engine.Pairings()), origin)

	status, err := engine.CacheStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cache status: %w", err)
	}
	printCacheStatus(c.App.Writer, status)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query is required")
	}
	threshold := c.Float64("threshold")
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("threshold must be between 0 and 1")
	}

	engine, _, err := openEngine(c, true)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.Load(context.Background()); err != nil {
		return fmt.Errorf("failed to load pairings: %w", err)
	}

	var results []core.Suggestion
	switch {
	case c.Bool("explain"):
		results = engine.SearchWithMonitor(query, &explainMonitor{w: c.App.ErrWriter})
	case threshold > 0:
		results = engine.SearchWithThreshold(query, threshold)
	default:
		results = engine.Search(query)
	}

	return printSuggestions(c.App.Writer, results, c.Bool("json"))
}

func printSuggestions(w io.Writer, results []core.Suggestion, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "No suggestions")
		return nil
	}
	for _, s := range results {
		fmt.Fprintf(w, "%s\t%s\n", s.ParcelID, s.FullAddress)
	}
	return nil
}

// explainMonitor prints each search stage.
type explainMonitor struct {
	w     io.Writer
	start time.Time
}

var _ index.SearchMonitor = (*explainMonitor)(nil)

func (m *explainMonitor) Start(query string, tier index.Tier) {
	m.start = time.Now()
	fmt.Fprintf(m.w, "query %q normalized, tier %s\n", query, tier)
}

func (m *explainMonitor) Candidate(p core.ParcelPairing, score float64, kept bool) {
	mark := "drop"
	if kept {
		mark = "keep"
	}
	fmt.Fprintf(m.w, "  %s %.3f %s %s\n", mark, score, p.ParcelID, p.FullAddress)
}

func (m *explainMonitor) AfterTier(tier index.Tier, count int) {
	fmt.Fprintf(m.w, "%s tier matched %d\n", tier, count)
}

func (m *explainMonitor) AfterExactPromotion(promoted int) {
	fmt.Fprintf(m.w, "exact matches promoted: %d\n", promoted)
}

func (m *explainMonitor) Finish(results []core.Suggestion) {
	fmt.Fprintf(m.w, "%d suggestions in %s\n", len(results), time.Since(m.start).Round(time.Microsecond))
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine, cfg, err := openEngine(c, true)
	if err != nil {
		return err
	}
	defer engine.Close()

	srv, err := server.NewServer(engine, os.Stdin, os.Stdout,
		server.WithControllerOptions(controllerOptions(cfg, cfg.Suggest.Mobile)...),
		server.WithLogger(slog.Default()),
	)
	if err != nil {
		return err
	}

	engine.EnsureLoaded()
	return srv.Serve(ctx)
}

// controllerOptions maps the suggest config onto controller options.
func controllerOptions(cfg *config.Config, mobile bool) []suggest.Option {
	return []suggest.Option{
		suggest.WithDebounce(cfg.Suggest.Debounce.Duration),
		suggest.WithMinQueryLength(cfg.Suggest.MinQueryLength),
		suggest.WithMobile(mobile),
	}
}

func cacheStatusCommand(c *cli.Context) error {
	engine, _, err := openEngine(c, false)
	if err != nil {
		return err
	}
	defer engine.Close()

	status, err := engine.CacheStatus(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read cache status: %w", err)
	}
	printCacheStatus(c.App.Writer, status)
	return nil
}

func cacheClearCommand(c *cli.Context) error {
	engine, _, err := openEngine(c, false)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.ClearCache(context.Background()); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	fmt.Fprintln(c.App.Writer, "Cache cleared")
	return nil
}

func printCacheStatus(w io.Writer, status parcelsuggest.CacheStatus) {
	if !status.Persistent {
		fmt.Fprintln(w, "Cache: in memory (not persisted)")
	}
	if !status.Present {
		fmt.Fprintln(w, "Cache: empty")
		return
	}
	validity := "valid"
	if !status.Valid {
		validity = "expired"
	}
	fmt.Fprintf(w, "Cache: %d pairings written %s for %d (%s)\n",
		status.Pairings, status.Timestamp.Format(time.RFC3339), status.Year, validity)
}
