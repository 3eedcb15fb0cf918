package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/parcelsuggest/config"
	"github.com/poiesic/parcelsuggest/core"
	"github.com/poiesic/parcelsuggest/source"
	"github.com/urfave/cli/v2"
)

func snapshotBuildCommand(c *cli.Context) error {
	ctx := context.Background()

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	useShapefile := c.IsSet("shapefile") || (!c.Bool("oracle") && cfg.Snapshot.Shapefile.Path != "")
	if useShapefile == c.Bool("oracle") {
		return fmt.Errorf("exactly one of --shapefile or --oracle is required")
	}

	tracker := newProgressTracker(c.App.ErrWriter, 0, c.Int("report-interval"))

	var reader source.PairingReader
	if useShapefile {
		reader = shapefileReader(c, cfg.Snapshot.Shapefile, tracker)
	} else {
		oracle, closeDB, err := oracleReader(ctx, c, cfg.Snapshot.Oracle)
		if err != nil {
			return err
		}
		defer closeDB()
		reader = oracle
	}

	tracker.Start()
	pairings, err := reader.ReadPairings(ctx)
	if err != nil {
		return fmt.Errorf("failed to read pairings: %w", err)
	}
	tracker.Update(len(pairings))
	tracker.Finish()

	kept, dropped := core.DedupePairings(pairings)
	payload, err := source.EncodeSnapshot(kept)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	out := c.String("out")
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(out, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Wrote %d pairings to %s (%d bytes, %d dropped) in %s\n",
		len(kept), out, len(payload), dropped, tracker.Elapsed().Round(time.Millisecond))
	return nil
}

func shapefileReader(c *cli.Context, cfg config.ShapefileConfig, tracker *progressTracker) *source.ShapefileReader {
	r := &source.ShapefileReader{
		Path:          cfg.Path,
		IDField:       cfg.IDField,
		AddressFields: cfg.AddressFields,
		Progress:      tracker.Update,
	}
	if c.IsSet("shapefile") {
		r.Path = c.String("shapefile")
	}
	if c.IsSet("id-field") {
		r.IDField = c.String("id-field")
	}
	if c.IsSet("address-field") {
		r.AddressFields = c.StringSlice("address-field")
	}
	return r
}

func oracleReader(ctx context.Context, c *cli.Context, cfg config.OracleConfig) (*source.OracleReader, func(), error) {
	password := cfg.Password
	if password == "" {
		password = os.Getenv("ORACLE_PASSWORD")
	}
	if cfg.Host == "" || cfg.Service == "" || cfg.Username == "" || password == "" {
		return nil, nil, fmt.Errorf("oracle host, service, username and password are required (password may come from ORACLE_PASSWORD)")
	}

	db, err := source.OpenOracle(ctx, source.OracleConfig{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Service:        cfg.Service,
		Username:       cfg.Username,
		Password:       password,
		WalletLocation: cfg.WalletLocation,
	})
	if err != nil {
		return nil, nil, err
	}

	query := cfg.Query
	if c.IsSet("query") {
		query = c.String("query")
	}
	return &source.OracleReader{DB: db, Query: query}, func() { db.Close() }, nil
}
