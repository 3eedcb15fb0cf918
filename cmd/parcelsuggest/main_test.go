package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/parcelsuggest/core"
	"github.com/poiesic/parcelsuggest/source"
	"github.com/poiesic/parcelsuggest/suggest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

var testPairings = []core.ParcelPairing{
	{ParcelID: "100", FullAddress: "100 Main St"},
	{ParcelID: "200", FullAddress: "200 Main St"},
	{ParcelID: "300", FullAddress: "300 Elm Ave"},
}

// writeFixtures writes a snapshot payload and an empty config file.
func writeFixtures(t *testing.T) (payloadPath, configPath string) {
	t.Helper()
	dir := t.TempDir()

	payload, err := source.EncodeSnapshot(testPairings)
	require.NoError(t, err)
	payloadPath = filepath.Join(dir, "snapshot.b64")
	require.NoError(t, os.WriteFile(payloadPath, payload, 0o644))

	configPath = filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(configPath, nil, 0o644))
	return payloadPath, configPath
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"parcelsuggest"}, args...))
	return out.String(), err
}

func TestSetupLogger(t *testing.T) {
	newTestApp := func() *cli.App {
		return &cli.App{
			Name: "test",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "log-level",
					Aliases: []string{"l"},
					Value:   "info",
				},
			},
			Before: setupLogger,
			Action: func(c *cli.Context) error {
				return nil
			},
		}
	}

	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error"} {
			t.Run(level, func(t *testing.T) {
				require.NoError(t, newTestApp().Run([]string{"test", "--log-level", level}))
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, level := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(level, func(t *testing.T) {
				require.NoError(t, newTestApp().Run([]string{"test", "-l", level}))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newTestApp().Run([]string{"test", "--log-level", "invalid"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestAppCommands(t *testing.T) {
	app := newApp()
	names := make([]string, 0, len(app.Commands))
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.ElementsMatch(t, []string{"fetch", "search", "interactive", "serve", "cache", "snapshot"}, names)
}

func TestSearchCommand(t *testing.T) {
	payload, cfg := writeFixtures(t)

	t.Run("text output", func(t *testing.T) {
		out, err := runApp(t, "--config", cfg, "--in-memory", "--file", payload, "search", "main")
		require.NoError(t, err)
		assert.Contains(t, out, "100\t100 Main St")
		assert.Contains(t, out, "200\t200 Main St")
		assert.NotContains(t, out, "Elm")
	})

	t.Run("json output", func(t *testing.T) {
		out, err := runApp(t, "--config", cfg, "--in-memory", "--file", payload, "search", "--json", "300")
		require.NoError(t, err)

		var results []core.Suggestion
		require.NoError(t, json.Unmarshal([]byte(out), &results))
		require.NotEmpty(t, results)
		assert.Equal(t, core.Suggestion{ParcelID: "300", FullAddress: "300 Elm Ave"}, results[0])
	})

	t.Run("explain traces to stderr", func(t *testing.T) {
		var out, errOut bytes.Buffer
		app := newApp()
		app.Writer = &out
		app.ErrWriter = &errOut
		err := app.Run([]string{"parcelsuggest", "--config", cfg, "--in-memory", "--file", payload, "search", "--explain", "elm"})
		require.NoError(t, err)
		assert.Contains(t, errOut.String(), "tier approximate")
		assert.Contains(t, out.String(), "300 Elm Ave")
	})

	t.Run("query is required", func(t *testing.T) {
		_, err := runApp(t, "--config", cfg, "--in-memory", "--file", payload, "search")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query is required")
	})

	t.Run("source is required", func(t *testing.T) {
		_, err := runApp(t, "--config", cfg, "--in-memory", "search", "main")
		require.ErrorIs(t, err, errNoSource)
	})
}

func TestFetchAndCacheCommands(t *testing.T) {
	payload, cfg := writeFixtures(t)
	db := filepath.Join(t.TempDir(), "db")

	out, err := runApp(t, "--config", cfg, "--db", db, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache: empty")

	out, err = runApp(t, "--config", cfg, "--db", db, "--file", payload, "fetch")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 3 pairings from source")
	assert.Contains(t, out, "Cache: 3 pairings")
	assert.Contains(t, out, "(valid)")

	out, err = runApp(t, "--config", cfg, "--db", db, "--file", payload, "fetch")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 3 pairings from cache")

	out, err = runApp(t, "--config", cfg, "--db", db, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache cleared")

	out, err = runApp(t, "--config", cfg, "--db", db, "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Cache: empty")
}

func TestSnapshotBuildRequiresOneInput(t *testing.T) {
	_, cfg := writeFixtures(t)
	out := filepath.Join(t.TempDir(), "out.b64")

	_, err := runApp(t, "--config", cfg, "snapshot", "build", "--out", out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of --shapefile or --oracle")

	_, err = runApp(t, "--config", cfg, "snapshot", "build", "--out", out, "--shapefile", "parcels.shp", "--oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of --shapefile or --oracle")

	_, err = runApp(t, "--config", cfg, "snapshot", "build", "--shapefile", "parcels.shp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out")
}

func TestSnapshotBuildOracleNeedsCredentials(t *testing.T) {
	_, cfg := writeFixtures(t)
	t.Setenv("ORACLE_PASSWORD", "")

	_, err := runApp(t, "--config", cfg, "snapshot", "build", "--out", filepath.Join(t.TempDir(), "out.b64"), "--oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "password")
}

type recordingInput struct {
	calls []string
}

func (r *recordingInput) SetQuery(value string) { r.calls = append(r.calls, value) }
func (r *recordingInput) Clear()                { r.calls = append(r.calls, "<clear>") }

func TestReadQuery(t *testing.T) {
	input := &recordingInput{}
	keys := "ab\x7fc\x1b[A\x15x\x1b"

	require.NoError(t, readQuery(bufio.NewReader(strings.NewReader(keys)), input))
	assert.Equal(t, []string{"a", "ab", "a", "ac", "<clear>", "x"}, input.calls)
}

func TestReadQueryStopsAtEOF(t *testing.T) {
	input := &recordingInput{}
	require.NoError(t, readQuery(bufio.NewReader(strings.NewReader("\x7fé")), input))
	assert.Equal(t, []string{"é"}, input.calls)
}

func TestPromptViewRender(t *testing.T) {
	var buf bytes.Buffer
	view := &promptView{w: &buf, limit: 2}

	view.render(suggest.Snapshot{
		Query: "main",
		Suggestions: []core.Suggestion{
			{ParcelID: "100", FullAddress: "100 Main St"},
			{ParcelID: "200", FullAddress: "200 Main St"},
			{ParcelID: "201", FullAddress: "201 Main St"},
		},
		State: suggest.StateSettled,
	})
	out := buf.String()
	assert.Contains(t, out, "> main")
	assert.Contains(t, out, "100 Main St  100")
	assert.Contains(t, out, "200 Main St  200")
	assert.NotContains(t, out, "201 Main St")
	assert.Contains(t, out, "... 1 more")

	buf.Reset()
	view.render(suggest.Snapshot{Query: "zzz", Suggestions: []core.Suggestion{}, State: suggest.StateSettled})
	assert.Contains(t, buf.String(), "no suggestions")

	buf.Reset()
	view.render(suggest.Snapshot{Query: "m", IsLoading: true, State: suggest.StateSearching})
	assert.Contains(t, buf.String(), "loading...")

	buf.Reset()
	view.render(suggest.Snapshot{Query: "m", Error: suggest.ErrorText, State: suggest.StateErrored})
	assert.Contains(t, buf.String(), suggest.ErrorText)
}
