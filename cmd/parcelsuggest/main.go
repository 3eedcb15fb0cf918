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


package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "parcelsuggest",
		Usage: "Parcel and address autocomplete over a cached property snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a TOML config file",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the BadgerDB cache directory",
			},
			&cli.BoolFlag{
				Name:  "in-memory",
				Usage: "Keep the snapshot cache in memory only",
			},
			&cli.StringFlag{
				Name:  "url",
				Usage: "Snapshot endpoint URL",
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "Local snapshot payload file",
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token for the snapshot endpoint",
				EnvVars: []string{"PARCELSUGGEST_TOKEN"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "fetch",
				Usage:  "Load the snapshot into the cache and report its status",
				Action: fetchCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Discard the cached snapshot and fetch a fresh one",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Print suggestions for a query",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "explain",
						Usage: "Trace each search stage to stderr",
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Override the approximate score cut-off (0 uses the default)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print suggestions as JSON",
					},
				},
			},
			{
				Name:   "interactive",
				Usage:  "Type a query and watch suggestions update",
				Action: interactiveCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "mobile",
						Usage: "Use the longer debounce delays of constrained devices",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Answer msgpack suggestion requests on stdin/stdout",
				Action: serveCommand,
			},
			{
				Name:  "cache",
				Usage: "Inspect or clear the snapshot cache",
				Subcommands: []*cli.Command{
					{
						Name:   "status",
						Usage:  "Show what the cache holds",
						Action: cacheStatusCommand,
					},
					{
						Name:   "clear",
						Usage:  "Delete the cached snapshot",
						Action: cacheClearCommand,
					},
				},
			},
			{
				Name:  "snapshot",
				Usage: "Produce snapshot payloads from authoritative parcel data",
				Subcommands: []*cli.Command{
					{
						Name:   "build",
						Usage:  "Read pairings from a shapefile or Oracle and write a payload",
						Action: snapshotBuildCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:     "out",
								Aliases:  []string{"o"},
								Usage:    "Output payload path",
								Required: true,
							},
							&cli.StringFlag{
								Name:  "shapefile",
								Usage: "Parcel shapefile (.shp) to read",
							},
							&cli.StringFlag{
								Name:  "id-field",
								Usage: "Shapefile attribute holding the parcel ID",
							},
							&cli.StringSliceFlag{
								Name:  "address-field",
								Usage: "Shapefile attributes joined into the address, in order",
							},
							&cli.BoolFlag{
								Name:  "oracle",
								Usage: "Read from the Oracle database in the config file",
							},
							&cli.StringFlag{
								Name:  "query",
								Usage: "Oracle query returning (parcel id, address) rows",
							},
							&cli.IntFlag{
								Name:  "report-interval",
								Usage: "Report progress every N records",
								Value: 10000,
							},
						},
					},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level charmlog.Level
	switch levelStr {
	case "debug":
		level = charmlog.DebugLevel
	case "info":
		level = charmlog.InfoLevel
	case "warn":
		level = charmlog.WarnLevel
	case "error":
		level = charmlog.ErrorLevel
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// stdout carries command output and the serve protocol
	handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           level,
		ReportTimestamp: level == charmlog.DebugLevel,
		Formatter:       charmlog.TextFormatter,
	})
	slog.SetDefault(slog.New(handler))

	return nil
}
