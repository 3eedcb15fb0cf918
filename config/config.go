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


// Package config holds engine settings, their defaults and the TOML file format.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

const appName = "parcelsuggest"

// Config holds the entire configuration.
type Config struct {
	Store    StoreConfig    `toml:"store"`
	Source   SourceConfig   `toml:"source"`
	Index    IndexConfig    `toml:"index"`
	Suggest  SuggestConfig  `toml:"suggest"`
	Snapshot SnapshotConfig `toml:"snapshot"`
}

// StoreConfig locates the local pairing cache.
type StoreConfig struct {
	// Path is the badger directory. Empty means DefaultStorePath().
	Path     string `toml:"path"`
	InMemory bool   `toml:"in_memory"`
}

// SourceConfig describes where snapshots are fetched from. URL wins over File.
type SourceConfig struct {
	URL             string   `toml:"url"`
	File            string   `toml:"file"`
	Token           string   `toml:"token"`
	Timeout         Duration `toml:"timeout"`
	MaxAttempts     int      `toml:"max_attempts"`
	RetryDelay      Duration `toml:"retry_delay"`
	MaxInflatedSize int64    `toml:"max_inflated_size"`
}

// IndexConfig tunes the search tiers.
type IndexConfig struct {
	ShortQueryLimit int     `toml:"short_query_limit"`
	CandidateLimit  int     `toml:"candidate_limit"`
	ShortThreshold  float64 `toml:"short_threshold"`
	Threshold       float64 `toml:"threshold"`
	MaxQueryLength  int     `toml:"max_query_length"`
}

// SuggestConfig tunes the suggestion controller.
type SuggestConfig struct {
	Debounce       Duration `toml:"debounce"`
	MinQueryLength int      `toml:"min_query_length"`
	Mobile         bool     `toml:"mobile"`
	FrameInterval  Duration `toml:"frame_interval"`
}

// SnapshotConfig describes the inputs of `snapshot build`.
type SnapshotConfig struct {
	Shapefile ShapefileConfig `toml:"shapefile"`
	Oracle    OracleConfig    `toml:"oracle"`
}

// ShapefileConfig names the shapefile and its attribute columns.
type ShapefileConfig struct {
	Path          string   `toml:"path"`
	IDField       string   `toml:"id_field"`
	AddressFields []string `toml:"address_fields"`
}

// OracleConfig holds Oracle connection settings. Password may be left empty
// and supplied through the ORACLE_PASSWORD environment variable.
type OracleConfig struct {
	Host           string `toml:"host"`
	Port           string `toml:"port"`
	Service        string `toml:"service"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	WalletLocation string `toml:"wallet_location"`
	Query          string `toml:"query"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithStorePath sets the badger directory.
func WithStorePath(path string) ConfigOption {
	return func(c *Config) {
		c.Store.Path = path
	}
}

// WithInMemory keeps the cache in memory only.
func WithInMemory(inMemory bool) ConfigOption {
	return func(c *Config) {
		c.Store.InMemory = inMemory
	}
}

// WithSourceURL sets the snapshot endpoint.
func WithSourceURL(url string) ConfigOption {
	return func(c *Config) {
		c.Source.URL = url
	}
}

// WithSourceFile sets a local payload file as the snapshot source.
func WithSourceFile(path string) ConfigOption {
	return func(c *Config) {
		c.Source.File = path
	}
}

// WithDebounce sets the controller debounce.
func WithDebounce(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Suggest.Debounce = Duration{d}
	}
}

// WithMobile marks the runtime as a constrained device.
func WithMobile(mobile bool) ConfigOption {
	return func(c *Config) {
		c.Suggest.Mobile = mobile
	}
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Timeout:         Duration{30 * time.Second},
			MaxAttempts:     1,
			RetryDelay:      Duration{time.Second},
			MaxInflatedSize: 256 << 20,
		},
		Index: IndexConfig{
			ShortQueryLimit: 15,
			CandidateLimit:  20,
			ShortThreshold:  0.7,
			Threshold:       0.6,
			MaxQueryLength:  200,
		},
		Suggest: SuggestConfig{
			Debounce:       Duration{300 * time.Millisecond},
			MinQueryLength: 1,
			FrameInterval:  Duration{16 * time.Millisecond},
		},
		Snapshot: SnapshotConfig{
			Shapefile: ShapefileConfig{
				IDField:       "PID",
				AddressFields: []string{"FULL_ADDR"},
			},
			Oracle: OracleConfig{
				Port: "1522",
			},
		},
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var problems []string
	if c.Source.MaxAttempts < 1 {
		problems = append(problems, "source.max_attempts must be at least 1")
	}
	if c.Source.Timeout.Duration < 0 || c.Source.RetryDelay.Duration < 0 {
		problems = append(problems, "source durations must not be negative")
	}
	if c.Index.ShortQueryLimit < 1 || c.Index.CandidateLimit < 1 || c.Index.MaxQueryLength < 1 {
		problems = append(problems, "index limits must be at least 1")
	}
	if !inUnitRange(c.Index.ShortThreshold) || !inUnitRange(c.Index.Threshold) {
		problems = append(problems, "index thresholds must be in (0, 1]")
	}
	if c.Suggest.Debounce.Duration < 0 {
		problems = append(problems, "suggest.debounce must not be negative")
	}
	if c.Suggest.MinQueryLength < 1 {
		problems = append(problems, "suggest.min_query_length must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func inUnitRange(v float64) bool {
	return v > 0 && v <= 1
}

// StorePath resolves the badger directory.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	return DefaultStorePath()
}

// DefaultStorePath returns [UserCacheDir]/parcelsuggest/db.
func DefaultStorePath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "db"), nil
}

// DefaultPath returns [UserConfigDir]/parcelsuggest/config.toml.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName, "config.toml"), nil
}

// Load reads a TOML file over the defaults. Unknown keys are logged and ignored.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	for _, key := range md.Undecoded() {
		slog.Warn("ignoring unknown config key", "key", key.String(), "path", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithPriority loads the custom path if given, else the default path if it
// exists, else the built-in defaults. It returns the path actually used.
func LoadWithPriority(customPath string) (*Config, string, error) {
	if customPath != "" {
		cfg, err := Load(customPath)
		if err != nil {
			return nil, "", err
		}
		return cfg, customPath, nil
	}

	defaultPath, err := DefaultPath()
	if err != nil {
		slog.Debug("no default config location, using built-in defaults", "err", err)
		return DefaultConfig(), "", nil
	}
	if _, statErr := os.Stat(defaultPath); statErr != nil {
		return DefaultConfig(), "", nil
	}
	cfg, err := Load(defaultPath)
	if err != nil {
		return nil, "", err
	}
	return cfg, defaultPath, nil
}

// Save writes the configuration as TOML, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
