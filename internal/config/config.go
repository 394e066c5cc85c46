//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package config handles configuration management for pgedge-refsync.
// Configuration is loaded from config files and CLI flags (no environment variables).
// CLI flags take precedence over config file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"

	"github.com/pgEdge/pgedge-refsync/internal/db"
)

// Feed source kinds.
const (
	SourceCSV       = "csv"
	SourceJSON      = "json"
	SourceS3        = "s3"
	SourceSynthetic = "synthetic"
)

// Config holds all configuration for pgedge-refsync.
type Config struct {
	// Connection is the database connection string. For sqlite it is a
	// file path.
	Connection string `mapstructure:"connection"`

	// Driver selects the backend: pgx, postgres, mysql or sqlite.
	Driver string `mapstructure:"driver"`

	// LogLevel controls logging verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// LogFormat is "pretty" for console output or "json".
	LogFormat string `mapstructure:"log_format"`

	// Sync holds settings shared by every upsert cycle.
	Sync SyncConfig `mapstructure:"sync"`

	// Metrics holds the metrics endpoint settings used by the daemon.
	Metrics MetricsConfig `mapstructure:"metrics"`

	// Feeds lists the configured feeds.
	Feeds []FeedConfig `mapstructure:"feeds"`
}

// SyncConfig holds configuration for upsert cycles.
type SyncConfig struct {
	// CycleTimeout bounds one whole cycle (0 = no deadline).
	CycleTimeout time.Duration `mapstructure:"cycle_timeout"`

	// StagingMode is values, literal or copy.
	StagingMode string `mapstructure:"staging_mode"`

	// MaxParams caps bind parameters per statement (0 = backend limit).
	MaxParams int `mapstructure:"max_params"`

	// AllowEmpty lets an empty feed clear staging and still promote.
	AllowEmpty bool `mapstructure:"allow_empty"`

	// ReportInterval is how often the daemon prints statistics (in seconds).
	ReportInterval int `mapstructure:"report_interval"`
}

// MetricsConfig holds configuration for the metrics endpoint.
type MetricsConfig struct {
	// Listen is the address of the /metrics and /health server. Empty
	// disables it.
	Listen string `mapstructure:"listen"`
}

// FeedConfig describes one feed.
type FeedConfig struct {
	Name   string `mapstructure:"name"`
	Entity string `mapstructure:"entity"`

	// Source is csv, json, s3 or synthetic.
	Source string `mapstructure:"source"`

	// Path is the local file of csv and json feeds.
	Path string `mapstructure:"path"`

	// S3 location. Objects ending in .json are read as JSON, anything else
	// as CSV.
	Bucket    string `mapstructure:"bucket"`
	Key       string `mapstructure:"key"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	PathStyle bool   `mapstructure:"path_style"`

	// Delimiter is the CSV field separator (default ",").
	Delimiter string `mapstructure:"delimiter"`

	// Rows and Seed drive synthetic feeds. A zero seed is random.
	Rows int    `mapstructure:"rows"`
	Seed uint64 `mapstructure:"seed"`

	// Schedule is a standard five field cron expression or descriptor
	// such as @every 5m.
	Schedule string `mapstructure:"schedule"`

	// Watch reruns a csv or json feed whenever its file changes.
	Watch bool `mapstructure:"watch"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Driver:    "pgx",
		LogLevel:  "info",
		LogFormat: "pretty",
		Sync: SyncConfig{
			CycleTimeout:   5 * time.Minute,
			StagingMode:    "values",
			ReportInterval: 60,
		},
	}
}

// Load reads configuration from config files.
// Config file locations (in order of precedence):
// 1. Path specified by configFile parameter
// 2. ./pgedge-refsync.yaml
// 3. ~/.config/pgedge-refsync/pgedge-refsync.yaml
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Set config name and type
	v.SetConfigName("pgedge-refsync")
	v.SetConfigType("yaml")

	// Add config paths
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "pgedge-refsync"))
	}

	// Use specific config file if provided
	if configFile != "" {
		v.SetConfigFile(configFile)
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Start with defaults
	cfg := DefaultConfig()

	// Unmarshal config file values; durations decode from "30s" style text
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return cfg, nil
}

// Feed returns the feed with the given name.
func (c *Config) Feed(name string) (*FeedConfig, error) {
	for i := range c.Feeds {
		if c.Feeds[i].Name == name {
			return &c.Feeds[i], nil
		}
	}
	return nil, fmt.Errorf("unknown feed: %s", name)
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Connection == "" && c.Driver != db.DriverSQLite {
		return fmt.Errorf("connection string is required")
	}
	if c.Driver == "" {
		return fmt.Errorf("driver is required")
	}
	if !slices.Contains(db.Drivers(), c.Driver) {
		return fmt.Errorf("driver must be one of %s", strings.Join(db.Drivers(), ", "))
	}
	if c.LogFormat != "" && c.LogFormat != "pretty" && c.LogFormat != "json" {
		return fmt.Errorf("log_format must be 'pretty' or 'json'")
	}
	return nil
}

// ValidateSync checks configuration required for the sync command.
func (c *Config) ValidateSync() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.Sync.StagingMode {
	case "", "values", "literal", "copy":
	default:
		return fmt.Errorf("staging_mode must be 'values', 'literal' or 'copy'")
	}
	if c.Sync.CycleTimeout < 0 {
		return fmt.Errorf("cycle_timeout must be non-negative")
	}
	if c.Sync.MaxParams < 0 {
		return fmt.Errorf("max_params must be non-negative")
	}

	seen := make(map[string]bool, len(c.Feeds))
	for i := range c.Feeds {
		f := &c.Feeds[i]
		if f.Name == "" {
			return fmt.Errorf("feeds[%d]: name is required", i)
		}
		if seen[f.Name] {
			return fmt.Errorf("feed %s: name is not unique", f.Name)
		}
		seen[f.Name] = true
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDaemon checks configuration required for the daemon command.
func (c *Config) ValidateDaemon() error {
	if err := c.ValidateSync(); err != nil {
		return err
	}
	triggered := 0
	for _, f := range c.Feeds {
		if f.Schedule != "" || f.Watch {
			triggered++
		}
	}
	if triggered == 0 {
		return fmt.Errorf("at least one feed with a schedule or watch is required for daemon")
	}
	if c.Sync.ReportInterval < 0 {
		return fmt.Errorf("report_interval must be non-negative")
	}
	return nil
}

// Validate checks one feed.
func (f *FeedConfig) Validate() error {
	if f.Entity == "" {
		return fmt.Errorf("feed %s: entity is required", f.Name)
	}
	switch f.Source {
	case SourceCSV, SourceJSON:
		if f.Path == "" {
			return fmt.Errorf("feed %s: path is required for %s feeds", f.Name, f.Source)
		}
	case SourceS3:
		if f.Bucket == "" || f.Key == "" {
			return fmt.Errorf("feed %s: bucket and key are required for s3 feeds", f.Name)
		}
		if f.Watch {
			return fmt.Errorf("feed %s: watch is only supported for csv and json feeds", f.Name)
		}
	case SourceSynthetic:
		if f.Rows < 1 {
			return fmt.Errorf("feed %s: rows must be at least 1 for synthetic feeds", f.Name)
		}
		if f.Watch {
			return fmt.Errorf("feed %s: watch is only supported for csv and json feeds", f.Name)
		}
	case "":
		return fmt.Errorf("feed %s: source is required", f.Name)
	default:
		return fmt.Errorf("feed %s: unknown source %s", f.Name, f.Source)
	}
	if len([]rune(f.Delimiter)) > 1 {
		return fmt.Errorf("feed %s: delimiter must be a single character", f.Name)
	}
	if f.Schedule != "" {
		if _, err := cron.ParseStandard(f.Schedule); err != nil {
			return fmt.Errorf("feed %s: invalid schedule: %w", f.Name, err)
		}
	}
	return nil
}
