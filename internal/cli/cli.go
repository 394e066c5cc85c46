//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for pgedge-refsync.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/config"
	"github.com/pgEdge/pgedge-refsync/internal/db"
	"github.com/pgEdge/pgedge-refsync/internal/logging"
	"github.com/pgEdge/pgedge-refsync/internal/metrics"
	"github.com/pgEdge/pgedge-refsync/internal/staging"
	"github.com/pgEdge/pgedge-refsync/internal/upsert"
	"github.com/pgEdge/pgedge-refsync/pkg/version"
)

var (
	// Global flags
	cfgFile    string
	connection string
	driver     string
	logLevel   string
	logFormat  string

	// Global config
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "pgedge-refsync",
		Short: "Reference data sync into relational databases",
		Long: `pgedge-refsync loads snapshots of reference data feeds (securities,
order status, fund metrics, corporate actions and locates) into a
relational database.

Each cycle clears the entity's staging table, bulk loads the snapshot into
it and calls the entity's promotion routine to upsert the permanent table,
all inside one transaction. Either the whole snapshot lands or nothing
changes.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./pgedge-refsync.yaml)")
	rootCmd.PersistentFlags().StringVar(&connection, "connection", "",
		"database connection string (a file path for sqlite)")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "",
		"database driver (pgx, postgres, mysql, sqlite)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"log format (pretty, json)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(entitiesCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(historyCmd)
}

func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if connection != "" {
		cfg.Connection = connection
	}
	if driver != "" {
		cfg.Driver = driver
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogFormat != "json",
	})

	return nil
}

// openDB connects with the configured driver.
func openDB(ctx context.Context) (db.DB, error) {
	conn, err := db.Open(ctx, cfg.Driver, cfg.Connection)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return conn, nil
}

// requireInitialized fails unless init has been run against conn.
func requireInitialized(ctx context.Context, conn db.DB) error {
	if _, err := db.GetMetadataValue(ctx, conn, "entities"); err != nil {
		return fmt.Errorf(
			"database has not been initialized; run 'pgedge-refsync init' first")
	}
	return nil
}

// newOrchestrator builds an orchestrator from the sync settings.
func newOrchestrator(conn db.DB, collector *metrics.Collector) (*upsert.Orchestrator, error) {
	mode, err := staging.ParseMode(cfg.Sync.StagingMode)
	if err != nil {
		return nil, err
	}
	return upsert.New(conn, upsert.Options{
		Writer:       staging.NewWriter(mode, cfg.Sync.MaxParams),
		CycleTimeout: cfg.Sync.CycleTimeout,
		Metrics:      collector,
	}), nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List available entities and merged views",
	Long: `List the reference data entities that feeds can load, with their
permanent table, staging table and promotion routine, followed by the
merged views that can be read with 'pgedge-refsync merge'.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println("Available entities:")
		cmd.Println()
		for _, e := range catalog.All() {
			cmd.Printf("  %-15s - %s\n", e.Name, e.Description)
			cmd.Printf("  %-15s   table %s, staging %s, routine %s\n", "",
				e.Table, e.StagingTable(), e.Procedure())
		}
		cmd.Println()
		cmd.Println("Merged views:")
		cmd.Println()
		for _, name := range catalog.Views() {
			v, err := catalog.GetView(name)
			if err != nil {
				continue
			}
			cmd.Printf("  %-15s - %s\n", v.Name, v.Description)
		}
	},
}
