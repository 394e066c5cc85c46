//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-refsync/internal/config"
	"github.com/pgEdge/pgedge-refsync/internal/logging"
	"github.com/pgEdge/pgedge-refsync/internal/runner"
)

var (
	syncEntity       string
	syncSynthetic    int
	syncSeed         uint64
	syncStagingMode  string
	syncCycleTimeout time.Duration
	syncAllowEmpty   bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [feed...]",
	Short: "Run one cycle of each feed now",
	Long: `Run one upsert cycle for each named feed, or for every configured feed
when none are named. Feeds run concurrently.

With --entity and --synthetic a one-off feed of generated rows is run
instead of the configured feeds.

Example:
  pgedge-refsync sync securities jpm-locates
  pgedge-refsync sync --entity security --synthetic 1000 --seed 42`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVar(&syncEntity, "entity", "",
		"entity for a one-off synthetic feed")
	syncCmd.Flags().IntVar(&syncSynthetic, "synthetic", 0,
		"number of synthetic rows to load into --entity")
	syncCmd.Flags().Uint64Var(&syncSeed, "seed", 0,
		"random seed for synthetic rows (0 = random)")
	syncCmd.Flags().StringVar(&syncStagingMode, "staging-mode", "",
		"staging load mode: values, copy")
	syncCmd.Flags().DurationVar(&syncCycleTimeout, "cycle-timeout", 0,
		"deadline for each cycle (e.g. 30s, 5m)")
	syncCmd.Flags().BoolVar(&syncAllowEmpty, "allow-empty", false,
		"allow empty snapshots to clear nothing and commit")
}

func runSync(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if syncStagingMode != "" {
		cfg.Sync.StagingMode = syncStagingMode
	}
	if syncCycleTimeout > 0 {
		cfg.Sync.CycleTimeout = syncCycleTimeout
	}
	if syncAllowEmpty {
		cfg.Sync.AllowEmpty = true
	}

	feeds := cfg.Feeds
	if syncEntity != "" || syncSynthetic > 0 {
		if len(args) > 0 {
			return fmt.Errorf("feed names cannot be combined with --entity/--synthetic")
		}
		if syncEntity == "" || syncSynthetic < 1 {
			return fmt.Errorf("--entity and --synthetic must be given together")
		}
		feeds = []config.FeedConfig{{
			Name:   syncEntity,
			Entity: syncEntity,
			Source: config.SourceSynthetic,
			Rows:   syncSynthetic,
			Seed:   syncSeed,
		}}
		cfg.Feeds = feeds
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ValidateSync(); err != nil {
		return err
	}
	if len(feeds) == 0 {
		return fmt.Errorf("no feeds configured")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := requireInitialized(ctx, conn); err != nil {
		return err
	}

	orch, err := newOrchestrator(conn, nil)
	if err != nil {
		return err
	}
	r, err := runner.New(runner.Config{
		Conn:         conn,
		Orchestrator: orch,
		Feeds:        feeds,
		AllowEmpty:   cfg.Sync.AllowEmpty,
	})
	if err != nil {
		return err
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logging.Info().Msg("Received shutdown signal, cancelling cycles")
			cancel()
		case <-ctx.Done():
		}
	}()

	logging.Info().
		Int("feeds", len(feeds)).
		Str("staging_mode", cfg.Sync.StagingMode).
		Msg("Starting sync")

	err = r.RunFeeds(ctx, args)
	r.PrintSummary()
	return err
}
