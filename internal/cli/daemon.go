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

	"github.com/pgEdge/pgedge-refsync/internal/db"
	"github.com/pgEdge/pgedge-refsync/internal/logging"
	"github.com/pgEdge/pgedge-refsync/internal/metrics"
	"github.com/pgEdge/pgedge-refsync/internal/runner"
)

var (
	daemonMetricsListen  string
	daemonReportInterval int
	daemonDuration       int
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run feeds on their schedules and when their files change",
	Long: `Run every feed that has a cron schedule or a file watch until
interrupted. A feed whose previous cycle is still running skips the
trigger. On SIGINT or SIGTERM no new cycles start and in-flight cycles are
allowed to finish.

When metrics.listen is set, Prometheus metrics are served on /metrics and
a database health check on /health.

Example:
  pgedge-refsync daemon --config pgedge-refsync.yaml --metrics-listen :9187`,
	RunE: runDaemon,
}

func init() {
	daemonCmd.Flags().StringVar(&daemonMetricsListen, "metrics-listen", "",
		"address for the metrics server (e.g. :9187)")
	daemonCmd.Flags().IntVar(&daemonReportInterval, "report-interval", 0,
		"statistics reporting interval in seconds")
	daemonCmd.Flags().IntVar(&daemonDuration, "duration", 0,
		"duration to run in minutes (0 = run indefinitely)")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	// Override config with CLI flags
	if daemonMetricsListen != "" {
		cfg.Metrics.Listen = daemonMetricsListen
	}
	if daemonReportInterval > 0 {
		cfg.Sync.ReportInterval = daemonReportInterval
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ValidateSync(); err != nil {
		return err
	}
	if err := cfg.ValidateDaemon(); err != nil {
		return err
	}

	ctx := context.Background()
	conn, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := requireInitialized(ctx, conn); err != nil {
		return err
	}

	var collector *metrics.Collector
	if cfg.Metrics.Listen != "" {
		collector = metrics.NewCollector()
	}

	orch, err := newOrchestrator(conn, collector)
	if err != nil {
		return err
	}
	r, err := runner.New(runner.Config{
		Conn:           conn,
		Orchestrator:   orch,
		Feeds:          cfg.Feeds,
		AllowEmpty:     cfg.Sync.AllowEmpty,
		ReportInterval: cfg.Sync.ReportInterval,
		Metrics:        collector,
	})
	if err != nil {
		return err
	}

	durationMsg := "indefinitely"
	if daemonDuration > 0 {
		durationMsg = fmt.Sprintf("%d minutes", daemonDuration)
	}

	logging.Info().
		Str("driver", cfg.Driver).
		Int("feeds", len(cfg.Feeds)).
		Str("duration", durationMsg).
		Msg("Starting daemon")

	// Set up context with cancellation (and optional timeout)
	var cancel context.CancelFunc
	if daemonDuration > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(daemonDuration)*time.Minute)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logging.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
	}()

	if collector != nil {
		go func() {
			if err := collector.Serve(ctx, cfg.Metrics.Listen, healthCheck(conn)); err != nil {
				logging.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	if err := r.Run(ctx); err != nil {
		return err
	}

	r.PrintSummary()
	return nil
}

// healthCheck reports whether the database answers a trivial query.
func healthCheck(conn db.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		rows, err := conn.Query(ctx, "SELECT 1")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
		}
		return rows.Err()
	}
}
