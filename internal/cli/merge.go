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
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/logging"
	"github.com/pgEdge/pgedge-refsync/internal/metrics"
)

var mergeMetricsFile string

var mergeCmd = &cobra.Command{
	Use:   "merge <view>",
	Short: "Print a merged view as JSON lines",
	Long: `Read every source of a merged view, fold the rows into one record per
key and print each merged record as a JSON object on its own line. Null
fields are omitted.

With --metrics-file the read's metrics are written in the Prometheus text
format, for the node_exporter textfile collector.

Run 'pgedge-refsync entities' to list the available views.

Example:
  pgedge-refsync merge locate`,
	Args: cobra.ExactArgs(1),
	RunE: runMerge,
}

func init() {
	mergeCmd.Flags().StringVar(&mergeMetricsFile, "metrics-file", "",
		"write merge metrics to this file in Prometheus text format")
}

func runMerge(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	view, err := catalog.GetView(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()
	conn, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	res, stats, err := view.Read(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to read view %s: %w", view.Name, err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	for _, rec := range res.Ordered() {
		if err := enc.Encode(rec.Strings()); err != nil {
			return err
		}
	}

	logging.Info().
		Str("view", view.Name).
		Int("rows", stats.Rows).
		Int("merged", stats.Merged).
		Int("dropped", stats.Dropped).
		Int("degenerate", stats.Degenerate).
		Msg("Merged read complete")

	if mergeMetricsFile != "" {
		collector := metrics.NewCollector()
		collector.ObserveMergeDropped(view.Name, stats.Dropped)
		if err := collector.WriteTextfile(mergeMetricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	return nil
}
