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
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-refsync/internal/db"
)

var (
	historyEntity string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent upsert cycles",
	Long: `Print the most recent cycles recorded in the cycle ledger, newest
first, with their outcome, the stage they reached and the rows staged.

Example:
  pgedge-refsync history --entity security --limit 10`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyEntity, "entity", "",
		"only show cycles of this entity")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20,
		"maximum number of cycles to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := context.Background()
	conn, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	entries, err := db.RecentCycles(ctx, conn, historyEntity, historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		cmd.Println("No cycles recorded")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tENTITY\tSTATUS\tSTAGE\tROWS\tDURATION\tCYCLE\tERROR")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			e.StartedAt.Local().Format(time.DateTime),
			e.Entity,
			e.Status,
			e.Stage,
			e.Rows,
			e.FinishedAt.Sub(e.StartedAt).Round(time.Millisecond),
			e.CycleID,
			e.Error,
		)
	}
	return w.Flush()
}
