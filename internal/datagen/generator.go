//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package datagen

import (
	"fmt"

	"github.com/pgEdge/pgedge-refsync/internal/logging"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// DefaultProgressInterval is how often Generate logs progress, in rows.
const DefaultProgressInterval = 100000

// RowFunc builds the synthetic row at position seq of a batch. Key fields
// must be unique per seq so a batch can be promoted without conflicts.
type RowFunc func(f *Faker, seq int) record.Record

// Generate builds n rows with fn, logging progress for large batches.
func Generate(name string, f *Faker, n int, fn RowFunc) []record.Record {
	if n <= 0 {
		return nil
	}

	progress := NewProgressReporter(name, int64(n), DefaultProgressInterval)
	out := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, fn(f, i))
		progress.Update(1)
	}
	progress.Done()
	return out
}

// ProgressReporter tracks and reports data generation progress.
type ProgressReporter struct {
	name             string
	totalRows        int64
	currentRow       int64
	progressInterval int64
}

// NewProgressReporter creates a new progress reporter.
func NewProgressReporter(name string, totalRows int64, interval int64) *ProgressReporter {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &ProgressReporter{
		name:             name,
		totalRows:        totalRows,
		progressInterval: interval,
	}
}

// Update updates the progress and logs if necessary.
func (p *ProgressReporter) Update(rows int64) {
	oldRow := p.currentRow
	p.currentRow += rows

	// Check if we crossed a progress interval
	if p.currentRow/p.progressInterval > oldRow/p.progressInterval {
		pct := float64(p.currentRow) / float64(p.totalRows) * 100
		logging.Info().
			Str("entity", p.name).
			Int64("rows", p.currentRow).
			Int64("total", p.totalRows).
			Float64("percent", pct).
			Msg("Generating data")
	}
}

// Rows returns the number of rows counted so far.
func (p *ProgressReporter) Rows() int64 { return p.currentRow }

// Done logs completion.
func (p *ProgressReporter) Done() {
	logging.Debug().
		Str("entity", p.name).
		Int64("rows", p.currentRow).
		Msg("Synthetic batch complete")
}

// FormatSize formats a byte count as a human-readable string.
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.2f TB", float64(bytes)/float64(TB))
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// FundKey returns a fund name and currency pair that is stable for seq, so
// feeds from different providers describe overlapping funds.
func FundKey(seq int) (string, string) {
	return fmt.Sprintf("FUND%04d", seq), Currencies[seq%len(Currencies)]
}
