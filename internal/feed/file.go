//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package feed

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/config"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// fileSource reads csv and json snapshots from the local filesystem.
type fileSource struct {
	name string
}

func (s fileSource) Name() string { return s.name }

func (s fileSource) Read(ctx context.Context, f *config.FeedConfig, e *catalog.Entity) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Path, err)
	}
	defer file.Close()

	return decode(s.name, file, f, e)
}

// decode dispatches on the snapshot format.
func decode(format string, r io.Reader, f *config.FeedConfig, e *catalog.Entity) ([]record.Record, error) {
	switch format {
	case config.SourceJSON:
		return DecodeJSON(r, e)
	case config.SourceCSV:
		return DecodeCSV(r, delimiter(f), e)
	}
	return nil, fmt.Errorf("unknown snapshot format: %s", format)
}

func delimiter(f *config.FeedConfig) rune {
	for _, r := range f.Delimiter {
		return r
	}
	return 0
}
