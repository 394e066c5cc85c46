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

	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/config"
	"github.com/pgEdge/pgedge-refsync/internal/datagen"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// syntheticSource generates rows with the entity's generator. A fixed seed
// yields the same snapshot every cycle.
type syntheticSource struct{}

func (syntheticSource) Name() string { return config.SourceSynthetic }

func (syntheticSource) Read(ctx context.Context, f *config.FeedConfig, e *catalog.Entity) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	faker := datagen.NewFaker()
	if f.Seed != 0 {
		faker = datagen.NewFakerWithSeed(f.Seed)
	}
	return e.Generate(faker, f.Rows), nil
}
