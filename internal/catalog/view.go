//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package catalog

import (
	"context"

	"github.com/pgEdge/pgedge-refsync/internal/db"
	"github.com/pgEdge/pgedge-refsync/internal/merge"
)

// View is a read-side union of several entities folded by a merge spec.
type View struct {
	// Name is the short name used on the command line.
	Name string

	// Description is a human-readable description.
	Description string

	// Entities lists the entities whose permanent tables the view reads.
	Entities []string

	// SQL selects the tagged rows of every source. It must return the
	// source tag column named in Spec.
	SQL string

	// Spec folds the rows into one record per key.
	Spec *merge.Spec
}

// Read runs the view query on q and returns the merged records.
func (v *View) Read(ctx context.Context, q db.Querier) (*merge.Result, merge.Stats, error) {
	return merge.Query(ctx, q, v.SQL, nil, v.Spec)
}
