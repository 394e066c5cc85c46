//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

//go:build integration
// +build integration

// Integration tests against PostgreSQL.
// Run with: go test -tags=integration ./internal/runner/...
// Set PGEDGE_TEST_CONN environment variable to override connection string.

package runner_test

import (
	"context"
	"testing"
	"time"

	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/catalog/fidelitylocate"
	"github.com/pgEdge/pgedge-refsync/internal/catalog/jpmlocate"
	"github.com/pgEdge/pgedge-refsync/internal/catalog/locate"
	"github.com/pgEdge/pgedge-refsync/internal/catalog/security"
	"github.com/pgEdge/pgedge-refsync/internal/config"
	"github.com/pgEdge/pgedge-refsync/internal/db"
	"github.com/pgEdge/pgedge-refsync/internal/runner"
	"github.com/pgEdge/pgedge-refsync/internal/schema"
	"github.com/pgEdge/pgedge-refsync/internal/staging"
	"github.com/pgEdge/pgedge-refsync/internal/testutil"
	"github.com/pgEdge/pgedge-refsync/internal/upsert"
)

func TestPostgresSyncAndMerge(t *testing.T) {
	baseConn := testutil.SkipIfNoPostgres(t)
	connStr := testutil.CreateTestDB(t, baseConn, "sync")
	conn := testutil.ConnectTestDB(t, connStr)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	entities := []*catalog.Entity{security.New(), jpmlocate.New(), fidelitylocate.New()}
	if err := schema.Create(ctx, conn, entities); err != nil {
		t.Fatalf("schema.Create() error: %v", err)
	}
	if err := db.SaveMetadata(ctx, conn, db.DriverPgx, []string{security.Name, jpmlocate.Name, fidelitylocate.Name}); err != nil {
		t.Fatalf("SaveMetadata() error: %v", err)
	}

	feeds := []config.FeedConfig{
		{Name: "sec", Entity: security.Name, Source: config.SourceSynthetic, Rows: 500, Seed: 11},
		{Name: "jpm", Entity: jpmlocate.Name, Source: config.SourceSynthetic, Rows: 200, Seed: 12},
		{Name: "fid", Entity: fidelitylocate.Name, Source: config.SourceSynthetic, Rows: 200, Seed: 13},
	}

	for _, mode := range []staging.Mode{staging.ModeCopy, staging.ModeValues, staging.ModeLiteral} {
		t.Run(string(mode), func(t *testing.T) {
			r, err := runner.New(runner.Config{
				Conn: conn,
				Orchestrator: upsert.New(conn, upsert.Options{
					Writer:       staging.NewWriter(mode, 0),
					CycleTimeout: time.Minute,
				}),
				Feeds: feeds,
			})
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			if err := r.RunFeeds(ctx, nil); err != nil {
				t.Fatalf("RunFeeds() error: %v", err)
			}

			// Same seeds every mode, so reruns upsert the same keys.
			if got := testutil.CountRows(t, conn, "Security"); got == 0 || got > 500 {
				t.Errorf("Expected between 1 and 500 securities, got %d", got)
			}
			if got := testutil.CountRows(t, conn, "StgSecurity"); got != 500 {
				t.Errorf("Expected 500 staged securities, got %d", got)
			}
		})
	}

	entries, err := db.RecentCycles(ctx, conn, security.Name, 10)
	if err != nil {
		t.Fatalf("RecentCycles() error: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("Expected 3 security cycles, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Status != "committed" {
			t.Errorf("Unexpected ledger entry: %+v", e)
		}
	}

	res, stats, err := locate.New().Read(ctx, conn)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(res.Keys) == 0 {
		t.Error("Expected merged locate records, got none")
	}
	if stats.Dropped != 0 {
		t.Errorf("Expected no dropped rows, got %d", stats.Dropped)
	}
}
