//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package staging

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pgEdge/pgedge-refsync/internal/db"
	"github.com/pgEdge/pgedge-refsync/internal/record"
	"github.com/pgEdge/pgedge-refsync/internal/testutil"
)

func TestPromoteCallsProcedure(t *testing.T) {
	for _, d := range []db.Dialect{db.Postgres, db.MySQL} {
		t.Run(d.Name(), func(t *testing.T) {
			rec := &testutil.Recorder{D: d}
			if err := Promote(context.Background(), rec, "spPopulateSecurity"); err != nil {
				t.Fatalf("Promote() error: %v", err)
			}
			if diff := cmp.Diff([]string{"CALL spPopulateSecurity()"}, rec.SQL()); diff != "" {
				t.Errorf("Statements mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPromoteRejectsBadRoutineName(t *testing.T) {
	rec := &testutil.Recorder{}
	err := Promote(context.Background(), rec, "spPopulate(); DROP TABLE Security")
	if !errors.Is(err, record.ErrInvalidIdentifier) {
		t.Errorf("Expected ErrInvalidIdentifier, got %v", err)
	}
	if len(rec.SQL()) != 0 {
		t.Errorf("Expected no statements, got %v", rec.SQL())
	}
}

func TestPromotePropagatesFailure(t *testing.T) {
	boom := errors.New("constraint violation")
	rec := &testutil.Recorder{FailOn: testutil.FailContaining("CALL", boom)}
	if err := Promote(context.Background(), rec, "spPopulateSecurity"); !errors.Is(err, boom) {
		t.Errorf("Expected promotion failure to propagate, got %v", err)
	}
}

func TestPromoteReplaysSQLiteRoutine(t *testing.T) {
	conn := testutil.OpenSQLite(t)
	ctx := context.Background()
	testutil.MustExec(t, conn,
		"CREATE TABLE StgSecurity (Ticker TEXT, Fee NUMERIC)",
		"CREATE TABLE Security (Ticker TEXT PRIMARY KEY, Fee NUMERIC)",
		"INSERT INTO StgSecurity VALUES ('ABC', 0.01), ('XYZ', NULL)",
	)
	if err := db.CreateRoutinesTable(ctx, conn); err != nil {
		t.Fatalf("CreateRoutinesTable() error: %v", err)
	}
	if err := db.SaveRoutine(ctx, conn, "spPopulateSecurity", []string{
		"INSERT INTO Security (Ticker, Fee) SELECT Ticker, Fee FROM StgSecurity WHERE true " +
			"ON CONFLICT (Ticker) DO UPDATE SET Fee = excluded.Fee",
	}); err != nil {
		t.Fatalf("SaveRoutine() error: %v", err)
	}

	if err := Promote(ctx, conn, "spPopulateSecurity"); err != nil {
		t.Fatalf("Promote() error: %v", err)
	}
	if got := testutil.CountRows(t, conn, "Security"); got != 2 {
		t.Errorf("Expected 2 promoted rows, got %d", got)
	}

	if err := Promote(ctx, conn, "spPopulateMissing"); err == nil {
		t.Error("Expected error for an unregistered routine")
	}
}
