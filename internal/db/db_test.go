//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/pgEdge/pgedge-refsync/internal/db"
	"github.com/pgEdge/pgedge-refsync/internal/record"
	"github.com/pgEdge/pgedge-refsync/internal/testutil"
	"github.com/pgEdge/pgedge-refsync/pkg/version"
)

func TestDialects(t *testing.T) {
	tests := []struct {
		d         db.Dialect
		name      string
		ph        string
		maxParams int
		numeric   string
		hasLock   bool
	}{
		{db.Postgres, "postgres", "$3", 65535, "NUMERIC(28,10)", true},
		{db.MySQL, "mysql", "?", 65535, "DECIMAL(28,10)", false},
		{db.SQLite, "sqlite", "?", 32766, "NUMERIC", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.d.Name(); got != tt.name {
				t.Errorf("Expected name '%s', got '%s'", tt.name, got)
			}
			if got := tt.d.Placeholder(3); got != tt.ph {
				t.Errorf("Expected placeholder '%s', got '%s'", tt.ph, got)
			}
			if got := tt.d.MaxParams(); got != tt.maxParams {
				t.Errorf("Expected max params %d, got %d", tt.maxParams, got)
			}
			if got := tt.d.ColumnType(record.TypeNumeric); got != tt.numeric {
				t.Errorf("Expected numeric type '%s', got '%s'", tt.numeric, got)
			}
			if got := tt.d.LockStatement("StgSecurity") != ""; got != tt.hasLock {
				t.Errorf("Expected lock statement %v, got %v", tt.hasLock, got)
			}
		})
	}

	stmts, err := db.Postgres.CallStatements(context.Background(), nil, "spPopulateSecurity")
	if err != nil {
		t.Fatalf("CallStatements() error: %v", err)
	}
	if diff := cmp.Diff([]string{"CALL spPopulateSecurity()"}, stmts); diff != "" {
		t.Errorf("Call statements mismatch (-want +got):\n%s", diff)
	}

	for _, driver := range db.Drivers() {
		if _, err := db.DialectFor(driver); err != nil {
			t.Errorf("DialectFor(%s) error: %v", driver, err)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want db.ErrorClass
	}{
		{"nil", nil, ""},
		{"deadline", fmt.Errorf("stage: %w", context.DeadlineExceeded), db.ClassTimeout},
		{"canceled", context.Canceled, db.ClassTimeout},
		{"pgx statement", &pgconn.PgError{Code: "23505"}, db.ClassStatement},
		{"pgx connection", &pgconn.PgError{Code: "08006"}, db.ClassConnectivity},
		{"pq statement", &pq.Error{Code: "42P01"}, db.ClassStatement},
		{"pq connection", &pq.Error{Code: "08001"}, db.ClassConnectivity},
		{"mysql", &mysql.MySQLError{Number: 1062}, db.ClassStatement},
		{"bad conn", fmt.Errorf("exec: %w", driver.ErrBadConn), db.ClassConnectivity},
		{"mysql invalid conn", mysql.ErrInvalidConn, db.ClassConnectivity},
		{"other", errors.New("boom"), db.ClassUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := db.Classify(tt.err); got != tt.want {
				t.Errorf("Expected class '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestClassifySQLiteError(t *testing.T) {
	conn := testutil.OpenSQLite(t)
	_, err := conn.Exec(context.Background(), "INSERT INTO missing_table VALUES (1)")
	if err == nil {
		t.Fatal("Expected error for a missing table, got nil")
	}
	if got := db.Classify(err); got != db.ClassStatement {
		t.Errorf("Expected class 'statement', got '%s'", got)
	}
}

func TestMetadata(t *testing.T) {
	ctx := context.Background()
	conn := testutil.OpenSQLite(t)

	if _, err := db.GetMetadataValue(ctx, conn, "driver"); err == nil {
		t.Error("Expected error before metadata is saved, got nil")
	}

	if err := db.SaveMetadata(ctx, conn, db.DriverSQLite, []string{"security", "corpaction"}); err != nil {
		t.Fatalf("SaveMetadata() error: %v", err)
	}
	// Saving again replaces the values.
	if err := db.SaveMetadata(ctx, conn, db.DriverSQLite, []string{"security", "jpmlocate", "corpaction"}); err != nil {
		t.Fatalf("SaveMetadata() error: %v", err)
	}

	all, err := db.GetAllMetadata(ctx, conn)
	if err != nil {
		t.Fatalf("GetAllMetadata() error: %v", err)
	}
	delete(all, "initialized_at")
	want := map[string]string{
		"version":  version.Short(),
		"driver":   "sqlite",
		"entities": "corpaction,jpmlocate,security",
	}
	if diff := cmp.Diff(want, all); diff != "" {
		t.Errorf("Metadata mismatch (-want +got):\n%s", diff)
	}

	if _, err := db.GetMetadataValue(ctx, conn, "nope"); err == nil {
		t.Error("Expected error for a missing key, got nil")
	}

	if err := db.DropMetadata(ctx, conn); err != nil {
		t.Fatalf("DropMetadata() error: %v", err)
	}
	if _, err := db.GetMetadataValue(ctx, conn, "driver"); err == nil {
		t.Error("Expected error after metadata is dropped, got nil")
	}
}

func TestLedger(t *testing.T) {
	ctx := context.Background()
	conn := testutil.OpenSQLite(t)

	if err := db.CreateLedger(ctx, conn); err != nil {
		t.Fatalf("CreateLedger() error: %v", err)
	}

	base := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	entries := []db.CycleEntry{
		{CycleID: "c1", Entity: "security", Status: "committed", Stage: "committed", Rows: 10,
			StartedAt: base, FinishedAt: base.Add(time.Second)},
		{CycleID: "c2", Entity: "jpmlocate", Status: "failed", Stage: "staging", Error: "boom",
			StartedAt: base.Add(time.Minute), FinishedAt: base.Add(time.Minute + time.Second)},
		{CycleID: "c3", Entity: "security", Status: "failed", Stage: "promoting", Rows: 12, Error: "bad call",
			StartedAt: base.Add(2 * time.Minute), FinishedAt: base.Add(2*time.Minute + 500*time.Millisecond)},
	}
	for _, e := range entries {
		if err := db.RecordCycle(ctx, conn, e); err != nil {
			t.Fatalf("RecordCycle(%s) error: %v", e.CycleID, err)
		}
	}

	got, err := db.RecentCycles(ctx, conn, "", 0)
	if err != nil {
		t.Fatalf("RecentCycles() error: %v", err)
	}
	want := []db.CycleEntry{entries[2], entries[1], entries[0]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Ledger mismatch (-want +got):\n%s", diff)
	}

	got, err = db.RecentCycles(ctx, conn, "security", 1)
	if err != nil {
		t.Fatalf("RecentCycles() error: %v", err)
	}
	if len(got) != 1 || got[0].CycleID != "c3" {
		t.Errorf("Expected only cycle c3, got %+v", got)
	}

	if err := db.RecordCycle(ctx, conn, entries[0]); err == nil {
		t.Error("Expected error for a duplicate cycle id, got nil")
	}
}

func TestRoutines(t *testing.T) {
	ctx := context.Background()
	conn := testutil.OpenSQLite(t)

	if err := db.CreateRoutinesTable(ctx, conn); err != nil {
		t.Fatalf("CreateRoutinesTable() error: %v", err)
	}
	if _, err := db.LoadRoutine(ctx, conn, "spPopulateSecurity"); err == nil {
		t.Error("Expected error for an unregistered routine, got nil")
	}

	if err := db.SaveRoutine(ctx, conn, "spPopulateSecurity", []string{"SELECT 1", "SELECT 2"}); err != nil {
		t.Fatalf("SaveRoutine() error: %v", err)
	}
	if err := db.SaveRoutine(ctx, conn, "spPopulateSecurity", []string{"SELECT 3"}); err != nil {
		t.Fatalf("SaveRoutine() error: %v", err)
	}

	stmts, err := db.SQLite.CallStatements(ctx, conn, "spPopulateSecurity")
	if err != nil {
		t.Fatalf("CallStatements() error: %v", err)
	}
	if diff := cmp.Diff([]string{"SELECT 3"}, stmts); diff != "" {
		t.Errorf("Routine mismatch (-want +got):\n%s", diff)
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	conn := testutil.OpenSQLite(t)
	testutil.MustExec(t, conn, "CREATE TABLE t (name TEXT, qty INTEGER, fee NUMERIC, as_of DATE)")

	asOf := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	args := []any{
		db.BindValue(conn.Dialect(), record.Text("ABC")),
		db.BindValue(conn.Dialect(), record.Int(100)),
		db.BindValue(conn.Dialect(), record.Null(record.KindDecimal)),
		db.BindValue(conn.Dialect(), record.Date(asOf)),
	}
	if _, err := conn.Exec(ctx, "INSERT INTO t VALUES (?, ?, ?, ?)", args...); err != nil {
		t.Fatalf("Exec() error: %v", err)
	}

	tx, err := conn.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error: %v", err)
	}
	if _, err := tx.Exec(ctx, "DELETE FROM t"); err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback() error: %v", err)
	}

	rows, err := conn.Query(ctx, "SELECT name, qty, fee, as_of FROM t")
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	recs, err := db.ScanRecords(rows)
	if err != nil {
		t.Fatalf("ScanRecords() error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Expected 1 record after rollback, got %d", len(recs))
	}
	r := recs[0]
	if s, _ := r.Get("name").Str(); s != "ABC" {
		t.Errorf("Expected name 'ABC', got '%s'", s)
	}
	if n, _ := r.Get("qty").Int64(); n != 100 {
		t.Errorf("Expected qty 100, got %d", n)
	}
	if !r.Get("fee").IsNull() {
		t.Errorf("Expected null fee, got %v", r.Get("fee"))
	}
	if got := testutil.CountRows(t, conn, "t"); got != 1 {
		t.Errorf("Expected 1 row, got %d", got)
	}

	if _, err := db.RowRecord([]string{"a", "b"}, []any{"x"}); err == nil {
		t.Error("Expected error for a short row, got nil")
	}
}
