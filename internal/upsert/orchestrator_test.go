//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package upsert

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pgEdge/pgedge-refsync/internal/db"
	"github.com/pgEdge/pgedge-refsync/internal/metrics"
	"github.com/pgEdge/pgedge-refsync/internal/record"
	"github.com/pgEdge/pgedge-refsync/internal/staging"
	"github.com/pgEdge/pgedge-refsync/internal/testutil"
)

func securityPlan() Plan {
	return Plan{
		Entity: "security",
		Target: staging.MustTarget("StgSecurity",
			record.Col("Ticker", record.TypeText),
			record.Col("Fee", record.TypeNumeric),
			record.Col("AsOfDate", record.TypeDate),
		),
		Procedure: "spPopulateSecurity",
	}
}

func securityRecords() []record.Record {
	return []record.Record{
		record.New(
			record.F("Ticker", record.Text("ABC")),
			record.F("Fee", record.Float(0.01)),
			record.F("AsOfDate", record.Text("2025-01-01")),
		),
		record.New(
			record.F("Ticker", record.Text("XYZ")),
			record.F("Fee", record.Null(record.KindDecimal)),
			record.F("AsOfDate", record.Null(record.KindDate)),
		),
	}
}

func cycleError(t *testing.T, err error) *CycleError {
	t.Helper()
	var ce *CycleError
	if !errors.As(err, &ce) {
		t.Fatalf("Expected *CycleError, got %T: %v", err, err)
	}
	return ce
}

func TestUpsertCommits(t *testing.T) {
	rec := &testutil.Recorder{}
	o := New(rec, Options{Metrics: metrics.NewCollector()})

	res, err := o.Upsert(context.Background(), securityPlan(), securityRecords())
	if err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if res.Stage != StageCommitted {
		t.Errorf("Expected stage committed, got %s", res.Stage)
	}
	if res.Rows != 2 {
		t.Errorf("Expected 2 rows, got %d", res.Rows)
	}
	if res.CycleID == "" {
		t.Error("Expected a cycle id")
	}

	want := []string{
		"SELECT pg_advisory_xact_lock(hashtext('StgSecurity'))",
		"DELETE FROM StgSecurity",
		"INSERT INTO StgSecurity (Ticker, Fee, AsOfDate) VALUES ($1, $2, $3), ($4, $5, $6)",
		"CALL spPopulateSecurity()",
	}
	if diff := cmp.Diff(want, rec.SQL()); diff != "" {
		t.Errorf("Statements mismatch (-want +got):\n%s", diff)
	}
	if rec.Commits() != 1 || rec.Rollbacks() != 0 {
		t.Errorf("Expected 1 commit and 0 rollbacks, got %d and %d", rec.Commits(), rec.Rollbacks())
	}
	if s := o.State("StgSecurity"); s != StageIdle {
		t.Errorf("Expected idle after cycle, got %s", s)
	}
}

func TestUpsertEmptyInput(t *testing.T) {
	rec := &testutil.Recorder{}
	o := New(rec, Options{})

	_, err := o.Upsert(context.Background(), securityPlan(), nil)
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("Expected ErrEmptyInput, got %v", err)
	}
	ce := cycleError(t, err)
	if ce.Class != ClassEmptyInput || ce.Stage != StageIdle {
		t.Errorf("Expected empty_input at idle, got %s at %s", ce.Class, ce.Stage)
	}
	if len(rec.SQL()) != 0 {
		t.Errorf("Expected no statements, got %v", rec.SQL())
	}

	plan := securityPlan()
	plan.AllowEmpty = true
	res, err := o.Upsert(context.Background(), plan, nil)
	if err != nil {
		t.Fatalf("Upsert() with AllowEmpty error: %v", err)
	}
	if res.Rows != 0 {
		t.Errorf("Expected 0 rows, got %d", res.Rows)
	}
	want := []string{
		"SELECT pg_advisory_xact_lock(hashtext('StgSecurity'))",
		"DELETE FROM StgSecurity",
		"CALL spPopulateSecurity()",
	}
	if diff := cmp.Diff(want, rec.SQL()); diff != "" {
		t.Errorf("Statements mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertRejectsDuplicateKeys(t *testing.T) {
	plan := securityPlan()
	plan.Keys = []string{"Ticker", "AsOfDate"}

	row := func(ticker string, asOf record.Value) record.Record {
		return record.New(
			record.F("Ticker", record.Text(ticker)),
			record.F("AsOfDate", asOf),
		)
	}
	asOf := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		records []record.Record
		wantErr bool
	}{
		{"distinct", []record.Record{row("ABC", record.Date(asOf)), row("ABC", record.Text("2025-01-02"))}, false},
		{"repeated", []record.Record{row("ABC", record.Date(asOf)), row("XYZ", record.Date(asOf)), row("ABC", record.Date(asOf))}, true},
		{"repeated after coercion", []record.Record{row("ABC", record.Text("2025-01-01")), row("ABC", record.Date(asOf))}, true},
		{"null key part", []record.Record{row("ABC", record.Null(record.KindDate)), row("ABC", record.Null(record.KindDate))}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &testutil.Recorder{}
			o := New(rec, Options{})

			_, err := o.Upsert(context.Background(), plan, tt.records)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("Upsert() error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrDuplicateKey) {
				t.Fatalf("Expected ErrDuplicateKey, got %v", err)
			}
			ce := cycleError(t, err)
			if ce.Class != db.ClassStatement || ce.Stage != StageIdle {
				t.Errorf("Expected statement at idle, got %s at %s", ce.Class, ce.Stage)
			}
			if len(rec.SQL()) != 0 {
				t.Errorf("Expected nothing staged, got %v", rec.SQL())
			}
		})
	}

	plan.Keys = []string{"Isin"}
	_, err := New(&testutil.Recorder{}, Options{}).Upsert(context.Background(), plan, securityRecords())
	if err == nil || !strings.Contains(err.Error(), "key column Isin") {
		t.Errorf("Expected unknown key column error, got %v", err)
	}
}

func TestUpsertFailureStages(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		rec       *testutil.Recorder
		wantStage Stage
		wantRB    int
	}{
		{"begin", &testutil.Recorder{FailBegin: boom}, StageIdle, 0},
		{"advisory lock", &testutil.Recorder{FailOn: testutil.FailContaining("pg_advisory", boom)}, StageIdle, 1},
		{"delete", &testutil.Recorder{FailOn: testutil.FailContaining("DELETE", boom)}, StageStaging, 1},
		{"insert", &testutil.Recorder{FailOn: testutil.FailContaining("INSERT", boom)}, StageStaging, 1},
		{"call", &testutil.Recorder{FailOn: testutil.FailContaining("CALL", boom)}, StagePromoting, 1},
		{"commit", &testutil.Recorder{FailCommit: boom}, StagePromoting, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(tt.rec, Options{})
			res, err := o.Upsert(context.Background(), securityPlan(), securityRecords())
			if !errors.Is(err, boom) {
				t.Fatalf("Expected cause to unwrap, got %v", err)
			}
			ce := cycleError(t, err)
			if ce.Stage != tt.wantStage {
				t.Errorf("Expected stage %s, got %s", tt.wantStage, ce.Stage)
			}
			if ce.Entity != "security" || ce.Table != "StgSecurity" || ce.CycleID == "" {
				t.Errorf("Expected cycle identity on error, got %+v", ce)
			}
			if res.Stage != StageFailed {
				t.Errorf("Expected result stage failed, got %s", res.Stage)
			}
			if tt.rec.Rollbacks() != tt.wantRB {
				t.Errorf("Expected %d rollbacks, got %d", tt.wantRB, tt.rec.Rollbacks())
			}
			if tt.rec.Commits() != 0 {
				t.Errorf("Expected no commit, got %d", tt.rec.Commits())
			}
			if s := o.State("StgSecurity"); s != StageIdle {
				t.Errorf("Expected idle after failure, got %s", s)
			}
		})
	}
}

func TestUpsertRejectsBadPlan(t *testing.T) {
	o := New(&testutil.Recorder{}, Options{})

	plan := securityPlan()
	plan.Procedure = "spPopulate; DROP TABLE Security"
	_, err := o.Upsert(context.Background(), plan, securityRecords())
	if !errors.Is(err, record.ErrInvalidIdentifier) {
		t.Errorf("Expected ErrInvalidIdentifier, got %v", err)
	}

	plan = securityPlan()
	plan.Target = nil
	if _, err := o.Upsert(context.Background(), plan, securityRecords()); err == nil {
		t.Error("Expected error for a plan without target")
	}
}

func TestUpsertDeadline(t *testing.T) {
	rec := &testutil.Recorder{FailOn: func(sql string) error {
		if strings.HasPrefix(sql, "DELETE") {
			time.Sleep(20 * time.Millisecond)
		}
		return nil
	}}
	o := New(rec, Options{CycleTimeout: 5 * time.Millisecond})

	_, err := o.Upsert(context.Background(), securityPlan(), securityRecords())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
	ce := cycleError(t, err)
	if ce.Class != db.ClassTimeout || ce.Stage != StageStaging {
		t.Errorf("Expected timeout while staging, got %s at %s", ce.Class, ce.Stage)
	}
	if rec.Commits() != 0 {
		t.Error("Expected no commit after deadline")
	}
}

func TestUpsertWaitsForTableLock(t *testing.T) {
	rec := &testutil.Recorder{}
	o := New(rec, Options{CycleTimeout: 20 * time.Millisecond})

	release, err := o.locks.acquire(context.Background(), "stgsecurity")
	if err != nil {
		t.Fatalf("acquire() error: %v", err)
	}
	defer release()

	_, err = o.Upsert(context.Background(), securityPlan(), securityRecords())
	ce := cycleError(t, err)
	if ce.Stage != StageIdle || ce.Class != db.ClassTimeout {
		t.Errorf("Expected timeout at idle, got %s at %s", ce.Class, ce.Stage)
	}
	if len(rec.SQL()) != 0 {
		t.Errorf("Expected no statements while locked, got %v", rec.SQL())
	}
}

func TestUpsertSerializesPerTable(t *testing.T) {
	var active, overlaps atomic.Int32
	rec := &testutil.Recorder{FailOn: func(sql string) error {
		switch {
		case strings.HasPrefix(sql, "DELETE"):
			if active.Add(1) > 1 {
				overlaps.Add(1)
			}
			time.Sleep(time.Millisecond)
		case strings.HasPrefix(sql, "CALL"):
			active.Add(-1)
		}
		return nil
	}}
	o := New(rec, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := o.Upsert(context.Background(), securityPlan(), securityRecords()); err != nil {
				t.Errorf("Upsert() error: %v", err)
			}
		}()
	}
	wg.Wait()

	if overlaps.Load() != 0 {
		t.Errorf("Expected serialized cycles, got %d overlaps", overlaps.Load())
	}
	if rec.Commits() != 8 {
		t.Errorf("Expected 8 commits, got %d", rec.Commits())
	}
}

func setupSQLiteSecurity(t *testing.T, body string) *db.SQLDB {
	t.Helper()
	conn := testutil.OpenSQLite(t)
	ctx := context.Background()
	testutil.MustExec(t, conn,
		"CREATE TABLE StgSecurity (Ticker TEXT, Fee NUMERIC, AsOfDate DATE)",
		"CREATE TABLE Security (Ticker TEXT PRIMARY KEY, Fee NUMERIC, AsOfDate DATE)",
	)
	if err := db.CreateRoutinesTable(ctx, conn); err != nil {
		t.Fatalf("CreateRoutinesTable() error: %v", err)
	}
	if err := db.SaveRoutine(ctx, conn, "spPopulateSecurity", []string{body}); err != nil {
		t.Fatalf("SaveRoutine() error: %v", err)
	}
	return conn
}

const sqlitePopulateSecurity = "INSERT INTO Security (Ticker, Fee, AsOfDate) " +
	"SELECT Ticker, Fee, AsOfDate FROM StgSecurity WHERE true " +
	"ON CONFLICT (Ticker) DO UPDATE SET Fee = excluded.Fee, AsOfDate = excluded.AsOfDate"

func TestUpsertEndToEndOnSQLite(t *testing.T) {
	conn := setupSQLiteSecurity(t, sqlitePopulateSecurity)
	o := New(conn, Options{})

	for i := 0; i < 2; i++ {
		res, err := o.Upsert(context.Background(), securityPlan(), securityRecords())
		if err != nil {
			t.Fatalf("Upsert() pass %d error: %v", i, err)
		}
		if res.Rows != 2 {
			t.Errorf("Expected 2 rows on pass %d, got %d", i, res.Rows)
		}
	}

	rows, err := conn.Query(context.Background(), "SELECT Ticker, Fee, AsOfDate FROM Security ORDER BY Ticker")
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	got, err := db.ScanRecords(rows)
	if err != nil {
		t.Fatalf("ScanRecords() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 permanent rows, got %d", len(got))
	}

	abc, xyz := got[0], got[1]
	if abc.Get("Ticker").String() != "ABC" || !abc.Get("Fee").Equal(record.Float(0.01)) {
		t.Errorf("Expected ABC with fee 0.01, got %#v %#v", abc.Get("Ticker"), abc.Get("Fee"))
	}
	if s := abc.Get("AsOfDate").String(); !strings.HasPrefix(s, "2025-01-01") {
		t.Errorf("Expected ABC as-of date 2025-01-01, got %s", s)
	}
	if xyz.Get("Ticker").String() != "XYZ" || !xyz.Get("Fee").IsNull() || !xyz.Get("AsOfDate").IsNull() {
		t.Errorf("Expected XYZ with null fee and date, got %#v", xyz.Map())
	}
}

func TestUpsertRollsBackOnPromotionFailure(t *testing.T) {
	conn := setupSQLiteSecurity(t, "INSERT INTO MissingTable SELECT * FROM StgSecurity")
	testutil.MustExec(t, conn,
		"INSERT INTO StgSecurity VALUES ('STALE', 1, NULL)",
		"INSERT INTO Security VALUES ('OLD', 1, NULL)",
	)
	o := New(conn, Options{})

	_, err := o.Upsert(context.Background(), securityPlan(), securityRecords())
	ce := cycleError(t, err)
	if ce.Stage != StagePromoting {
		t.Errorf("Expected failure while promoting, got %s", ce.Stage)
	}

	// The staging delete and insert must be rolled back with the call.
	rows, err := conn.Query(context.Background(), "SELECT Ticker FROM StgSecurity")
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	staged, err := db.ScanRecords(rows)
	if err != nil {
		t.Fatalf("ScanRecords() error: %v", err)
	}
	if len(staged) != 1 || staged[0].Get("Ticker").String() != "STALE" {
		t.Errorf("Expected staging table untouched, got %d rows", len(staged))
	}
	if got := testutil.CountRows(t, conn, "Security"); got != 1 {
		t.Errorf("Expected permanent table untouched, got %d rows", got)
	}
}

func TestStageString(t *testing.T) {
	tests := map[Stage]string{
		StageIdle:      "idle",
		StageStaging:   "staging",
		StagePromoting: "promoting",
		StageCommitted: "committed",
		StageFailed:    "failed",
		Stage(42):      "stage(42)",
	}
	for s, want := range tests {
		if s.String() != want {
			t.Errorf("Expected '%s', got '%s'", want, s.String())
		}
	}
}
