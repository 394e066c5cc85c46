//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

const ledgerTable = "refsync_cycles"

// ledgerTimeLayout has a fixed width so text ordering matches time order.
const ledgerTimeLayout = "2006-01-02T15:04:05.000000Z"

// Timestamps are stored as UTC text in ledgerTimeLayout.
const createLedgerTableSQL = `
CREATE TABLE IF NOT EXISTS refsync_cycles (
    cycle_id    VARCHAR(36) PRIMARY KEY,
    entity      VARCHAR(128) NOT NULL,
    status      VARCHAR(16) NOT NULL,
    stage       VARCHAR(16) NOT NULL,
    rows_staged BIGINT NOT NULL,
    error_text  TEXT,
    started_at  VARCHAR(40) NOT NULL,
    finished_at VARCHAR(40) NOT NULL
)`

// CycleEntry is one row of the cycle ledger.
type CycleEntry struct {
	CycleID    string
	Entity     string
	Status     string
	Stage      string
	Rows       int64
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// CreateLedger creates the cycle ledger table.
func CreateLedger(ctx context.Context, ex Execer) error {
	if _, err := ex.Exec(ctx, createLedgerTableSQL); err != nil {
		return fmt.Errorf("failed to create cycle ledger: %w", err)
	}
	return nil
}

// DropLedger drops the cycle ledger table.
func DropLedger(ctx context.Context, ex Execer) error {
	_, err := ex.Exec(ctx, "DROP TABLE IF EXISTS "+ledgerTable)
	return err
}

// RecordCycle appends a finished cycle to the ledger.
func RecordCycle(ctx context.Context, ex Execer, e CycleEntry) error {
	d := ex.Dialect()
	ph := make([]any, 8)
	for i := range ph {
		ph[i] = d.Placeholder(i + 1)
	}
	var errText any
	if e.Error != "" {
		errText = e.Error
	}

	query := fmt.Sprintf(`INSERT INTO %s
    (cycle_id, entity, status, stage, rows_staged, error_text, started_at, finished_at)
    VALUES (%s, %s, %s, %s, %s, %s, %s, %s)`, append([]any{ledgerTable}, ph...)...)

	_, err := ex.Exec(ctx, query,
		e.CycleID, e.Entity, e.Status, e.Stage, e.Rows, errText,
		e.StartedAt.UTC().Format(ledgerTimeLayout),
		e.FinishedAt.UTC().Format(ledgerTimeLayout))
	if err != nil {
		return fmt.Errorf("failed to record cycle %s: %w", e.CycleID, err)
	}
	return nil
}

// RecentCycles returns the latest cycles, newest first. An empty entity
// returns cycles for every entity.
func RecentCycles(ctx context.Context, conn DB, entity string, limit int) ([]CycleEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	d := conn.Dialect()

	query := "SELECT cycle_id, entity, status, stage, rows_staged, error_text, started_at, finished_at FROM " +
		ledgerTable
	var args []any
	if entity != "" {
		query += " WHERE entity = " + d.Placeholder(1)
		args = append(args, entity)
	}
	query += " ORDER BY started_at DESC LIMIT " + strconv.Itoa(limit)

	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycle ledger: %w", err)
	}
	defer rows.Close()

	var out []CycleEntry
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		e := CycleEntry{
			CycleID: asString(vals[0]),
			Entity:  asString(vals[1]),
			Status:  asString(vals[2]),
			Stage:   asString(vals[3]),
			Error:   asString(vals[5]),
		}
		switch n := vals[4].(type) {
		case int64:
			e.Rows = n
		case string:
			e.Rows, _ = strconv.ParseInt(n, 10, 64)
		}
		e.StartedAt, _ = time.Parse(ledgerTimeLayout, asString(vals[6]))
		e.FinishedAt, _ = time.Parse(ledgerTimeLayout, asString(vals[7]))
		out = append(out, e)
	}
	return out, rows.Err()
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
