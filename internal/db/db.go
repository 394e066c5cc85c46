//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package db provides database access for pgedge-refsync. The same
// interfaces are satisfied by a pgx connection pool and by database/sql
// handles for the lib/pq, MySQL and SQLite drivers, so the sync path never
// depends on a particular backend or on process-wide connection state.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// Execer runs statements that return no rows.
type Execer interface {
	// Exec executes sql and returns the number of rows affected.
	Exec(ctx context.Context, sql string, args ...any) (int64, error)

	// Dialect returns the SQL dialect of the underlying connection.
	Dialect() Dialect
}

// Querier runs statements that return rows.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// Rows iterates a result set.
type Rows interface {
	Next() bool
	// Columns returns the result column names.
	Columns() []string
	// Values returns the current row with driver values normalized to
	// string, int64, float64, decimal.Decimal, time.Time or nil.
	Values() ([]any, error)
	Err() error
	Close()
}

// Tx is an open transaction.
type Tx interface {
	Execer
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DB is a connection handle that can start transactions.
type DB interface {
	Execer
	Querier
	Begin(ctx context.Context) (Tx, error)
	Close()
}

// CopyFromer is implemented by transactions that support a bulk copy
// protocol. Only the pgx backend provides it.
type CopyFromer interface {
	CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

// BindValue converts a record value into a statement argument for the
// given dialect.
func BindValue(d Dialect, v record.Value) any {
	if v.IsNull() {
		return nil
	}
	if t, ok := v.Time(); ok {
		return d.DateArg(t)
	}
	return v.Any()
}

// RowRecord converts one result row into a record keyed by column name.
func RowRecord(columns []string, values []any) (record.Record, error) {
	if len(columns) != len(values) {
		return record.Record{}, fmt.Errorf("row has %d values for %d columns", len(values), len(columns))
	}
	var r record.Record
	for i, name := range columns {
		v, err := record.Of(values[i])
		if err != nil {
			return record.Record{}, fmt.Errorf("column %s: %w", name, err)
		}
		r.Set(name, v)
	}
	return r, nil
}

// ScanRecords drains rows into records.
func ScanRecords(rows Rows) ([]record.Record, error) {
	defer rows.Close()

	cols := rows.Columns()
	var out []record.Record
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		r, err := RowRecord(cols, vals)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// normalize maps driver-specific scan results onto the set documented on
// Rows.Values.
func normalize(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float32:
		return float64(t)
	case time.Time, string, int64, float64, decimal.Decimal, nil:
		return t
	}
	return v
}
