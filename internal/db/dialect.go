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

	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// Dialect captures the SQL differences between supported backends.
// Identifiers passed to a Dialect must already have been checked with
// record.CheckIdentifier.
type Dialect interface {
	// Name returns the dialect name: postgres, mysql or sqlite.
	Name() string

	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string

	// MaxParams is the most bind arguments one statement may carry.
	MaxParams() int

	// DateArg converts a date into a bind argument.
	DateArg(t time.Time) any

	// CallStatements returns the statements that invoke a no-argument
	// promotion routine.
	CallStatements(ctx context.Context, q Querier, routine string) ([]string, error)

	// LockStatement returns a statement that serializes cycles on a staging
	// table for the rest of the transaction, or "" if the backend has none.
	LockStatement(table string) string

	// ColumnType returns the DDL type for a column classification.
	ColumnType(t record.SQLType) string
}

// Supported dialects.
var (
	Postgres Dialect = postgresDialect{}
	MySQL    Dialect = mysqlDialect{}
	SQLite   Dialect = sqliteDialect{}
)

// DialectFor returns the dialect used by a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case DriverPgx, DriverPostgres:
		return Postgres, nil
	case DriverMySQL:
		return MySQL, nil
	case DriverSQLite:
		return SQLite, nil
	}
	return nil, fmt.Errorf("unknown driver: %s", driver)
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) MaxParams() int { return 65535 }

func (postgresDialect) DateArg(t time.Time) any { return t }

func (postgresDialect) CallStatements(_ context.Context, _ Querier, routine string) ([]string, error) {
	return []string{"CALL " + routine + "()"}, nil
}

func (postgresDialect) LockStatement(table string) string {
	return "SELECT pg_advisory_xact_lock(hashtext('" + table + "'))"
}

func (postgresDialect) ColumnType(t record.SQLType) string {
	switch t {
	case record.TypeInteger:
		return "BIGINT"
	case record.TypeNumeric:
		return "NUMERIC(28,10)"
	case record.TypeDate:
		return "DATE"
	}
	return "TEXT"
}

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) MaxParams() int { return 65535 }

func (mysqlDialect) DateArg(t time.Time) any { return t.Format(record.DateLayout) }

func (mysqlDialect) CallStatements(_ context.Context, _ Querier, routine string) ([]string, error) {
	return []string{"CALL " + routine + "()"}, nil
}

// MySQL named locks are session scoped, not transaction scoped, so cycles
// on MySQL rely on the in-process lock only.
func (mysqlDialect) LockStatement(string) string { return "" }

func (mysqlDialect) ColumnType(t record.SQLType) string {
	switch t {
	case record.TypeInteger:
		return "BIGINT"
	case record.TypeNumeric:
		return "DECIMAL(28,10)"
	case record.TypeDate:
		return "DATE"
	}
	return "VARCHAR(255)"
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) MaxParams() int { return 32766 }

func (sqliteDialect) DateArg(t time.Time) any { return t.Format(record.DateLayout) }

// SQLite has no stored procedures; routine bodies live in the routine
// registry table and are replayed statement by statement.
func (sqliteDialect) CallStatements(ctx context.Context, q Querier, routine string) ([]string, error) {
	return LoadRoutine(ctx, q, routine)
}

func (sqliteDialect) LockStatement(string) string { return "" }

func (sqliteDialect) ColumnType(t record.SQLType) string {
	switch t {
	case record.TypeInteger:
		return "INTEGER"
	case record.TypeNumeric:
		return "NUMERIC"
	case record.TypeDate:
		return "DATE"
	}
	return "TEXT"
}
