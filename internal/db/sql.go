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
	"database/sql"
)

// sqlQuerier is satisfied by *sql.DB and *sql.Tx.
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// SQLDB adapts a database/sql handle.
type SQLDB struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLDB wraps an open handle.
func NewSQLDB(handle *sql.DB, d Dialect) *SQLDB {
	return &SQLDB{db: handle, dialect: d}
}

// Handle returns the underlying *sql.DB.
func (s *SQLDB) Handle() *sql.DB { return s.db }

func (s *SQLDB) Dialect() Dialect { return s.dialect }

func (s *SQLDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return sqlExec(ctx, s.db, query, args)
}

func (s *SQLDB) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return sqlQuery(ctx, s.db, query, args)
}

func (s *SQLDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqlTx{tx: tx, dialect: s.dialect}, nil
}

func (s *SQLDB) Close() { _ = s.db.Close() }

type sqlTx struct {
	tx      *sql.Tx
	dialect Dialect
}

func (t *sqlTx) Dialect() Dialect { return t.dialect }

func (t *sqlTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return sqlExec(ctx, t.tx, query, args)
}

func (t *sqlTx) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return sqlQuery(ctx, t.tx, query, args)
}

func (t *sqlTx) Commit(context.Context) error { return t.tx.Commit() }

func (t *sqlTx) Rollback(context.Context) error { return t.tx.Rollback() }

func sqlExec(ctx context.Context, q sqlQuerier, query string, args []any) (int64, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		// Some drivers cannot report a count for every statement.
		return 0, nil
	}
	return n, nil
}

func sqlQuery(ctx context.Context, q sqlQuerier, query string, args []any) (Rows, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &sqlRows{rows: rows, cols: cols}, nil
}

type sqlRows struct {
	rows *sql.Rows
	cols []string
}

func (r *sqlRows) Next() bool        { return r.rows.Next() }
func (r *sqlRows) Columns() []string { return r.cols }
func (r *sqlRows) Err() error        { return r.rows.Err() }
func (r *sqlRows) Close()            { _ = r.rows.Close() }

func (r *sqlRows) Values() ([]any, error) {
	vals := make([]any, len(r.cols))
	ptrs := make([]any, len(r.cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	for i, v := range vals {
		vals[i] = normalize(v)
	}
	return vals, nil
}
