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
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// pgxQuerier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgxDB adapts a pgx connection pool.
type PgxDB struct {
	pool *pgxpool.Pool
}

// NewPgxDB wraps an open pool.
func NewPgxDB(pool *pgxpool.Pool) *PgxDB {
	return &PgxDB{pool: pool}
}

// Pool returns the underlying pool.
func (p *PgxDB) Pool() *pgxpool.Pool { return p.pool }

func (p *PgxDB) Dialect() Dialect { return Postgres }

func (p *PgxDB) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return pgxExec(ctx, p.pool, sql, args)
}

func (p *PgxDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return pgxQuery(ctx, p.pool, sql, args)
}

func (p *PgxDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

func (p *PgxDB) Close() { p.pool.Close() }

type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Dialect() Dialect { return Postgres }

func (t *pgxTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return pgxExec(ctx, t.tx, sql, args)
}

func (t *pgxTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return pgxQuery(ctx, t.tx, sql, args)
}

func (t *pgxTx) Commit(ctx context.Context) error { return t.tx.Commit(ctx) }

func (t *pgxTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// CopyFrom streams rows with the COPY protocol. Identifiers are folded to
// lower case to match unquoted DDL.
func (t *pgxTx) CopyFrom(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	ident := pgx.Identifier(strings.Split(strings.ToLower(table), "."))
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = strings.ToLower(c)
	}
	for _, row := range rows {
		for i, v := range row {
			row[i] = copyArg(v)
		}
	}
	return t.tx.CopyFrom(ctx, ident, cols, pgx.CopyFromRows(rows))
}

func pgxExec(ctx context.Context, q pgxQuerier, sql string, args []any) (int64, error) {
	tag, err := q.Exec(ctx, sql, pgxArgs(args)...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func pgxQuery(ctx context.Context, q pgxQuerier, sql string, args []any) (Rows, error) {
	rows, err := q.Query(ctx, sql, pgxArgs(args)...)
	if err != nil {
		return nil, err
	}
	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}
	return &pgxRows{rows: rows, cols: cols}, nil
}

// pgxArgs sends decimals as text, which the server casts to the parameter
// type.
func pgxArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if d, ok := a.(decimal.Decimal); ok {
			out[i] = d.String()
			continue
		}
		out[i] = a
	}
	return out
}

// copyArg converts values that COPY cannot encode in binary form.
func copyArg(v any) any {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return v
	}
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return d.String()
	}
	return n
}

type pgxRows struct {
	rows pgx.Rows
	cols []string
}

func (r *pgxRows) Next() bool        { return r.rows.Next() }
func (r *pgxRows) Columns() []string { return r.cols }
func (r *pgxRows) Err() error        { return r.rows.Err() }
func (r *pgxRows) Close()            { r.rows.Close() }

func (r *pgxRows) Values() ([]any, error) {
	vals, err := r.rows.Values()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		vals[i] = normalizePgx(v)
	}
	return vals, nil
}

func normalizePgx(v any) any {
	switch t := v.(type) {
	case pgtype.Numeric:
		if !t.Valid {
			return nil
		}
		dv, err := t.Value()
		if err != nil {
			return nil
		}
		if s, ok := dv.(string); ok {
			if d, err := decimal.NewFromString(s); err == nil {
				return d
			}
			return s
		}
		return dv
	case int16:
		return int64(t)
	}
	return normalize(v)
}
