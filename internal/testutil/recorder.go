//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package testutil

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/pgEdge/pgedge-refsync/internal/db"
)

// Statement is one call recorded by a Recorder.
type Statement struct {
	SQL  string
	Args []any
}

// Recorder is an in-memory db.DB that records statements instead of running
// them. Failure knobs make a statement, Begin or Commit fail.
type Recorder struct {
	mu sync.Mutex

	// D is the reported dialect; nil means PostgreSQL.
	D db.Dialect

	// FailOn returns an error for statements that should fail.
	FailOn func(sql string) error

	// FailBegin and FailCommit fail the matching transaction call.
	FailBegin  error
	FailCommit error

	statements []Statement
	commits    int
	rollbacks  int
}

// FailContaining returns a FailOn func that fails statements containing
// substr with err.
func FailContaining(substr string, err error) func(string) error {
	return func(sql string) error {
		if strings.Contains(sql, substr) {
			return err
		}
		return nil
	}
}

// Statements returns a copy of the recorded statements.
func (r *Recorder) Statements() []Statement {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Statement, len(r.statements))
	copy(out, r.statements)
	return out
}

// SQL returns just the recorded statement text.
func (r *Recorder) SQL() []string {
	stmts := r.Statements()
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.SQL
	}
	return out
}

// Commits returns the number of committed transactions.
func (r *Recorder) Commits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.commits
}

// Rollbacks returns the number of rolled back transactions.
func (r *Recorder) Rollbacks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rollbacks
}

func (r *Recorder) Dialect() db.Dialect {
	if r.D == nil {
		return db.Postgres
	}
	return r.D
}

func (r *Recorder) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	r.statements = append(r.statements, Statement{SQL: sql, Args: args})
	fail := r.FailOn
	r.mu.Unlock()

	if fail != nil {
		if err := fail(sql); err != nil {
			return 0, err
		}
	}
	if strings.HasPrefix(sql, "INSERT") {
		return int64(strings.Count(sql, "(") - 1), nil
	}
	return 0, nil
}

func (r *Recorder) Query(ctx context.Context, sql string, args ...any) (db.Rows, error) {
	if _, err := r.Exec(ctx, sql, args...); err != nil {
		return nil, err
	}
	return &emptyRows{}, nil
}

func (r *Recorder) Begin(ctx context.Context) (db.Tx, error) {
	if r.FailBegin != nil {
		return nil, r.FailBegin
	}
	return &recorderTx{r: r}, nil
}

func (r *Recorder) Close() {}

type recorderTx struct {
	r    *Recorder
	done bool
}

func (t *recorderTx) Dialect() db.Dialect { return t.r.Dialect() }

func (t *recorderTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	return t.r.Exec(ctx, sql, args...)
}

func (t *recorderTx) Query(ctx context.Context, sql string, args ...any) (db.Rows, error) {
	return t.r.Query(ctx, sql, args...)
}

func (t *recorderTx) Commit(context.Context) error {
	if t.done {
		return errors.New("transaction already closed")
	}
	if t.r.FailCommit != nil {
		return t.r.FailCommit
	}
	t.done = true
	t.r.mu.Lock()
	t.r.commits++
	t.r.mu.Unlock()
	return nil
}

func (t *recorderTx) Rollback(context.Context) error {
	if t.done {
		return errors.New("transaction already closed")
	}
	t.done = true
	t.r.mu.Lock()
	t.r.rollbacks++
	t.r.mu.Unlock()
	return nil
}

type emptyRows struct{}

func (*emptyRows) Next() bool             { return false }
func (*emptyRows) Columns() []string      { return nil }
func (*emptyRows) Values() ([]any, error) { return nil, nil }
func (*emptyRows) Err() error             { return nil }
func (*emptyRows) Close()                 {}
