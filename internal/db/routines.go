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
)

// routinesTable stores promotion routine bodies for backends without
// stored procedures.
const routinesTable = "refsync_routines"

const createRoutinesTableSQL = `
CREATE TABLE IF NOT EXISTS refsync_routines (
    name TEXT    NOT NULL,
    seq  INTEGER NOT NULL,
    body TEXT    NOT NULL,
    PRIMARY KEY (name, seq)
)`

// CreateRoutinesTable creates the routine registry.
func CreateRoutinesTable(ctx context.Context, ex Execer) error {
	if _, err := ex.Exec(ctx, createRoutinesTableSQL); err != nil {
		return fmt.Errorf("failed to create routine table: %w", err)
	}
	return nil
}

// DropRoutinesTable drops the routine registry.
func DropRoutinesTable(ctx context.Context, ex Execer) error {
	_, err := ex.Exec(ctx, "DROP TABLE IF EXISTS "+routinesTable)
	return err
}

// SaveRoutine replaces the stored body of a routine.
func SaveRoutine(ctx context.Context, ex Execer, name string, statements []string) error {
	d := ex.Dialect()
	if _, err := ex.Exec(ctx,
		"DELETE FROM "+routinesTable+" WHERE name = "+d.Placeholder(1), name); err != nil {
		return fmt.Errorf("failed to clear routine %s: %w", name, err)
	}
	for i, stmt := range statements {
		_, err := ex.Exec(ctx,
			"INSERT INTO "+routinesTable+" (name, seq, body) VALUES ("+
				d.Placeholder(1)+", "+d.Placeholder(2)+", "+d.Placeholder(3)+")",
			name, int64(i), stmt)
		if err != nil {
			return fmt.Errorf("failed to save routine %s: %w", name, err)
		}
	}
	return nil
}

// LoadRoutine returns the stored statements of a routine in order.
func LoadRoutine(ctx context.Context, q Querier, name string) ([]string, error) {
	rows, err := q.Query(ctx,
		"SELECT body FROM "+routinesTable+" WHERE name = ? ORDER BY seq", name)
	if err != nil {
		return nil, fmt.Errorf("failed to load routine %s: %w", name, err)
	}
	defer rows.Close()

	var stmts []string
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		body, ok := vals[0].(string)
		if !ok {
			return nil, fmt.Errorf("routine %s has a non-text body", name)
		}
		stmts = append(stmts, body)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return nil, fmt.Errorf("routine %s is not registered", name)
	}
	return stmts, nil
}
