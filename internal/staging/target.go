//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package staging loads record collections into staging tables and invokes
// the routines that promote staged rows into permanent tables.
package staging

import (
	"fmt"
	"strings"

	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// Target is a staging table bound to its column specs. It is validated once
// at construction and is safe to share between goroutines.
type Target struct {
	table   string
	columns []record.ColumnSpec
}

// NewTarget validates the table name and column specs.
func NewTarget(table string, columns ...record.ColumnSpec) (*Target, error) {
	if err := record.CheckIdentifier(table); err != nil {
		return nil, fmt.Errorf("staging table: %w", err)
	}
	if err := record.ValidateColumns(columns); err != nil {
		return nil, fmt.Errorf("staging table %s: %w", table, err)
	}
	cols := make([]record.ColumnSpec, len(columns))
	copy(cols, columns)
	return &Target{table: table, columns: cols}, nil
}

// MustTarget is NewTarget for static catalog definitions.
func MustTarget(table string, columns ...record.ColumnSpec) *Target {
	t, err := NewTarget(table, columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Table returns the staging table name.
func (t *Target) Table() string { return t.table }

// Columns returns a copy of the column specs.
func (t *Target) Columns() []record.ColumnSpec {
	cols := make([]record.ColumnSpec, len(t.columns))
	copy(cols, t.columns)
	return cols
}

func (t *Target) columnList() string {
	return "(" + strings.Join(record.ColumnNames(t.columns), ", ") + ")"
}
