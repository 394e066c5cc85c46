//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package catalog defines the reference data entities that can be synced
// and the merged views built on top of them.
package catalog

import (
	"fmt"
	"strings"

	"github.com/pgEdge/pgedge-refsync/internal/datagen"
	"github.com/pgEdge/pgedge-refsync/internal/record"
	"github.com/pgEdge/pgedge-refsync/internal/staging"
	"github.com/pgEdge/pgedge-refsync/internal/upsert"
)

// StagingPrefix is prepended to a permanent table name to form the name of
// its staging table.
const StagingPrefix = "Stg"

// ProcedurePrefix is prepended to a permanent table name to form the name
// of its promotion routine.
const ProcedurePrefix = "spPopulate"

// Entity describes one reference data feed target.
type Entity struct {
	// Name is the short lower case name used on the command line.
	Name string

	// Description is a human-readable description.
	Description string

	// Table is the permanent table. The staging table and promotion
	// routine are derived from it.
	Table string

	// Columns binds record fields to staging columns. The permanent table
	// has the same columns.
	Columns []record.ColumnSpec

	// Keys are the columns that identify a row in the permanent table.
	Keys []string

	// Row builds one synthetic row.
	Row datagen.RowFunc
}

// StagingTable returns the staging table name, e.g. StgSecurity.
func (e *Entity) StagingTable() string {
	return StagingPrefix + e.Table
}

// Procedure returns the promotion routine name, e.g. spPopulateSecurity.
func (e *Entity) Procedure() string {
	return ProcedurePrefix + e.Table
}

// Target returns the validated staging target.
func (e *Entity) Target() (*staging.Target, error) {
	return staging.NewTarget(e.StagingTable(), e.Columns...)
}

// Plan returns the upsert plan for one cycle of this entity.
func (e *Entity) Plan(allowEmpty bool) (upsert.Plan, error) {
	target, err := e.Target()
	if err != nil {
		return upsert.Plan{}, fmt.Errorf("entity %s: %w", e.Name, err)
	}
	return upsert.Plan{
		Entity:     e.Name,
		Target:     target,
		Procedure:  e.Procedure(),
		Keys:       e.Keys,
		AllowEmpty: allowEmpty,
	}, nil
}

// Column returns the ColumnSpec for a field or column, matched case-insensitively.
func (e *Entity) Column(name string) (record.ColumnSpec, bool) {
	for _, c := range e.Columns {
		if strings.EqualFold(c.Column, name) {
			return c, true
		}
	}
	return record.ColumnSpec{}, false
}

// Generate builds n synthetic rows.
func (e *Entity) Generate(f *datagen.Faker, n int) []record.Record {
	return datagen.Generate(e.Name, f, n, e.Row)
}

// Validate checks the entity definition.
func (e *Entity) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("entity name is required")
	}
	if err := record.CheckIdentifier(e.Table); err != nil {
		return fmt.Errorf("entity %s: %w", e.Name, err)
	}
	if _, err := e.Target(); err != nil {
		return fmt.Errorf("entity %s: %w", e.Name, err)
	}
	if len(e.Keys) == 0 {
		return fmt.Errorf("entity %s: at least one key column is required", e.Name)
	}
	for _, k := range e.Keys {
		if _, ok := e.Column(k); !ok {
			return fmt.Errorf("entity %s: key %s is not a column", e.Name, k)
		}
	}
	if e.Row == nil {
		return fmt.Errorf("entity %s: row generator is required", e.Name)
	}
	return nil
}
