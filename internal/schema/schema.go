//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package schema generates and applies the tables and promotion routines
// for catalog entities on each supported backend.
package schema

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/db"
	"github.com/pgEdge/pgedge-refsync/internal/logging"
)

// StagingTable returns the CREATE TABLE statement of the staging table.
// Staging tables carry no keys; they are cleared at the start of every
// cycle.
func StagingTable(d db.Dialect, e *catalog.Entity) string {
	return createTable(d, e.StagingTable(), e, nil)
}

// PermanentTable returns the CREATE TABLE statement of the permanent table,
// keyed on the entity's key columns.
func PermanentTable(d db.Dialect, e *catalog.Entity) string {
	return createTable(d, e.Table, e, e.Keys)
}

func createTable(d db.Dialect, table string, e *catalog.Entity, keys []string) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(table)
	b.WriteString(" (\n")

	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[strings.ToLower(k)] = true
	}

	for i, c := range e.Columns {
		if i > 0 {
			b.WriteString(",\n")
		}
		fmt.Fprintf(&b, "    %s %s", c.Column, d.ColumnType(c.Type))
		if isKey[strings.ToLower(c.Column)] {
			b.WriteString(" NOT NULL")
		}
	}
	if len(keys) > 0 {
		fmt.Fprintf(&b, ",\n    PRIMARY KEY (%s)", strings.Join(keys, ", "))
	}
	b.WriteString("\n)")
	return b.String()
}

// upsertSelect returns the INSERT ... SELECT that copies the staging table
// into the permanent table, without the conflict clause.
func upsertSelect(e *catalog.Entity, alias string) string {
	cols := make([]string, len(e.Columns))
	src := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		cols[i] = c.Column
		src[i] = alias + "." + c.Column
	}
	return fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s %s",
		e.Table, strings.Join(cols, ", "), strings.Join(src, ", "), e.StagingTable(), alias)
}

// nonKeyColumns returns the columns a promotion overwrites.
func nonKeyColumns(e *catalog.Entity) []string {
	isKey := make(map[string]bool, len(e.Keys))
	for _, k := range e.Keys {
		isKey[strings.ToLower(k)] = true
	}
	var out []string
	for _, c := range e.Columns {
		if !isKey[strings.ToLower(c.Column)] {
			out = append(out, c.Column)
		}
	}
	return out
}

// PromotionStatement returns the upsert-by-key statement that promotes the
// staging table into the permanent table.
func PromotionStatement(d db.Dialect, e *catalog.Entity) string {
	update := nonKeyColumns(e)
	keys := strings.Join(e.Keys, ", ")

	switch d.Name() {
	case db.MySQL.Name():
		sets := make([]string, len(update))
		for i, c := range update {
			sets[i] = fmt.Sprintf("%s = s.%s", c, c)
		}
		if len(sets) == 0 {
			sets = []string{fmt.Sprintf("%s = %s.%s", e.Keys[0], e.Table, e.Keys[0])}
		}
		return upsertSelect(e, "s") + " ON DUPLICATE KEY UPDATE " + strings.Join(sets, ", ")

	default:
		// PostgreSQL and SQLite share ON CONFLICT. SQLite needs the WHERE
		// clause to parse ON CONFLICT after a SELECT.
		stmt := upsertSelect(e, "s") + " WHERE true ON CONFLICT (" + keys + ")"
		if len(update) == 0 {
			return stmt + " DO NOTHING"
		}
		sets := make([]string, len(update))
		for i, c := range update {
			sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
		}
		return stmt + " DO UPDATE SET " + strings.Join(sets, ", ")
	}
}

// Routine returns the statements that install the promotion routine. On
// SQLite it returns nothing; the promotion statement is stored in the
// routine registry instead.
func Routine(d db.Dialect, e *catalog.Entity) []string {
	body := PromotionStatement(d, e)
	switch d.Name() {
	case db.Postgres.Name():
		return []string{fmt.Sprintf(
			"CREATE OR REPLACE PROCEDURE %s()\nLANGUAGE sql\nAS $$\n%s\n$$",
			e.Procedure(), body)}
	case db.MySQL.Name():
		return []string{
			"DROP PROCEDURE IF EXISTS " + e.Procedure(),
			fmt.Sprintf("CREATE PROCEDURE %s()\nBEGIN\n%s;\nEND", e.Procedure(), body),
		}
	}
	return nil
}

// DropStatements returns the statements that remove everything Create
// installs for e.
func DropStatements(d db.Dialect, e *catalog.Entity) []string {
	var stmts []string
	switch d.Name() {
	case db.Postgres.Name():
		stmts = append(stmts, "DROP PROCEDURE IF EXISTS "+e.Procedure()+"()")
	case db.MySQL.Name():
		stmts = append(stmts, "DROP PROCEDURE IF EXISTS "+e.Procedure())
	}
	return append(stmts,
		"DROP TABLE IF EXISTS "+e.StagingTable(),
		"DROP TABLE IF EXISTS "+e.Table,
	)
}

// Create installs the tables and promotion routine of every entity, the
// cycle ledger and, on SQLite, the routine registry.
func Create(ctx context.Context, ex db.Execer, entities []*catalog.Entity) error {
	d := ex.Dialect()

	if err := db.CreateLedger(ctx, ex); err != nil {
		return err
	}
	if d.Name() == db.SQLite.Name() {
		if err := db.CreateRoutinesTable(ctx, ex); err != nil {
			return err
		}
	}

	for _, e := range entities {
		stmts := []string{StagingTable(d, e), PermanentTable(d, e)}
		stmts = append(stmts, Routine(d, e)...)
		for _, stmt := range stmts {
			if _, err := ex.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to create schema for %s: %w", e.Name, err)
			}
		}
		if d.Name() == db.SQLite.Name() {
			if err := db.SaveRoutine(ctx, ex, e.Procedure(), []string{PromotionStatement(d, e)}); err != nil {
				return err
			}
		}

		logging.Debug().
			Str("entity", e.Name).
			Str("table", e.Table).
			Str("procedure", e.Procedure()).
			Msg("Created entity schema")
	}
	return nil
}

// Drop removes the objects of every entity together with the cycle
// ledger, the routine registry and the metadata table.
func Drop(ctx context.Context, ex db.Execer, entities []*catalog.Entity) error {
	d := ex.Dialect()
	for _, e := range entities {
		for _, stmt := range DropStatements(d, e) {
			if _, err := ex.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("failed to drop schema for %s: %w", e.Name, err)
			}
		}
	}
	if err := db.DropLedger(ctx, ex); err != nil {
		return fmt.Errorf("failed to drop cycle ledger: %w", err)
	}
	if d.Name() == db.SQLite.Name() {
		if err := db.DropRoutinesTable(ctx, ex); err != nil {
			return fmt.Errorf("failed to drop routine registry: %w", err)
		}
	}
	if err := db.DropMetadata(ctx, ex); err != nil {
		return fmt.Errorf("failed to drop metadata: %w", err)
	}
	return nil
}
