//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package upsert

import (
	"fmt"
	"strings"

	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// checkKeys rejects a batch in which two records share the same key. The
// promotion routines would otherwise diverge: PostgreSQL refuses to update
// a row twice in one statement while MySQL and SQLite keep whichever row
// they see last.
//
// Key values are compared after coercion to their column type. Records
// whose key cannot be coerced or has a null part are left for the staging
// load and the permanent table constraints to reject.
func checkKeys(plan Plan, records []record.Record) error {
	if len(plan.Keys) == 0 || len(records) < 2 {
		return nil
	}

	specs := make([]record.ColumnSpec, 0, len(plan.Keys))
	for _, k := range plan.Keys {
		spec, ok := findColumn(plan.Target.Columns(), k)
		if !ok {
			return fmt.Errorf("key column %s is not a column of %s", k, plan.Target.Table())
		}
		specs = append(specs, spec)
	}

	seen := make(map[string]int, len(records))
	parts := make([]string, len(specs))
	for i, r := range records {
		skip := false
		for j, spec := range specs {
			v, err := record.Coerce(r.Get(spec.Field), spec.Type)
			if err != nil || v.IsNull() {
				skip = true
				break
			}
			parts[j] = v.String()
		}
		if skip {
			continue
		}
		key := strings.Join(parts, "\x00")
		if first, ok := seen[key]; ok {
			return fmt.Errorf("%w: records %d and %d share key (%s) = (%s)",
				ErrDuplicateKey, first, i, strings.Join(plan.Keys, ", "), strings.Join(parts, ", "))
		}
		seen[key] = i
	}
	return nil
}

func findColumn(columns []record.ColumnSpec, name string) (record.ColumnSpec, bool) {
	for _, c := range columns {
		if strings.EqualFold(c.Column, name) {
			return c, true
		}
	}
	return record.ColumnSpec{}, false
}
