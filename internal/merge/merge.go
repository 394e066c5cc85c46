//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package merge folds rows from several tagged sources into one record per
// key. Each source owns a disjoint set of fields, so a row only ever
// updates the fields its own source is authoritative for.
package merge

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pgEdge/pgedge-refsync/internal/db"
	"github.com/pgEdge/pgedge-refsync/internal/logging"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// KeySeparator joins the parts of a composite key.
const KeySeparator = "|"

// ErrOverlappingSources is returned when two sources claim the same field,
// or a source claims an identity field.
var ErrOverlappingSources = errors.New("source field sets overlap")

// KeyFunc derives the merge key of a row.
type KeyFunc func(r record.Record) string

// CompositeKey returns a KeyFunc joining the text of fields with "|". A
// null field renders as the empty string.
func CompositeKey(fields ...string) KeyFunc {
	return func(r record.Record) string {
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = r.Get(f).String()
		}
		return strings.Join(parts, KeySeparator)
	}
}

// Spec describes how rows from tagged sources combine.
type Spec struct {
	key         KeyFunc
	sourceField string
	identity    []string
	sources     map[string][]string

	// fields maps lower-cased names to their spelling in this Spec.
	fields map[string]string
}

// NewSpec validates and builds a merge spec. Identity fields are copied
// from the first row seen for a key. sources maps a source tag to the
// fields it owns.
func NewSpec(key KeyFunc, sourceField string, identity []string, sources map[string][]string) (*Spec, error) {
	if key == nil {
		return nil, fmt.Errorf("merge key is required")
	}
	if sourceField == "" {
		return nil, fmt.Errorf("source field is required")
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}

	owner := make(map[string]string)
	for _, f := range identity {
		owner[f] = ""
	}

	// Iterate tags in order so the error names the same pair every run.
	tags := make([]string, 0, len(sources))
	for tag := range sources {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	copied := make(map[string][]string, len(sources))
	for _, tag := range tags {
		for _, f := range sources[tag] {
			if prev, ok := owner[f]; ok {
				if prev == "" {
					return nil, fmt.Errorf("%w: %s claims identity field %s", ErrOverlappingSources, tag, f)
				}
				return nil, fmt.Errorf("%w: %s and %s both claim %s", ErrOverlappingSources, prev, tag, f)
			}
			owner[f] = tag
		}
		copied[tag] = append([]string(nil), sources[tag]...)
	}

	fields := map[string]string{strings.ToLower(sourceField): sourceField}
	for f := range owner {
		fields[strings.ToLower(f)] = f
	}

	return &Spec{
		key:         key,
		sourceField: sourceField,
		identity:    append([]string(nil), identity...),
		sources:     copied,
		fields:      fields,
	}, nil
}

// Sources returns the known source tags in sorted order.
func (s *Spec) Sources() []string {
	tags := make([]string, 0, len(s.sources))
	for tag := range s.sources {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Result is the merged output. Keys holds keys in first-seen order.
type Result struct {
	Keys    []string
	Records map[string]record.Record
}

// Ordered returns the merged records in first-seen key order.
func (r *Result) Ordered() []record.Record {
	out := make([]record.Record, len(r.Keys))
	for i, k := range r.Keys {
		out[i] = r.Records[k]
	}
	return out
}

// Stats counts what happened during a reduce.
type Stats struct {
	Rows       int
	Merged     int
	Dropped    int
	Degenerate int
}

// Reduce folds rows in delivery order. The first row for a key creates the
// merged record with the identity fields and its source's fields. Later
// rows overwrite only the fields their source owns, last write wins.
// Rows with an unknown source tag are dropped.
func Reduce(rows []record.Record, spec *Spec) (*Result, Stats) {
	res := &Result{Records: make(map[string]record.Record)}
	var stats Stats

	for _, row := range rows {
		stats.Rows++
		fold(res, &stats, spec, row)
	}
	return res, stats
}

// fold applies one row to res.
func fold(res *Result, stats *Stats, spec *Spec, row record.Record) {
	tag := row.Get(spec.sourceField).String()
	owned, ok := spec.sources[tag]
	if !ok {
		stats.Dropped++
		logging.Warn().
			Str("source", tag).
			Str("source_field", spec.sourceField).
			Msg("Dropping row with unknown source tag")
		return
	}

	key := spec.key(row)
	if isDegenerate(key) {
		stats.Degenerate++
		logging.Debug().Str("key", key).Msg("Degenerate merge key")
	}

	merged, exists := res.Records[key]
	if !exists {
		for _, f := range spec.identity {
			merged.Set(f, row.Get(f))
		}
		res.Keys = append(res.Keys, key)
	} else {
		stats.Merged++
	}
	for _, f := range owned {
		merged.Set(f, row.Get(f))
	}
	res.Records[key] = merged
}

func isDegenerate(key string) bool {
	return strings.Trim(key, KeySeparator) == ""
}

// canonical renames result columns to the spelling s uses, since
// servers may fold unquoted identifiers to lower case.
func (s *Spec) canonical(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		if name, ok := s.fields[strings.ToLower(c)]; ok {
			out[i] = name
		} else {
			out[i] = c
		}
	}
	return out
}

// Query runs sql and reduces the returned rows.
func Query(ctx context.Context, q db.Querier, sql string, args []any, spec *Spec) (*Result, Stats, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to run merge query: %w", err)
	}
	defer rows.Close()

	res := &Result{Records: make(map[string]record.Record)}
	var stats Stats

	cols := spec.canonical(rows.Columns())
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, stats, fmt.Errorf("failed to read merge row: %w", err)
		}
		row, err := db.RowRecord(cols, vals)
		if err != nil {
			return nil, stats, err
		}
		stats.Rows++
		fold(res, &stats, spec, row)
	}
	if err := rows.Err(); err != nil {
		return nil, stats, fmt.Errorf("failed to read merge rows: %w", err)
	}
	return res, stats, nil
}
