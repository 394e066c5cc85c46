//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package feed

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/logging"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// columnIndex maps lower-cased field and column names to column specs.
func columnIndex(e *catalog.Entity) map[string]record.ColumnSpec {
	idx := make(map[string]record.ColumnSpec, len(e.Columns)*2)
	for _, c := range e.Columns {
		idx[strings.ToLower(c.Column)] = c
		idx[strings.ToLower(c.Field)] = c
	}
	return idx
}

// checkKeys fails when a key column of e is not among the bound specs.
func checkKeys(e *catalog.Entity, bound []record.ColumnSpec) error {
	have := make(map[string]bool, len(bound))
	for _, c := range bound {
		have[strings.ToLower(c.Column)] = true
	}
	for _, k := range e.Keys {
		if !have[strings.ToLower(k)] {
			return fmt.Errorf("key column %s is missing from the feed", k)
		}
	}
	return nil
}

// DecodeCSV reads a CSV snapshot with a header row. Header names are
// matched case-insensitively against the entity's field and column names;
// unknown headers are ignored. A zero delimiter means a comma.
func DecodeCSV(r io.Reader, delimiter rune, e *catalog.Entity) ([]record.Record, error) {
	reader := csv.NewReader(r)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := columnIndex(e)
	specs := make([]*record.ColumnSpec, len(header))
	var bound []record.ColumnSpec
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		c, ok := idx[name]
		if !ok {
			logging.Debug().Str("entity", e.Name).Str("header", h).Msg("Ignoring unknown feed column")
			continue
		}
		specs[i] = &c
		bound = append(bound, c)
	}
	if err := checkKeys(e, bound); err != nil {
		return nil, err
	}

	var out []record.Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)

		var rec record.Record
		for i, text := range row {
			c := specs[i]
			if c == nil {
				continue
			}
			v, err := record.Parse(text, c.Type)
			if err != nil {
				return nil, fmt.Errorf("line %d, column %s: %w", line, c.Column, err)
			}
			rec.Set(c.Field, v)
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeJSON reads a JSON snapshot holding an array of flat objects. Keys
// are matched like CSV headers. Numbers are kept as decimal text until
// they are coerced to the column type, so no precision is lost.
func DecodeJSON(r io.Reader, e *catalog.Entity) ([]record.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var objects []map[string]any
	if err := dec.Decode(&objects); err != nil {
		return nil, fmt.Errorf("failed to parse json: %w", err)
	}

	idx := columnIndex(e)
	out := make([]record.Record, 0, len(objects))
	for i, obj := range objects {
		var rec record.Record
		var bound []record.ColumnSpec
		for key, raw := range obj {
			c, ok := idx[strings.ToLower(key)]
			if !ok {
				continue
			}
			v, err := jsonValue(raw, c.Type)
			if err != nil {
				return nil, fmt.Errorf("object %d, field %s: %w", i, key, err)
			}
			rec.Set(c.Field, v)
			bound = append(bound, c)
		}
		if err := checkKeys(e, bound); err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		out = append(out, ordered(rec, e))
	}
	return out, nil
}

func jsonValue(raw any, t record.SQLType) (record.Value, error) {
	switch x := raw.(type) {
	case nil:
		return record.Coerce(record.Value{}, t)
	case string:
		return record.Parse(x, t)
	case json.Number:
		return record.Parse(x.String(), t)
	case bool:
		v, _ := record.Of(x)
		return record.Coerce(v, t)
	}
	return record.Value{}, fmt.Errorf("unsupported json value of type %T", raw)
}

// ordered returns rec with its fields in column order. Map iteration
// order would otherwise leak into the record.
func ordered(rec record.Record, e *catalog.Entity) record.Record {
	var out record.Record
	for _, c := range e.Columns {
		if rec.Has(c.Field) {
			out.Set(c.Field, rec.Get(c.Field))
		}
	}
	return out
}
