//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package staging

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgEdge/pgedge-refsync/internal/db"
	"github.com/pgEdge/pgedge-refsync/internal/logging"
	"github.com/pgEdge/pgedge-refsync/internal/record"
	"github.com/pgEdge/pgedge-refsync/internal/sqlenc"
)

// Mode selects how rows are sent to the staging table.
type Mode string

const (
	// ModeValues sends one parameterized multi-row INSERT.
	ModeValues Mode = "values"
	// ModeLiteral sends one multi-row INSERT built from escaped literals.
	ModeLiteral Mode = "literal"
	// ModeCopy uses the COPY protocol where the backend supports it and
	// falls back to ModeValues elsewhere.
	ModeCopy Mode = "copy"
)

// ParseMode validates a configured mode name. Empty means ModeValues.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeValues:
		return ModeValues, nil
	case ModeLiteral, ModeCopy:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown staging mode: %s", s)
}

// Writer loads records into a staging table.
type Writer struct {
	mode      Mode
	maxParams int
}

// NewWriter creates a writer. A maxParams of zero uses the dialect limit.
func NewWriter(mode Mode, maxParams int) *Writer {
	if mode == "" {
		mode = ModeValues
	}
	return &Writer{mode: mode, maxParams: maxParams}
}

// Mode returns the configured insert mode.
func (w *Writer) Mode() Mode { return w.mode }

// Load clears the staging table and inserts records, returning the number
// of rows inserted. With no records only the delete runs. Load does not
// open a transaction; callers wrap it together with promotion.
func (w *Writer) Load(ctx context.Context, ex db.Execer, t *Target, records []record.Record) (int64, error) {
	if _, err := ex.Exec(ctx, "DELETE FROM "+t.table); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", t.table, err)
	}
	if len(records) == 0 {
		logging.Debug().Str("table", t.table).Msg("No records to stage")
		return 0, nil
	}

	switch w.mode {
	case ModeLiteral:
		return w.loadLiteral(ctx, ex, t, records)
	case ModeCopy:
		if cf, ok := ex.(db.CopyFromer); ok {
			return w.loadCopy(ctx, cf, ex.Dialect(), t, records)
		}
		logging.Debug().
			Str("table", t.table).
			Str("dialect", ex.Dialect().Name()).
			Msg("COPY not supported, using parameterized insert")
	}
	return w.loadValues(ctx, ex, t, records)
}

// loadLiteral builds the whole batch as one statement of escaped literals.
func (w *Writer) loadLiteral(ctx context.Context, ex db.Execer, t *Target, records []record.Record) (int64, error) {
	tuples := make([]string, len(records))
	for i, r := range records {
		tuple, err := sqlenc.Tuple(r, t.columns)
		if err != nil {
			return 0, fmt.Errorf("record %d for %s: %w", i, t.table, err)
		}
		tuples[i] = tuple
	}

	stmt := "INSERT INTO " + t.table + " " + t.columnList() + " VALUES " + strings.Join(tuples, ", ")
	logging.Debug().
		Str("table", t.table).
		Int("rows", len(records)).
		Int("statement_bytes", len(stmt)).
		Msg("Staging literal batch")

	n, err := ex.Exec(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into %s: %w", t.table, err)
	}
	return n, nil
}

// loadValues sends parameterized multi-row inserts. A batch whose argument
// count exceeds the parameter limit is split into the fewest statements that
// fit.
func (w *Writer) loadValues(ctx context.Context, ex db.Execer, t *Target, records []record.Record) (int64, error) {
	d := ex.Dialect()
	perStmt := w.rowsPerStatement(d, len(t.columns))
	if perStmt < len(records) {
		logging.Warn().
			Str("table", t.table).
			Int("rows", len(records)).
			Int("rows_per_statement", perStmt).
			Msg("Staging batch exceeds parameter limit, splitting")
	}

	var total int64
	for start := 0; start < len(records); start += perStmt {
		end := min(start+perStmt, len(records))
		stmt, args, err := w.buildValues(d, t, records[start:end], start)
		if err != nil {
			return total, err
		}
		n, err := ex.Exec(ctx, stmt, args...)
		if err != nil {
			return total, fmt.Errorf("failed to insert into %s: %w", t.table, err)
		}
		total += n
	}
	return total, nil
}

func (w *Writer) rowsPerStatement(d db.Dialect, columns int) int {
	limit := w.maxParams
	if limit <= 0 || limit > d.MaxParams() {
		limit = d.MaxParams()
	}
	return max(1, limit/columns)
}

func (w *Writer) buildValues(d db.Dialect, t *Target, records []record.Record, offset int) (string, []any, error) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(t.table)
	b.WriteByte(' ')
	b.WriteString(t.columnList())
	b.WriteString(" VALUES ")

	args := make([]any, 0, len(records)*len(t.columns))
	for i, r := range records {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for j, c := range t.columns {
			if j > 0 {
				b.WriteString(", ")
			}
			v, err := record.Coerce(r.Get(c.Field), c.Type)
			if err != nil {
				return "", nil, fmt.Errorf("record %d for %s: column %s: %w", offset+i, t.table, c.Column, err)
			}
			args = append(args, db.BindValue(d, v))
			b.WriteString(d.Placeholder(len(args)))
		}
		b.WriteByte(')')
	}
	return b.String(), args, nil
}

func (w *Writer) loadCopy(ctx context.Context, cf db.CopyFromer, d db.Dialect, t *Target, records []record.Record) (int64, error) {
	rows := make([][]any, len(records))
	for i, r := range records {
		row := make([]any, len(t.columns))
		for j, c := range t.columns {
			v, err := record.Coerce(r.Get(c.Field), c.Type)
			if err != nil {
				return 0, fmt.Errorf("record %d for %s: column %s: %w", i, t.table, c.Column, err)
			}
			row[j] = db.BindValue(d, v)
		}
		rows[i] = row
	}

	n, err := cf.CopyFrom(ctx, t.table, record.ColumnNames(t.columns), rows)
	if err != nil {
		return 0, fmt.Errorf("failed to copy into %s: %w", t.table, err)
	}
	return n, nil
}
