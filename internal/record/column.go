//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package record

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// SQLType classifies a destination column for quoting and parsing.
type SQLType int

const (
	TypeText SQLType = iota + 1
	TypeInteger
	TypeNumeric
	TypeDate
	// TypeNull columns are always written as null regardless of the field.
	TypeNull
)

// String returns the configuration name of the type.
func (t SQLType) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeInteger:
		return "integer"
	case TypeNumeric:
		return "numeric"
	case TypeDate:
		return "date"
	case TypeNull:
		return "null"
	}
	return fmt.Sprintf("SQLType(%d)", int(t))
}

// ParseSQLType converts a configuration name into a SQLType.
func ParseSQLType(s string) (SQLType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string", "varchar":
		return TypeText, nil
	case "integer", "int", "bigint":
		return TypeInteger, nil
	case "numeric", "decimal", "float", "number":
		return TypeNumeric, nil
	case "date":
		return TypeDate, nil
	case "null", "passthrough-null":
		return TypeNull, nil
	}
	return 0, fmt.Errorf("unknown column type: %s", s)
}

// ColumnSpec binds a record field to a destination column by name.
type ColumnSpec struct {
	// Field is the record field name read for this column.
	Field string

	// Column is the destination column name.
	Column string

	// Type decides how the value is quoted, bound and parsed.
	Type SQLType
}

// Col builds a ColumnSpec whose field and column share a name.
func Col(name string, t SQLType) ColumnSpec {
	return ColumnSpec{Field: name, Column: name, Type: t}
}

// ErrInvalidIdentifier is returned for table, column or routine names that
// are not plain SQL identifiers.
var ErrInvalidIdentifier = errors.New("invalid SQL identifier")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// CheckIdentifier verifies that name may be interpolated into SQL text
// unquoted. An optional schema qualifier is allowed.
func CheckIdentifier(name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return nil
}

// ValidateColumns checks identifiers, types and duplicate columns.
func ValidateColumns(specs []ColumnSpec) error {
	if len(specs) == 0 {
		return errors.New("at least one column is required")
	}
	seen := make(map[string]bool, len(specs))
	for _, c := range specs {
		if err := CheckIdentifier(c.Column); err != nil {
			return err
		}
		if c.Field == "" {
			return fmt.Errorf("column %s has no field", c.Column)
		}
		if c.Type < TypeText || c.Type > TypeNull {
			return fmt.Errorf("column %s has unknown type %d", c.Column, int(c.Type))
		}
		key := strings.ToLower(c.Column)
		if seen[key] {
			return fmt.Errorf("duplicate column %s", c.Column)
		}
		seen[key] = true
	}
	return nil
}

// ColumnNames returns the destination column names in spec order.
func ColumnNames(specs []ColumnSpec) []string {
	names := make([]string, len(specs))
	for i, c := range specs {
		names[i] = c.Column
	}
	return names
}
