//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package sqlenc renders typed values as SQL literals and parses them back.
//
// Text is single-quoted with embedded quotes doubled, numbers are written
// unquoted with '.' as the decimal separator and dates are written as
// 'yyyy-MM-dd'. Null is always the bare word null.
package sqlenc

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// Null is the literal emitted for null and missing values.
const Null = "null"

// ErrInvalidLiteral is returned when a value cannot be rendered or parsed
// as a literal of the requested type.
var ErrInvalidLiteral = errors.New("invalid SQL literal")

// Encode renders v as a literal for a column of type t.
func Encode(v record.Value, t record.SQLType) (string, error) {
	if t == record.TypeNull || v.IsNull() {
		return Null, nil
	}

	switch t {
	case record.TypeText:
		return quote(v.String())
	case record.TypeInteger, record.TypeNumeric:
		return encodeNumber(v, t)
	case record.TypeDate:
		return encodeDate(v)
	}
	return "", fmt.Errorf("%w: unknown column type %d", ErrInvalidLiteral, int(t))
}

func quote(s string) (string, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return "", fmt.Errorf("%w: text contains a NUL byte", ErrInvalidLiteral)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'", nil
}

func encodeNumber(v record.Value, t record.SQLType) (string, error) {
	c, err := record.Coerce(v, t)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLiteral, err)
	}
	switch c.Kind() {
	case record.KindInteger:
		i, _ := c.Int64()
		return strconv.FormatInt(i, 10), nil
	case record.KindFloat:
		f, _ := c.Float64()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", fmt.Errorf("%w: %v is not a finite number", ErrInvalidLiteral, f)
		}
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	case record.KindDecimal:
		d, _ := c.Dec()
		return d.String(), nil
	}
	return "", fmt.Errorf("%w: %s is not numeric", ErrInvalidLiteral, c.Kind())
}

func encodeDate(v record.Value) (string, error) {
	c, err := record.Coerce(v, record.TypeDate)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLiteral, err)
	}
	d, _ := c.Time()
	return "'" + d.Format(record.DateLayout) + "'", nil
}

// Decode parses a literal produced by Encode. Numeric literals decode to
// integers when they have no fractional part and type is integer, and to
// decimals otherwise.
func Decode(lit string, t record.SQLType) (record.Value, error) {
	lit = strings.TrimSpace(lit)
	if strings.EqualFold(lit, Null) || t == record.TypeNull {
		return record.Value{}, nil
	}

	switch t {
	case record.TypeText:
		s, err := unquote(lit)
		if err != nil {
			return record.Value{}, err
		}
		return record.Text(s), nil
	case record.TypeInteger:
		i, err := strconv.ParseInt(lit, 10, 64)
		if err != nil {
			return record.Value{}, fmt.Errorf("%w: %q is not an integer", ErrInvalidLiteral, lit)
		}
		return record.Int(i), nil
	case record.TypeNumeric:
		d, err := decimal.NewFromString(lit)
		if err != nil {
			return record.Value{}, fmt.Errorf("%w: %q is not a number", ErrInvalidLiteral, lit)
		}
		return record.Decimal(d), nil
	case record.TypeDate:
		s, err := unquote(lit)
		if err != nil {
			return record.Value{}, err
		}
		d, err := time.Parse(record.DateLayout, s)
		if err != nil {
			return record.Value{}, fmt.Errorf("%w: %q is not a date", ErrInvalidLiteral, lit)
		}
		return record.Date(d), nil
	}
	return record.Value{}, fmt.Errorf("%w: unknown column type %d", ErrInvalidLiteral, int(t))
}

func unquote(lit string) (string, error) {
	if len(lit) < 2 || lit[0] != '\'' || lit[len(lit)-1] != '\'' {
		return "", fmt.Errorf("%w: %q is not quoted", ErrInvalidLiteral, lit)
	}
	body := lit[1 : len(lit)-1]

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		if body[i] == '\'' {
			if i+1 >= len(body) || body[i+1] != '\'' {
				return "", fmt.Errorf("%w: unescaped quote in %q", ErrInvalidLiteral, lit)
			}
			i++
		}
		b.WriteByte(body[i])
	}
	return b.String(), nil
}

// Tuple renders one parenthesized row of literals in column order.
func Tuple(r record.Record, cols []record.ColumnSpec) (string, error) {
	var b strings.Builder
	b.WriteByte('(')
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		lit, err := Encode(r.Get(c.Field), c.Type)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", c.Column, err)
		}
		b.WriteString(lit)
	}
	b.WriteByte(')')
	return b.String(), nil
}
