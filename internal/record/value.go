//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package record defines the typed, nullable record model that flows from
// feed adapters through the staging writer and merge reducer.
package record

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the Go representation held by a Value.
type Kind int

const (
	// KindNone is the kind of the zero Value.
	KindNone Kind = iota
	KindText
	KindInteger
	KindFloat
	KindDecimal
	KindDate
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindDate:
		return "date"
	default:
		return "none"
	}
}

// DateLayout is the canonical date rendering used throughout the sync path.
const DateLayout = "2006-01-02"

// Value is a nullable typed scalar. The zero Value is null.
type Value struct {
	kind  Kind
	valid bool
	s     string
	i     int64
	f     float64
	d     decimal.Decimal
	t     time.Time
}

// Text returns a non-null text value.
func Text(s string) Value {
	return Value{kind: KindText, valid: true, s: s}
}

// Int returns a non-null integer value.
func Int(i int64) Value {
	return Value{kind: KindInteger, valid: true, i: i}
}

// Float returns a non-null floating-point value.
func Float(f float64) Value {
	return Value{kind: KindFloat, valid: true, f: f}
}

// Decimal returns a non-null decimal value.
func Decimal(d decimal.Decimal) Value {
	return Value{kind: KindDecimal, valid: true, d: d}
}

// Date returns a non-null date value truncated to the calendar day in UTC.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, valid: true, t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Null returns a null value that remembers the kind it would have had.
func Null(k Kind) Value {
	return Value{kind: k}
}

// Kind returns the kind of the value. Null values keep their declared kind.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the value is null.
func (v Value) IsNull() bool { return !v.valid }

// Str returns the text payload.
func (v Value) Str() (string, bool) {
	return v.s, v.valid && v.kind == KindText
}

// Int64 returns the integer payload.
func (v Value) Int64() (int64, bool) {
	return v.i, v.valid && v.kind == KindInteger
}

// Float64 returns the floating-point payload.
func (v Value) Float64() (float64, bool) {
	return v.f, v.valid && v.kind == KindFloat
}

// Dec returns the decimal payload.
func (v Value) Dec() (decimal.Decimal, bool) {
	return v.d, v.valid && v.kind == KindDecimal
}

// Time returns the date payload.
func (v Value) Time() (time.Time, bool) {
	return v.t, v.valid && v.kind == KindDate
}

// IsNumeric reports whether the value holds a number of any kind.
func (v Value) IsNumeric() bool {
	return v.kind == KindInteger || v.kind == KindFloat || v.kind == KindDecimal
}

// AsDecimal converts any numeric value to a decimal.
func (v Value) AsDecimal() (decimal.Decimal, bool) {
	if !v.valid {
		return decimal.Decimal{}, false
	}
	switch v.kind {
	case KindInteger:
		return decimal.NewFromInt(v.i), true
	case KindFloat:
		return decimal.NewFromFloat(v.f), true
	case KindDecimal:
		return v.d, true
	}
	return decimal.Decimal{}, false
}

// Any returns the Go value held, or nil when null.
func (v Value) Any() any {
	if !v.valid {
		return nil
	}
	switch v.kind {
	case KindText:
		return v.s
	case KindInteger:
		return v.i
	case KindFloat:
		return v.f
	case KindDecimal:
		return v.d
	case KindDate:
		return v.t
	}
	return nil
}

// String renders the value as plain text. Null renders as the empty string.
func (v Value) String() string {
	if !v.valid {
		return ""
	}
	switch v.kind {
	case KindText:
		return v.s
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindDecimal:
		return v.d.String()
	case KindDate:
		return v.t.Format(DateLayout)
	}
	return ""
}

// Equal reports whether two values are the same. Numeric kinds compare by
// value, so Float(0.01) equals Decimal(0.01). Two nulls are equal.
func (v Value) Equal(o Value) bool {
	if v.IsNull() || o.IsNull() {
		return v.IsNull() && o.IsNull()
	}
	if v.IsNumeric() && o.IsNumeric() {
		a, _ := v.AsDecimal()
		b, _ := o.AsDecimal()
		return a.Equal(b)
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.s == o.s
	case KindDate:
		return v.t.Equal(o.t)
	}
	return false
}

// GoString is used by %#v and in test failure output.
func (v Value) GoString() string {
	if v.IsNull() {
		return fmt.Sprintf("null(%s)", v.kind)
	}
	return fmt.Sprintf("%s(%s)", v.kind, v.String())
}

// Of converts a driver or feed supplied Go value into a Value. Unsupported
// types produce an error.
func Of(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Value{}, nil
	case Value:
		return t, nil
	case string:
		return Text(t), nil
	case []byte:
		return Text(string(t)), nil
	case int:
		return Int(int64(t)), nil
	case int16:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case bool:
		if t {
			return Int(1), nil
		}
		return Int(0), nil
	case decimal.Decimal:
		return Decimal(t), nil
	case time.Time:
		return Date(t), nil
	case fmt.Stringer:
		return Text(t.String()), nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", x)
}
