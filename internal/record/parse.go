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
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	DateLayout,
	"01/02/2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ParseDate accepts the date layouts upstream feeds are known to send.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date: %q", s)
}

func isNullText(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "null", "NULL", "Null":
		return true
	}
	return false
}

// Parse converts feed text into a Value for a column of type t. Empty text
// and the word null become a null Value of the matching kind.
func Parse(text string, t SQLType) (Value, error) {
	switch t {
	case TypeNull:
		return Value{}, nil
	case TypeText:
		if text == "" {
			return Null(KindText), nil
		}
		return Text(text), nil
	}

	if isNullText(text) {
		return Null(kindFor(t)), nil
	}
	s := strings.TrimSpace(text)

	switch t {
	case TypeInteger:
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid integer: %q", text)
		}
		return Int(i), nil
	case TypeNumeric:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return Value{}, fmt.Errorf("invalid number: %q", text)
		}
		return Decimal(d), nil
	case TypeDate:
		d, err := ParseDate(s)
		if err != nil {
			return Value{}, err
		}
		return Date(d), nil
	}
	return Value{}, fmt.Errorf("unknown column type %d", int(t))
}

// Coerce converts v to the canonical kind for a column of type t. Text is
// parsed, integers widen to decimals for numeric columns and whole floats
// narrow to integers for integer columns.
func Coerce(v Value, t SQLType) (Value, error) {
	if t == TypeNull {
		return Value{}, nil
	}
	if v.IsNull() {
		return Null(kindFor(t)), nil
	}
	if s, ok := v.Str(); ok && t != TypeText {
		return Parse(s, t)
	}

	switch t {
	case TypeText:
		if v.kind == KindText {
			return v, nil
		}
		return Text(v.String()), nil
	case TypeInteger:
		switch v.kind {
		case KindInteger:
			return v, nil
		case KindFloat:
			// -2^63 is exact as a float64; 2^63 is the first value out of range.
			if v.f == math.Trunc(v.f) && v.f >= math.MinInt64 && v.f < -math.MinInt64 {
				return Int(int64(v.f)), nil
			}
		case KindDecimal:
			if v.d.IsInteger() && v.d.GreaterThanOrEqual(minInt64) && v.d.LessThanOrEqual(maxInt64) {
				return Int(v.d.IntPart()), nil
			}
		}
	case TypeNumeric:
		if v.IsNumeric() {
			return v, nil
		}
	case TypeDate:
		if v.kind == KindDate {
			return v, nil
		}
	}
	return Value{}, fmt.Errorf("cannot store %s value %q in %s column", v.kind, v.String(), t)
}

var (
	minInt64 = decimal.NewFromInt(math.MinInt64)
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
)

func kindFor(t SQLType) Kind {
	switch t {
	case TypeText:
		return KindText
	case TypeInteger:
		return KindInteger
	case TypeNumeric:
		return KindDecimal
	case TypeDate:
		return KindDate
	}
	return KindNone
}
