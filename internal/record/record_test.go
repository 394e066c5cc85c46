//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package record

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func TestRecordFieldOrder(t *testing.T) {
	r := New(
		F("Ticker", Text("ABC")),
		F("Fee", Float(0.01)),
	)
	r.Set("AsOfDate", Date(time.Date(2025, 1, 1, 13, 0, 0, 0, time.UTC)))
	r.Set("Ticker", Text("ABD"))

	if diff := cmp.Diff([]string{"Ticker", "Fee", "AsOfDate"}, r.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	if got, _ := r.Get("Ticker").Str(); got != "ABD" {
		t.Errorf("Expected Ticker 'ABD', got '%s'", got)
	}
	if got := r.Get("AsOfDate").String(); got != "2025-01-01" {
		t.Errorf("Expected AsOfDate '2025-01-01', got '%s'", got)
	}
}

func TestRecordMissingFieldIsNull(t *testing.T) {
	r := New(F("Ticker", Text("ABC")))
	if !r.Get("Fee").IsNull() {
		t.Error("Expected missing field to read as null")
	}
	if r.Has("Fee") {
		t.Error("Expected Has to be false for a missing field")
	}
}

func TestRecordStringsOmitsNulls(t *testing.T) {
	r := New(
		F("Ticker", Text("XYZ")),
		F("Fee", Null(KindDecimal)),
		F("Seq", Int(7)),
	)
	want := map[string]string{"Ticker": "XYZ", "Seq": "7"}
	if diff := cmp.Diff(want, r.Strings()); diff != "" {
		t.Errorf("Strings() mismatch (-want +got):\n%s", diff)
	}
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"float vs decimal", Float(0.01), Decimal(decimal.RequireFromString("0.01")), true},
		{"int vs decimal", Int(1000), Decimal(decimal.RequireFromString("1000.00")), true},
		{"text", Text("a'b"), Text("a'b"), true},
		{"text differs", Text("a"), Text("b"), false},
		{"null vs null of other kind", Null(KindText), Null(KindDate), true},
		{"null vs value", Null(KindText), Text(""), false},
		{"text vs number", Text("1"), Int(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Expected Equal %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		typ     SQLType
		want    Value
		wantErr bool
	}{
		{"text", "Apple Inc", TypeText, Text("Apple Inc"), false},
		{"empty text is null", "", TypeText, Null(KindText), false},
		{"numeric", "0.05", TypeNumeric, Decimal(decimal.RequireFromString("0.05")), false},
		{"numeric null word", "NULL", TypeNumeric, Null(KindDecimal), false},
		{"numeric grouping rejected", "1,000", TypeNumeric, Value{}, true},
		{"integer", " 42 ", TypeInteger, Int(42), false},
		{"integer rejects fraction", "4.2", TypeInteger, Value{}, true},
		{"iso date", "2025-01-01", TypeDate, Date(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)), false},
		{"us date", "01/31/2025", TypeDate, Date(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)), false},
		{"bad date", "31/01/2025", TypeDate, Value{}, true},
		{"passthrough null", "anything", TypeNull, Value{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.text, tt.typ)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("Expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestCoerce(t *testing.T) {
	got, err := Coerce(Float(1000), TypeInteger)
	if err != nil {
		t.Fatalf("Coerce() error: %v", err)
	}
	if i, ok := got.Int64(); !ok || i != 1000 {
		t.Errorf("Expected integer 1000, got %#v", got)
	}

	if _, err := Coerce(Float(10.5), TypeInteger); err == nil {
		t.Error("Expected error coercing a fractional float to integer")
	}

	outOfRange := []struct {
		name string
		v    Value
	}{
		{"float above int64", Float(1e19)},
		{"float at 2^63", Float(9223372036854775808)},
		{"float below int64", Float(-1e19)},
		{"decimal above int64", Decimal(decimal.RequireFromString("100000000000000000000"))},
		{"decimal one past max", Decimal(decimal.RequireFromString("9223372036854775808"))},
		{"decimal below int64", Decimal(decimal.RequireFromString("-9223372036854775809"))},
	}
	for _, tt := range outOfRange {
		if got, err := Coerce(tt.v, TypeInteger); err == nil {
			t.Errorf("%s: expected error, got %#v", tt.name, got)
		}
	}

	got, err = Coerce(Decimal(decimal.RequireFromString("-9223372036854775808")), TypeInteger)
	if err != nil {
		t.Fatalf("Coerce() of min int64 error: %v", err)
	}
	if i, _ := got.Int64(); i != -9223372036854775808 {
		t.Errorf("Expected min int64, got %#v", got)
	}

	got, err = Coerce(Text("2025-03-04"), TypeDate)
	if err != nil {
		t.Fatalf("Coerce() error: %v", err)
	}
	if got.Kind() != KindDate {
		t.Errorf("Expected date kind, got %s", got.Kind())
	}

	got, err = Coerce(Int(5), TypeText)
	if err != nil {
		t.Fatalf("Coerce() error: %v", err)
	}
	if s, _ := got.Str(); s != "5" {
		t.Errorf("Expected text '5', got '%s'", s)
	}

	got, err = Coerce(Text("ignored"), TypeNull)
	if err != nil || !got.IsNull() {
		t.Errorf("Expected null for passthrough column, got %#v (err %v)", got, err)
	}
}

func TestValidateColumns(t *testing.T) {
	tests := []struct {
		name    string
		specs   []ColumnSpec
		wantErr bool
	}{
		{"valid", []ColumnSpec{Col("Ticker", TypeText), Col("Fee", TypeNumeric)}, false},
		{"schema qualified", []ColumnSpec{Col("refdata.Ticker", TypeText)}, false},
		{"empty", nil, true},
		{"injection", []ColumnSpec{Col("Ticker; DROP TABLE x", TypeText)}, true},
		{"duplicate ignores case", []ColumnSpec{Col("Ticker", TypeText), Col("ticker", TypeText)}, true},
		{"missing field", []ColumnSpec{{Column: "Ticker", Type: TypeText}}, true},
		{"unknown type", []ColumnSpec{{Field: "A", Column: "A"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateColumns(tt.specs)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateColumns() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckIdentifier(t *testing.T) {
	if err := CheckIdentifier("spPopulateSecurity"); err != nil {
		t.Errorf("Expected valid identifier, got %v", err)
	}
	err := CheckIdentifier("sp'; --")
	if !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("Expected ErrInvalidIdentifier, got %v", err)
	}
}

func TestParseSQLType(t *testing.T) {
	for _, name := range []string{"text", "integer", "numeric", "date", "null"} {
		typ, err := ParseSQLType(name)
		if err != nil {
			t.Fatalf("ParseSQLType(%q) error: %v", name, err)
		}
		if typ.String() != name {
			t.Errorf("Expected '%s', got '%s'", name, typ.String())
		}
	}
	if _, err := ParseSQLType("blob"); err == nil {
		t.Error("Expected error for unknown type")
	}
}
