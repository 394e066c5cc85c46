//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package fundmetric defines the fund financial metrics entity.
package fundmetric

import (
	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/datagen"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// Name is the catalog name of the entity.
const Name = "fundmetric"

// New returns the fund metric entity.
func New() *catalog.Entity {
	return &catalog.Entity{
		Name:        Name,
		Description: "Fund metrics - daily NAV, assets and expense ratio per fund",
		Table:       "FundMetric",
		Columns: []record.ColumnSpec{
			record.Col("FundName", record.TypeText),
			record.Col("MetricDate", record.TypeDate),
			record.Col("Currency", record.TypeText),
			record.Col("Nav", record.TypeNumeric),
			record.Col("TotalAssets", record.TypeNumeric),
			record.Col("SharesOutstanding", record.TypeInteger),
			record.Col("ExpenseRatio", record.TypeNumeric),
		},
		Keys: []string{"FundName", "MetricDate"},
		Row:  generateRow,
	}
}

func generateRow(f *datagen.Faker, seq int) record.Record {
	nav := f.Decimal(5, 250, 4)
	shares := f.Int64(100000, 50000000)

	return record.New(
		record.F("FundName", record.Text(f.FundName(seq))),
		record.F("MetricDate", record.Date(f.RecentDate(1))),
		record.F("Currency", record.Text(f.Currency())),
		record.F("Nav", record.Decimal(nav)),
		record.F("TotalAssets", record.Decimal(nav.Mul(decimal.NewFromInt(shares)).Round(2))),
		record.F("SharesOutstanding", record.Int(shares)),
		record.F("ExpenseRatio", record.Decimal(f.Decimal(0.0003, 0.02, 4))),
	)
}

func init() {
	catalog.Register(New())
}
