//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package fidelitylocate defines the Fidelity securities-lending locate feed.
package fidelitylocate

import (
	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/datagen"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// Name is the catalog name of the entity.
const Name = "fidelitylocate"

// Table is the permanent table of the entity.
const Table = "FidelityLocate"

// New returns the Fidelity locate entity.
func New() *catalog.Entity {
	return &catalog.Entity{
		Name:        Name,
		Description: "Fidelity locates - located quantity per fund and currency",
		Table:       Table,
		Columns: []record.ColumnSpec{
			record.Col("FundName", record.TypeText),
			record.Col("Currency", record.TypeText),
			record.Col("LocatedQty", record.TypeInteger),
			record.Col("AsOfDate", record.TypeDate),
		},
		Keys: []string{"FundName", "Currency"},
		Row:  generateRow,
	}
}

func generateRow(f *datagen.Faker, seq int) record.Record {
	fund, ccy := datagen.FundKey(seq)

	qty := record.Int(f.Int64(1, 5000) * 100)
	if f.Chance(0.05) {
		qty = record.Null(record.KindInteger)
	}

	return record.New(
		record.F("FundName", record.Text(fund)),
		record.F("Currency", record.Text(ccy)),
		record.F("LocatedQty", qty),
		record.F("AsOfDate", record.Date(f.RecentDate(1))),
	)
}

func init() {
	catalog.Register(New())
}
