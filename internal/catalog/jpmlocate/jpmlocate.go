//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package jpmlocate defines the JPM securities-lending locate feed.
package jpmlocate

import (
	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/datagen"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// Name is the catalog name of the entity.
const Name = "jpmlocate"

// Table is the permanent table of the entity.
const Table = "JpmLocate"

// New returns the JPM locate entity.
func New() *catalog.Entity {
	return &catalog.Entity{
		Name:        Name,
		Description: "JPM locates - borrow availability and rebate rate per fund and currency",
		Table:       Table,
		Columns: []record.ColumnSpec{
			record.Col("FundName", record.TypeText),
			record.Col("Currency", record.TypeText),
			record.Col("RebateRate", record.TypeNumeric),
			record.Col("AsOfDate", record.TypeDate),
		},
		Keys: []string{"FundName", "Currency"},
		Row:  generateRow,
	}
}

func generateRow(f *datagen.Faker, seq int) record.Record {
	fund, ccy := datagen.FundKey(seq)
	return record.New(
		record.F("FundName", record.Text(fund)),
		record.F("Currency", record.Text(ccy)),
		record.F("RebateRate", record.Decimal(f.Decimal(-0.02, 0.05, 4))),
		record.F("AsOfDate", record.Date(f.RecentDate(1))),
	)
}

func init() {
	catalog.Register(New())
}
