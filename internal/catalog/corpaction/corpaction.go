//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package corpaction defines the corporate actions entity.
package corpaction

import (
	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// Name is the catalog name of the entity.
const Name = "corpaction"

// New returns the corporate action entity.
func New() *catalog.Entity {
	return &catalog.Entity{
		Name: Name,
		Description: "Corporate actions - dividends, splits and spin-offs with " +
			"ex, record and pay dates",
		Table: "CorpAction",
		Columns: []record.ColumnSpec{
			record.Col("ActionId", record.TypeText),
			record.Col("Ticker", record.TypeText),
			record.Col("ActionType", record.TypeText),
			record.Col("ExDate", record.TypeDate),
			record.Col("RecordDate", record.TypeDate),
			record.Col("PayDate", record.TypeDate),
			record.Col("Ratio", record.TypeNumeric),
			record.Col("Amount", record.TypeNumeric),
			record.Col("Currency", record.TypeText),
		},
		Keys: []string{"ActionId"},
		Row:  generateRow,
	}
}

func init() {
	catalog.Register(New())
}
