//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package security defines the security master entity.
package security

import (
	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// Name is the catalog name of the entity.
const Name = "security"

// New returns the security master entity.
func New() *catalog.Entity {
	return &catalog.Entity{
		Name: Name,
		Description: "Security master - one row per listed instrument with " +
			"identifiers, listing venue, fee schedule and lot size",
		Table: "Security",
		Columns: []record.ColumnSpec{
			record.Col("Ticker", record.TypeText),
			record.Col("Cusip", record.TypeText),
			record.Col("SecurityName", record.TypeText),
			record.Col("Exchange", record.TypeText),
			record.Col("Currency", record.TypeText),
			record.Col("Fee", record.TypeNumeric),
			record.Col("LotSize", record.TypeInteger),
			record.Col("AsOfDate", record.TypeDate),
		},
		Keys: []string{"Ticker"},
		Row:  generateRow,
	}
}

func init() {
	catalog.Register(New())
}
