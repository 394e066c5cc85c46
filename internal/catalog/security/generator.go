//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package security

import (
	"github.com/pgEdge/pgedge-refsync/internal/datagen"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

var exchanges = []string{"NYSE", "NASDAQ", "LSE", "XETRA", "TSE", "SIX"}

var exchangeWeights = []int{35, 35, 10, 8, 7, 5}

var lotSizes = []int64{1, 10, 100, 1000}

func generateRow(f *datagen.Faker, seq int) record.Record {
	fee := record.Decimal(f.Decimal(0.0001, 0.05, 4))
	// Roughly one instrument in ten has no published fee.
	if f.Chance(0.1) {
		fee = record.Null(record.KindDecimal)
	}

	return record.New(
		record.F("Ticker", record.Text(f.Ticker(seq))),
		record.F("Cusip", record.Text(f.Cusip())),
		record.F("SecurityName", record.Text(f.Company())),
		record.F("Exchange", record.Text(datagen.ChooseWeighted(f, exchanges, exchangeWeights))),
		record.F("Currency", record.Text(f.Currency())),
		record.F("Fee", fee),
		record.F("LotSize", record.Int(datagen.Choose(f, lotSizes))),
		record.F("AsOfDate", record.Date(f.RecentDate(5))),
	)
}
