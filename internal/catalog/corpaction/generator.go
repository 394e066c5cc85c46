//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package corpaction

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pgEdge/pgedge-refsync/internal/datagen"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

var (
	actionTypes   = []string{"CASH_DIV", "STOCK_DIV", "SPLIT", "REVERSE_SPLIT", "SPINOFF"}
	actionWeights = []int{60, 10, 15, 5, 10}
	splitRatios   = []string{"2", "3", "1.5", "4", "10"}
)

func generateRow(f *datagen.Faker, seq int) record.Record {
	kind := datagen.ChooseWeighted(f, actionTypes, actionWeights)

	exDate := f.DateRange(time.Now().UTC(), time.Now().UTC().AddDate(0, 3, 0))
	recordDate := exDate.AddDate(0, 0, 1)

	ratio := record.Null(record.KindDecimal)
	amount := record.Null(record.KindDecimal)
	payDate := record.Null(record.KindDate)
	ccy := record.Null(record.KindText)

	switch kind {
	case "CASH_DIV":
		amount = record.Decimal(f.Decimal(0.01, 5, 4))
		payDate = record.Date(exDate.AddDate(0, 0, f.Int(7, 30)))
		ccy = record.Text(f.Currency())
	case "STOCK_DIV", "SPINOFF":
		ratio = record.Decimal(f.Decimal(0.01, 0.5, 4))
		payDate = record.Date(exDate.AddDate(0, 0, f.Int(7, 30)))
	case "SPLIT":
		ratio = record.Decimal(decimal.RequireFromString(datagen.Choose(f, splitRatios)))
	case "REVERSE_SPLIT":
		ratio = record.Decimal(decimal.NewFromInt(1).Div(decimal.RequireFromString(datagen.Choose(f, splitRatios))).Round(6))
	}

	return record.New(
		record.F("ActionId", record.Text(fmt.Sprintf("CA%07d", seq))),
		record.F("Ticker", record.Text(f.Letters(3))),
		record.F("ActionType", record.Text(kind)),
		record.F("ExDate", record.Date(exDate)),
		record.F("RecordDate", record.Date(recordDate)),
		record.F("PayDate", payDate),
		record.F("Ratio", ratio),
		record.F("Amount", amount),
		record.F("Currency", ccy),
	)
}
