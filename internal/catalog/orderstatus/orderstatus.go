//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package orderstatus defines the order, route and fill status entity.
package orderstatus

import (
	"fmt"

	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/datagen"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// Name is the catalog name of the entity.
const Name = "orderstatus"

var (
	sides          = []string{"BUY", "SELL", "SHORT"}
	statuses       = []string{"NEW", "ROUTED", "PARTIAL", "FILLED", "CANCELLED", "REJECTED"}
	statusWeights  = []int{10, 20, 20, 40, 7, 3}
	routeVenues    = []string{"ARCA", "EDGX", "BATS", "IEX", "DARK"}
	fillableStates = map[string]bool{"PARTIAL": true, "FILLED": true}
)

// New returns the order status entity.
func New() *catalog.Entity {
	return &catalog.Entity{
		Name:        Name,
		Description: "Order status - latest route and fill state per order",
		Table:       "OrderStatus",
		Columns: []record.ColumnSpec{
			record.Col("OrderId", record.TypeText),
			record.Col("RouteId", record.TypeText),
			record.Col("Ticker", record.TypeText),
			record.Col("Side", record.TypeText),
			record.Col("Status", record.TypeText),
			record.Col("OrderQty", record.TypeInteger),
			record.Col("FilledQty", record.TypeInteger),
			record.Col("AvgPrice", record.TypeNumeric),
			record.Col("UpdatedOn", record.TypeDate),
		},
		Keys: []string{"OrderId"},
		Row:  generateRow,
	}
}

func generateRow(f *datagen.Faker, seq int) record.Record {
	status := datagen.ChooseWeighted(f, statuses, statusWeights)
	qty := f.Int64(1, 500) * 100

	filled := int64(0)
	avg := record.Null(record.KindDecimal)
	switch {
	case status == "FILLED":
		filled = qty
	case fillableStates[status]:
		filled = f.Int64(1, qty-1)
	}
	if filled > 0 {
		avg = record.Decimal(f.Decimal(1, 900, 4))
	}

	route := record.Null(record.KindText)
	if status != "NEW" {
		route = record.Text(fmt.Sprintf("%s-%s", datagen.Choose(f, routeVenues), f.Digits(6)))
	}

	return record.New(
		record.F("OrderId", record.Text(fmt.Sprintf("ORD%08d", seq))),
		record.F("RouteId", route),
		record.F("Ticker", record.Text(f.Letters(3))),
		record.F("Side", record.Text(datagen.Choose(f, sides))),
		record.F("Status", record.Text(status)),
		record.F("OrderQty", record.Int(qty)),
		record.F("FilledQty", record.Int(filled)),
		record.F("AvgPrice", avg),
		record.F("UpdatedOn", record.Date(f.RecentDate(1))),
	)
}

func init() {
	catalog.Register(New())
}
