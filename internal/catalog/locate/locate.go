//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package locate defines the merged locate view over the JPM and Fidelity
// locate feeds. JPM is authoritative for the rebate rate and Fidelity for
// the located quantity.
package locate

import (
	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/catalog/fidelitylocate"
	"github.com/pgEdge/pgedge-refsync/internal/catalog/jpmlocate"
	"github.com/pgEdge/pgedge-refsync/internal/merge"
)

// Name is the catalog name of the view.
const Name = "locate"

// Source tags.
const (
	SourceJPM      = "JPM"
	SourceFidelity = "Fidelity"
)

// Query tags every row with its provider. The NULL columns keep the union
// aligned; the merge only reads the fields each source owns.
const Query = "SELECT 'JPM' AS Source, FundName, Currency, RebateRate, NULL AS LocatedQty " +
	"FROM " + jpmlocate.Table + " " +
	"UNION ALL " +
	"SELECT 'Fidelity' AS Source, FundName, Currency, NULL AS RebateRate, LocatedQty " +
	"FROM " + fidelitylocate.Table + " " +
	"ORDER BY 2, 3, 1"

// Spec returns the merge spec of the view.
func Spec() (*merge.Spec, error) {
	return merge.NewSpec(
		merge.CompositeKey("FundName", "Currency"),
		"Source",
		[]string{"FundName", "Currency"},
		map[string][]string{
			SourceJPM:      {"RebateRate"},
			SourceFidelity: {"LocatedQty"},
		},
	)
}

// New returns the locate view.
func New() *catalog.View {
	spec, err := Spec()
	if err != nil {
		panic(err)
	}
	return &catalog.View{
		Name:        Name,
		Description: "Locates merged by fund and currency: JPM rebate rate with Fidelity located quantity",
		Entities:    []string{jpmlocate.Name, fidelitylocate.Name},
		SQL:         Query,
		Spec:        spec,
	}
}

func init() {
	catalog.RegisterView(New())
}
