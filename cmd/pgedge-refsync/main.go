// Package main is the entry point for pgedge-refsync.
package main

import (
	"fmt"
	"os"

	"github.com/pgEdge/pgedge-refsync/internal/cli"

	// Register entities and merged views
	_ "github.com/pgEdge/pgedge-refsync/internal/catalog/corpaction"
	_ "github.com/pgEdge/pgedge-refsync/internal/catalog/fidelitylocate"
	_ "github.com/pgEdge/pgedge-refsync/internal/catalog/fundmetric"
	_ "github.com/pgEdge/pgedge-refsync/internal/catalog/jpmlocate"
	_ "github.com/pgEdge/pgedge-refsync/internal/catalog/locate"
	_ "github.com/pgEdge/pgedge-refsync/internal/catalog/orderstatus"
	_ "github.com/pgEdge/pgedge-refsync/internal/catalog/security"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
