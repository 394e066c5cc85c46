//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/db"
	"github.com/pgEdge/pgedge-refsync/internal/logging"
	"github.com/pgEdge/pgedge-refsync/internal/schema"
)

var initDropExisting bool

var initCmd = &cobra.Command{
	Use:   "init [entity...]",
	Short: "Create staging tables, permanent tables and promotion routines",
	Long: `Create the staging table, permanent table and promotion routine of
each entity, together with the cycle ledger. On SQLite the promotion
statements are stored in a routine registry table instead.

With no arguments every registered entity is initialized.

Example:
  pgedge-refsync init --driver pgx --connection "postgres://..."
  pgedge-refsync init security jpmlocate --driver sqlite --connection refsync.db`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDropExisting, "drop-existing", false,
		"drop existing objects before initialization")
}

func runInit(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	entities, err := selectEntities(args)
	if err != nil {
		return err
	}
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}

	logging.Info().
		Str("driver", cfg.Driver).
		Strs("entities", names).
		Msg("Initializing database")

	ctx := context.Background()
	conn, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Check if already initialized with a different driver
	existingDriver, err := db.GetMetadataValue(ctx, conn, "driver")
	if err == nil && existingDriver != "" && existingDriver != cfg.Driver {
		if !initDropExisting {
			return fmt.Errorf(
				"database was initialized with driver '%s' but '%s' was specified; "+
					"use --drop-existing to reinitialize",
				existingDriver, cfg.Driver)
		}
		logging.Warn().
			Str("existing_driver", existingDriver).
			Str("new_driver", cfg.Driver).
			Msg("Dropping existing schema")
	}

	// Drop existing schema if requested
	if initDropExisting {
		logging.Info().Msg("Dropping existing schema")
		if err := schema.Drop(ctx, conn, entities); err != nil {
			return fmt.Errorf("failed to drop schema: %w", err)
		}
	}

	logging.Info().Msg("Creating schema")
	if err := schema.Create(ctx, conn, entities); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if err := db.SaveMetadata(ctx, conn, cfg.Driver, names); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}

	logging.Info().
		Int("entities", len(entities)).
		Msg("Database initialization complete")

	return nil
}

// selectEntities resolves entity names, or returns every entity when none
// are given.
func selectEntities(names []string) ([]*catalog.Entity, error) {
	if len(names) == 0 {
		return catalog.All(), nil
	}
	entities := make([]*catalog.Entity, 0, len(names))
	for _, name := range names {
		e, err := catalog.Get(name)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}
