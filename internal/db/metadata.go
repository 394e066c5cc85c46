//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package db

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pgEdge/pgedge-refsync/internal/logging"
	"github.com/pgEdge/pgedge-refsync/pkg/version"
)

const metadataTable = "refsync_metadata"

// createMetadataTableSQL creates the metadata table if it doesn't exist.
// VARCHAR keys keep the primary key valid on MySQL.
const createMetadataTableSQL = `
CREATE TABLE IF NOT EXISTS refsync_metadata (
    meta_key   VARCHAR(64) PRIMARY KEY,
    meta_value TEXT NOT NULL
)`

// SaveMetadata records initialization details: the tool version, the
// initialization time, the driver and the entities whose schema was created.
func SaveMetadata(ctx context.Context, ex Execer, driver string, entities []string) error {
	_, err := ex.Exec(ctx, createMetadataTableSQL)
	if err != nil {
		return fmt.Errorf("failed to create metadata table: %w", err)
	}

	sorted := append([]string(nil), entities...)
	sort.Strings(sorted)

	metadata := map[string]string{
		"version":        version.Short(),
		"initialized_at": time.Now().UTC().Format(time.RFC3339),
		"driver":         driver,
		"entities":       strings.Join(sorted, ","),
	}

	d := ex.Dialect()
	for key, value := range metadata {
		// Delete then insert keeps the statement portable across dialects.
		if _, err := ex.Exec(ctx,
			"DELETE FROM "+metadataTable+" WHERE meta_key = "+d.Placeholder(1), key); err != nil {
			return fmt.Errorf("failed to save metadata %s: %w", key, err)
		}
		if _, err := ex.Exec(ctx,
			"INSERT INTO "+metadataTable+" (meta_key, meta_value) VALUES ("+
				d.Placeholder(1)+", "+d.Placeholder(2)+")", key, value); err != nil {
			return fmt.Errorf("failed to save metadata %s: %w", key, err)
		}
	}

	logging.Debug().
		Str("driver", driver).
		Int("entities", len(entities)).
		Msg("Saved metadata")

	return nil
}

// GetMetadataValue retrieves a single metadata value by key.
func GetMetadataValue(ctx context.Context, conn DB, key string) (string, error) {
	all, err := GetAllMetadata(ctx, conn)
	if err != nil {
		return "", err
	}
	v, ok := all[key]
	if !ok {
		return "", fmt.Errorf("metadata key %s not found", key)
	}
	return v, nil
}

// GetAllMetadata retrieves all metadata as a map.
func GetAllMetadata(ctx context.Context, conn DB) (map[string]string, error) {
	rows, err := conn.Query(ctx, "SELECT meta_key, meta_value FROM "+metadataTable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metadata := make(map[string]string)
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		key, _ := vals[0].(string)
		value, _ := vals[1].(string)
		metadata[key] = value
	}

	return metadata, rows.Err()
}

// DropMetadata drops the metadata table.
func DropMetadata(ctx context.Context, ex Execer) error {
	_, err := ex.Exec(ctx, "DROP TABLE IF EXISTS "+metadataTable)
	return err
}
