//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package feed reads the records of one feed snapshot. A source turns a
// feed configuration into typed records shaped by the target entity's
// column specs.
package feed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/config"
	"github.com/pgEdge/pgedge-refsync/internal/logging"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// Source reads a full snapshot of a feed.
type Source interface {
	// Name is the value of the feed's source key, e.g. "csv".
	Name() string

	// Read returns every record of the snapshot, typed for e.
	Read(ctx context.Context, f *config.FeedConfig, e *catalog.Entity) ([]record.Record, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Source)
)

// Register adds a source to the registry, replacing any source of the same
// name.
func Register(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Name()] = s
}

// Get returns the source registered under name.
func Get(name string) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown feed source: %s", name)
	}
	return s, nil
}

// Names returns the registered source names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load reads the snapshot of feed f for entity e.
func Load(ctx context.Context, f *config.FeedConfig, e *catalog.Entity) ([]record.Record, error) {
	src, err := Get(f.Source)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", f.Name, err)
	}

	start := time.Now()
	records, err := src.Read(ctx, f, e)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed %s: %w", f.Name, err)
	}

	logging.Debug().
		Str("feed", f.Name).
		Str("source", f.Source).
		Str("entity", e.Name).
		Int("rows", len(records)).
		Dur("took", time.Since(start)).
		Msg("Read feed snapshot")

	return records, nil
}

func init() {
	Register(fileSource{name: config.SourceCSV})
	Register(fileSource{name: config.SourceJSON})
	Register(&s3Source{})
	Register(syntheticSource{})
}
