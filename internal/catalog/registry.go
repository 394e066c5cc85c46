//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package catalog

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry = make(map[string]*Entity)
	views    = make(map[string]*View)
	mu       sync.RWMutex
)

// Register adds an entity to the registry. It panics on an invalid
// definition, since entities register from init.
func Register(e *Entity) {
	if err := e.Validate(); err != nil {
		panic(err)
	}
	mu.Lock()
	defer mu.Unlock()
	registry[e.Name] = e
}

// Get retrieves an entity by name.
func Get(name string) (*Entity, error) {
	mu.RLock()
	defer mu.RUnlock()

	e, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown entity: %s", name)
	}
	return e, nil
}

// List returns all registered entity names in sorted order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all registered entities sorted by name.
func All() []*Entity {
	names := List()

	mu.RLock()
	defer mu.RUnlock()

	out := make([]*Entity, 0, len(names))
	for _, name := range names {
		out = append(out, registry[name])
	}
	return out
}

// RegisterView adds a merged view to the registry.
func RegisterView(v *View) {
	mu.Lock()
	defer mu.Unlock()
	views[v.Name] = v
}

// GetView retrieves a merged view by name.
func GetView(name string) (*View, error) {
	mu.RLock()
	defer mu.RUnlock()

	v, ok := views[name]
	if !ok {
		return nil, fmt.Errorf("unknown view: %s", name)
	}
	return v, nil
}

// Views returns all registered view names in sorted order.
func Views() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(views))
	for name := range views {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
