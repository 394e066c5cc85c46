//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package upsert

import (
	"context"
	"strings"
	"sync"
)

// tableLocks serializes cycles that share a staging table. Table names
// compare case-insensitively because unquoted identifiers fold.
type tableLocks struct {
	mu   sync.Mutex
	sems map[string]chan struct{}
}

func newTableLocks() *tableLocks {
	return &tableLocks{sems: make(map[string]chan struct{})}
}

func (l *tableLocks) sem(table string) chan struct{} {
	key := strings.ToLower(table)

	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sems[key]
	if !ok {
		s = make(chan struct{}, 1)
		l.sems[key] = s
	}
	return s
}

// acquire blocks until the table is free or ctx is done. The returned func
// releases the lock.
func (l *tableLocks) acquire(ctx context.Context, table string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := l.sem(table)
	select {
	case s <- struct{}{}:
		return func() { <-s }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
