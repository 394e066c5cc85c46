//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package runner

import (
	"context"
	"sync"
)

// feedGuard keeps a feed from running twice at once. A cron tick or file
// event that arrives while its feed is still running is skipped rather
// than queued behind the table lock. Once wait has been called no new
// cycle is admitted.
type feedGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	closed  bool
	wg      sync.WaitGroup
}

func (g *feedGuard) tryLock(feed string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return ErrRunnerStopped
	}
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[feed]; ok {
		return ErrFeedRunning
	}
	g.running[feed] = struct{}{}
	g.wg.Add(1)
	return nil
}

func (g *feedGuard) unlock(feed string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, feed)
	g.wg.Done()
}

// wait closes the guard and blocks until no feed is running or ctx is
// done.
func (g *feedGuard) wait(ctx context.Context) {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
