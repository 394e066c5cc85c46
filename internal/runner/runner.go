//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package runner drives feed cycles: it reads each feed, hands the records
// to the upsert orchestrator and records the outcome in the cycle ledger.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pgEdge/pgedge-refsync/internal/catalog"
	"github.com/pgEdge/pgedge-refsync/internal/config"
	"github.com/pgEdge/pgedge-refsync/internal/db"
	"github.com/pgEdge/pgedge-refsync/internal/feed"
	"github.com/pgEdge/pgedge-refsync/internal/logging"
	"github.com/pgEdge/pgedge-refsync/internal/metrics"
	"github.com/pgEdge/pgedge-refsync/internal/upsert"
)

// ErrFeedRunning is returned when a feed is triggered while a previous
// cycle of the same feed is still in flight.
var ErrFeedRunning = errors.New("feed is already running")

// ErrRunnerStopped is returned when a feed is triggered after the runner
// has begun shutting down.
var ErrRunnerStopped = errors.New("runner is stopped")

// DefaultDebounce is how long a watched file must stay quiet before its
// feed runs.
const DefaultDebounce = 500 * time.Millisecond

// ledgerTimeout bounds the ledger write that follows each cycle.
const ledgerTimeout = 5 * time.Second

// Config holds configuration for the runner.
type Config struct {
	Conn         db.DB
	Orchestrator *upsert.Orchestrator
	Feeds        []config.FeedConfig
	AllowEmpty   bool

	// ReportInterval is how often Run logs statistics, in seconds
	// (0 = never).
	ReportInterval int

	// Metrics is optional.
	Metrics *metrics.Collector

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
}

// Stats summarizes the cycles run so far.
type Stats struct {
	Cycles    int64
	Committed int64
	Failed    int64
	Rows      int64
}

// Runner runs feed cycles on demand, on a cron schedule or when a watched
// file changes.
type Runner struct {
	conn           db.DB
	orch           *upsert.Orchestrator
	feeds          []*config.FeedConfig
	entities       map[string]*catalog.Entity
	allowEmpty     bool
	reportInterval time.Duration
	debounce       time.Duration
	metrics        *metrics.Collector
	guard          feedGuard

	// Metrics
	totalCycles     atomic.Int64
	committedCycles atomic.Int64
	failedCycles    atomic.Int64
	rowsStaged      atomic.Int64
	totalDurationNs atomic.Int64
	startTime       time.Time

	// Per-feed metrics
	feedMetrics sync.Map // map[string]*feedMetric
}

type feedMetric struct {
	cycles     atomic.Int64
	rows       atomic.Int64
	durationNs atomic.Int64
	errors     atomic.Int64
}

// New creates a runner. Every feed must name a registered entity.
func New(cfg Config) (*Runner, error) {
	if cfg.Conn == nil || cfg.Orchestrator == nil {
		return nil, fmt.Errorf("connection and orchestrator are required")
	}

	r := &Runner{
		conn:           cfg.Conn,
		orch:           cfg.Orchestrator,
		entities:       make(map[string]*catalog.Entity, len(cfg.Feeds)),
		allowEmpty:     cfg.AllowEmpty,
		reportInterval: time.Duration(cfg.ReportInterval) * time.Second,
		debounce:       cfg.Debounce,
		metrics:        cfg.Metrics,
		startTime:      time.Now(),
	}
	if r.debounce <= 0 {
		r.debounce = DefaultDebounce
	}

	for i := range cfg.Feeds {
		f := cfg.Feeds[i]
		if _, dup := r.entities[f.Name]; dup {
			return nil, fmt.Errorf("feed %s: name is not unique", f.Name)
		}
		e, err := catalog.Get(f.Entity)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", f.Name, err)
		}
		r.feeds = append(r.feeds, &f)
		r.entities[f.Name] = e
	}
	return r, nil
}

// Feeds returns the configured feed names in configuration order.
func (r *Runner) Feeds() []string {
	names := make([]string, len(r.feeds))
	for i, f := range r.feeds {
		names[i] = f.Name
	}
	return names
}

func (r *Runner) feed(name string) (*config.FeedConfig, error) {
	for _, f := range r.feeds {
		if f.Name == name {
			return f, nil
		}
	}
	return nil, fmt.Errorf("unknown feed: %s", name)
}

// RunFeed runs one cycle of the named feed.
func (r *Runner) RunFeed(ctx context.Context, name string) (upsert.Result, error) {
	f, err := r.feed(name)
	if err != nil {
		return upsert.Result{}, err
	}
	if err := r.guard.tryLock(f.Name); err != nil {
		return upsert.Result{}, fmt.Errorf("%w: %s", err, f.Name)
	}
	defer r.guard.unlock(f.Name)

	return r.cycle(ctx, f, r.entities[f.Name])
}

// RunFeeds runs one cycle of each named feed, or of every feed when names
// is empty. A name given more than once runs once. Feeds run concurrently;
// cycles on the same table still run one at a time. The returned error
// joins every failure.
func (r *Runner) RunFeeds(ctx context.Context, names []string) error {
	if len(names) == 0 {
		names = r.Feeds()
	}
	seen := make(map[string]bool, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		f, err := r.feed(name)
		if err != nil {
			return err
		}
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true
		unique = append(unique, f.Name)
	}
	names = unique

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if _, err := r.RunFeed(ctx, name); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(name)
	}
	wg.Wait()

	return errors.Join(errs...)
}

// cycle reads the feed, upserts its records and records the outcome.
func (r *Runner) cycle(ctx context.Context, f *config.FeedConfig, e *catalog.Entity) (upsert.Result, error) {
	started := time.Now()

	var (
		res   upsert.Result
		stage = upsert.StageIdle
	)
	plan, err := e.Plan(r.allowEmpty)
	if err == nil {
		records, loadErr := feed.Load(ctx, f, e)
		if loadErr != nil {
			err = loadErr
		} else {
			res, err = r.orch.Upsert(ctx, plan, records)
		}
	}

	if res.CycleID == "" {
		// The orchestrator was never reached, so nothing else reports it.
		res = upsert.Result{
			CycleID:   uuid.NewString(),
			Entity:    e.Name,
			Table:     e.StagingTable(),
			Stage:     upsert.StageFailed,
			StartedAt: started,
			Duration:  time.Since(started),
		}
		r.metrics.ObserveCycle(e.Name, metrics.OutcomeFailed, 0, res.Duration)
		logging.Error().
			Err(err).
			Str("cycle_id", res.CycleID).
			Str("feed", f.Name).
			Str("entity", e.Name).
			Msg("Feed cycle failed before upsert")
	}

	var cerr *upsert.CycleError
	if errors.As(err, &cerr) {
		stage = cerr.Stage
	}
	if err == nil {
		stage = upsert.StageCommitted
	}

	r.record(f.Name, res, err)
	r.writeLedger(ctx, res, stage, err)

	return res, err
}

func (r *Runner) record(feedName string, res upsert.Result, err error) {
	r.totalCycles.Add(1)
	r.totalDurationNs.Add(res.Duration.Nanoseconds())

	m := r.getOrCreateFeedMetric(feedName)
	m.cycles.Add(1)
	m.durationNs.Add(res.Duration.Nanoseconds())

	if err != nil {
		r.failedCycles.Add(1)
		m.errors.Add(1)
		return
	}
	r.committedCycles.Add(1)
	r.rowsStaged.Add(res.Rows)
	m.rows.Add(res.Rows)
}

// writeLedger appends the cycle to the ledger outside the cycle
// transaction, so failed cycles are kept too. A ledger failure is logged
// and does not change the cycle outcome.
func (r *Runner) writeLedger(ctx context.Context, res upsert.Result, stage upsert.Stage, cycleErr error) {
	entry := db.CycleEntry{
		CycleID:    res.CycleID,
		Entity:     res.Entity,
		Status:     upsert.StageCommitted.String(),
		Stage:      stage.String(),
		Rows:       res.Rows,
		StartedAt:  res.StartedAt,
		FinishedAt: res.StartedAt.Add(res.Duration),
	}
	if cycleErr != nil {
		entry.Status = upsert.StageFailed.String()
		entry.Error = cycleErr.Error()
	}

	// The cycle context may have expired; the ledger row is still wanted.
	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ledgerTimeout)
	defer cancel()

	if err := db.RecordCycle(lctx, r.conn, entry); err != nil {
		logging.Warn().
			Err(err).
			Str("cycle_id", res.CycleID).
			Msg("Failed to write cycle ledger")
	}
}

func (r *Runner) getOrCreateFeedMetric(name string) *feedMetric {
	if m, ok := r.feedMetrics.Load(name); ok {
		return m.(*feedMetric)
	}

	m := &feedMetric{}
	actual, _ := r.feedMetrics.LoadOrStore(name, m)
	return actual.(*feedMetric)
}

// Stats returns the counters accumulated so far.
func (r *Runner) Stats() Stats {
	return Stats{
		Cycles:    r.totalCycles.Load(),
		Committed: r.committedCycles.Load(),
		Failed:    r.failedCycles.Load(),
		Rows:      r.rowsStaged.Load(),
	}
}

func (r *Runner) reporter(ctx context.Context) {
	ticker := time.NewTicker(r.reportInterval)
	defer ticker.Stop()

	var lastRows int64
	lastTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			s := r.Stats()

			// Calculate rate since last report
			elapsed := now.Sub(lastTime).Seconds()
			rate := float64(s.Rows-lastRows) / elapsed

			logging.Info().
				Int64("cycles", s.Cycles).
				Int64("committed", s.Committed).
				Int64("failed", s.Failed).
				Int64("rows", s.Rows).
				Float64("rate_rows_per_sec", rate).
				Msg("Statistics")

			lastRows = s.Rows
			lastTime = now
		}
	}
}

// PrintSummary prints a final summary of the cycles run.
func (r *Runner) PrintSummary() {
	elapsed := time.Since(r.startTime)
	s := r.Stats()
	durationNs := r.totalDurationNs.Load()

	var avgCycleMs float64
	if s.Cycles > 0 {
		avgCycleMs = float64(durationNs) / float64(s.Cycles) / 1e6
	}

	logging.Info().
		Dur("duration", elapsed).
		Int64("total_cycles", s.Cycles).
		Int64("committed", s.Committed).
		Int64("failed", s.Failed).
		Int64("rows", s.Rows).
		Float64("avg_cycle_ms", avgCycleMs).
		Msg("Final summary")

	// Print per-feed statistics in configuration order
	for _, f := range r.feeds {
		v, ok := r.feedMetrics.Load(f.Name)
		if !ok {
			continue
		}
		m := v.(*feedMetric)
		cycles := m.cycles.Load()

		var avgMs float64
		if cycles > 0 {
			avgMs = float64(m.durationNs.Load()) / float64(cycles) / 1e6
		}

		logging.Info().
			Str("feed", f.Name).
			Int64("cycles", cycles).
			Int64("rows", m.rows.Load()).
			Int64("errors", m.errors.Load()).
			Float64("avg_cycle_ms", avgMs).
			Msg("")
	}
}
