//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package upsert runs the stage-then-promote protocol that moves a batch of
// reference records into a permanent table inside a single transaction.
package upsert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pgEdge/pgedge-refsync/internal/db"
	"github.com/pgEdge/pgedge-refsync/internal/logging"
	"github.com/pgEdge/pgedge-refsync/internal/metrics"
	"github.com/pgEdge/pgedge-refsync/internal/record"
	"github.com/pgEdge/pgedge-refsync/internal/staging"
)

// rollbackTimeout bounds the rollback issued after a failed cycle. The
// cycle context may already be expired at that point.
const rollbackTimeout = 5 * time.Second

// Plan names what a cycle loads and how it is promoted.
type Plan struct {
	// Entity is the logical name used in logs, metrics and the ledger.
	Entity string

	// Target is the staging table and its column bindings.
	Target *staging.Target

	// Procedure is the promotion routine, e.g. spPopulateSecurity.
	Procedure string

	// Keys are the permanent table's key columns. A batch that repeats a
	// key is rejected before staging.
	Keys []string

	// AllowEmpty lets an empty batch clear the staging table and promote.
	AllowEmpty bool
}

func (p Plan) validate() error {
	if p.Entity == "" {
		return fmt.Errorf("plan entity is required")
	}
	if p.Target == nil {
		return fmt.Errorf("plan target is required")
	}
	return record.CheckIdentifier(p.Procedure)
}

// Options configure an Orchestrator.
type Options struct {
	// Writer loads staging tables. Nil means a values-mode writer.
	Writer *staging.Writer

	// CycleTimeout bounds each cycle. Zero means no deadline.
	CycleTimeout time.Duration

	// Metrics is optional.
	Metrics *metrics.Collector
}

// Result describes a finished cycle.
type Result struct {
	CycleID   string
	Entity    string
	Table     string
	Stage     Stage
	Rows      int64
	StartedAt time.Time
	Duration  time.Duration
}

// Orchestrator runs upsert cycles against one connection.
type Orchestrator struct {
	conn    db.DB
	writer  *staging.Writer
	timeout time.Duration
	metrics *metrics.Collector
	locks   *tableLocks

	// stages holds the in-flight stage per staging table.
	mu     sync.Mutex
	stages map[string]Stage
}

// New creates an orchestrator on conn.
func New(conn db.DB, opts Options) *Orchestrator {
	w := opts.Writer
	if w == nil {
		w = staging.NewWriter(staging.ModeValues, 0)
	}
	return &Orchestrator{
		conn:    conn,
		writer:  w,
		timeout: opts.CycleTimeout,
		metrics: opts.Metrics,
		locks:   newTableLocks(),
		stages:  make(map[string]Stage),
	}
}

// State returns the stage of the cycle currently running against table,
// or StageIdle when there is none.
func (o *Orchestrator) State(table string) Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stages[strings.ToLower(table)]
}

func (o *Orchestrator) setState(table string, s Stage) {
	key := strings.ToLower(table)
	o.mu.Lock()
	defer o.mu.Unlock()
	if s == StageIdle {
		delete(o.stages, key)
		return
	}
	o.stages[key] = s
}

// Upsert clears the plan's staging table, loads records into it and calls
// the promotion routine, all in one transaction. Either every step commits
// or the transaction is rolled back and a *CycleError is returned.
func (o *Orchestrator) Upsert(ctx context.Context, plan Plan, records []record.Record) (Result, error) {
	res := Result{
		CycleID:   uuid.NewString(),
		Entity:    plan.Entity,
		StartedAt: time.Now(),
		Stage:     StageIdle,
	}
	if plan.Target != nil {
		res.Table = plan.Target.Table()
	}
	log := logging.WithCycle(res.CycleID, plan.Entity)

	fail := func(stage Stage, class db.ErrorClass, err error) (Result, error) {
		res.Stage = StageFailed
		res.Duration = time.Since(res.StartedAt)
		o.metrics.ObserveCycle(plan.Entity, metrics.OutcomeFailed, 0, res.Duration)

		log.Error().
			Err(err).
			Str("table", res.Table).
			Str("stage", stage.String()).
			Str("class", string(class)).
			Dur("duration", res.Duration).
			Msg("Upsert cycle failed")

		return res, &CycleError{
			CycleID: res.CycleID,
			Entity:  plan.Entity,
			Table:   res.Table,
			Stage:   stage,
			Class:   class,
			Err:     err,
		}
	}

	if err := plan.validate(); err != nil {
		return fail(StageIdle, db.ClassStatement, err)
	}
	if len(records) == 0 && !plan.AllowEmpty {
		return fail(StageIdle, ClassEmptyInput, ErrEmptyInput)
	}
	if err := checkKeys(plan, records); err != nil {
		return fail(StageIdle, db.ClassStatement, err)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	release, err := o.locks.acquire(ctx, res.Table)
	if err != nil {
		return fail(StageIdle, classify(ctx, err), fmt.Errorf("failed to lock %s: %w", res.Table, err))
	}
	defer release()
	defer o.setState(res.Table, StageIdle)

	rows, stage, err := o.run(ctx, log, plan, records)
	if err != nil {
		return fail(stage, classify(ctx, err), err)
	}

	res.Stage = StageCommitted
	res.Rows = rows
	res.Duration = time.Since(res.StartedAt)
	o.metrics.ObserveCycle(plan.Entity, metrics.OutcomeCommitted, rows, res.Duration)

	log.Info().
		Str("table", res.Table).
		Str("procedure", plan.Procedure).
		Str("stage", res.Stage.String()).
		Int64("rows", rows).
		Dur("duration", res.Duration).
		Msg("Upsert cycle committed")

	return res, nil
}

// run executes the transactional part of a cycle and returns the stage it
// reached on failure.
func (o *Orchestrator) run(ctx context.Context, log zerolog.Logger, plan Plan, records []record.Record) (int64, Stage, error) {
	table := plan.Target.Table()

	tx, err := o.conn.Begin(ctx)
	if err != nil {
		return 0, StageIdle, fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		rbCtx, cancel := context.WithTimeout(context.Background(), rollbackTimeout)
		defer cancel()
		if rbErr := tx.Rollback(rbCtx); rbErr != nil {
			log.Warn().Err(rbErr).Str("table", table).Msg("Rollback failed")
		}
	}()

	if lock := tx.Dialect().LockStatement(table); lock != "" {
		if _, err := tx.Exec(ctx, lock); err != nil {
			return 0, StageIdle, fmt.Errorf("failed to lock %s: %w", table, err)
		}
	}

	o.setState(table, StageStaging)
	rows, err := o.writer.Load(ctx, tx, plan.Target, records)
	if err != nil {
		return 0, StageStaging, err
	}

	log.Debug().
		Str("table", table).
		Int64("rows", rows).
		Msg("Staging table loaded")

	o.setState(table, StagePromoting)
	if err := staging.Promote(ctx, tx, plan.Procedure); err != nil {
		return 0, StagePromoting, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, StagePromoting, fmt.Errorf("failed to commit: %w", err)
	}
	committed = true

	return rows, StageCommitted, nil
}

// classify prefers the cycle deadline over whatever error the driver
// surfaced once the context is done.
func classify(ctx context.Context, err error) db.ErrorClass {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return db.ClassTimeout
	}
	return db.Classify(err)
}
