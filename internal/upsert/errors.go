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
	"errors"
	"fmt"

	"github.com/pgEdge/pgedge-refsync/internal/db"
)

// ErrEmptyInput is returned when a cycle is given no records and the plan
// does not allow empty loads.
var ErrEmptyInput = errors.New("no records to upsert")

// ErrDuplicateKey is returned when two records in one batch share a key.
var ErrDuplicateKey = errors.New("duplicate key in batch")

// ClassEmptyInput is the error class reported for ErrEmptyInput.
const ClassEmptyInput db.ErrorClass = "empty_input"

// Stage is the position of a cycle in the upsert protocol.
type Stage int

const (
	StageIdle Stage = iota
	StageStaging
	StagePromoting
	StageCommitted
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageStaging:
		return "staging"
	case StagePromoting:
		return "promoting"
	case StageCommitted:
		return "committed"
	case StageFailed:
		return "failed"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// CycleError describes a failed upsert cycle. Stage is the last stage the
// cycle reached before it failed.
type CycleError struct {
	CycleID string
	Entity  string
	Table   string
	Stage   Stage
	Class   db.ErrorClass
	Err     error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("upsert %s into %s failed while %s (%s): %v",
		e.Entity, e.Table, e.Stage, e.Class, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }
