//-------------------------------------------------------------------------
//
// pgEdge Reference Data Sync
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package staging

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-refsync/internal/db"
	"github.com/pgEdge/pgedge-refsync/internal/record"
)

// Session is what promotion needs from a connection or transaction.
type Session interface {
	db.Execer
	db.Querier
}

// Promote invokes a no-argument promotion routine. What the routine does
// with the staged rows is owned by the database.
func Promote(ctx context.Context, s Session, routine string) error {
	if err := record.CheckIdentifier(routine); err != nil {
		return fmt.Errorf("promotion routine: %w", err)
	}

	stmts, err := s.Dialect().CallStatements(ctx, s, routine)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", routine, err)
	}
	for _, stmt := range stmts {
		if _, err := s.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to call %s: %w", routine, err)
		}
	}
	return nil
}
