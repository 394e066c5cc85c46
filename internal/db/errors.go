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
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
)

// ErrorClass groups database failures by how a caller should react.
type ErrorClass string

const (
	// ClassConnectivity means the connection could not be opened or used.
	ClassConnectivity ErrorClass = "connectivity"
	// ClassStatement means the server rejected a statement.
	ClassStatement ErrorClass = "statement"
	// ClassTimeout means the cycle deadline expired or was cancelled.
	ClassTimeout ErrorClass = "timeout"
	// ClassUnknown covers everything else.
	ClassUnknown ErrorClass = "unknown"
)

// Classify inspects err for driver-specific error types.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ClassTimeout
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// SQLSTATE class 08 is connection exception.
		if strings.HasPrefix(pgErr.Code, "08") {
			return ClassConnectivity
		}
		return ClassStatement
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code.Class() == "08" {
			return ClassConnectivity
		}
		return ClassStatement
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return ClassStatement
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return ClassStatement
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return ClassConnectivity
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassConnectivity
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) || pgconn.Timeout(err) {
		return ClassConnectivity
	}
	return ClassUnknown
}
