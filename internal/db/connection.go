package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/pgEdge/pgedge-refsync/internal/logging"
)

// Driver names accepted in configuration.
const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Drivers lists the accepted driver names.
func Drivers() []string {
	return []string{DriverPgx, DriverPostgres, DriverMySQL, DriverSQLite}
}

// DefaultPoolConfig returns default connection pool configuration.
func DefaultPoolConfig() *pgxpool.Config {
	config, _ := pgxpool.ParseConfig("")

	// A sync process runs a handful of cycles at a time.
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	return config
}

// Open connects using the named driver. The pgx driver returns a pool
// backed DB; the others go through database/sql.
func Open(ctx context.Context, driver, connString string) (DB, error) {
	switch driver {
	case DriverPgx, "":
		pool, err := Connect(ctx, connString)
		if err != nil {
			return nil, err
		}
		return NewPgxDB(pool), nil
	case DriverPostgres:
		return OpenSQL(ctx, DriverPostgres, connString, Postgres)
	case DriverMySQL:
		dsn, err := mysqlDSN(connString)
		if err != nil {
			return nil, err
		}
		return OpenSQL(ctx, DriverMySQL, dsn, MySQL)
	case DriverSQLite:
		return OpenSQL(ctx, DriverSQLite, sqliteDSN(connString), SQLite)
	}
	return nil, fmt.Errorf("unknown driver: %s", driver)
}

// Connect establishes a connection pool to the PostgreSQL database.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	// Apply default pool settings
	defaults := DefaultPoolConfig()
	config.MaxConns = defaults.MaxConns
	config.MinConns = defaults.MinConns
	config.MaxConnLifetime = defaults.MaxConnLifetime
	config.MaxConnIdleTime = defaults.MaxConnIdleTime
	config.HealthCheckPeriod = defaults.HealthCheckPeriod
	config.ConnConfig.RuntimeParams["application_name"] = "pgedge-refsync"

	logging.Debug().
		Str("host", config.ConnConfig.Host).
		Uint16("port", config.ConnConfig.Port).
		Str("database", config.ConnConfig.Database).
		Msg("Connecting to database")

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.Info().
		Str("host", config.ConnConfig.Host).
		Str("database", config.ConnConfig.Database).
		Msg("Connected to database")

	return pool, nil
}

// OpenSQL opens a database/sql handle and verifies it with a ping.
func OpenSQL(ctx context.Context, driverName, dsn string, d Dialect) (*SQLDB, error) {
	handle, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driverName, err)
	}

	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive for the life of the handle.
	if d == SQLite {
		handle.SetMaxOpenConns(1)
	} else {
		handle.SetMaxOpenConns(10)
		handle.SetConnMaxLifetime(30 * time.Minute)
		handle.SetConnMaxIdleTime(5 * time.Minute)
	}

	logging.Debug().
		Str("driver", driverName).
		Msg("Connecting to database")

	if err := handle.PingContext(ctx); err != nil {
		handle.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.Info().
		Str("driver", driverName).
		Msg("Connected to database")

	return NewSQLDB(handle, d), nil
}

// mysqlDSN accepts a go-sql-driver DSN and forces the options the sync path
// depends on.
func mysqlDSN(connString string) (string, error) {
	cfg, err := mysql.ParseDSN(connString)
	if err != nil {
		return "", fmt.Errorf("failed to parse connection string: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}
	return cfg.FormatDSN(), nil
}

// sqliteDSN adds a busy timeout unless the caller already set pragmas.
func sqliteDSN(path string) string {
	if path == "" {
		path = ":memory:"
	}
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)"
}
