/**
 * Database Driver Registry for SqlProvider
 *
 * Features:
 * - Registers every supported database/sql driver
 * - Normalizes driver aliases to registered names
 * - Registers sqlx bind types for drivers sqlx does not know
 *
 * Author: SqlProvider Team
 * Created: 2025-02-11
 */

package drivers

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	// Registered database/sql drivers
	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/VatsalSy/SqlProvider/internal/errors"
)

// Registered driver names.
const (
	SQLite   = "sqlite3"
	Postgres = "postgres"
	PGX      = "pgx"
	MySQL    = "mysql"
	DuckDB   = "duckdb"
)

var aliases = map[string]string{
	"sqlite":     SQLite,
	"sqlite3":    SQLite,
	"postgres":   Postgres,
	"postgresql": Postgres,
	"pg":         Postgres,
	"pq":         Postgres,
	"pgx":        PGX,
	"mysql":      MySQL,
	"mariadb":    MySQL,
	"duckdb":     DuckDB,
}

func init() {
	sqlx.BindDriver(DuckDB, sqlx.QUESTION)
}

// Normalize maps a driver name or alias to its registered name.
func Normalize(name string) (string, error) {
	driver, ok := aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", errors.New(errors.ErrorTypeConfiguration, "Normalize",
			fmt.Sprintf("unsupported driver %q (supported: %s)", name, strings.Join(Supported(), ", ")), nil)
	}
	return driver, nil
}

// Supported lists the registered driver names.
func Supported() []string {
	return []string{DuckDB, MySQL, PGX, Postgres, SQLite}
}

// Aliases lists every accepted driver name, sorted.
func Aliases() []string {
	names := make([]string, 0, len(aliases))
	for name := range aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BindType returns the sqlx placeholder style for driver.
func BindType(driver string) int {
	if normalized, err := Normalize(driver); err == nil {
		driver = normalized
	}
	return sqlx.BindType(driver)
}

// DefaultIsolation returns the least strict isolation level driver accepts.
// DuckDB only accepts its default level.
func DefaultIsolation(driver string) sql.IsolationLevel {
	if name, _ := Normalize(driver); name == DuckDB {
		return sql.LevelDefault
	}
	return sql.LevelReadUncommitted
}

// ResolveIsolation returns level when driver accepts it, otherwise
// DefaultIsolation(driver). ok is false when level was replaced.
func ResolveIsolation(driver string, level sql.IsolationLevel) (resolved sql.IsolationLevel, ok bool) {
	if name, _ := Normalize(driver); name == DuckDB && level != sql.LevelDefault {
		return sql.LevelDefault, false
	}
	return level, true
}

// PoolOptions tunes the connection pool.
type PoolOptions struct {
	MaxOpenConns int
	MaxIdleConns int
	MaxIdleTime  time.Duration
}

// Open opens a pool for driver and dsn. The pool is not pinged.
func Open(driver, dsn string, opts PoolOptions) (*sqlx.DB, error) {
	name, err := Normalize(driver)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New(errors.ErrorTypeConfiguration, "Open", "connection string is empty", nil)
	}

	db, err := sqlx.Open(name, dsn)
	if err != nil {
		return nil, errors.New(errors.ErrorTypeConnectionFailed, "Open",
			fmt.Sprintf("failed to open %s pool", name), err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.MaxIdleTime)
	}

	return db, nil
}

// Ping checks that the pool can reach the database.
func Ping(ctx context.Context, db *sqlx.DB) error {
	if err := db.PingContext(ctx); err != nil {
		return errors.New(errors.ErrorTypeConnectionFailed, "Ping", "database unreachable", err)
	}
	return nil
}
