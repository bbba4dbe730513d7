// internal/store/dialect.go
//
// SQL dialects for the best_scores table.
// Each dialect knows its driver name, how to finish a DSN, how to rewrite
// `?` placeholders and how to express "insert, or update only if lower".

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// ErrUnknownDialect is returned for backend names without a SQL dialect.
var ErrUnknownDialect = errors.New("unknown sql dialect")

// Dialect hides the differences between the supported SQL engines.
type Dialect interface {
	Name() string

	// DriverName is the database/sql driver to open.
	DriverName() string

	// DSN completes a user-supplied connection string.
	DSN(raw string) string

	// Rebind rewrites `?` placeholders into the engine's syntax.
	Rebind(query string) string

	// UpsertBestScore takes (key, attempts) and must affect zero rows when
	// the stored value is already lower or equal.
	UpsertBestScore() string

	// Configure applies pool and session settings after open.
	Configure(db *sql.DB) error
}

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, name)
}

var placeholderRegexp = regexp.MustCompile(`\?`)

// rewritePlaceholdersToNumbered converts ? placeholders to $1, $2, ...
func rewritePlaceholdersToNumbered(query string) string {
	counter := 0
	return placeholderRegexp.ReplaceAllStringFunc(query, func(string) string {
		counter++
		return "$" + strconv.Itoa(counter)
	})
}

// ---------------------------------- sqlite ---------------------------------

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite3" }

// DSN adds busy timeout and WAL journaling unless the caller set options.
func (sqliteDialect) DSN(raw string) string {
	if strings.Contains(raw, "?") {
		return raw
	}
	return raw + "?_busy_timeout=5000&_journal_mode=WAL"
}

func (sqliteDialect) Rebind(q string) string { return q }

func (sqliteDialect) UpsertBestScore() string {
	return `INSERT INTO best_scores (score_key, attempts, updated_at)
	        VALUES (?, ?, CURRENT_TIMESTAMP)
	        ON CONFLICT(score_key) DO UPDATE
	        SET attempts = excluded.attempts, updated_at = excluded.updated_at
	        WHERE excluded.attempts < best_scores.attempts`
}

func (sqliteDialect) Configure(db *sql.DB) error {
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		return fmt.Errorf("set pragmas: %w", err)
	}
	return nil
}

// --------------------------------- postgres --------------------------------

type postgresDialect struct{}

func (postgresDialect) Name() string           { return "postgres" }
func (postgresDialect) DriverName() string     { return "postgres" }
func (postgresDialect) DSN(raw string) string  { return raw }
func (postgresDialect) Rebind(q string) string { return rewritePlaceholdersToNumbered(q) }

func (postgresDialect) UpsertBestScore() string {
	return `INSERT INTO best_scores (score_key, attempts, updated_at)
	        VALUES (?, ?, CURRENT_TIMESTAMP)
	        ON CONFLICT (score_key) DO UPDATE
	        SET attempts = EXCLUDED.attempts, updated_at = EXCLUDED.updated_at
	        WHERE EXCLUDED.attempts < best_scores.attempts`
}

func (postgresDialect) Configure(db *sql.DB) error {
	configurePool(db)
	return nil
}

// ---------------------------------- mysql ----------------------------------

type mysqlDialect struct{}

func (mysqlDialect) Name() string           { return "mysql" }
func (mysqlDialect) DriverName() string     { return "mysql" }
func (mysqlDialect) DSN(raw string) string  { return raw }
func (mysqlDialect) Rebind(q string) string { return q }

// UpsertBestScore relies on MySQL reporting zero affected rows when the
// update leaves the row unchanged. updated_at is assigned first because
// assignments see the already-updated columns.
func (mysqlDialect) UpsertBestScore() string {
	return "INSERT INTO best_scores (score_key, attempts, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP) " +
		"ON DUPLICATE KEY UPDATE " +
		"updated_at = IF(VALUES(attempts) < attempts, VALUES(updated_at), updated_at), " +
		"attempts = LEAST(attempts, VALUES(attempts))"
}

func (mysqlDialect) Configure(db *sql.DB) error {
	configurePool(db)
	return nil
}

func configurePool(db *sql.DB) {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
}
