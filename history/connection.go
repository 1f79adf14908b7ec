// Package history records generation runs in SQLite and serves the archive
// listing the gallery layer reads.
package history

import (
	"database/sql"
	"fmt"
	"time"

	// Pure-Go SQLite driver, no CGO required
	_ "modernc.org/sqlite"
)

// ConnectionConfig holds SQLite connection settings.
type ConnectionConfig struct {
	// Path is the database file path.
	Path string
	// BusyTimeout is how long to wait for locks, in milliseconds.
	BusyTimeout int
	// MaxOpenConns limits concurrent connections. SQLite behaves best with
	// a single writer.
	MaxOpenConns int
	// MaxIdleConns limits idle connections in the pool.
	MaxIdleConns int
	// ConnMaxLifetime limits connection reuse (0 = no limit).
	ConnMaxLifetime time.Duration
}

// DefaultConnectionConfig returns WAL-friendly defaults.
func DefaultConnectionConfig(path string) ConnectionConfig {
	return ConnectionConfig{
		Path:         path,
		BusyTimeout:  5000,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

// newConnection opens a SQLite connection with WAL mode enabled.
func newConnection(config ConnectionConfig) (*sql.DB, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("history: database path is required")
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", config.BusyTimeout),
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", pragma, err)
		}
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	return db, nil
}

// Open migrates the schema and returns a ready connection.
func Open(path string) (*sql.DB, error) {
	if err := migrateUp(path); err != nil {
		return nil, err
	}
	return newConnection(DefaultConnectionConfig(path))
}
