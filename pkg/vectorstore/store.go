// Package vectorstore implements the generation-scoped chunk-embedding
// store (C5): persistence, retention-aware pruning, deterministic cosine
// search, and drift reporting over SQLite. Grounded in the teacher's
// pkg/database/client.go connect-then-migrate shape, retargeted from a
// pooled Postgres/Ent connection to a single local SQLite database opened
// via mattn/go-sqlite3 with foreign keys enabled per connection, and
// migrated on startup with golang-migrate's embedded iofs source exactly
// as the teacher does.
package vectorstore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	mattnsqlite3 "github.com/mattn/go-sqlite3"

	"github.com/wa-project/recorder/pkg/envelope"
)

//go:embed migrations
var migrationsFS embed.FS

const sqlDriverName = "recorder_sqlite3_fk"

var registerOnce sync.Once

// registerDriver registers a database/sql driver that enables
// PRAGMA foreign_keys = ON on every new connection, since SQLite's FK
// enforcement is opt-in per connection rather than database-wide.
func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(sqlDriverName, &mattnsqlite3.SQLiteDriver{
			ConnectHook: func(conn *mattnsqlite3.SQLiteConn) error {
				_, err := conn.Exec("PRAGMA foreign_keys = ON;", nil)
				return err
			},
		})
	})
}

// Config holds the store's open-time configuration.
type Config struct {
	// Path is the SQLite database file path, or ":memory:" for an
	// in-process ephemeral database (used by tests).
	Path         string `yaml:"path"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// Store is the generation-scoped chunk-embedding persistence layer.
type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database at cfg.Path, enabling foreign keys,
// and applies any pending migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	registerDriver()

	if cfg.Path == "" {
		return nil, envelope.New(envelope.KindTerminalConfig, envelope.CodeConfig, "vectorstore: path must not be empty")
	}

	db, err := sql.Open(sqlDriverName, cfg.Path)
	if err != nil {
		return nil, envelope.Wrap(envelope.KindTerminalConfig, envelope.CodeConfig, "open sqlite database", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	} else {
		// SQLite serializes writers regardless; a single connection avoids
		// SQLITE_BUSY contention between readers and the one writer.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "ping sqlite database", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, envelope.Wrap(envelope.KindCorruption, envelope.CodeStorage, "run vectorstore migrations", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("vectorstore: create sqlite3 migrate driver: %w", err)
	}
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("vectorstore: create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("vectorstore: create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("vectorstore: apply migrations: %w", err)
	}
	if err := sourceDriver.Close(); err != nil {
		return fmt.Errorf("vectorstore: close migration source: %w", err)
	}
	return nil
}
