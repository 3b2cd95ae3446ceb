// Package cleanup implements the session retention GC (C9): age/count/
// size-bounded cleanup of closed terminal sessions with orphan sweeping
// and cascade correctness. Grounded directly in the teacher's
// pkg/cleanup/service.go (ticker-driven background loop with Start/Stop/
// idempotent runAll) and pkg/config/retention.go (a day/count/size-bounded
// RetentionConfig with a DefaultRetentionConfig), generalized from
// "soft-delete completed agent sessions + sweep orphaned event rows" to
// "delete closed terminal sessions past age/count/size limits + sweep
// orphaned checkpoints and pane-state rows," per spec.md §4.8 and §6's
// retention config defaults.
package cleanup

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

const sqlDriverName = "recorder_cleanup_sqlite3_fk"

var registerOnce sync.Once

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

// StoreConfig holds the retention store's open-time configuration.
type StoreConfig struct {
	// Path is the SQLite database file path, or ":memory:" for an
	// in-process ephemeral database (used by tests).
	Path string
}

// Store is the session/checkpoint/pane-state persistence layer the
// retention GC runs against.
type Store struct {
	db *sql.DB
}

// Open connects to the SQLite database at cfg.Path, enabling foreign keys
// (mandatory so cascade deletes and the orphan sweep agree), and applies
// any pending migrations.
func Open(ctx context.Context, cfg StoreConfig) (*Store, error) {
	registerDriver()

	if cfg.Path == "" {
		return nil, envelope.New(envelope.KindTerminalConfig, envelope.CodeConfig, "cleanup: path must not be empty")
	}

	db, err := sql.Open(sqlDriverName, cfg.Path)
	if err != nil {
		return nil, envelope.Wrap(envelope.KindTerminalConfig, envelope.CodeConfig, "open sqlite database", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "ping sqlite database", err)
	}

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, envelope.Wrap(envelope.KindCorruption, envelope.CodeStorage, "run cleanup migrations", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migration driver: %w", err)
	}
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// UpsertSession registers or updates a session's lifecycle flags. Used by
// the recorder's session-lifecycle producer, not by the GC itself.
func (s *Store) UpsertSession(ctx context.Context, sessionID string, createdAtMs int64, shutdownClean, active bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, created_at, shutdown_clean, active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			shutdown_clean = excluded.shutdown_clean,
			active = excluded.active
	`, sessionID, createdAtMs, boolToInt(shutdownClean), boolToInt(active))
	if err != nil {
		return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "upsert session", err)
	}
	return nil
}

// UpsertCheckpoint records or updates one consumer's checkpoint size for a
// session, used by the size-bounded retention policy.
func (s *Store) UpsertCheckpoint(ctx context.Context, sessionID, consumerID string, uptoOrdinal uint64, sizeBytes, committedAtMs int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_checkpoints (session_id, consumer_id, upto_ordinal, size_bytes, committed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, consumer_id) DO UPDATE SET
			upto_ordinal = excluded.upto_ordinal,
			size_bytes = excluded.size_bytes,
			committed_at = excluded.committed_at
	`, sessionID, consumerID, uptoOrdinal, sizeBytes, committedAtMs)
	if err != nil {
		return envelope.Wrap(envelope.KindRetryable, envelope.CodeStorage, "upsert checkpoint", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
