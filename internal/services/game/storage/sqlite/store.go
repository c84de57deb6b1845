// Package sqlite provides the SQLite-backed store implementing all storage
// contracts of the jinro game service.
package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"

	apperrors "github.com/tsukino/jinro/internal/platform/errors"
	"github.com/tsukino/jinro/internal/platform/storage/sqlitemigrate"
	"github.com/tsukino/jinro/internal/services/game/storage"
	"github.com/tsukino/jinro/internal/services/game/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store provides a SQLite-backed store implementing every storage interface.
//
// A single SQLite file backs all five entity stores so the orchestrator sees
// one transaction and visibility boundary.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens the store at the provided path and applies bundled migrations.
//
// Keeping schema evolution inside Open means no caller can reach a store
// whose schema is behind the code.
func Open(path string) (*Store, error) {
	return openStore(path, func(sqlDB *sql.DB) error {
		return sqlitemigrate.Apply(sqlDB, migrations.FS)
	})
}

// OpenWithMigrationsDir opens the store and applies the *.sql files from an
// on-disk migrations directory instead of the bundled set. A missing
// directory means zero migrations.
func OpenWithMigrationsDir(path, migrationsDir string) (*Store, error) {
	return openStore(path, func(sqlDB *sql.DB) error {
		return sqlitemigrate.ApplyDir(sqlDB, migrationsDir)
	})
}

func openStore(path string, migrate func(*sql.DB) error) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, apperrors.New(apperrors.CodeStorageUnavailable, "storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeStorageUnavailable, "open sqlite db", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, apperrors.Wrap(apperrors.CodeStorageUnavailable, "ping sqlite db", err)
	}

	if err := migrate(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, apperrors.Wrap(apperrors.CodeMigrationFailed, "run migrations", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database.
//
// Close is intentionally nil-safe so callers can defer it in all startup paths.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// DB returns the raw database handle for boundary callers such as cmd/migrate.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// Health executes a trivial query to confirm the store is reachable.
func (s *Store) Health(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return apperrors.New(apperrors.CodeStorageUnavailable, "storage is not configured")
	}
	var one int
	if err := s.sqlDB.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageUnavailable, "health query", err)
	}
	return nil
}

// isUniqueViolation detects SQLite unique-constraint failures so creates can
// surface them as conflicts instead of opaque storage errors.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func conflict(message string, cause error) error {
	return apperrors.Wrap(apperrors.CodeAlreadyExists, message, cause)
}
