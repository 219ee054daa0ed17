// Package sqlite implements arbitration persistence over SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/roadwars/roadwars/internal/arbiter/storage"
	"github.com/roadwars/roadwars/internal/arbiter/storage/sqlite/migrations"
	sqlitemigrate "github.com/roadwars/roadwars/internal/platform/storage/sqlitemigrate"
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// toNullMillis converts an optional timestamp for a nullable column.
func toNullMillis(value *time.Time) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*value), Valid: true}
}

// fromNullMillis restores an optional timestamp from a nullable column.
func fromNullMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	ts := fromMillis(value.Int64)
	return &ts
}

// Store implements storage.Store over a single SQLite file.
//
// One file backs the whole arbitration state so every composite operation
// (resolution, alliance transition, stake movement) can run in a single
// transaction.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.Store = (*Store)(nil)

// Open opens an arbitration SQLite store and applies bundled migrations.
//
// This keeps startup and schema evolution in one place, instead of
// requiring callers to coordinate migrations independently.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}

	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return store, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// DB returns the raw database handle for diagnostics and tests.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// inTx runs fn in a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// The driver formats unique violations with table.column names
// ("UNIQUE constraint failed: contests.territory_id"), so each matcher
// checks the index name and the column text it covers.
func isOpenContestConflict(err error) bool {
	if !isConstraintError(err) {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "idx_contests_open_territory") ||
		strings.Contains(message, "contests.territory_id")
}

func isOpenAllianceConflict(err error) bool {
	if !isConstraintError(err) {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "idx_alliances_open_pair") ||
		strings.Contains(message, "alliances.pair_lo")
}

func isActiveStakeConflict(err error) bool {
	if !isConstraintError(err) {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "idx_stakes_active_triple") ||
		(strings.Contains(message, "stakes.territory_id") && strings.Contains(message, "stakes.staker_id"))
}
