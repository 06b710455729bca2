package counterstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a durable counter store. Counters survive process restarts, so a
// redeploy mid-window does not hand every caller a fresh budget.
type SQLite struct {
	db  *sql.DB
	now func() time.Time // for testing
}

// NewSQLite opens (or creates) a SQLite database at dbPath and runs the
// schema migration.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open counter db: %w", err)
	}
	// WAL mode for better concurrent reads.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate counter db: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS counters (
			key        TEXT PRIMARY KEY,
			value      INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Get(ctx context.Context, key string) (int, error) {
	var value int
	var expires int64
	err := s.db.QueryRowContext(ctx,
		"SELECT value, expires_at FROM counters WHERE key = ?", key,
	).Scan(&value, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}
	if s.now().UnixMilli() >= expires {
		// Expired rows are lazily reaped on read.
		_, _ = s.db.ExecContext(ctx, "DELETE FROM counters WHERE key = ?", key)
		return 0, nil
	}
	return value, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value int, ttl time.Duration) error {
	expires := s.now().Add(ttl).UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counters (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, key, value, expires)
	if err != nil {
		return fmt.Errorf("write counter: %w", err)
	}
	return nil
}

func (s *SQLite) RemainingTTL(ctx context.Context, key string) (time.Duration, error) {
	var expires int64
	err := s.db.QueryRowContext(ctx,
		"SELECT expires_at FROM counters WHERE key = ?", key,
	).Scan(&expires)
	if errors.Is(err, sql.ErrNoRows) {
		return -1, nil
	}
	if err != nil {
		return -1, fmt.Errorf("read counter ttl: %w", err)
	}
	remaining := time.Duration(expires-s.now().UnixMilli()) * time.Millisecond
	if remaining <= 0 {
		return -1, nil
	}
	return remaining, nil
}
