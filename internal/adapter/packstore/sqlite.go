package packstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"toolgate/internal/domain"
)

// SQLite persists pack activation flags and access policies. State is read
// through on every call so activation changes take effect immediately.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) a SQLite database at dbPath and runs the
// schema migration.
func NewSQLite(dbPath string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open pack db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if err := migratePacks(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate pack db: %w", err)
	}
	return &SQLite{db: db}, nil
}

func migratePacks(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS packs (
			name          TEXT PRIMARY KEY,
			active        INTEGER NOT NULL DEFAULT 0,
			allowed_roles TEXT NOT NULL DEFAULT '[]'
		)
	`)
	return err
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) IsActive(ctx context.Context, pack string) bool {
	var active int
	err := s.db.QueryRowContext(ctx,
		"SELECT active FROM packs WHERE name = ?", pack,
	).Scan(&active)
	if err != nil {
		return false
	}
	return active != 0
}

func (s *SQLite) ConfigFor(ctx context.Context, pack string) (*domain.PackConfig, error) {
	var rolesJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT allowed_roles FROM packs WHERE name = ?", pack,
	).Scan(&rolesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewDomainError("SQLite.ConfigFor", domain.ErrPackNotFound, pack)
	}
	if err != nil {
		return nil, fmt.Errorf("read pack config: %w", err)
	}

	var roles []domain.Role
	if err := json.Unmarshal([]byte(rolesJSON), &roles); err != nil {
		return nil, fmt.Errorf("decode allowed_roles for %q: %w", pack, err)
	}
	return &domain.PackConfig{AllowedRoles: roles}, nil
}

// Upsert creates or updates a pack row.
func (s *SQLite) Upsert(ctx context.Context, pack string, active bool, cfg domain.PackConfig) error {
	rolesJSON, err := json.Marshal(cfg.AllowedRoles)
	if err != nil {
		return fmt.Errorf("marshal allowed_roles: %w", err)
	}
	activeInt := 0
	if active {
		activeInt = 1
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO packs (name, active, allowed_roles) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET active = excluded.active, allowed_roles = excluded.allowed_roles
	`, pack, activeInt, string(rolesJSON))
	return err
}

// SetActive flips a pack's activation flag.
func (s *SQLite) SetActive(ctx context.Context, pack string, active bool) error {
	activeInt := 0
	if active {
		activeInt = 1
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE packs SET active = ? WHERE name = ?", activeInt, pack)
	if err != nil {
		return fmt.Errorf("update pack: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewDomainError("SQLite.SetActive", domain.ErrPackNotFound, pack)
	}
	return nil
}
