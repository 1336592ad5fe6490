package seedstore

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

const (
	sqliteCreateTable = `CREATE TABLE IF NOT EXISTS twofa_seed (
	slot       INTEGER PRIMARY KEY CHECK (slot = 1),
	secret     TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`
	sqliteUpsert = `INSERT INTO twofa_seed (slot, secret, updated_at) VALUES (1, ?, ?)
ON CONFLICT (slot) DO UPDATE SET secret = excluded.secret, updated_at = excluded.updated_at`
	sqliteSelect = `SELECT secret FROM twofa_seed WHERE slot = 1`
	sqliteExists = `SELECT EXISTS (SELECT 1 FROM twofa_seed WHERE slot = 1)`
)

// SQLite stores the seed in an embedded database file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, unavailable("sqlite mkdir", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, unavailable("sqlite open", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteCreateTable); err != nil {
		_ = db.Close()
		return nil, unavailable("sqlite migrate", err)
	}

	return &SQLite{db: db}, nil
}

// Put upserts the row.
func (s *SQLite) Put(ctx context.Context, secret string) error {
	secret, err := canonical(secret)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, sqliteUpsert, secret, time.Now().Unix()); err != nil {
		return unavailable("sqlite upsert", err)
	}

	return nil
}

// Get reads the row.
func (s *SQLite) Get(ctx context.Context) (string, error) {
	var secret string
	err := s.db.QueryRowContext(ctx, sqliteSelect).Scan(&secret)
	if errors.Is(err, sql.ErrNoRows) {
		return "", unavailable("sqlite select", errEmpty)
	}
	if err != nil {
		return "", unavailable("sqlite select", err)
	}

	return strings.TrimSpace(secret), nil
}

// Exists checks for the row.
func (s *SQLite) Exists(ctx context.Context) (bool, error) {
	var ok bool
	if err := s.db.QueryRowContext(ctx, sqliteExists).Scan(&ok); err != nil {
		return false, unavailable("sqlite exists", err)
	}

	return ok, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
