package seedstore

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgCreateTable = `CREATE TABLE IF NOT EXISTS twofa_seed (
	slot       SMALLINT PRIMARY KEY CHECK (slot = 1),
	secret     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	pgUpsert = `INSERT INTO twofa_seed (slot, secret, updated_at) VALUES (1, $1, now())
ON CONFLICT (slot) DO UPDATE SET secret = EXCLUDED.secret, updated_at = EXCLUDED.updated_at`
	pgSelect = `SELECT secret FROM twofa_seed WHERE slot = 1`
	pgExists = `SELECT EXISTS (SELECT 1 FROM twofa_seed WHERE slot = 1)`
)

// PgxQuerier is the subset of *pgxpool.Pool the store needs.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores the seed in the single row of twofa_seed.
type Postgres struct {
	db PgxQuerier
}

// NewPostgres creates the table when missing and returns the store. The
// pool is owned by the caller.
func NewPostgres(ctx context.Context, db PgxQuerier) (*Postgres, error) {
	if _, err := db.Exec(ctx, pgCreateTable); err != nil {
		return nil, unavailable("postgres migrate", err)
	}

	return &Postgres{db: db}, nil
}

// Put upserts the row.
func (p *Postgres) Put(ctx context.Context, secret string) error {
	secret, err := canonical(secret)
	if err != nil {
		return err
	}

	if _, err := p.db.Exec(ctx, pgUpsert, secret); err != nil {
		return unavailable("postgres upsert", err)
	}

	return nil
}

// Get reads the row.
func (p *Postgres) Get(ctx context.Context) (string, error) {
	var secret string
	err := p.db.QueryRow(ctx, pgSelect).Scan(&secret)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", unavailable("postgres select", errEmpty)
	}
	if err != nil {
		return "", unavailable("postgres select", err)
	}

	return strings.TrimSpace(secret), nil
}

// Exists checks for the row.
func (p *Postgres) Exists(ctx context.Context) (bool, error) {
	var ok bool
	if err := p.db.QueryRow(ctx, pgExists).Scan(&ok); err != nil {
		return false, unavailable("postgres exists", err)
	}

	return ok, nil
}

// Close is a no-op; the pool is closed by its owner.
func (p *Postgres) Close() error {
	return nil
}
