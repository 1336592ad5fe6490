// Package seedstore persists the single provisioned seed.
//
// Every backend holds exactly one slot. Put validates the secret before
// writing and replaces whatever was there; Get returns the stored text
// trimmed but not re-validated, so callers that derive codes must treat a
// format failure on a stored value as an unavailable store.
//
// Writes are atomic per backend (rename for files, single-key writes for the
// servers) but there is no cross-process locking: two concurrent Put calls
// race and the last one wins.
package seedstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shandysiswandi/pkitotp/internal/pkg/seed"
)

const (
	// DriverFile keeps the seed in a local file.
	DriverFile = "file"
	// DriverRedis keeps the seed under a redis key.
	DriverRedis = "redis"
	// DriverPostgres keeps the seed in a postgres table.
	DriverPostgres = "postgres"
	// DriverSQLite keeps the seed in an embedded sqlite database.
	DriverSQLite = "sqlite"
	// DriverObject keeps the seed in object storage.
	DriverObject = "object"
)

// ErrUnknownDriver indicates an unsupported store driver.
var ErrUnknownDriver = errors.New("seedstore: unknown driver")

// Store is a single-slot holder for the canonical seed.
type Store interface {
	io.Closer

	// Put validates and writes the secret, replacing any previous value.
	Put(ctx context.Context, secret string) error
	// Get returns the stored secret with surrounding whitespace removed.
	Get(ctx context.Context) (string, error)
	// Exists reports whether a value is stored.
	Exists(ctx context.Context) (bool, error)
}

// ParseDriver normalizes a driver name; empty selects DriverFile.
func ParseDriver(driver string) (string, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	switch driver {
	case "":
		return DriverFile, nil
	case DriverFile, DriverRedis, DriverPostgres, DriverSQLite, DriverObject:
		return driver, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}

func canonical(secret string) (string, error) {
	secret = strings.TrimSpace(secret)
	if err := seed.Validate(secret); err != nil {
		return "", err
	}

	return secret, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("seedstore: %s: %w: %w", op, seed.ErrStoreUnavailable, err)
}

var errEmpty = errors.New("slot is empty")
