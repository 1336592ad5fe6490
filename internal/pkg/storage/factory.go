package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Driver names accepted by NewFromDriver.
const (
	DriverS3     = "s3"
	DriverGCS    = "gcs"
	DriverMinIO  = "minio"
	DriverMemory = "memory"
)

// ErrUnknownDriver indicates an unsupported storage driver.
var ErrUnknownDriver = errors.New("storage: unknown driver")

// FactoryOptions holds the settings of every backend; only the selected
// driver's entry is read. Bucket is copied into it.
type FactoryOptions struct {
	Bucket string
	S3     S3Options
	GCS    GCSOptions
	MinIO  MinIOOptions
}

// NewFromDriver builds the backend named by driver, case-insensitively. An
// empty name selects the in-memory backend.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Storage, error) {
	name := strings.ToLower(strings.TrimSpace(driver))

	var (
		s   Storage
		err error
	)
	switch name {
	case DriverS3:
		opts.S3.Bucket = opts.Bucket
		s, err = NewS3(ctx, opts.S3)
	case DriverGCS:
		opts.GCS.Bucket = opts.Bucket
		s, err = NewGCS(ctx, opts.GCS)
	case DriverMinIO:
		opts.MinIO.Bucket = opts.Bucket
		s, err = NewMinIO(opts.MinIO)
	case DriverMemory, "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: init %s: %w", name, err)
	}

	return s, nil
}
