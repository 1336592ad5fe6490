// Package storage keeps small blobs, such as a provisioned seed, in one
// object storage bucket (S3, GCS, MinIO or process memory).
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// MaxObjectSize caps how many bytes Get reads from any backend.
const MaxObjectSize = 1 << 20

var (
	// ErrObjectNotFound indicates the bucket has no object under the key.
	ErrObjectNotFound = errors.New("storage: object not found")
	// ErrObjectTooLarge indicates the object exceeds MaxObjectSize.
	ErrObjectTooLarge = errors.New("storage: object too large")
	// ErrBucketRequired indicates a remote backend was built without a bucket.
	ErrBucketRequired = errors.New("storage: bucket is required")
)

// Storage is a single bucket. Keys are object names inside it.
type Storage interface {
	io.Closer

	// Put replaces the object under key.
	Put(ctx context.Context, key string, data []byte, contentType string) (ObjectInfo, error)
	// Get reads the whole object.
	Get(ctx context.Context, key string) ([]byte, ObjectInfo, error)
	// Stat reads object metadata only.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
}

// ObjectInfo is what the backends agree on about an object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ETag        string
	ContentType string
	UpdatedAt   time.Time
}

func readAllLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxObjectSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxObjectSize {
		return nil, ErrObjectTooLarge
	}

	return data, nil
}
