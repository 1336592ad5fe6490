package seedstore

import (
	"context"
	"errors"
	"strings"

	"github.com/shandysiswandi/pkitotp/internal/pkg/storage"
)

// DefaultObjectKey is the key used when none is configured.
const DefaultObjectKey = "seed/seed.txt"

// Object stores the seed as one object in a storage bucket.
type Object struct {
	storage storage.Storage
	key     string
}

// NewObject returns an object store. The storage is owned by the caller.
func NewObject(stg storage.Storage, key string) *Object {
	if strings.TrimSpace(key) == "" {
		key = DefaultObjectKey
	}

	return &Object{storage: stg, key: key}
}

// Put uploads the secret plus a trailing newline.
func (o *Object) Put(ctx context.Context, secret string) error {
	secret, err := canonical(secret)
	if err != nil {
		return err
	}

	_, err = o.storage.Put(ctx, o.key, []byte(secret+"\n"), "text/plain")
	if err != nil {
		return unavailable("object put", err)
	}

	return nil
}

// Get downloads and trims the object.
func (o *Object) Get(ctx context.Context) (string, error) {
	data, _, err := o.storage.Get(ctx, o.key)
	if err != nil {
		return "", unavailable("object get", err)
	}

	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", unavailable("object get", errEmpty)
	}

	return secret, nil
}

// Exists stats the object.
func (o *Object) Exists(ctx context.Context) (bool, error) {
	_, err := o.storage.Stat(ctx, o.key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("object stat", err)
	}

	return true, nil
}

// Close is a no-op; the storage is closed by its owner.
func (o *Object) Close() error {
	return nil
}
