package seedstore

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultFilePath is used when no path is configured.
const DefaultFilePath = "./data/seed.txt"

// File stores the seed as the sole content of a file, owner read/write only.
type File struct {
	path string
}

// NewFile returns a file store at path.
func NewFile(path string) *File {
	if strings.TrimSpace(path) == "" {
		path = DefaultFilePath
	}

	return &File{path: filepath.Clean(path)}
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Put writes the secret plus a trailing newline through a temp file and a
// rename. Restricting permissions is best effort.
func (f *File) Put(ctx context.Context, secret string) error {
	secret, err := canonical(secret)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return unavailable("mkdir", err)
	}

	tmp, err := os.CreateTemp(dir, ".seed-*")
	if err != nil {
		return unavailable("create temp", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.WriteString(secret + "\n"); err != nil {
		_ = tmp.Close()
		return unavailable("write", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return unavailable("sync", err)
	}
	if err := tmp.Close(); err != nil {
		return unavailable("close", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		return unavailable("rename", err)
	}

	if err := os.Chmod(f.path, 0o600); err != nil {
		slog.WarnContext(ctx, "seedstore: failed to restrict seed file permissions", "path", f.path, "error", err)
	}

	return nil
}

// Get reads and trims the file content.
func (f *File) Get(_ context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", unavailable("read", err)
	}

	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", unavailable("read", errEmpty)
	}

	return secret, nil
}

// Exists reports whether the file is present.
func (f *File) Exists(_ context.Context) (bool, error) {
	_, err := os.Stat(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("stat", err)
	}

	return true, nil
}

// Close is a no-op.
func (f *File) Close() error {
	return nil
}
