package storage

import (
	"context"
	"crypto/md5" //nolint:gosec // etag only
	"encoding/hex"
	"sync"
	"time"
)

type memoryObject struct {
	data []byte
	info ObjectInfo
}

// Memory is a bucket held in process memory; contents are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

// NewMemory returns an empty in-memory bucket.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]memoryObject), now: time.Now}
}

func (m *Memory) Put(ctx context.Context, key string, data []byte, contentType string) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	if len(data) > MaxObjectSize {
		return ObjectInfo{}, ErrObjectTooLarge
	}

	sum := md5.Sum(data) //nolint:gosec // etag only
	info := ObjectInfo{
		Key:         key,
		Size:        int64(len(data)),
		ETag:        hex.EncodeToString(sum[:]),
		ContentType: contentType,
		UpdatedAt:   m.now().UTC(),
	}

	m.mu.Lock()
	m.objects[key] = memoryObject{data: append([]byte(nil), data...), info: info}
	m.mu.Unlock()

	return info, nil
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}

	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ObjectInfo{}, ErrObjectNotFound
	}

	return append([]byte(nil), obj.data...), obj.info, nil
}

func (m *Memory) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	_, info, err := m.Get(ctx, key)
	return info, err
}

func (m *Memory) Close() error { return nil }
