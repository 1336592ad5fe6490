package seedstore

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key used when none is configured.
const DefaultRedisKey = "pkitotp:seed"

// Redis stores the seed under a single key without expiry.
type Redis struct {
	client redis.UniversalClient
	key    string
}

// NewRedis returns a redis store. The client is owned by the caller.
func NewRedis(client redis.UniversalClient, key string) *Redis {
	if strings.TrimSpace(key) == "" {
		key = DefaultRedisKey
	}

	return &Redis{client: client, key: key}
}

// Put sets the key to the secret.
func (r *Redis) Put(ctx context.Context, secret string) error {
	secret, err := canonical(secret)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key, secret, 0).Err(); err != nil {
		return unavailable("redis set", err)
	}

	return nil
}

// Get reads the key.
func (r *Redis) Get(ctx context.Context) (string, error) {
	val, err := r.client.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", unavailable("redis get", errEmpty)
	}
	if err != nil {
		return "", unavailable("redis get", err)
	}

	secret := strings.TrimSpace(val)
	if secret == "" {
		return "", unavailable("redis get", errEmpty)
	}

	return secret, nil
}

// Exists checks the key.
func (r *Redis) Exists(ctx context.Context) (bool, error) {
	n, err := r.client.Exists(ctx, r.key).Result()
	if err != nil {
		return false, unavailable("redis exists", err)
	}

	return n > 0, nil
}

// Close is a no-op; the shared client is closed by its owner.
func (r *Redis) Close() error {
	return nil
}
