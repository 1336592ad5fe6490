package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func newTracker(t *testing.T) (*StateTracker, redis.UniversalClient) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	uri, err := ctr.ConnectionString(ctx)
	require.NoError(t, err)
	opt, err := redis.ParseURL(uri)
	require.NoError(t, err)

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	return New(client, "test:"), client
}

func TestStateTracker_Exec(t *testing.T) {
	tracker, client := newTracker(t)
	ctx := context.Background()

	calls := 0
	run := func(context.Context) error {
		calls++
		return nil
	}

	require.NoError(t, tracker.Exec(ctx, "k1", run))
	require.ErrorIs(t, tracker.Exec(ctx, "k1", run), ErrAlreadyCompleted)
	require.Equal(t, 1, calls)

	ttl, err := client.TTL(ctx, "test:k1").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Hour)

	// a failed run frees the key for a retry
	boom := errors.New("boom")
	require.ErrorIs(t, tracker.Exec(ctx, "k2", func(context.Context) error { return boom }), boom)
	require.NoError(t, tracker.Exec(ctx, "k2", run))
	require.Equal(t, 2, calls)

	state, err := tracker.Acquire(ctx, "k3", time.Minute)
	require.NoError(t, err)
	require.Equal(t, StateNone, state)
	require.ErrorIs(t, tracker.Exec(ctx, "k3", run), ErrAlreadyInProgress)

	require.NoError(t, client.Set(ctx, "test:k4", "garbage", time.Minute).Err())
	require.ErrorIs(t, tracker.Exec(ctx, "k4", run), ErrInvalidState)

	require.ErrorIs(t, tracker.Exec(ctx, "", run), ErrEmptyKey)
}
