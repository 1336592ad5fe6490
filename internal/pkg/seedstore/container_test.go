package seedstore

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func skipWithoutDocker(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("container tests disabled with -short")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

func TestRedis(t *testing.T) {
	skipWithoutDocker(t)
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

	s := NewRedis(client, "")
	runStoreContract(t, s)

	val, err := client.Get(ctx, DefaultRedisKey).Result()
	require.NoError(t, err)
	require.Equal(t, secretB, val)

	ttl, err := client.TTL(ctx, DefaultRedisKey).Result()
	require.NoError(t, err)
	require.Negative(t, ttl, "seed must not expire")
}

func TestPostgres(t *testing.T) {
	skipWithoutDocker(t)
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("pkitotp"),
		tcpostgres.WithUsername("pkitotp"),
		tcpostgres.WithPassword("pkitotp"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s, err := NewPostgres(ctx, pool)
	require.NoError(t, err)
	runStoreContract(t, s)

	// idempotent migration
	_, err = NewPostgres(ctx, pool)
	require.NoError(t, err)

	var rows int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM twofa_seed").Scan(&rows))
	require.Equal(t, 1, rows)
}
