//go:build integration

package containers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"agencyhub/internal/platform/config"
	platformredis "agencyhub/internal/platform/redis"
)

// RedisContainer is the stats cache backend for integration runs. Client is
// built through the same constructor the server uses, so pool and timeout
// settings are exercised as well.
type RedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *platformredis.Client
}

func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "start redis container")

	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		require.NoError(t, err, "redis connection string")
	}

	client, err := platformredis.New(ctx, config.RedisConfig{
		URL:         url,
		PoolSize:    4,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		_ = container.Terminate(ctx)
		require.NoError(t, err, "connect to redis")
	}

	// Shared across suites by the Manager; Ryuk reaps the container.
	return &RedisContainer{Container: container, URL: url, Client: client}
}

// KeysMatching lists keys under prefix. Stats cache tests use it to check
// what was written without depending on the key layout beyond its prefix.
func (r *RedisContainer) KeysMatching(ctx context.Context, t *testing.T, prefix string) []string {
	t.Helper()
	var keys []string
	iter := r.Client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	require.NoError(t, iter.Err())
	return keys
}

// TTL returns the remaining lifetime of key.
func (r *RedisContainer) TTL(ctx context.Context, t *testing.T, key string) time.Duration {
	t.Helper()
	ttl, err := r.Client.TTL(ctx, key).Result()
	require.NoError(t, err)
	return ttl
}
