package stats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"agencyhub/internal/platform/metrics"
	id "agencyhub/pkg/domain"
)

const keyPrefix = "agencyhub:stats:"

// absent marks a cached "no stats" answer so 404s are not re-fetched.
const absent = "null"

// Cache is a read-through Redis cache in front of another provider. Redis
// errors fall through to the upstream.
type Cache struct {
	client   redis.UniversalClient
	upstream Provider
	ttl      time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewCache(client redis.UniversalClient, upstream Provider, ttl time.Duration, m *metrics.Metrics, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, upstream: upstream, ttl: ttl, metrics: m, logger: logger}
}

func cacheKey(recruiterID id.RecruiterID) string {
	return keyPrefix + recruiterID.String()
}

func (c *Cache) GetStats(ctx context.Context, recruiterID id.RecruiterID) (*Stats, error) {
	key := cacheKey(recruiterID)
	raw, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		c.metrics.IncStatsLookup("hit")
		if raw == absent {
			return nil, nil
		}
		var st Stats
		if jsonErr := json.Unmarshal([]byte(raw), &st); jsonErr == nil {
			return &st, nil
		}
		c.logger.WarnContext(ctx, "discarding corrupt stats cache entry", "key", key)
	case errors.Is(err, redis.Nil):
		c.metrics.IncStatsLookup("miss")
	default:
		c.logger.WarnContext(ctx, "stats cache read failed", "error", err)
	}

	st, err := c.upstream.GetStats(ctx, recruiterID)
	if err != nil {
		return nil, err
	}
	value := absent
	if st != nil {
		encoded, err := json.Marshal(st)
		if err != nil {
			return st, nil
		}
		value = string(encoded)
	}
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "stats cache write failed", "error", err)
	}
	return st, nil
}
