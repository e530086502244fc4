package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// DashboardCache holds the last computed all-devices dashboard.
type DashboardCache interface {
	Get(ctx context.Context) ([]DashboardEntry, bool, error)
	Set(ctx context.Context, entries []DashboardEntry, ttl time.Duration) error
}

const dashboardCacheKey = "telecrm:dashboard:v1"

// RedisCache stores the dashboard as one JSON value with a TTL.
type RedisCache struct {
	rdb redis.Cmdable
	key string
}

func NewRedisCache(rdb redis.Cmdable) *RedisCache {
	return &RedisCache{rdb: rdb, key: dashboardCacheKey}
}

func (c *RedisCache) Get(ctx context.Context) ([]DashboardEntry, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var out []DashboardEntry
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (c *RedisCache) Set(ctx context.Context, entries []DashboardEntry, ttl time.Duration) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key, raw, ttl).Err()
}
