package insights

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKey = "meridian:insights:snapshot"

// ErrCacheMiss indicates no cached snapshot is available.
var ErrCacheMiss = errors.New("insights cache miss")

// Cache stores computed snapshots in Redis with a TTL.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewCache creates a Cache. A non-positive ttl falls back to one hour.
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Get returns the cached snapshot, or ErrCacheMiss.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	raw, err := c.rdb.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, ErrCacheMiss
	}
	return &snap, nil
}

// Set stores a snapshot for the configured TTL.
func (c *Cache) Set(ctx context.Context, snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, cacheKey, raw, c.ttl).Err()
}

// Reset drops the cached snapshot so the next read recomputes.
func (c *Cache) Reset(ctx context.Context) error {
	return c.rdb.Del(ctx, cacheKey).Err()
}
