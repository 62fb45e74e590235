// Package cache provides a Redis-backed cache for computed
// recommendations, keyed by the canonical request hash.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ombra/registrar/internal/recommend"
)

const keyPrefix = "registrar:rec:"

// Cache stores recommendation responses in Redis with a TTL.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// New connects to Redis and verifies the connection with a ping.
func New(redisURL string, ttl time.Duration, logger *zap.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}, nil
}

// GetRecommendation returns the cached response for a request key, if any.
func (c *Cache) GetRecommendation(ctx context.Context, key string) (*recommend.Response, bool, error) {
	data, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	var resp recommend.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		// A corrupt entry is treated as a miss and evicted.
		c.logger.Warn("evicting corrupt cache entry", zap.String("key", key), zap.Error(err))
		c.rdb.Del(ctx, keyPrefix+key)
		return nil, false, nil
	}
	return &resp, true, nil
}

// SetRecommendation stores a response under the request key.
func (c *Cache) SetRecommendation(ctx context.Context, key string, resp *recommend.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, keyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Invalidate drops a single cached recommendation. Used when a student's
// record changes between requests.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, keyPrefix+key).Err()
}

// Close releases the underlying Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
