package intent

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultRedisPrefix = "archdesk:intent:"

// RedisCache shares classifications between processes. Keys are hashed so
// arbitrary user text never ends up in a Redis key.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisCache {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

func (c *RedisCache) key(k string) string {
	sum := sha256.Sum256([]byte(k))
	return c.prefix + hex.EncodeToString(sum[:16])
}

// Get treats every Redis failure as a miss; classification falls back to
// the model.
func (c *RedisCache) Get(ctx context.Context, key string) (Classification, bool) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("intent cache get failed", zap.Error(err))
		}
		return Classification{}, false
	}
	var cl Classification
	if err := json.Unmarshal(data, &cl); err != nil {
		c.logger.Warn("intent cache entry corrupt", zap.Error(err))
		return Classification{}, false
	}
	return cl, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value Classification) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		c.logger.Warn("intent cache set failed", zap.Error(err))
	}
}

// Clear deletes every key under the cache prefix.
func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("intent cache clear: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("intent cache scan: %w", err)
	}
	if len(batch) > 0 {
		if err := c.client.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("intent cache clear: %w", err)
		}
	}
	return nil
}
