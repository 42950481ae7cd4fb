package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mikey/llm-doc-detector/internal/core"
)

const defaultRedisPrefix = "doc-detector:"

// RedisOptions configures a RedisCache
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	Prefix   string
}

type redisRecord struct {
	Policy     string    `json:"policy"`
	IsMatch    bool      `json:"is_match"`
	Confidence float64   `json:"confidence"`
	Reason     string    `json:"reason"`
	LastSeen   time.Time `json:"last_seen"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// RedisCache stores verdicts in Redis. Expiry is delegated to key TTLs, so
// Cleanup has nothing to do.
type RedisCache struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, opts RedisOptions, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Address, err)
	}

	return newRedisCache(client, opts.Prefix, logger), nil
}

func newRedisCache(client *redis.Client, prefix string, logger *zap.Logger) *RedisCache {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCache{client: client, prefix: prefix, logger: logger}
}

func (c *RedisCache) key(key string) string {
	return c.prefix + key
}

// Get retrieves a cached verdict
func (c *RedisCache) Get(ctx context.Context, key string) (*core.CacheEntry, error) {
	ba, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	var rec redisRecord
	if err := json.Unmarshal(ba, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	if time.Now().After(rec.ExpiresAt) {
		return nil, ErrExpired
	}

	return &core.CacheEntry{
		Key:        key,
		Policy:     rec.Policy,
		IsMatch:    rec.IsMatch,
		Confidence: rec.Confidence,
		Reason:     rec.Reason,
		LastSeen:   rec.LastSeen,
		ExpiresAt:  rec.ExpiresAt,
	}, nil
}

// Set stores a cache entry with a TTL matching its expiry time
func (c *RedisCache) Set(ctx context.Context, entry *core.CacheEntry) error {
	ttl := time.Until(entry.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	ba, err := json.Marshal(redisRecord{
		Policy:     entry.Policy,
		IsMatch:    entry.IsMatch,
		Confidence: entry.Confidence,
		Reason:     entry.Reason,
		LastSeen:   entry.LastSeen,
		ExpiresAt:  entry.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := c.client.Set(ctx, c.key(entry.Key), ba, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Delete removes a cache entry
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Cleanup is a no-op; Redis evicts expired keys itself
func (c *RedisCache) Cleanup(ctx context.Context) error {
	return nil
}

// Stop closes the Redis client
func (c *RedisCache) Stop() {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis client", zap.Error(err))
	}
}
