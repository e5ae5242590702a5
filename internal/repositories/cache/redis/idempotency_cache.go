// Package redis caches terminal transfer outcomes in Redis so replays of a known
// idempotency key skip the database.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/ledger_engine/internal/core/domain"
	"github.com/go-redis/redis/v8"
)

const (
	// DefaultKeyPrefix namespaces cache entries.
	DefaultKeyPrefix = "idem:"
	// DefaultTTL bounds how long an outcome is served from the cache.
	DefaultTTL = 24 * time.Hour
)

// IdempotencyCache implements repositories.IdempotencyCache over a Redis client.
type IdempotencyCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// Option configures an IdempotencyCache.
type Option func(*IdempotencyCache)

// WithTTL sets the entry expiry. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(c *IdempotencyCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyPrefix sets the key namespace.
func WithKeyPrefix(prefix string) Option {
	return func(c *IdempotencyCache) {
		c.prefix = prefix
	}
}

// NewIdempotencyCache wraps client.
func NewIdempotencyCache(client redis.Cmdable, options ...Option) *IdempotencyCache {
	c := &IdempotencyCache{
		client: client,
		prefix: DefaultKeyPrefix,
		ttl:    DefaultTTL,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// NewClient parses a redis:// URL and verifies the connection.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (c *IdempotencyCache) key(idempotencyKey string) string {
	return c.prefix + idempotencyKey
}

// GetOutcome returns the cached outcome for key. A missing entry is (nil, false, nil).
func (c *IdempotencyCache) GetOutcome(ctx context.Context, key string) (*domain.TransferResult, bool, error) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var result domain.TransferResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("decode cached outcome %s: %w", key, err)
	}
	return &result, true, nil
}

// PutOutcome stores result under key with the configured TTL.
func (c *IdempotencyCache) PutOutcome(ctx context.Context, key string, result *domain.TransferResult) error {
	if result == nil {
		return nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode outcome %s: %w", key, err)
	}
	if err := c.client.Set(ctx, c.key(key), string(payload), c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
