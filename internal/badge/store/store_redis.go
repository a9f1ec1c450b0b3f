package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jaypee15/veirifire/internal/badge/metrics"
	"github.com/jaypee15/veirifire/internal/badge/models"
	"github.com/jaypee15/veirifire/internal/sentinel"
)

const redisBadgeKeyPrefix = "badge:external:"

// RedisCache keeps badges keyed by external ID with TTL-based eviction,
// fronting the durable store on the verification read path. Entries are
// invalidated on revoke and evidence append so a stale "valid" answer can
// outlive a revocation by at most the TTL of an entry written just before
// the mutation; the service invalidates on every mutation to keep even that
// window closed in the common case.
type RedisCache struct {
	client   *redis.Client
	cacheTTL time.Duration
	metrics  *metrics.Metrics
}

// NewRedisCache constructs a Redis-backed badge cache. Metrics may be nil.
func NewRedisCache(client *redis.Client, cacheTTL time.Duration, metrics *metrics.Metrics) *RedisCache {
	return &RedisCache{
		client:   client,
		cacheTTL: cacheTTL,
		metrics:  metrics,
	}
}

// FindByExternalID loads a cached badge. Returns sentinel.ErrNotFound on a
// cache miss; a miss says nothing about the durable store.
func (c *RedisCache) FindByExternalID(ctx context.Context, externalID models.ExternalBadgeID) (*models.Badge, error) {
	data, err := c.client.Get(ctx, badgeKey(externalID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.recordMiss()
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find badge cache: %w", err)
	}

	var badge models.Badge
	if err := json.Unmarshal(data, &badge); err != nil {
		return nil, fmt.Errorf("decode badge cache: %w", err)
	}
	c.recordHit()
	return &badge, nil
}

// Save writes a badge to Redis with TTL eviction, overwriting any existing entry.
func (c *RedisCache) Save(ctx context.Context, badge *models.Badge) error {
	if badge == nil {
		return fmt.Errorf("badge is required")
	}
	payload, err := json.Marshal(badge)
	if err != nil {
		return fmt.Errorf("encode badge cache: %w", err)
	}
	if err := c.client.Set(ctx, badgeKey(badge.ExternalID), payload, c.cacheTTL).Err(); err != nil {
		return fmt.Errorf("save badge cache: %w", err)
	}
	return nil
}

// Invalidate removes the cached entry for an external ID.
func (c *RedisCache) Invalidate(ctx context.Context, externalID models.ExternalBadgeID) error {
	if err := c.client.Del(ctx, badgeKey(externalID)).Err(); err != nil {
		return fmt.Errorf("invalidate badge cache: %w", err)
	}
	return nil
}

func (c *RedisCache) recordHit() {
	if c.metrics != nil {
		c.metrics.IncrementCacheHits()
	}
}

func (c *RedisCache) recordMiss() {
	if c.metrics != nil {
		c.metrics.IncrementCacheMisses()
	}
}

func badgeKey(externalID models.ExternalBadgeID) string {
	return redisBadgeKeyPrefix + externalID.String()
}
