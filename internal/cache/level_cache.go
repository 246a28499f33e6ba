// Package cache keeps each tenant's approval ladder in Redis so that
// approval routing does not reload it for every ticket.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/expense-ticket-service/internal/domain"
)

const keyPrefix = "expense:approval_levels:"

// LevelCache stores approval levels per tenant.
type LevelCache interface {
	Get(ctx context.Context, tenantID string) ([]domain.ApprovalLevel, bool, error)
	Set(ctx context.Context, tenantID string, levels []domain.ApprovalLevel) error
	Invalidate(ctx context.Context, tenantID string) error
}

// RedisLevelCache is a LevelCache backed by JSON values in Redis.
type RedisLevelCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLevelCache returns a cache writing entries that expire after ttl.
func NewRedisLevelCache(client *redis.Client, ttl time.Duration) *RedisLevelCache {
	return &RedisLevelCache{client: client, ttl: ttl}
}

// Key returns the Redis key holding tenantID's levels.
func Key(tenantID string) string {
	return keyPrefix + tenantID
}

func (c *RedisLevelCache) Get(ctx context.Context, tenantID string) ([]domain.ApprovalLevel, bool, error) {
	raw, err := c.client.Get(ctx, Key(tenantID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var levels []domain.ApprovalLevel
	if err := json.Unmarshal(raw, &levels); err != nil {
		return nil, false, err
	}
	return levels, true, nil
}

func (c *RedisLevelCache) Set(ctx context.Context, tenantID string, levels []domain.ApprovalLevel) error {
	payload, err := Encode(levels)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, Key(tenantID), payload, c.ttl).Err()
}

func (c *RedisLevelCache) Invalidate(ctx context.Context, tenantID string) error {
	return c.client.Del(ctx, Key(tenantID)).Err()
}

// Encode renders levels in the cached representation.
func Encode(levels []domain.ApprovalLevel) (string, error) {
	payload, err := json.Marshal(levels)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// Nop never hits.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]domain.ApprovalLevel, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, []domain.ApprovalLevel) error { return nil }

func (Nop) Invalidate(context.Context, string) error { return nil }
