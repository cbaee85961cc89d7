package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"marketplace-settlement/internal/core/domain"
)

// SettlementCache implements ports.SettlementCache using Redis. It caches
// completed verification results so repeat webhook deliveries for a settled
// reference never reach the database.
type SettlementCache struct {
	client *goredis.Client
	prefix string
}

// NewSettlementCache creates a new Redis-backed settlement cache.
func NewSettlementCache(client *goredis.Client) *SettlementCache {
	return &SettlementCache{
		client: client,
		prefix: "settlement:",
	}
}

// Get retrieves a cached settlement result by gateway reference.
// Returns nil, nil if the key does not exist.
func (c *SettlementCache) Get(ctx context.Context, reference string) (*domain.SettlementResult, error) {
	val, err := c.client.Get(ctx, c.prefix+reference).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis settlement get: %w", err)
	}

	var result domain.SettlementResult
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, fmt.Errorf("decode cached settlement: %w", err)
	}
	return &result, nil
}

// Set stores a settlement result with TTL.
func (c *SettlementCache) Set(ctx context.Context, reference string, result *domain.SettlementResult, ttl time.Duration) error {
	val, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode settlement result: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+reference, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis settlement set: %w", err)
	}
	return nil
}
