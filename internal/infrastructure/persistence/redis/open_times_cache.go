package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tutorhub/tutorhub-scheduling/internal/application/query"
	"github.com/tutorhub/tutorhub-scheduling/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// OPEN TIMES CACHE
// Availability search results are expensive (one conflict scan per candidate)
// and short-lived (any booking invalidates them), so entries carry a short
// TTL rather than explicit invalidation.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultOpenTimesTTL is how long a cached search result stays valid.
const DefaultOpenTimesTTL = 30 * time.Second

// OpenTimesCache implements query.OpenTimesCache on Redis.
type OpenTimesCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOpenTimesCache creates an availability search cache.
func NewOpenTimesCache(client *redis.Client) *OpenTimesCache {
	return &OpenTimesCache{client: client, ttl: DefaultOpenTimesTTL}
}

// WithTTL overrides the entry TTL.
func (c *OpenTimesCache) WithTTL(ttl time.Duration) *OpenTimesCache {
	c.ttl = ttl
	return c
}

// Get returns a cached search result, or shared.ErrNotFound on a miss.
func (c *OpenTimesCache) Get(ctx context.Context, key string) (*query.FindOpenTimesResult, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, shared.NewDomainError("cache", "get", shared.ErrNotFound, "no cached result")
	}
	if err != nil {
		return nil, fmt.Errorf("open times cache: get %s: %w", key, err)
	}

	var result query.FindOpenTimesResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("open times cache: decode %s: %w", key, err)
	}
	return &result, nil
}

// Set stores a search result under the given key.
func (c *OpenTimesCache) Set(ctx context.Context, key string, result *query.FindOpenTimesResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("open times cache: encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("open times cache: set %s: %w", key, err)
	}
	return nil
}
