package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/avelinov/roadbook/internal/routing"
)

// RouteCache stores resolved routes in Redis, keyed by the rounded ordered
// coordinate sequence. Entries are retained for the full retention window;
// freshness within that window is judged from the stored resolution time,
// not the Redis TTL.
type RouteCache struct {
	client *redis.Client
}

// NewRouteCache constructs a RouteCache.
func NewRouteCache(client *redis.Client) *RouteCache {
	return &RouteCache{client: client}
}

// key returns the Redis key for a coordinate-sequence identity.
func key(seq string) string {
	return "route:" + seq
}

// Get retrieves a cached route. Returns nil, nil on a miss (not an error).
func (c *RouteCache) Get(ctx context.Context, seq string) (*routing.CachedRoute, error) {
	val, err := c.client.Get(ctx, key(seq)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache get for route %s: %w", seq, err)
	}

	var cached routing.CachedRoute
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, fmt.Errorf("unmarshaling cached route %s: %w", seq, err)
	}

	return &cached, nil
}

// Set stores a resolved route with the retention TTL.
func (c *RouteCache) Set(ctx context.Context, seq string, route routing.CachedRoute) error {
	b, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("marshaling route %s: %w", seq, err)
	}

	if err := c.client.Set(ctx, key(seq), b, routing.RetentionTTL).Err(); err != nil {
		return fmt.Errorf("cache set for route %s: %w", seq, err)
	}

	return nil
}

// Delete removes the cached route for the given sequence.
func (c *RouteCache) Delete(ctx context.Context, seq string) error {
	if err := c.client.Del(ctx, key(seq)).Err(); err != nil {
		return fmt.Errorf("cache delete for route %s: %w", seq, err)
	}
	return nil
}
