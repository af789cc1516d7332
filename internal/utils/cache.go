package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// Cache is a JSON cache backed by Redis. A Cache without a client is a
// no-op that always misses, so callers need not check whether Redis is
// configured.
type Cache struct {
	rdb *redis.Client // Redis client, may be nil
	ttl time.Duration // Default entry lifetime
}

// NewCache wraps a Redis client with a default TTL
func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

// Enabled reports whether a Redis client backs the cache
func (c *Cache) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Get retrieves a value from Redis and unmarshals it into dest
func (c *Cache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.Enabled() {
		return false, nil // Nothing cached without Redis
	}
	val, err := c.rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	if err := json.Unmarshal([]byte(val), dest); err != nil {
		return false, err // Corrupt entry counts as a miss
	}
	return true, nil
}

// Set stores a value in Redis with the default TTL
func (c *Cache) Set(ctx context.Context, key string, value any) error {
	if !c.Enabled() {
		return nil
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return c.rdb.Set(ctx, key, b, c.ttl).Err() // Set value in Redis with TTL
}

// Version returns the counter stored at key, 0 when unset
func (c *Cache) Version(ctx context.Context, key string) (int64, error) {
	if !c.Enabled() {
		return 0, nil
	}
	v, err := c.rdb.Get(ctx, key).Int64() // Counter value
	if err == redis.Nil {
		return 0, nil // Never bumped
	}
	return v, err
}

// Bump increments the counter at key. Entries keyed by the old value become
// unreachable and expire with their TTL.
func (c *Cache) Bump(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Incr(ctx, key).Err() // Atomic increment
}
