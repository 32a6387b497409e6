// Copyright (c) 2026 Inkpress. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key namespaces. Entry keys and group index sets live in separate
// prefixes so a group eviction cannot collide with an entry signature.
const (
	entryPrefix = "cache:"
	groupPrefix = "cachegroup:"
)

// RedisStore implements [Store] on top of a shared Redis client.
//
// # Group Tracking
//
// Each Set registers the entry key in one Redis SET per invalidation group.
// Invalidate reads the group's members and deletes them together with the
// index itself. Index sets carry the same TTL as entries so that expired
// entries do not accumulate dangling index members.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing Redis client as a cache [Store].
// A non-positive ttl falls back to [DefaultTTL].
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Get implements [Store]. A missing key is a miss, not an error.
func (store *RedisStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	payload, err := store.client.Get(ctx, entryPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache: redis get failed: %w", err)
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		// A corrupt entry is unrecoverable; treat as a miss.
		return false, fmt.Errorf("cache: unmarshal of %q failed: %w", key, err)
	}

	return true, nil
}

// Set implements [Store]. The entry write and group registrations are
// pipelined into a single round-trip.
func (store *RedisStore) Set(ctx context.Context, key string, value any, groups ...string) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal of %q failed: %w", key, err)
	}

	pipe := store.client.TxPipeline()
	pipe.Set(ctx, entryPrefix+key, payload, store.ttl)
	for _, group := range groups {
		indexKey := groupPrefix + group
		pipe.SAdd(ctx, indexKey, entryPrefix+key)
		pipe.Expire(ctx, indexKey, store.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache: redis set failed: %w", err)
	}

	return nil
}

// Invalidate implements [Store]. It evicts all members of each group index
// plus the index itself.
func (store *RedisStore) Invalidate(ctx context.Context, groups ...string) error {
	for _, group := range groups {
		indexKey := groupPrefix + group

		members, err := store.client.SMembers(ctx, indexKey).Result()
		if err != nil {
			return fmt.Errorf("cache: reading group %q failed: %w", group, err)
		}

		toDelete := append(members, indexKey)
		if err := store.client.Del(ctx, toDelete...).Err(); err != nil {
			return fmt.Errorf("cache: evicting group %q failed: %w", group, err)
		}
	}

	return nil
}
