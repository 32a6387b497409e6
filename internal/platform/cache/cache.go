// Copyright (c) 2026 Inkpress. All rights reserved.

/*
Package cache provides the keyed read-result cache fronting the content engine.

Cached values are keyed by an operation-specific signature (e.g.
"post:id:42", "posts:published:0:10") and registered under one or more named
invalidation groups. Mutations evict whole groups rather than single keys,
trading cache precision for invalidation simplicity.

Contract:

  - Eviction is synchronous with the mutating operation: services call
    [Evict] after the store transaction commits and before returning, so no
    reader observes a cached value older than the last completed mutation.
  - Cache failures never fail the calling operation. A failed read degrades
    to a cache miss; a failed write is logged and dropped.
*/
package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// # Invalidation Groups

// Logical buckets of cache keys evicted together on a relevant mutation.
const (
	GroupPosts         = "posts"
	GroupFeaturedPosts = "featured-posts"
	GroupRecentPosts   = "recent-posts"
	GroupPopularPosts  = "popular-posts"
	GroupTags          = "tags"
	GroupPopularTags   = "popular-tags"
)

// PostGroups is the full set of post-related groups, evicted by every post
// mutation (and by comment mutations, whose results surface inside cached
// post listings via comment counts).
var PostGroups = []string{GroupPosts, GroupFeaturedPosts, GroupRecentPosts, GroupPopularPosts}

// TagGroups is evicted by every tag-admin mutation and by post mutations
// that resolve tags (auto-creation changes tag listings).
var TagGroups = []string{GroupTags, GroupPopularTags}

// DefaultTTL bounds entry lifetime as a safety net; correctness relies on
// group eviction, not expiry.
const DefaultTTL = 10 * time.Minute

// # Store Contract

// Store is the key-value cache consumed by the service layer.
//
// Implementations must be safe for concurrent use by multiple callers.
type Store interface {
	// Get loads the value stored under key into dest.
	// It returns false (and no error) on a cache miss.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key and registers the key with each group.
	Set(ctx context.Context, key string, value any, groups ...string) error

	// Invalidate evicts every key registered under each of the groups.
	Invalidate(ctx context.Context, groups ...string) error
}

// Key builds a cache key signature from its parts, e.g.
// Key("post", "slug", "hello-world") -> "post:slug:hello-world".
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// # Read-Through Helper

/*
Fetch is the read-through path used by cache-fronted service reads.

It attempts a cache hit first; on a miss (or any cache failure, which is
logged and treated as a miss) it invokes load, stores the result under key
within the given groups, and returns it. Errors from load are returned
unmodified and nothing is cached.
*/
func Fetch[T any](ctx context.Context, store Store, logger *slog.Logger, key string, groups []string, load func(context.Context) (T, error)) (T, error) {
	var cached T

	hit, err := store.Get(ctx, key, &cached)
	if err != nil {
		// Degrade to a store read; the cache must never fail the operation.
		logger.Warn("cache_read_failed", slog.String("key", key), slog.Any("error", err))
	} else if hit {
		return cached, nil
	}

	loaded, err := load(ctx)
	if err != nil {
		return loaded, err
	}

	if err := store.Set(ctx, key, loaded, groups...); err != nil {
		logger.Warn("cache_write_failed", slog.String("key", key), slog.Any("error", err))
	}

	return loaded, nil
}

// Evict invalidates the given groups, logging (not returning) failures.
//
// It is called by every mutating operation after its transaction commits.
func Evict(ctx context.Context, store Store, logger *slog.Logger, groups ...string) {
	if err := store.Invalidate(ctx, groups...); err != nil {
		logger.Warn("cache_evict_failed",
			slog.String("groups", strings.Join(groups, ",")),
			slog.Any("error", err),
		)
	}
}
