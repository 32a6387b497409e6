// Copyright (c) 2026 Inkpress. All rights reserved.

package cache_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/internal/platform/cache"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

/*
TestMemoryStore_RoundTrip covers basic set/get with JSON fidelity.
*/
func TestMemoryStore_RoundTrip(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	type payload struct {
		ID   int64  `json:"id"`
		Slug string `json:"slug"`
	}

	require.NoError(t, store.Set(ctx, "post:id:42", payload{ID: 42, Slug: "hello"}, cache.GroupPosts))

	var got payload
	hit, err := store.Get(ctx, "post:id:42", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, payload{ID: 42, Slug: "hello"}, got)

	hit, err = store.Get(ctx, "post:id:999", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

/*
TestMemoryStore_GroupInvalidation evicts only the keys registered under the
invalidated groups.
*/
func TestMemoryStore_GroupInvalidation(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "post:id:1", 1, cache.GroupPosts))
	require.NoError(t, store.Set(ctx, "posts:popular:5", []int{1}, cache.GroupPopularPosts))
	require.NoError(t, store.Set(ctx, "tags:popular:5", []int{7}, cache.GroupPopularTags))

	require.NoError(t, store.Invalidate(ctx, cache.GroupPosts, cache.GroupPopularPosts))

	var n int
	hit, err := store.Get(ctx, "post:id:1", &n)
	require.NoError(t, err)
	assert.False(t, hit, "posts group entry must be evicted")

	var ids []int
	hit, err = store.Get(ctx, "tags:popular:5", &ids)
	require.NoError(t, err)
	assert.True(t, hit, "unrelated tag entry must survive")
}

/*
TestFetch_LoadsOnMissAndCaches verifies the read-through behavior: the loader
runs once, then subsequent reads are served from cache.
*/
func TestFetch_LoadsOnMissAndCaches(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()
	loads := 0

	load := func(context.Context) (string, error) {
		loads++
		return "value", nil
	}

	got, err := cache.Fetch(ctx, store, discardLogger(), "k", []string{cache.GroupPosts}, load)
	require.NoError(t, err)
	assert.Equal(t, "value", got)

	got, err = cache.Fetch(ctx, store, discardLogger(), "k", []string{cache.GroupPosts}, load)
	require.NoError(t, err)
	assert.Equal(t, "value", got)
	assert.Equal(t, 1, loads, "second read must hit the cache")
}

/*
TestFetch_LoaderErrorNotCached propagates loader failures unmodified and
caches nothing.
*/
func TestFetch_LoaderErrorNotCached(t *testing.T) {
	store := cache.NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("store unavailable")

	_, err := cache.Fetch(ctx, store, discardLogger(), "k", nil, func(context.Context) (int, error) {
		return 0, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Len())
}

// failingStore simulates an unavailable cache backend.
type failingStore struct{}

func (failingStore) Get(context.Context, string, any) (bool, error) {
	return false, errors.New("connection refused")
}
func (failingStore) Set(context.Context, string, any, ...string) error {
	return errors.New("connection refused")
}
func (failingStore) Invalidate(context.Context, ...string) error {
	return errors.New("connection refused")
}

/*
TestFetch_DegradesOnCacheFailure: a broken cache backend must never fail the
operation — the loader result is returned as if the cache missed.
*/
func TestFetch_DegradesOnCacheFailure(t *testing.T) {
	got, err := cache.Fetch(context.Background(), failingStore{}, discardLogger(), "k", nil,
		func(context.Context) (string, error) { return "from-store", nil })

	require.NoError(t, err)
	assert.Equal(t, "from-store", got)
}
