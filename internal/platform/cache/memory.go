// Copyright (c) 2026 Inkpress. All rights reserved.

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is a process-local [Store] with the same semantics as
// [RedisStore]. It backs unit tests and single-node deployments that run
// without Redis.
//
// Values are stored as JSON so that hit/miss behavior and type fidelity
// match the Redis implementation exactly.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
	groups  map[string]map[string]struct{}
}

// NewMemoryStore creates an empty in-memory cache store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]byte),
		groups:  make(map[string]map[string]struct{}),
	}
}

// Get implements [Store].
func (store *MemoryStore) Get(_ context.Context, key string, dest any) (bool, error) {
	store.mu.RLock()
	payload, ok := store.entries[key]
	store.mu.RUnlock()

	if !ok {
		return false, nil
	}

	if err := json.Unmarshal(payload, dest); err != nil {
		return false, fmt.Errorf("cache: unmarshal of %q failed: %w", key, err)
	}

	return true, nil
}

// Set implements [Store].
func (store *MemoryStore) Set(_ context.Context, key string, value any, groups ...string) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: marshal of %q failed: %w", key, err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	store.entries[key] = payload
	for _, group := range groups {
		if store.groups[group] == nil {
			store.groups[group] = make(map[string]struct{})
		}
		store.groups[group][key] = struct{}{}
	}

	return nil
}

// Invalidate implements [Store].
func (store *MemoryStore) Invalidate(_ context.Context, groups ...string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, group := range groups {
		for key := range store.groups[group] {
			delete(store.entries, key)
		}
		delete(store.groups, group)
	}

	return nil
}

// Len reports the number of live entries. Test helper.
func (store *MemoryStore) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.entries)
}
