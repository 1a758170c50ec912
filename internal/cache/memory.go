// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryCleanupInterval is how often expired entries are purged.
const memoryCleanupInterval = time.Minute

// MemoryBackend is a Backend that keeps values in process. Every entry
// carries its own expiration; there is no default.
type MemoryBackend struct {
	items *gocache.Cache
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{items: gocache.New(gocache.NoExpiration, memoryCleanupInterval)}
}

// Get returns a copy of the unexpired entry for key, or false if there is
// none.
func (m *MemoryBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v.([]byte)...), true, nil
}

// Set stores value under key, replacing any existing entry. A non-positive
// ttl stores nothing.
func (m *MemoryBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.items.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }

// Close drops every entry.
func (m *MemoryBackend) Close() error {
	m.items.Flush()
	return nil
}

// Len returns the number of stored entries, including expired ones that
// have not been purged yet.
func (m *MemoryBackend) Len() int {
	return m.items.ItemCount()
}
