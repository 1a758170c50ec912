// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package cache

import (
	"context"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// Backend stores opaque values with an expiry.
type Backend interface {
	// Get returns the value for key and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Ping checks that the backend is usable.
	Ping(ctx context.Context) error
	Close() error
}

// OpenBackend returns the backend for rawURL: redis:// and rediss:// use a
// Redis server, memory:// keeps values in process.
func OpenBackend(rawURL string) (Backend, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing cache url")
	}

	switch u.Scheme {
	case "redis", "rediss":
		return NewRedisBackend(rawURL)
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, errors.Errorf("unsupported cache scheme %q", u.Scheme)
	}
}
