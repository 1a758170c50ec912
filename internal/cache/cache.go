// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package cache decides once, at startup, whether responses are cached and
// hides that decision from callers. A disabled Gateway computes every value
// and stores nothing.
//
// The cache is best-effort: backend failures are logged and the value is
// computed as if no cache existed.
package cache

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultTTL is how long a cached value stays fresh.
const DefaultTTL = 60 * time.Second

// KeyPrefix namespaces every key written by this service.
const KeyPrefix = "api:cache"

// Compute produces the value to cache.
type Compute func(ctx context.Context) ([]byte, error)

// Gateway caches the results of named operations.
type Gateway interface {
	// Enabled reports whether a backend was configured and answered at startup.
	Enabled() bool
	// Do returns the value stored under key if it is fresh, or calls compute
	// and stores its result for ttl.
	Do(ctx context.Context, key Key, ttl time.Duration, compute Compute) ([]byte, error)
	Close() error
}

// Key identifies a cached value by operation and its inputs only.
type Key struct {
	Operation string
	Params    []string
}

// NewKey returns a Key for operation with params.
func NewKey(operation string, params ...string) Key {
	return Key{Operation: operation, Params: params}
}

// String renders the key under KeyPrefix. Params are escaped so that ':'
// inside a param cannot collide with another key.
func (k Key) String() string {
	parts := make([]string, 0, len(k.Params)+2)
	parts = append(parts, KeyPrefix, k.Operation)
	for _, p := range k.Params {
		parts = append(parts, url.QueryEscape(p))
	}
	return strings.Join(parts, ":")
}

type disabled struct{}

// Disabled returns a Gateway that never stores anything.
func Disabled() Gateway { return disabled{} }

func (disabled) Enabled() bool { return false }

func (disabled) Do(ctx context.Context, _ Key, _ time.Duration, compute Compute) ([]byte, error) {
	return compute(ctx)
}

func (disabled) Close() error { return nil }

type gateway struct {
	backend Backend
	log     logrus.FieldLogger
}

// New returns an enabled Gateway storing values in backend.
func New(backend Backend, log logrus.FieldLogger) Gateway {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &gateway{backend: backend, log: log.WithField("component", "cache")}
}

func (g *gateway) Enabled() bool { return true }

func (g *gateway) Do(ctx context.Context, key Key, ttl time.Duration, compute Compute) ([]byte, error) {
	k := key.String()
	log := g.log.WithField("key", k)

	stored, ok, err := g.backend.Get(ctx, k)
	switch {
	case err != nil:
		log.WithError(err).Warn("cache read failed")
	case ok:
		value, err := decode(stored)
		if err == nil {
			return value, nil
		}
		log.WithError(err).Warn("discarding undecodable cache entry")
	}

	value, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := g.backend.Set(ctx, k, encode(value), ttl); err != nil {
		log.WithError(err).Warn("cache write failed")
	}
	return value, nil
}

func (g *gateway) Close() error {
	return g.backend.Close()
}

// Open picks the Gateway for rawURL. An empty URL, an unsupported scheme or
// a backend that does not answer a ping all yield a disabled Gateway.
func Open(ctx context.Context, rawURL string, log logrus.FieldLogger) Gateway {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if rawURL == "" {
		log.Info("response cache disabled: no backend configured")
		return Disabled()
	}

	backend, err := OpenBackend(rawURL)
	if err != nil {
		log.WithError(err).Warn("response cache disabled")
		return Disabled()
	}
	if err := backend.Ping(ctx); err != nil {
		log.WithError(err).Warn("response cache disabled: backend unreachable")
		_ = backend.Close()
		return Disabled()
	}

	log.WithField("scheme", schemeOf(rawURL)).Info("response cache enabled")
	return New(backend, log)
}

// Fetch is Do for JSON-encodable values. A disabled gateway calls compute
// directly.
func Fetch[T any](ctx context.Context, g Gateway, key Key, ttl time.Duration, compute func(context.Context) (T, error)) (T, error) {
	if !g.Enabled() {
		return compute(ctx)
	}

	var zero T
	raw, err := g.Do(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(v)
	})
	if err != nil {
		return zero, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, errors.Wrapf(err, "decoding cached %s", key.Operation)
	}
	return out, nil
}

func schemeOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Scheme
}
