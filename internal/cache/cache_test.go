// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

type counter struct{ calls int }

func (c *counter) compute(value string) Compute {
	return func(context.Context) ([]byte, error) {
		c.calls++
		return []byte(value), nil
	}
}

func TestKey(t *testing.T) {
	testCases := []struct {
		key      Key
		expected string
	}{
		{NewKey("list_users", "users"), "api:cache:list_users:users"},
		{NewKey("list_users", "a:b"), "api:cache:list_users:a%3Ab"},
		{NewKey("report"), "api:cache:report"},
		{NewKey("list_users", "users", "page 2"), "api:cache:list_users:users:page+2"},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, tc.key.String())
	}
	assert.NotEqual(t, NewKey("op", "a:b").String(), NewKey("op:a", "b").String())
}

func TestDisabled(t *testing.T) {
	g := Disabled()
	assert.False(t, g.Enabled())

	var c counter
	for i := 0; i < 2; i++ {
		v, err := g.Do(ctx, NewKey("list_users", "users"), DefaultTTL, c.compute("v"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), v)
	}
	assert.Equal(t, 2, c.calls)
	assert.NoError(t, g.Close())
}

func TestGatewayTTL(t *testing.T) {
	const ttl = 200 * time.Millisecond

	logger, _ := test.NewNullLogger()
	g := New(NewMemoryBackend(), logger)
	require.True(t, g.Enabled())

	key := NewKey("list_users", "users")
	var c counter

	v, err := g.Do(ctx, key, ttl, c.compute("first"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(v))
	assert.Equal(t, 1, c.calls)

	v, err = g.Do(ctx, key, ttl, c.compute("second"))
	require.NoError(t, err)
	assert.Equal(t, "first", string(v), "expected cached value within ttl")
	assert.Equal(t, 1, c.calls)

	time.Sleep(ttl + 50*time.Millisecond)
	v, err = g.Do(ctx, key, ttl, c.compute("third"))
	require.NoError(t, err)
	assert.Equal(t, "third", string(v), "expected recompute after ttl")
	assert.Equal(t, 2, c.calls)

	// Different params never share an entry.
	_, err = g.Do(ctx, NewKey("list_users", "other"), ttl, c.compute("other"))
	require.NoError(t, err)
	assert.Equal(t, 3, c.calls)
}

func TestMemoryBackend(t *testing.T) {
	t.Run("returns copies", func(t *testing.T) {
		t.Parallel()

		m := NewMemoryBackend()
		value := []byte("abc")
		require.NoError(t, m.Set(ctx, "k", value, time.Minute))
		value[0] = 'x'

		got, ok, err := m.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "abc", string(got))

		got[0] = 'y'
		again, _, _ := m.Get(ctx, "k")
		assert.Equal(t, "abc", string(again))
	})
	t.Run("non-positive ttl stores nothing", func(t *testing.T) {
		t.Parallel()

		m := NewMemoryBackend()
		require.NoError(t, m.Set(ctx, "zero", []byte("v"), 0))
		require.NoError(t, m.Set(ctx, "negative", []byte("v"), -time.Second))
		assert.Equal(t, 0, m.Len())
	})
	t.Run("expires", func(t *testing.T) {
		t.Parallel()

		m := NewMemoryBackend()
		require.NoError(t, m.Set(ctx, "k", []byte("v"), 50*time.Millisecond))
		_, ok, _ := m.Get(ctx, "k")
		assert.True(t, ok)

		time.Sleep(100 * time.Millisecond)
		_, ok, err := m.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)
	})
	t.Run("close flushes", func(t *testing.T) {
		t.Parallel()

		m := NewMemoryBackend()
		require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Minute))
		require.NoError(t, m.Close())
		assert.Equal(t, 0, m.Len())
	})
}

func TestGatewayComputeError(t *testing.T) {
	backend := NewMemoryBackend()
	g := New(backend, nil)

	boom := errors.New("boom")
	_, err := g.Do(ctx, NewKey("op"), DefaultTTL, func(context.Context) ([]byte, error) { return nil, boom })
	assert.Equal(t, boom, err)
	assert.Equal(t, 0, backend.Len(), "failed computations must not be stored")
}

type failingBackend struct {
	getErr, setErr error
	stored         []byte
}

func (f *failingBackend) Get(context.Context, string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.stored, f.stored != nil, nil
}

func (f *failingBackend) Set(context.Context, string, []byte, time.Duration) error { return f.setErr }
func (f *failingBackend) Ping(context.Context) error                               { return nil }
func (f *failingBackend) Close() error                                             { return nil }

func TestGatewayBestEffort(t *testing.T) {
	t.Run("read and write failures", func(t *testing.T) {
		logger, hook := test.NewNullLogger()
		g := New(&failingBackend{getErr: errors.New("read tcp: reset"), setErr: errors.New("OOM")}, logger)

		var c counter
		v, err := g.Do(ctx, NewKey("op"), DefaultTTL, c.compute("v"))
		require.NoError(t, err)
		assert.Equal(t, "v", string(v))
		assert.Equal(t, 1, c.calls)
		assert.Len(t, hook.AllEntries(), 2)
	})
	t.Run("undecodable entry", func(t *testing.T) {
		logger, _ := test.NewNullLogger()
		g := New(&failingBackend{stored: []byte{0xff, 0xff, 0xff}}, logger)

		var c counter
		v, err := g.Do(ctx, NewKey("op"), DefaultTTL, c.compute("fresh"))
		require.NoError(t, err)
		assert.Equal(t, "fresh", string(v))
		assert.Equal(t, 1, c.calls)
	})
}

type listing struct {
	Users []string `json:"users"`
}

func TestFetch(t *testing.T) {
	backend := NewMemoryBackend()
	gateways := map[string]Gateway{
		"disabled": Disabled(),
		"enabled":  New(backend, nil),
	}
	expectedCalls := map[string]int{"disabled": 2, "enabled": 1}

	for name, g := range gateways {
		calls := 0
		compute := func(context.Context) (listing, error) {
			calls++
			return listing{Users: []string{"alice", "bob"}}, nil
		}
		for i := 0; i < 2; i++ {
			got, err := Fetch(ctx, g, NewKey("list_users", name), DefaultTTL, compute)
			require.NoError(t, err)
			assert.Equal(t, listing{Users: []string{"alice", "bob"}}, got)
		}
		assert.Equal(t, expectedCalls[name], calls, name)
	}
}

func TestOpen(t *testing.T) {
	logger, _ := test.NewNullLogger()

	t.Run("empty url", func(t *testing.T) {
		assert.False(t, Open(ctx, "", logger).Enabled())
	})
	t.Run("unsupported scheme", func(t *testing.T) {
		assert.False(t, Open(ctx, "memcached://localhost:11211", logger).Enabled())
	})
	t.Run("memory", func(t *testing.T) {
		g := Open(ctx, "memory://", logger)
		assert.True(t, g.Enabled())
		assert.NoError(t, g.Close())
	})
	t.Run("redis unreachable", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		assert.False(t, Open(pingCtx, "redis://"+addr, logger).Enabled())
	})
	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		g := Open(ctx, "redis://"+mr.Addr()+"/0", logger)
		require.True(t, g.Enabled())
		defer g.Close()

		var c counter
		key := NewKey("list_users", "users")
		for i := 0; i < 2; i++ {
			v, err := g.Do(ctx, key, DefaultTTL, c.compute("payload"))
			require.NoError(t, err)
			assert.Equal(t, "payload", string(v))
		}
		assert.Equal(t, 1, c.calls)
		assert.True(t, mr.Exists(key.String()))
		assert.Equal(t, DefaultTTL, mr.TTL(key.String()))

		mr.FastForward(DefaultTTL + time.Second)
		_, err := g.Do(ctx, key, DefaultTTL, c.compute("payload"))
		require.NoError(t, err)
		assert.Equal(t, 2, c.calls)
	})
}
