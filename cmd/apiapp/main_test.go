// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package main

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ikmak/mongo-sharding-repl/internal/cache"
	"github.com/ikmak/mongo-sharding-repl/internal/cluster"
	"github.com/ikmak/mongo-sharding-repl/internal/config"
)

func TestRunConnectFailureSkipsCache(t *testing.T) {
	origConnect, origOpen := connectCluster, openCache
	defer func() { connectCluster, openCache = origConnect, origOpen }()

	var steps []string
	connectCluster = func(context.Context, cluster.Options) (*cluster.Connection, error) {
		steps = append(steps, "connect")
		return nil, errors.New("server selection timeout")
	}
	openCache = func(context.Context, string, logrus.FieldLogger) cache.Gateway {
		steps = append(steps, "cache")
		return cache.Disabled()
	}

	log, _ := test.NewNullLogger()
	err := run(config.Config{
		MongoURL:   "mongodb://unreachable:27017",
		Database:   "somedb",
		RedisURL:   "redis://localhost:6379",
		ListenAddr: "127.0.0.1:0",
	}, log)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "server selection timeout")
	assert.Equal(t, []string{"connect"}, steps)
}
