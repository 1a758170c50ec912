// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package cluster

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/address"
	"go.mongodb.org/mongo-driver/mongo/description"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func TestConnectValidation(t *testing.T) {
	testCases := []struct {
		name string
		opts Options
	}{
		{"empty uri", Options{Database: "somedb"}},
		{"empty database", Options{URI: "mongodb://localhost:27017"}},
		{"bad scheme", Options{URI: "postgres://localhost:5432", Database: "somedb"}},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			logger, _ := test.NewNullLogger()
			tc.opts.Log = logger
			conn, err := Connect(context.Background(), tc.opts)
			assert.Error(t, err)
			assert.Nil(t, conn)
		})
	}
}

func TestTopologySnapshot(t *testing.T) {
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	c := &Connection{log: logger, readPref: readpref.SecondaryPreferred()}

	snap := c.Topology()
	assert.Equal(t, description.TopologyKind(description.Unknown), snap.Description.Kind)
	assert.Empty(t, snap.Description.Servers)

	c.topologyChanged(&event.TopologyDescriptionChangedEvent{
		NewDescription: description.Topology{
			Kind:    description.ReplicaSetWithPrimary,
			SetName: "rs0",
			Servers: []description.Server{
				{Addr: address.Address("h1:27017"), Kind: description.RSPrimary},
				{Addr: address.Address("h2:27017"), Kind: description.RSSecondary},
			},
		},
	})

	snap = c.Topology()
	assert.Equal(t, description.ReplicaSetWithPrimary, snap.Description.Kind)
	assert.Equal(t, "rs0", snap.Description.SetName)
	require.Len(t, snap.Description.Servers, 2)
	assert.Equal(t, readpref.SecondaryPreferredMode, snap.ReadPreference.Mode())

	// Mutating a snapshot must not leak into the cached description.
	snap.Description.Servers[0].Addr = "mutated:1"
	assert.Equal(t, address.Address("h1:27017"), c.Topology().Description.Servers[0].Addr)
}

func TestIsConnectivity(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, true},
		{"wrapped deadline", errors.Wrap(context.DeadlineExceeded, "listing"), true},
		{"plain error", fmt.Errorf("server selection error"), true},
		{"command error", mongo.CommandError{Code: 13, Name: "Unauthorized", Message: "not authorized"}, false},
		{"wrapped command error", errors.Wrap(mongo.CommandError{Code: 76, Message: "not running with --replSet"}, "replSetGetStatus"), false},
		{"network labeled command error", mongo.CommandError{Labels: []string{"NetworkError"}, Message: "connection reset"}, true},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, IsConnectivity(tc.err))
		})
	}
}
