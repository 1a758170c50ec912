// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package cluster owns the long-lived connection to the deployment being
// reported on. It runs commands and remembers the most recent topology
// description published by the driver's server monitor, so callers can read
// node roles without a round trip.
package cluster

import (
	"context"
	"sync"
	"time"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/description"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ikmak/mongo-sharding-repl/internal/logger"
)

const defaultConnectTimeout = 10 * time.Second

// Options configures Connect.
type Options struct {
	URI      string
	Database string
	Log      *logrus.Logger

	// ConnectTimeout bounds the initial ping. Zero means 10 seconds.
	ConnectTimeout time.Duration
}

// Snapshot is the client's cached view of the deployment.
type Snapshot struct {
	Description    description.Topology
	ReadPreference *readpref.ReadPref
}

// Client is the set of cluster operations the report pipeline runs. All
// methods must be safe for concurrent use.
type Client interface {
	ListCollectionNames(ctx context.Context) ([]string, error)
	CountDocuments(ctx context.Context, collection string) (int64, error)
	RunAdminCommand(ctx context.Context, name string) (bson.Raw, error)
	Topology() Snapshot
}

// Connection is a Client backed by a *mongo.Client.
type Connection struct {
	client   *mongo.Client
	db       *mongo.Database
	readPref *readpref.ReadPref
	log      logrus.FieldLogger

	mu   sync.RWMutex
	desc description.Topology
}

var _ Client = (*Connection)(nil)

// Connect dials the deployment at opts.URI and pings it. The returned
// Connection is shared by every request for the lifetime of the process.
func Connect(ctx context.Context, opts Options) (*Connection, error) {
	if opts.URI == "" {
		return nil, errors.New("cluster: empty connection string")
	}
	if opts.Database == "" {
		return nil, errors.New("cluster: empty database name")
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	c := &Connection{log: log.WithField("component", "cluster")}

	serverMonitor := &event.ServerMonitor{
		TopologyDescriptionChanged: c.topologyChanged,
	}
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetServerMonitor(serverMonitor).
		SetLoggerOptions(logger.DriverOptions(log))

	c.readPref = clientOpts.ReadPreference
	if c.readPref == nil {
		c.readPref = readpref.Primary()
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, "cluster: connect")
	}

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Nearest works against every topology, including a replica set whose
	// primary is down.
	if err := client.Ping(pingCtx, readpref.Nearest()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "cluster: ping")
	}

	c.client = client
	c.db = client.Database(opts.Database)
	return c, nil
}

func (c *Connection) topologyChanged(e *event.TopologyDescriptionChangedEvent) {
	c.mu.Lock()
	c.desc = e.NewDescription
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"from": e.PreviousDescription.Kind.String(),
		"to":   e.NewDescription.Kind.String(),
	}).Debugf("topology changed: %# v", pretty.Formatter(e.NewDescription.Servers))
}

// Topology returns the last topology description the driver published.
func (c *Connection) Topology() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	desc := c.desc
	desc.Servers = append([]description.Server(nil), c.desc.Servers...)
	return Snapshot{Description: desc, ReadPreference: c.readPref}
}

// ListCollectionNames lists the collections of the configured database.
func (c *Connection) ListCollectionNames(ctx context.Context) ([]string, error) {
	return c.db.ListCollectionNames(ctx, bson.D{})
}

// CountDocuments counts every document in collection.
func (c *Connection) CountDocuments(ctx context.Context, collection string) (int64, error) {
	return c.db.Collection(collection).CountDocuments(ctx, bson.D{})
}

// RunAdminCommand runs {name: 1} against the admin database.
func (c *Connection) RunAdminCommand(ctx context.Context, name string) (bson.Raw, error) {
	return c.client.Database("admin").RunCommand(ctx, bson.D{{Key: name, Value: 1}}).Raw()
}

// Database returns the configured database handle.
func (c *Connection) Database() *mongo.Database {
	return c.db
}

// Disconnect closes every pooled connection.
func (c *Connection) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
