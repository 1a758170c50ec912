// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package report

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ikmak/mongo-sharding-repl/internal/cache"
	"github.com/ikmak/mongo-sharding-repl/internal/cluster"
	"github.com/ikmak/mongo-sharding-repl/internal/collstats"
	"github.com/ikmak/mongo-sharding-repl/internal/shard"
	"github.com/ikmak/mongo-sharding-repl/internal/topology"
)

// UnreachableError is returned by Build when the cluster could not be
// reached or the request was canceled. No partial report accompanies it.
type UnreachableError struct {
	Err error
}

func (e *UnreachableError) Error() string { return "cluster unreachable: " + e.Err.Error() }

func (e *UnreachableError) Unwrap() error { return e.Err }

// IsUnreachable reports whether err is an UnreachableError.
func IsUnreachable(err error) bool {
	var ue *UnreachableError
	return errors.As(err, &ue)
}

// Assembler builds ClusterReports. It is safe for concurrent use; every
// Build queries the cluster afresh.
type Assembler struct {
	Client    cluster.Client
	Cache     cache.Gateway
	Database  string
	Collector collstats.Collector
	Log       logrus.FieldLogger

	now func() time.Time
}

// NewAssembler returns an Assembler over client. A nil gateway is treated as
// disabled caching.
func NewAssembler(client cluster.Client, gw cache.Gateway, database string, log logrus.FieldLogger) *Assembler {
	if gw == nil {
		gw = cache.Disabled()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("component", "report")
	return &Assembler{
		Client:    client,
		Cache:     gw,
		Database:  database,
		Collector: collstats.Collector{Log: log},
		Log:       log,
		now:       time.Now,
	}
}

// Build counts collections and inspects the topology concurrently, lists
// shards when the topology is sharded, and merges the results.
func (a *Assembler) Build(ctx context.Context) (*ClusterReport, error) {
	var (
		counts collstats.Result
		fields topology.Fields
		shards Optional[map[string]shard.Info]
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := a.Collector.Collect(gctx, a.Client)
		if err != nil {
			return err
		}
		counts = res
		return nil
	})
	g.Go(func() error {
		f, err := a.inspect(gctx)
		if err != nil {
			return err
		}
		fields = f
		shards = a.listShards(gctx, f.Mode)
		return gctx.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, &UnreachableError{Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, &UnreachableError{Err: err}
	}

	return a.merge(fields, counts, shards), nil
}

// inspect returns an error only for connectivity failures; any other
// replSetGetStatus failure is folded into the fields.
func (a *Assembler) inspect(ctx context.Context) (topology.Fields, error) {
	f, err := topology.Inspect(ctx, a.Client)
	if err == nil {
		return f, nil
	}
	if cluster.IsConnectivity(err) {
		return topology.Fields{}, errors.Wrap(err, "inspecting topology")
	}

	a.Log.WithError(err).Warn("replica set status unavailable")
	f.ReplicaStatus = topology.ReplicaStatusUnavailable(err.Error())
	return f, nil
}

func (a *Assembler) listShards(ctx context.Context, mode topology.Mode) Optional[map[string]shard.Info] {
	if mode != topology.Sharded {
		return NotApplicable[map[string]shard.Info]()
	}

	shards, err := shard.List(ctx, a.Client)
	if err != nil {
		a.Log.WithError(err).Warn("shard listing unavailable")
		return Unavailable[map[string]shard.Info](err.Error())
	}
	return Present(shards)
}

func (a *Assembler) merge(f topology.Fields, counts collstats.Result, shards Optional[map[string]shard.Info]) *ClusterReport {
	r := &ClusterReport{
		TopologyMode:       f.Mode,
		ReadPreference:     f.ReadPreference,
		NodeAddresses:      nonNil(f.Nodes),
		SecondaryAddresses: nonNil(f.Secondaries),
		IsPrimary:          f.IsPrimary,
		IsRouter:           f.IsRouter,
		ReplicaStatus:      f.ReplicaStatus,
		Collections:        counts.Counts,
		Shards:             shards,
		CacheEnabled:       a.Cache.Enabled(),
		Database:           a.Database,
		Status:             StatusOK,
		GeneratedAt:        a.now().UTC(),
	}
	if r.Collections == nil {
		r.Collections = map[string]int64{}
	}
	if len(counts.Unavailable) > 0 {
		r.UnavailableCollections = counts.Unavailable
	}

	if f.Mode == topology.ReplicaSet {
		if f.ReplicaSetName != "" {
			r.ReplicaSetName = Present(f.ReplicaSetName)
		}
		if f.Primary != "" {
			r.PrimaryAddress = Present(f.Primary)
		}
	}
	return r
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
