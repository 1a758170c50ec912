// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package topology describes the shape of the deployment as the client sees
// it: topology mode, replica set identity and node roles.
//
// When the client talks to a mongos router the replica set name, primary and
// secondaries are empty. That is an expected state: a router is not a replica
// set member, and replica information lives with each shard.
package topology

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/description"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ikmak/mongo-sharding-repl/internal/cluster"
)

// Mode is the client's view of the cluster shape.
type Mode string

// Topology modes.
const (
	Single     Mode = "Single"
	ReplicaSet Mode = "ReplicaSet"
	Sharded    Mode = "Sharded"
	Unknown    Mode = "Unknown"
)

// ModeOf maps a driver topology kind onto a Mode.
func ModeOf(kind description.TopologyKind) Mode {
	switch kind {
	case description.Single:
		return Single
	case description.ReplicaSet, description.ReplicaSetNoPrimary, description.ReplicaSetWithPrimary:
		return ReplicaSet
	case description.Sharded:
		return Sharded
	default:
		return Unknown
	}
}

// Fields is everything the inspector knows about the topology.
type Fields struct {
	Mode           Mode
	ReplicaSetName string
	ReadPreference string
	Nodes          []string
	Primary        string
	Secondaries    []string
	IsPrimary      bool
	IsRouter       bool
	ReplicaStatus  ReplicaStatus
}

// Source is the part of a cluster.Client the inspector needs.
type Source interface {
	RunAdminCommand(ctx context.Context, name string) (bson.Raw, error)
	Topology() cluster.Snapshot
}

// Describe derives Fields from cached metadata only. ReplicaStatus is left
// at its zero value.
func Describe(snap cluster.Snapshot) Fields {
	desc := snap.Description
	f := Fields{
		Mode:           ModeOf(desc.Kind),
		ReadPreference: readPreferenceName(snap.ReadPreference),
		Nodes:          []string{},
		Secondaries:    []string{},
	}

	seen := make(map[string]struct{}, len(desc.Servers))
	for _, s := range desc.Servers {
		if s.Kind == description.Unknown {
			continue
		}
		addr := s.Addr.String()
		if _, ok := seen[addr]; !ok {
			seen[addr] = struct{}{}
			f.Nodes = append(f.Nodes, addr)
		}

		switch s.Kind {
		case description.Mongos:
			f.IsRouter = true
			f.IsPrimary = true
		case description.Standalone:
			f.IsPrimary = true
		case description.RSPrimary:
			f.IsPrimary = true
			if f.Mode == ReplicaSet {
				f.Primary = addr
			}
		case description.RSSecondary:
			if f.Mode == ReplicaSet {
				f.Secondaries = append(f.Secondaries, addr)
			}
		}
	}
	if f.Mode == ReplicaSet {
		f.ReplicaSetName = desc.SetName
	}

	sort.Strings(f.Nodes)
	sort.Strings(f.Secondaries)
	return f
}

// Inspect describes the topology and fetches replSetGetStatus. A target that
// is not a replica set member yields NoReplicaStatus, not an error. Any other
// failure is returned; the metadata-derived fields are still filled in.
func Inspect(ctx context.Context, src Source) (Fields, error) {
	f := Describe(src.Topology())

	raw, err := src.RunAdminCommand(ctx, "replSetGetStatus")
	switch {
	case err == nil:
		f.ReplicaStatus = ReplicaStatusOf(render(raw))
	case IsNotApplicable(err):
		f.ReplicaStatus = NoReplicaStatus()
	default:
		return f, errors.Wrap(err, "replSetGetStatus")
	}
	return f, nil
}

func readPreferenceName(rp *readpref.ReadPref) string {
	if rp == nil {
		return readpref.PrimaryMode.String()
	}
	return rp.Mode().String()
}
