// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package shard lists the shards of a sharded cluster through a mongos
// router.
//
// Per-shard document counts are not collected. They would need direct
// connections to every shard, bypassing the router, and are left out rather
// than approximated.
package shard

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// Info describes one shard.
type Info struct {
	ShardID        string `json:"shardId"`
	HostDescriptor string `json:"hostDescriptor"`
	ReplicaCount   int    `json:"replicaCount"`
	State          int    `json:"state,omitempty"`
}

// Runner runs administrative commands.
type Runner interface {
	RunAdminCommand(ctx context.Context, name string) (bson.Raw, error)
}

type listShardsReply struct {
	Shards []struct {
		ID    string `bson:"_id"`
		Host  string `bson:"host"`
		State int    `bson:"state"`
	} `bson:"shards"`
}

// ParseHost builds the Info for a shard from its host descriptor. A
// descriptor of the form "rsName/h1:p,h2:p" counts one replica per host after
// the first '/'; a bare "host:port" is a single node shard.
func ParseHost(id, descriptor string) Info {
	info := Info{ShardID: id, HostDescriptor: descriptor, ReplicaCount: 1}

	i := strings.Index(descriptor, "/")
	if i < 0 {
		return info
	}
	info.ReplicaCount = len(strings.Split(descriptor[i+1:], ","))
	return info
}

// List runs listShards once and returns the shards keyed by id. Zero shards
// give an empty, non-nil map.
func List(ctx context.Context, r Runner) (map[string]Info, error) {
	raw, err := r.RunAdminCommand(ctx, "listShards")
	if err != nil {
		return nil, errors.Wrap(err, "listShards")
	}

	var reply listShardsReply
	if err := bson.Unmarshal(raw, &reply); err != nil {
		return nil, errors.Wrap(err, "decoding listShards reply")
	}

	shards := make(map[string]Info, len(reply.Shards))
	for _, s := range reply.Shards {
		info := ParseHost(s.ID, s.Host)
		info.State = s.State
		shards[s.ID] = info
	}
	return shards, nil
}
