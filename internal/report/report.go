// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package report assembles the point-in-time ClusterReport.
//
// Only a cluster that cannot be reached fails a report. A replica status
// or shard listing that fails is recorded in the report as unavailable, a
// collection whose count fails is listed under unavailableCollections, and
// fields that do not apply to the topology are null.
package report

import (
	"time"

	"github.com/ikmak/mongo-sharding-repl/internal/shard"
	"github.com/ikmak/mongo-sharding-repl/internal/topology"
)

// StatusOK is the status of every report that is returned.
const StatusOK = "OK"

// ClusterReport is the health and topology snapshot returned to callers. The
// JSON field names are a compatibility contract.
type ClusterReport struct {
	TopologyMode           topology.Mode                   `json:"topologyMode"`
	ReplicaSetName         Optional[string]                `json:"replicaSetName"`
	ReadPreference         string                          `json:"readPreference"`
	NodeAddresses          []string                        `json:"nodeAddresses"`
	PrimaryAddress         Optional[string]                `json:"primaryAddress"`
	SecondaryAddresses     []string                        `json:"secondaryAddresses"`
	IsPrimary              bool                            `json:"isPrimary"`
	IsRouter               bool                            `json:"isRouter"`
	ReplicaStatus          topology.ReplicaStatus          `json:"replicaStatus"`
	Collections            map[string]int64                `json:"collections"`
	UnavailableCollections map[string]string               `json:"unavailableCollections,omitempty"`
	Shards                 Optional[map[string]shard.Info] `json:"shards"`
	CacheEnabled           bool                            `json:"cacheEnabled"`
	Database               string                          `json:"database"`
	Status                 string                          `json:"status"`
	GeneratedAt            time.Time                       `json:"generatedAt"`
}
