// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package topology

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/pretty"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// NoReplicaSet is the sentinel reported when the target is not a replica set
// member.
const NoReplicaSet = "no replica set"

// Server error codes meaning replSetGetStatus does not apply to the target.
const (
	codeCommandNotFound      = 59
	codeNoReplicationEnabled = 76
	codeNotYetInitialized    = 94
	codeCommandNotSupported  = 115
)

var notApplicableMessages = []string{
	"not running with --replSet",
	"not supported through mongos",
}

// IsNotApplicable reports whether err is a server reply saying the target is
// not a replica set member, e.g. a standalone node or a mongos router.
func IsNotApplicable(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	for _, code := range []int{codeCommandNotFound, codeNoReplicationEnabled, codeNotYetInitialized, codeCommandNotSupported} {
		if se.HasErrorCode(code) {
			return true
		}
	}
	for _, msg := range notApplicableMessages {
		if se.HasErrorMessage(msg) {
			return true
		}
	}
	return false
}

type statusKind uint8

const (
	statusNotApplicable statusKind = iota
	statusPresent
	statusUnavailable
)

// ReplicaStatus is the outcome of replSetGetStatus. The zero value is the
// "no replica set" sentinel.
type ReplicaStatus struct {
	kind    statusKind
	payload string
	reason  string
}

// ReplicaStatusOf wraps a rendered replSetGetStatus reply.
func ReplicaStatusOf(payload string) ReplicaStatus {
	return ReplicaStatus{kind: statusPresent, payload: payload}
}

// NoReplicaStatus is the status of a target that is not a replica set member.
func NoReplicaStatus() ReplicaStatus {
	return ReplicaStatus{kind: statusNotApplicable}
}

// ReplicaStatusUnavailable records a failed replSetGetStatus.
func ReplicaStatusUnavailable(reason string) ReplicaStatus {
	return ReplicaStatus{kind: statusUnavailable, reason: reason}
}

// Payload returns the rendered reply if the command succeeded.
func (s ReplicaStatus) Payload() (string, bool) {
	return s.payload, s.kind == statusPresent
}

// Applicable is false when the target is not a replica set member.
func (s ReplicaStatus) Applicable() bool { return s.kind != statusNotApplicable }

// Unavailable returns the failure reason, if any.
func (s ReplicaStatus) Unavailable() (string, bool) {
	return s.reason, s.kind == statusUnavailable
}

// Equal reports whether two statuses carry the same outcome.
func (s ReplicaStatus) Equal(other ReplicaStatus) bool {
	return s == other
}

// MarshalJSON renders the payload string, the NoReplicaSet sentinel or
// {"unavailable": reason}.
func (s ReplicaStatus) MarshalJSON() ([]byte, error) {
	switch s.kind {
	case statusPresent:
		return json.Marshal(s.payload)
	case statusUnavailable:
		return json.Marshal(struct {
			Unavailable string `json:"unavailable"`
		}{s.reason})
	default:
		return json.Marshal(NoReplicaSet)
	}
}

// render turns a command reply into indented relaxed extended JSON.
func render(raw bson.Raw) string {
	out, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return raw.String()
	}
	opts := *pretty.DefaultOptions
	opts.Indent = "  "
	return strings.TrimSpace(string(pretty.PrettyOptions(out, &opts)))
}
