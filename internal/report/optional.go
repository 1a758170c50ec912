// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package report

import (
	"encoding/json"
	"reflect"
)

type optionalState uint8

const (
	stateNotApplicable optionalState = iota
	statePresent
	stateUnavailable
)

// Optional is a report field that may be present, not applicable to the
// current topology, or unavailable because the query behind it failed. The
// zero value is not applicable.
//
// In JSON a present value is rendered as is, not applicable as null and
// unavailable as {"unavailable": "<reason>"}.
type Optional[T any] struct {
	state  optionalState
	value  T
	reason string
}

// Present wraps v.
func Present[T any](v T) Optional[T] {
	return Optional[T]{state: statePresent, value: v}
}

// NotApplicable marks a field that has no meaning for the topology.
func NotApplicable[T any]() Optional[T] {
	return Optional[T]{}
}

// Unavailable marks a field whose query failed.
func Unavailable[T any](reason string) Optional[T] {
	return Optional[T]{state: stateUnavailable, reason: reason}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.state == statePresent
}

// IsNotApplicable reports whether the field does not apply.
func (o Optional[T]) IsNotApplicable() bool { return o.state == stateNotApplicable }

// Reason returns why the field is unavailable, and false otherwise.
func (o Optional[T]) Reason() (string, bool) {
	return o.reason, o.state == stateUnavailable
}

// Equal reports whether o and other hold the same state and value.
func (o Optional[T]) Equal(other Optional[T]) bool {
	return o.state == other.state && o.reason == other.reason && reflect.DeepEqual(o.value, other.value)
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	switch o.state {
	case statePresent:
		return json.Marshal(o.value)
	case stateUnavailable:
		return json.Marshal(struct {
			Unavailable string `json:"unavailable"`
		}{o.reason})
	default:
		return []byte("null"), nil
	}
}
