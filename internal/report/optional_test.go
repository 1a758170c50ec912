// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional(t *testing.T) {
	t.Run("zero value is not applicable", func(t *testing.T) {
		var o Optional[string]
		assert.True(t, o.IsNotApplicable())
		_, ok := o.Get()
		assert.False(t, ok)
		assert.True(t, o.Equal(NotApplicable[string]()))
	})
	t.Run("empty map is present", func(t *testing.T) {
		o := Present(map[string]int{})
		v, ok := o.Get()
		assert.True(t, ok)
		assert.NotNil(t, v)
		assert.False(t, o.Equal(NotApplicable[map[string]int]()))
	})
	t.Run("unavailable", func(t *testing.T) {
		o := Unavailable[int]("timeout")
		reason, ok := o.Reason()
		assert.True(t, ok)
		assert.Equal(t, "timeout", reason)
		assert.False(t, o.IsNotApplicable())
	})

	testCases := []struct {
		name     string
		value    interface{}
		expected string
	}{
		{"present string", Present("rs0"), `"rs0"`},
		{"present empty map", Present(map[string]int{}), `{}`},
		{"not applicable", NotApplicable[map[string]int](), `null`},
		{"unavailable", Unavailable[string]("listShards: not authorized"), `{"unavailable":"listShards: not authorized"}`},
	}
	for _, tc := range testCases {
		tc := tc
		t.Run("json "+tc.name, func(t *testing.T) {
			t.Parallel()

			out, err := json.Marshal(tc.value)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, string(out))
		})
	}
}
