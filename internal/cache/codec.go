// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package cache

import (
	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// Stored values are snappy blocks; user listings compress well.

func encode(value []byte) []byte {
	return snappy.Encode(nil, value)
}

func decode(stored []byte) ([]byte, error) {
	value, err := snappy.Decode(nil, stored)
	if err != nil {
		return nil, errors.Wrap(err, "snappy decode")
	}
	return value, nil
}
