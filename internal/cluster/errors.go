// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package cluster

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

// IsConnectivity reports whether err means the deployment could not be
// reached at all, as opposed to a server that answered with an error.
// Cancellation and deadlines count as connectivity failures.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var se mongo.ServerError
	if errors.As(err, &se) {
		// The driver reports socket failures as labeled command errors.
		return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
	}
	return true
}
