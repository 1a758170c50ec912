// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package collstats

import (
	"time"

	"github.com/montanaflynn/stats"
)

type latencySummary struct {
	p50, p95, max time.Duration
}

func summarize(samples []time.Duration) latencySummary {
	floats := toFloats(samples)
	if len(floats) == 0 {
		return latencySummary{}
	}
	hi, _ := stats.Max(floats)
	return latencySummary{
		p50: percentile(50, floats),
		p95: percentile(95, floats),
		max: time.Duration(hi),
	}
}

// percentile returns the perc percentile of the samples, or 0 when it
// cannot be computed.
func percentile(perc float64, samples []float64) time.Duration {
	p, err := stats.Percentile(samples, perc)
	if err != nil {
		return 0
	}
	return time.Duration(p)
}

// toFloats drops zero samples, which come from counts that never ran.
func toFloats(samples []time.Duration) []float64 {
	floats := make([]float64, 0, len(samples))
	for _, s := range samples {
		if s > 0 {
			floats = append(floats, float64(s))
		}
	}
	return floats
}
