// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package collstats counts the documents of every collection in a database.
package collstats

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultParallelism bounds concurrent count commands.
const DefaultParallelism = 8

// Source enumerates and counts collections.
type Source interface {
	ListCollectionNames(ctx context.Context) ([]string, error)
	CountDocuments(ctx context.Context, collection string) (int64, error)
}

// Count is the outcome of counting one collection.
type Count struct {
	Name      string
	Documents int64
	Err       error
	Took      time.Duration
}

// Result maps collection names to document counts. Collections whose count
// failed are listed in Unavailable with the reason instead.
type Result struct {
	Counts      map[string]int64
	Unavailable map[string]string
}

// Collector counts collections concurrently.
type Collector struct {
	// Parallelism bounds in-flight counts. Zero means DefaultParallelism.
	Parallelism int
	Log         logrus.FieldLogger
}

// Collect enumerates the collections visible through src and counts each.
// An enumeration failure or a done ctx is returned as an error; a single
// failed count is recorded in Result.Unavailable.
func (c *Collector) Collect(ctx context.Context, src Source) (Result, error) {
	names, err := src.ListCollectionNames(ctx)
	if err != nil {
		return Result{}, errors.Wrap(err, "listing collections")
	}

	counts := make([]Count, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.parallelism())
	for i, name := range names {
		if gctx.Err() != nil {
			break
		}
		i, name := i, name
		g.Go(func() error {
			start := time.Now()
			n, err := src.CountDocuments(gctx, name)
			counts[i] = Count{Name: name, Documents: n, Err: err, Took: time.Since(start)}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{
		Counts:      make(map[string]int64, len(counts)),
		Unavailable: make(map[string]string),
	}
	took := make([]time.Duration, 0, len(counts))
	for _, cnt := range counts {
		took = append(took, cnt.Took)
		if cnt.Err != nil {
			c.log().WithError(cnt.Err).WithField("collection", cnt.Name).Warn("count failed")
			res.Unavailable[cnt.Name] = cnt.Err.Error()
			continue
		}
		res.Counts[cnt.Name] = cnt.Documents
	}

	sum := summarize(took)
	c.log().WithFields(logrus.Fields{
		"collections": len(names),
		"p50":         sum.p50,
		"p95":         sum.p95,
		"max":         sum.max,
	}).Debug("collection counts done")
	return res, nil
}

func (c *Collector) parallelism() int {
	if c.Parallelism > 0 {
		return c.Parallelism
	}
	return DefaultParallelism
}

func (c *Collector) log() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}
