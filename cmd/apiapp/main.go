// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Command apiapp serves the cluster health report and the sample user
// collections of a sharded, replicated deployment.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ikmak/mongo-sharding-repl/internal/cache"
	"github.com/ikmak/mongo-sharding-repl/internal/cluster"
	"github.com/ikmak/mongo-sharding-repl/internal/config"
	"github.com/ikmak/mongo-sharding-repl/internal/logger"
	"github.com/ikmak/mongo-sharding-repl/internal/report"
	"github.com/ikmak/mongo-sharding-repl/internal/server"
	"github.com/ikmak/mongo-sharding-repl/internal/users"
)

const shutdownTimeout = 10 * time.Second

// Startup steps, replaced in tests.
var (
	connectCluster = cluster.Connect
	openCache      = cache.Open
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "apiapp:", err)
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "apiapp:", err)
		os.Exit(2)
	}

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("apiapp stopped")
	}
}

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := connectCluster(ctx, cluster.Options{
		URI:      cfg.MongoURL,
		Database: cfg.Database,
		Log:      log,
	})
	if err != nil {
		return err
	}

	gw := openCache(ctx, cfg.RedisURL, log)
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := conn.Disconnect(dctx); err != nil {
			log.WithError(err).Warn("disconnecting from cluster")
		}
		if err := gw.Close(); err != nil {
			log.WithError(err).Warn("closing response cache")
		}
	}()

	assembler := report.NewAssembler(conn, gw, cfg.Database, log)
	assembler.Collector.Parallelism = cfg.CountParallelism

	srv := server.New(assembler, users.NewStore(conn.Database()), server.Options{
		Database:      cfg.Database,
		Cache:         gw,
		CacheTTL:      cfg.CacheTTL,
		ReportTimeout: cfg.ReportTimeout,
		Log:           log,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":     cfg.ListenAddr,
			"database": cfg.Database,
			"cache":    gw.Enabled(),
		}).Info("listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "serving http")
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Wrap(httpServer.Shutdown(sctx), "shutting down http server")
}
