// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package server exposes the cluster report and the user collections over
// HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ikmak/mongo-sharding-repl/internal/cache"
	"github.com/ikmak/mongo-sharding-repl/internal/report"
	"github.com/ikmak/mongo-sharding-repl/internal/users"
)

const (
	defaultReportTimeout = 30 * time.Second
	maxBodyBytes         = 1 << 20
)

// ReportBuilder produces a fresh ClusterReport.
type ReportBuilder interface {
	Build(ctx context.Context) (*report.ClusterReport, error)
}

// UserStore is the user record storage the handlers use.
type UserStore interface {
	List(ctx context.Context, collection string) ([]users.User, error)
	FindByName(ctx context.Context, collection, name string) (users.User, error)
	Insert(ctx context.Context, collection string, u users.User) (users.User, error)
	Count(ctx context.Context, collection string) (int64, error)
}

// Options configures a Server.
type Options struct {
	// Database is echoed in count responses.
	Database string

	// Cache backs the user listing. Nil disables caching.
	Cache    cache.Gateway
	CacheTTL time.Duration

	// ReportTimeout bounds a single report. Zero means 30 seconds.
	ReportTimeout time.Duration

	Log logrus.FieldLogger
}

// Server routes HTTP requests to the report assembler and the user store.
type Server struct {
	reports ReportBuilder
	store   UserStore
	opts    Options
	log     logrus.FieldLogger
	mux     *http.ServeMux
}

// New returns a Server. The zero Options are usable.
func New(reports ReportBuilder, store UserStore, opts Options) *Server {
	if opts.Cache == nil {
		opts.Cache = cache.Disabled()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = cache.DefaultTTL
	}
	if opts.ReportTimeout <= 0 {
		opts.ReportTimeout = defaultReportTimeout
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	s := &Server{
		reports: reports,
		store:   store,
		opts:    opts,
		log:     opts.Log.WithField("component", "http"),
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleReport)
	s.mux.HandleFunc("GET /{collection}/count", s.handleCount)
	s.mux.HandleFunc("GET /{collection}/users", s.handleListUsers)
	s.mux.HandleFunc("GET /{collection}/users/{name}", s.handleShowUser)
	s.mux.HandleFunc("POST /{collection}/users", s.handleCreateUser)
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.log, s.mux)
}

type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("writing response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, errorBody{Detail: detail})
}
