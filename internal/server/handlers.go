// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pkg/errors"

	"github.com/ikmak/mongo-sharding-repl/internal/cache"
	"github.com/ikmak/mongo-sharding-repl/internal/cluster"
	"github.com/ikmak/mongo-sharding-repl/internal/report"
	"github.com/ikmak/mongo-sharding-repl/internal/users"
)

type countResponse struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	ItemsCount int64  `json:"itemsCount"`
}

type userList struct {
	Users []users.User `json:"users"`
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.ReportTimeout)
	defer cancel()

	rep, err := s.reports.Build(ctx)
	if err != nil {
		s.log.WithError(err).Error("building cluster report")
		if report.IsUnreachable(err) {
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")

	n, err := s.store.Count(r.Context(), collection)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, countResponse{
		Status:     report.StatusOK,
		Database:   s.opts.Database,
		ItemsCount: n,
	})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")

	key := cache.NewKey("list_users", collection)
	list, err := cache.Fetch(r.Context(), s.opts.Cache, key, s.opts.CacheTTL, func(ctx context.Context) (userList, error) {
		u, err := s.store.List(ctx, collection)
		return userList{Users: u}, err
	})
	if err != nil {
		s.storeError(w, err)
		return
	}
	if list.Users == nil {
		list.Users = []users.User{}
	}
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleShowUser(w http.ResponseWriter, r *http.Request) {
	collection, name := r.PathValue("collection"), r.PathValue("name")

	u, err := s.store.FindByName(r.Context(), collection, name)
	if errors.Is(err, users.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("User %s not found", name))
		return
	}
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	collection := r.PathValue("collection")

	var in users.Input
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&in); err != nil {
		s.writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	u, err := in.Validate()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.store.Insert(r.Context(), collection, u)
	if err != nil {
		s.storeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, created)
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	s.log.WithError(err).Error("user store")
	if cluster.IsConnectivity(err) {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}
