// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package config resolves process configuration once at startup.
//
// Values come from the environment, which may be seeded from a .env file in
// the working directory. CONFIG_FILE optionally names a TOML file whose
// top-level keys are the lower-case variable names; the environment wins
// over the file.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
)

// Variable names.
const (
	KeyMongoURL         = "MONGODB_URL"
	KeyDatabase         = "MONGODB_DATABASE_NAME"
	KeyRedisURL         = "REDIS_URL"
	KeyListenAddr       = "LISTEN_ADDR"
	KeyLogLevel         = "LOG_LEVEL"
	KeyLogFormat        = "LOG_FORMAT"
	KeyCacheTTL         = "CACHE_TTL"
	KeyCountParallelism = "COUNT_PARALLELISM"
	KeyReportTimeout    = "REPORT_TIMEOUT"
	KeyConfigFile       = "CONFIG_FILE"
)

// Defaults.
const (
	DefaultListenAddr       = ":8080"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultCacheTTL         = 60 * time.Second
	DefaultCountParallelism = 8
	DefaultReportTimeout    = 30 * time.Second
)

// Config is the resolved configuration.
type Config struct {
	MongoURL string
	Database string

	// RedisURL selects the response cache backend. Empty disables caching.
	RedisURL string

	ListenAddr       string
	LogLevel         string
	LogFormat        string
	CacheTTL         time.Duration
	CountParallelism int
	ReportTimeout    time.Duration
}

// Lookup returns the value of a variable and whether it is set.
type Lookup func(key string) (string, bool)

// Load reads .env if present and resolves the configuration from the
// process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "loading .env")
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv resolves the configuration through lookup.
func FromEnv(lookup Lookup) (Config, error) {
	file := map[string]string{}
	if path, ok := lookup(KeyConfigFile); ok && path != "" {
		var err error
		if file, err = readFile(path); err != nil {
			return Config{}, err
		}
	}

	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		if v, ok := file[key]; ok && v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		MongoURL:   get(KeyMongoURL, ""),
		Database:   get(KeyDatabase, ""),
		RedisURL:   get(KeyRedisURL, ""),
		ListenAddr: get(KeyListenAddr, DefaultListenAddr),
		LogLevel:   get(KeyLogLevel, DefaultLogLevel),
		LogFormat:  get(KeyLogFormat, DefaultLogFormat),
	}

	var missing []string
	if cfg.MongoURL == "" {
		missing = append(missing, KeyMongoURL)
	}
	if cfg.Database == "" {
		missing = append(missing, KeyDatabase)
	}
	if len(missing) > 0 {
		return Config{}, errors.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	var err error
	if cfg.CacheTTL, err = duration(KeyCacheTTL, get(KeyCacheTTL, ""), DefaultCacheTTL); err != nil {
		return Config{}, err
	}
	if cfg.ReportTimeout, err = duration(KeyReportTimeout, get(KeyReportTimeout, ""), DefaultReportTimeout); err != nil {
		return Config{}, err
	}

	cfg.CountParallelism = DefaultCountParallelism
	if v := get(KeyCountParallelism, ""); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, errors.Errorf("%s must be a positive integer, got %q", KeyCountParallelism, v)
		}
		cfg.CountParallelism = n
	}
	return cfg, nil
}

func duration(key, v string, def time.Duration) (time.Duration, error) {
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %s", key)
	}
	if d <= 0 {
		return 0, errors.Errorf("%s must be positive, got %s", key, v)
	}
	return d, nil
}

// readFile flattens the top-level keys of a TOML file into variable names.
func readFile(path string) (map[string]string, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", path)
	}

	keys := tree.Keys()
	sort.Strings(keys)

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		switch v := tree.Get(k).(type) {
		case *toml.Tree, []*toml.Tree:
			return nil, errors.Errorf("config file %s: %q must be a scalar", path, k)
		case string:
			out[strings.ToUpper(k)] = v
		default:
			out[strings.ToUpper(k)] = fmt.Sprint(v)
		}
	}
	return out, nil
}
