// Copyright (C) The mongo-sharding-repl Authors. 2024-present.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may
// not use this file except in compliance with the License. You may obtain
// a copy of the License at http://www.apache.org/licenses/LICENSE-2.0

// Package logger builds the process logger and adapts it for the driver.
package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/bombsimon/logrusr/v4"
	"github.com/go-stack/stack"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Format names accepted by New.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// maxDocumentLength truncates commands and replies in driver log lines.
const maxDocumentLength = 512

// New returns a logger writing to out. An empty level means info and an
// empty format means JSON.
func New(level, format string, out io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)

	if level == "" {
		level = logrus.InfoLevel.String()
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}
	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", FormatJSON:
		log.SetFormatter(&logrus.JSONFormatter{})
	case FormatText:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, errors.Errorf("invalid log format %q", format)
	}

	log.AddHook(callerHook{})
	return log, nil
}

// DriverOptions routes the driver's topology and server selection logs
// through log.
func DriverOptions(log logrus.FieldLogger) *options.LoggerOptions {
	sink := logrusr.New(log.WithField("component", "driver")).GetSink()

	return options.Logger().
		SetSink(sink).
		SetMaxDocumentLength(maxDocumentLength).
		SetComponentLevel(options.LogComponentTopology, options.LogLevelInfo).
		SetComponentLevel(options.LogComponentServerSelection, options.LogLevelInfo)
}

// callerHook tags warnings and errors with the first frame outside the
// logging packages.
type callerHook struct{}

func (callerHook) Levels() []logrus.Level {
	return []logrus.Level{logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel, logrus.WarnLevel}
}

func (callerHook) Fire(entry *logrus.Entry) error {
	if c, ok := callerFrame(); ok {
		entry.Data["caller"] = fmt.Sprintf("%+v", c)
	}
	return nil
}

func callerFrame() (stack.Call, bool) {
	for _, c := range stack.Trace().TrimRuntime() {
		pkg := fmt.Sprintf("%+k", c)
		if strings.HasPrefix(pkg, "github.com/sirupsen/logrus") ||
			strings.HasPrefix(pkg, "github.com/go-stack/stack") ||
			strings.HasSuffix(pkg, "/internal/logger") {
			continue
		}
		return c, true
	}
	return stack.Call{}, false
}
