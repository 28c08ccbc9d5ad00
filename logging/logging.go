/*
 * Copyright 2025 Humaid Alqasimi
 * SPDX-License-Identifier: Apache-2.0
 */

// Package logging provides the logfmt loggers shared by every package.
// Each logger carries a "source" field naming the subsystem.
package logging

import (
	stdlog "log"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	SourceApp        = "app"
	SourceWeb        = "web"
	SourceWebRequest = "web_request"
	SourceDB         = "db"
	SourceAnalysis   = "analysis"
)

// LevelEnvVar selects the minimum level: debug, info, warn, error or fatal.
const LevelEnvVar = "LOG_LEVEL"

var (
	initOnce sync.Once
	root     *log.Logger
)

func base() *log.Logger {
	initOnce.Do(func() {
		root = log.NewWithOptions(os.Stdout, log.Options{
			TimeFunction:    log.NowUTC,
			TimeFormat:      time.RFC3339Nano,
			Level:           levelFromEnv(os.Getenv(LevelEnvVar)),
			ReportTimestamp: true,
			Formatter:       log.LogfmtFormatter,
		})

		// Third-party packages that use the stdlib logger end up here too.
		stdlog.SetFlags(0)
		stdlog.SetOutput(root.With("source", SourceApp).StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel}).Writer())
	})

	return root
}

// Init sets up the base logger. Calling it is optional; the first Logger
// call does the same.
func Init() {
	base()
}

// levelFromEnv parses a level name, falling back to info. Loggers copy
// their level when derived, so it is fixed before the first Logger call.
func levelFromEnv(name string) log.Level {
	level, err := log.ParseLevel(name)
	if err != nil || name == "" {
		return log.InfoLevel
	}

	return level
}

// Logger returns a logger tagged with source.
func Logger(source string) *log.Logger {
	return base().With("source", source)
}

// StdLogger adapts a source-tagged logger for APIs that need *log.Logger,
// such as http.Server.ErrorLog.
func StdLogger(source string) *stdlog.Logger {
	return base().With("source", source).StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel})
}
