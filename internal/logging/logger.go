// Social Commerce Platform - Hybrid Personalization Engine
// Copyright 2026 The Social Commerce Platform Authors (LoiUTC2)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/LoiUTC2/Social-Commerce-Platform

// Package logging provides the process-wide zerolog logger for the
// personalization engine.
//
// The logger is configured once from main via Init and then used either
// through the package-level helpers or through component loggers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logger := logging.WithComponent("serving")
//	logger.Info().Str("target_type", "product").Msg("query served")
//
// Request-scoped code should prefer Ctx(ctx), which carries the request and
// actor IDs. Always terminate log chains with .Msg() or .Send(); an
// unterminated event is never written.
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// AppName is attached to every line written by the global logger as "app".
const AppName = "personalization"

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error, fatal,
	// panic or disabled. Unknown values mean info.
	Level string

	// Format is json or console.
	Format string

	// Caller adds file:line to each line.
	Caller bool

	// Timestamp adds an RFC 3339 time field.
	Timestamp bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns JSON at info level on stderr with timestamps.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var global atomic.Pointer[zerolog.Logger]

//nolint:gochecknoinits // logging must work before Init is called from main
func init() {
	Init(DefaultConfig())
}

// Init (re)configures the global logger. It is safe to call while other
// goroutines log; they switch to the new logger on their next event.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"

	var out io.Writer = cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	c := zerolog.New(out).With().Str("app", AppName)
	if cfg.Timestamp {
		c = c.Timestamp()
	}
	if cfg.Caller {
		c = c.Caller()
	}
	l := c.Logger()
	global.Store(&l)
}

// parseLevel maps a level name to zerolog's, accepting "warning" and any
// case. Unknown and empty names mean info.
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// ValidLevel reports whether level names a known level.
func ValidLevel(level string) bool {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		return true
	}
	lvl, err := zerolog.ParseLevel(level)
	return err == nil && level != "" && lvl != zerolog.NoLevel
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	return *global.Load()
}

// WithComponent returns the global logger tagged with a component field.
//
//	trainerLogger := logging.WithComponent("cf-trainer")
func WithComponent(component string) zerolog.Logger {
	return global.Load().With().Str("component", component).Logger()
}

// Info starts an info event on the global logger.
func Info() *zerolog.Event { return global.Load().Info() }

// Warn starts a warn event on the global logger.
func Warn() *zerolog.Event { return global.Load().Warn() }

// Error starts an error event on the global logger.
func Error() *zerolog.Event { return global.Load().Error() }

// Fatal starts a fatal event; os.Exit(1) follows the write.
func Fatal() *zerolog.Event { return global.Load().Fatal() }

// NewTestLogger creates a logger that writes JSON lines to w.
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
