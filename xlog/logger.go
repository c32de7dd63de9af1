// Package xlog provides structured logging for the cross-reference index,
// built on logrus. Every component gets a tagged *logrus.Entry rather than
// a bare logger, so log lines are always attributable to the component
// that emitted them.
package xlog

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level mirrors the subset of logrus levels this module exposes; kept as
// its own type so callers never need to import logrus directly.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Options configures the process-wide base logger.
type Options struct {
	Level  Level
	Format string // "json" or "text"
}

// DefaultOptions is info level with human-readable text output.
func DefaultOptions() Options {
	return Options{Level: LevelInfo, Format: "text"}
}

var (
	mu   sync.Mutex
	base = newBase(DefaultOptions())
)

func newBase(opts Options) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	switch opts.Level {
	case LevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LevelError:
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if opts.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// Configure applies opts to the process-wide base logger in place, so
// entries New has already handed out (including package-level loggers
// created at init) pick up the new level and format. Call once at
// process start; safe to call from tests to silence output or switch to
// JSON.
func Configure(opts Options) {
	mu.Lock()
	defer mu.Unlock()
	configured := newBase(opts)
	base.SetLevel(configured.GetLevel())
	base.SetFormatter(configured.Formatter)
}

// New returns a logger entry tagged with the given component name, e.g.
// xlog.New("cascade") or xlog.New("fetch").
func New(component string) *logrus.Entry {
	mu.Lock()
	defer mu.Unlock()
	return base.WithField("component", component)
}
