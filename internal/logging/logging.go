// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging wires the engine's structured logger. Every
// component takes a *Logger explicitly (see Design Note on
// ConfigContext-style explicit dependencies) rather than reaching for
// a package-level global.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Format selects the slog handler used by New.
type Format string

const (
	// FormatConsole renders human-readable, colorized lines (tint).
	FormatConsole Format = "console"
	// FormatJSON renders one JSON object per line, for log aggregators.
	FormatJSON Format = "json"
)

// Logger wraps *slog.Logger with the engine's conventional fields
// (component, timeline_id) attached via With by Component and
// WithTimeline.
type Logger struct {
	*slog.Logger
}

// Options configures New.
type Options struct {
	Format Format
	Level  slog.Level
	Writer io.Writer // defaults to os.Stderr
}

// New builds a Logger per Options.
func New(opts Options) *Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var handler slog.Handler
	switch opts.Format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})
	default:
		handler = tint.NewHandler(w, &tint.Options{
			Level: opts.Level,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.TimeKey {
					a.Value = slog.StringValue(a.Value.Time().UTC().Format("2006-01-02T15:04:05.000Z"))
				}
				return a
			},
		})
	}

	return &Logger{Logger: slog.New(handler)}
}

// Nop returns a Logger that discards everything; useful as a safe
// default when a caller does not wire one in.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Component returns a child Logger tagged with a component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{Logger: l.Logger.With("component", name)}
}

// WithTimeline returns a child Logger tagged with a Timeline id.
func (l *Logger) WithTimeline(id string) *Logger {
	return &Logger{Logger: l.Logger.With("timeline_id", id)}
}

// RateLimiter gates repeated log lines (e.g. the socket-hook
// fallback warning of DESIGN.md's Open Question decisions) to at most
// once per interval per key.
type RateLimiter struct {
	interval time.Duration
	last     map[string]time.Time
}

// NewRateLimiter returns a RateLimiter allowing one event per key per interval.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{interval: interval, last: make(map[string]time.Time)}
}

// Allow reports whether an event for key may fire now, recording the attempt.
func (r *RateLimiter) Allow(key string, now time.Time) bool {
	if last, ok := r.last[key]; ok && now.Sub(last) < r.interval {
		return false
	}
	r.last[key] = now
	return true
}
