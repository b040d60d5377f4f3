// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logsink models the logging façade as an external collaborator.
// The specification places the logging façade's vtable-based sink
// polymorphism out of scope (§1, §9): this package defines only the small
// interface the core consumes, plus a no-op default and a log/slog adapter
// for callers that want diagnostics wired up without bringing their own
// sink implementation.
package logsink

import (
	"context"
	"log/slog"
)

// Level mirrors the small, closed set of severities a diagnostic sink needs.
// It is distinct from status.Code: a Level never represents an operation's
// outcome, only how loudly to announce it.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// Field is a single structured log attribute.
type Field struct {
	Key   string
	Value any
}

// Sink is the minimal logging collaborator the core consumes. It stands in
// for the out-of-scope vtable-based sink the specification describes
// (write, set_level, get_level, destroy); in Go the natural shape is this
// small interface rather than a literal vtable struct.
type Sink interface {
	Write(level Level, msg string, fields ...Field)
}

// nop is the default Sink: it discards everything. The event bus, the only
// subsystem in this module that logs, defaults to nop so the core never
// requires a logging dependency to function, per §1's scoping of the façade
// as an external collaborator.
type nop struct{}

func (nop) Write(Level, string, ...Field) {}

// Nop returns the no-op Sink the event bus uses by default.
func Nop() Sink { return nop{} }

// SlogAdapter wraps a *slog.Logger as a Sink, for callers who want
// diagnostics without writing their own sink.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter returns a Sink backed by logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Write(level Level, msg string, fields ...Field) {
	attrs := make([]slog.Attr, len(fields))
	for i, f := range fields {
		attrs[i] = slog.Any(f.Key, f.Value)
	}
	a.logger.LogAttrs(context.Background(), slogLevel(level), msg, attrs...)
}

func slogLevel(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
