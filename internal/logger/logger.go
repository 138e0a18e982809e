// Package logger defines the logging interface used by the builder and the
// execution adapter, an slog adapter, and a sanitizer for bound values.
package logger

import (
	"context"
	"log/slog"
)

// Logger is a structured logger taking alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NoopLogger discards everything. It is the default.
type NoopLogger struct{}

func (n *NoopLogger) Debug(_ string, _ ...any) {}
func (n *NoopLogger) Info(_ string, _ ...any)  {}
func (n *NoopLogger) Warn(_ string, _ ...any)  {}
func (n *NoopLogger) Error(_ string, _ ...any) {}

// SlogAdapter implements Logger on top of a *slog.Logger.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps l. A nil l logs through slog.Default.
func NewSlogAdapter(l *slog.Logger) *SlogAdapter {
	if l == nil {
		l = slog.Default()
	}
	return &SlogAdapter{logger: l}
}

func (a *SlogAdapter) Debug(msg string, args ...any) { a.logger.Debug(msg, args...) }
func (a *SlogAdapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *SlogAdapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *SlogAdapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }

// With returns an adapter whose records carry args.
func (a *SlogAdapter) With(args ...any) Logger {
	return &SlogAdapter{logger: a.logger.With(args...)}
}

// Enabled reports whether records at level are emitted.
func (a *SlogAdapter) Enabled(level slog.Level) bool {
	return a.logger.Enabled(context.Background(), level)
}

// With returns l with args attached to every record. Loggers that provide
// their own With method are asked first; others are wrapped. Noop loggers
// are returned unchanged.
func With(l Logger, args ...any) Logger {
	if len(args) == 0 {
		return l
	}
	switch v := l.(type) {
	case *NoopLogger:
		return l
	case interface{ With(...any) Logger }:
		return v.With(args...)
	}
	return &boundLogger{next: l, args: args}
}

// DebugEnabled reports whether l emits debug records. Loggers that cannot
// tell are assumed to.
func DebugEnabled(l Logger) bool {
	switch v := l.(type) {
	case *NoopLogger:
		return false
	case interface{ Enabled(slog.Level) bool }:
		return v.Enabled(slog.LevelDebug)
	}
	return true
}

// boundLogger prepends fixed key/value pairs.
type boundLogger struct {
	next Logger
	args []any
}

func (b *boundLogger) merge(args []any) []any {
	out := make([]any, 0, len(b.args)+len(args))
	return append(append(out, b.args...), args...)
}

func (b *boundLogger) Debug(msg string, args ...any) { b.next.Debug(msg, b.merge(args)...) }
func (b *boundLogger) Info(msg string, args ...any)  { b.next.Info(msg, b.merge(args)...) }
func (b *boundLogger) Warn(msg string, args ...any)  { b.next.Warn(msg, b.merge(args)...) }
func (b *boundLogger) Error(msg string, args ...any) { b.next.Error(msg, b.merge(args)...) }

func (b *boundLogger) With(args ...any) Logger {
	return &boundLogger{next: b.next, args: b.merge(args)}
}
