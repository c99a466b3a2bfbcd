package log

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// WithContext returns a new context that carries the given Logger
func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the Logger stored in ctx, or Nop() if none is present
func FromContext(ctx context.Context) Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(Logger); ok && l != nil {
			return l
		}
	}
	return Nop()
}

// ContextSink logs through the Logger carried by ctx so records pick up
// request-scoped fields, falling back to Base.
type ContextSink struct {
	Base Logger
}

func (s ContextSink) Log(ctx context.Context, lvl slog.Level, msg string, kv ...any) {
	var l Logger
	if ctx != nil {
		l, _ = ctx.Value(ctxKey{}).(Logger)
	}
	if l == nil {
		l = s.Base
	}
	if l == nil {
		return
	}
	if d, ok := l.(depthLogger); ok {
		d.logDepth(ctx, 1, lvl, msg, kv...)
		return
	}
	l.Log(ctx, lvl, msg, kv...)
}

// depthLogger is implemented by loggers that can skip wrapper frames when
// recording the call site.
type depthLogger interface {
	logDepth(ctx context.Context, depth int, lvl slog.Level, msg string, kv ...any)
}
