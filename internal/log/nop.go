package log

import (
	"context"
	"log/slog"
)

// nopLogger implements Logger but does nothing, for tests and unwired callers
type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any)           {}
func (nopLogger) Info(context.Context, string, ...any)            {}
func (nopLogger) Warn(context.Context, string, ...any)            {}
func (nopLogger) Error(context.Context, error, string, ...any)    {}
func (nopLogger) Log(context.Context, slog.Level, string, ...any) {}
func (nopLogger) Sync() error                                     { return nil }

// extra fields are dropped
func (n nopLogger) With(...any) Logger { return n }

// Nop returns a no-op Logger.
func Nop() Logger { return nopLogger{} }
