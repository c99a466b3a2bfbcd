package reqtiming

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/keithlinneman/reqtiming/internal/pipeline"
	"github.com/keithlinneman/reqtiming/internal/xerrors"
)

// Sink receives finished log lines. internal/log.Logger satisfies it.
type Sink interface {
	Log(ctx context.Context, lvl slog.Level, msg string, kv ...any)
}

// Clock supplies timestamps. Readings must carry a monotonic component
// for elapsed times to be immune to wall-clock steps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// FailureStatus is logged for every failed outcome.
const FailureStatus = http.StatusInternalServerError

// Logger is the timing stage. It holds only immutable configuration and is
// shared by all requests.
type Logger struct {
	level slog.Level
	sink  Sink
	clock Clock
}

type Option func(*Logger)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(l *Logger) {
		if c != nil {
			l.clock = c
		}
	}
}

// New returns a Logger that logs successful requests at level to sink.
func New(level slog.Level, sink Sink, opts ...Option) *Logger {
	l := &Logger{level: level, sink: sink, clock: systemClock{}}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Before marks the request start.
func (l *Logger) Before(req *pipeline.Request) error {
	req.Extensions.SetStart(l, l.clock.Now())
	return nil
}

// After logs the finished request and returns out untouched. It panics if
// req never passed through Before, since that means the stage is wired
// into the pipeline incorrectly.
func (l *Logger) After(req *pipeline.Request, out pipeline.Outcome) pipeline.Outcome {
	start, ok := req.Extensions.TakeStart(l)
	if !ok {
		panic(fmt.Sprintf("reqtiming: After called without matching Before for %s %s (stage not registered with the pipeline?)", req.Method, req.Path))
	}

	end := l.clock.Now()
	line := Line{
		Client:  req.RemoteAddr,
		At:      end,
		Method:  req.Method,
		Path:    req.Path,
		Elapsed: end.Sub(start),
		Status:  statusOf(out),
		Failed:  out.Failed(),
	}
	if line.Failed {
		line.Description, line.Detail = describe(out.Err())
	}

	l.emit(req.Context(), EffectiveLevel(l.level, out), line.String())
	return out
}

// emit never lets a misbehaving sink fail the request.
func (l *Logger) emit(ctx context.Context, lvl slog.Level, msg string) {
	if l.sink == nil {
		return
	}
	defer func() { _ = recover() }()
	l.sink.Log(ctx, lvl, msg)
}

// EffectiveLevel is configured for successful outcomes and Error for failures.
func EffectiveLevel(configured slog.Level, out pipeline.Outcome) slog.Level {
	if out.Failed() {
		return slog.LevelError
	}
	return configured
}

func statusOf(out pipeline.Outcome) int {
	if out.Failed() {
		return FailureStatus
	}
	if resp := out.Response(); resp != nil {
		return resp.Status
	}
	return http.StatusOK
}

// describe renders an error's description and detail, substituting empty
// strings for anything that panics while rendering.
func describe(err error) (description, detail string) {
	if err == nil {
		return "", ""
	}
	func() {
		defer func() {
			if recover() != nil {
				description = ""
			}
		}()
		description = err.Error()
	}()
	func() {
		defer func() {
			if recover() != nil {
				detail = ""
			}
		}()
		detail = xerrors.Detail(err)
	}()
	return description, detail
}
