// Package prof starts optional continuous profiling against a Pyroscope
// server.
package prof

import (
	"context"
	"fmt"
	"net/url"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"

	"github.com/keithlinneman/reqtiming/internal/log"
	"github.com/keithlinneman/reqtiming/internal/xerrors"
)

type Options struct {
	Enabled           bool
	AppName           string
	ServerAddress     string
	TenantID          string
	BasicAuthUser     string
	BasicAuthPassword string
	Tags              map[string]string
	// MutexFraction and BlockRate feed runtime.SetMutexProfileFraction and
	// runtime.SetBlockProfileRate; 0 leaves the runtime default.
	MutexFraction int
	BlockRate     int
}

func (o Options) validate() error {
	u, err := url.Parse(o.ServerAddress)
	if err != nil || o.ServerAddress == "" || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return xerrors.Newf("invalid server address (%q)", o.ServerAddress)
	}
	return nil
}

// Start begins profiling when enabled. The returned stop func is always
// non-nil and safe to call more than once, even alongside an error.
func Start(ctx context.Context, opts Options) (func(), error) {
	L := log.FromContext(ctx).With("component", "pyroscope", "server_address", opts.ServerAddress)
	noop := func() {}

	if !opts.Enabled {
		L.Info(ctx, "pyroscope disabled")
		return noop, nil
	}
	if err := opts.validate(); err != nil {
		L.Error(ctx, err, "pyroscope options")
		return noop, err
	}

	if opts.MutexFraction > 0 {
		runtime.SetMutexProfileFraction(opts.MutexFraction)
	}
	if opts.BlockRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockRate)
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName:   opts.AppName,
		ServerAddress:     opts.ServerAddress,
		TenantID:          opts.TenantID,
		BasicAuthUser:     opts.BasicAuthUser,
		BasicAuthPassword: opts.BasicAuthPassword,
		Tags:              opts.Tags,
		Logger:            pyroLogger{ctx: ctx, L: L},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
			pyroscope.ProfileBlockCount,
			pyroscope.ProfileBlockDuration,
		},
	})
	if err != nil {
		err = xerrors.Wrap(err, "pyroscope start")
		L.Error(ctx, err, "pyroscope start failed", "app_name", opts.AppName)
		return noop, err
	}
	L.Info(ctx, "pyroscope started", "app_name", opts.AppName)

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := profiler.Stop(); err != nil {
				L.Warn(context.Background(), "pyroscope stop", "err", err)
				return
			}
			L.Info(context.Background(), "pyroscope stopped")
		})
	}, nil
}

// pyroLogger routes the profiler's own messages into the service logger.
type pyroLogger struct {
	ctx context.Context
	L   log.Logger
}

func (p pyroLogger) Debugf(format string, args ...any) {
	p.L.Debug(p.ctx, fmt.Sprintf(format, args...))
}

func (p pyroLogger) Infof(format string, args ...any) {
	p.L.Info(p.ctx, fmt.Sprintf(format, args...))
}

func (p pyroLogger) Errorf(format string, args ...any) {
	p.L.Error(p.ctx, xerrors.Newf(format, args...), "pyroscope")
}
