package httpserver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/keithlinneman/reqtiming/internal/httpmw"
	"github.com/keithlinneman/reqtiming/internal/log"
	"github.com/keithlinneman/reqtiming/internal/pipeline"
	"github.com/keithlinneman/reqtiming/internal/reqtiming"
	"github.com/keithlinneman/reqtiming/internal/xerrors"
)

// NewHandler builds the public handler: routes plus middleware.
// Outermost first: recover, request id, client ip, request logger, then
// the pipeline stages (timing first, so everything after it is measured),
// then the router.
func NewHandler(opts *Options) http.Handler {
	L := opts.Logger
	if L == nil {
		L = log.Nop()
	}

	r := chi.NewRouter()
	r.Use(middleware.Compress(5,
		"text/plain",
		"application/json",
	))

	if opts.Health != nil {
		r.Get("/-/healthy", probeHandler(opts.Health))
	}
	if opts.Readiness != nil {
		r.Get("/-/ready", probeHandler(opts.Readiness))
	}
	if opts.Routes != nil {
		opts.Routes(r)
	}

	stages := make([]pipeline.Middleware, 0, len(opts.Stages)+1)
	stages = append(stages, reqtiming.New(opts.RequestLogLevel, log.ContextSink{Base: L}, opts.TimingOptions...))
	stages = append(stages, opts.Stages...)

	var onPanic func(http.Handler) http.Handler
	if opts.UseRecoverMW {
		onPanic = httpmw.Recover(L, opts.OnPanic)
	}

	return httpmw.Chain(r,
		onPanic,
		httpmw.RequestID(opts.RequestIDHeader),
		httpmw.ClientIPWithOptions(opts.ClientIPOpts),
		httpmw.WithLogger(L),
		httpmw.Stages(stages...),
	)
}

// probeHandler is the public-listener form of a probe: JSON status only,
// reasons stay on the admin listener.
func probeHandler(p interface{ Check(context.Context) error }) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.Check(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// Server timeout defaults.
const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultMaxHeaderBytes    = 1 << 20
)

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}
}

// Start serves the public handler on opts.Port (default 8080) and returns
// an idempotent stop func for graceful shutdown.
func Start(ctx context.Context, opts *Options) (func(context.Context) error, error) {
	L := opts.Logger
	if L == nil {
		L = log.Nop()
	}
	port := opts.Port
	if port == 0 {
		port = 8080
	}
	addr := fmt.Sprintf(":%d", port)

	srv := NewServer(addr, NewHandler(opts))
	srv.BaseContext = func(net.Listener) context.Context { return log.WithContext(context.Background(), L) }

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "could not listen for http port on addr=%v", addr)
	}

	go func() {
		L.Info(ctx, "http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			L.Error(ctx, err, "http server error")
		}
	}()

	var once sync.Once
	var stopErr error
	stop := func(sctx context.Context) error {
		once.Do(func() {
			L.Info(sctx, "http server shutting down")
			c, cancel := context.WithTimeout(sctx, 10*time.Second)
			defer cancel()
			stopErr = srv.Shutdown(c)
		})
		return stopErr
	}
	return stop, nil
}
