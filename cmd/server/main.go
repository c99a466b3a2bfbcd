package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keithlinneman/reqtiming/internal/cfg"
	"github.com/keithlinneman/reqtiming/internal/httpmw"
	"github.com/keithlinneman/reqtiming/internal/httpserver"
	"github.com/keithlinneman/reqtiming/internal/log"
	"github.com/keithlinneman/reqtiming/internal/metrics"
	"github.com/keithlinneman/reqtiming/internal/opshttp"
	"github.com/keithlinneman/reqtiming/internal/pipeline"
	"github.com/keithlinneman/reqtiming/internal/probe"
	"github.com/keithlinneman/reqtiming/internal/prof"
	"github.com/keithlinneman/reqtiming/internal/ratelimit"
	v "github.com/keithlinneman/reqtiming/internal/version"
	"github.com/keithlinneman/reqtiming/internal/xerrors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("%s %s (commit=%s, build_date=%s, go=%s, dirty=%v)\n",
			v.AppName, vi.Version, vi.Commit, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// levels were checked by Validate
	lvl, _ := log.ParseLevel(conf.LogLevel)
	reqLvl, _ := log.ParseLevel(conf.RequestLogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)

	lg, err := log.New(log.Options{
		App:               v.AppName,
		Version:           vi.Version,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JsonFormat:        conf.LogJSON,
		MaxErrorLinks:     conf.MaxErrorLinks,
		IncludeErrorLinks: conf.IncludeErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"vcs_dirty", vi.VCSDirty,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"request_log_level", reqLvl.String(),
		"trusted_hops", conf.TrustedHops,
		"enable_rate_limit", conf.EnableRateLimit,
		"rate_limit_rps", conf.RateLimitPerSecond,
		"rate_limit_burst", conf.RateLimitBurst,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"pyro_server", conf.PyroServer,
		"pyro_tenant", conf.PyroTenantID,
	)

	m := metrics.New()
	m.SetBuildInfoFromVersion("server", vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
		},
	})
	m.SetProfilingActive(conf.EnablePyroscope && err == nil)
	defer stopProf()

	limiterCtx, stopLimiter := detachedContext(ctx)
	defer stopLimiter()

	var stages []pipeline.Middleware
	if conf.EnableRateLimit {
		limiter := ratelimit.New(limiterCtx,
			ratelimit.WithRate(conf.RateLimitPerSecond, conf.RateLimitBurst),
			ratelimit.WithMaxVisitors(conf.RateLimitMaxVisitors),
			ratelimit.WithOnDenied(func(string) { m.IncRateLimitDenied() }),
			// once per address until it is evicted
			ratelimit.WithOnFirstDenied(func(ip string) {
				L.Warn(limiterCtx, "rate limit triggered", "ip", ip)
			}),
			ratelimit.WithOnCapacity(func() {
				m.IncRateLimitCapacity()
				L.Warn(limiterCtx, "rate limit capacity reached, rejecting new visitors until some are evicted")
			}),
		)
		m.TrackRateLimitVisitors(limiter.Len)
		stages = append(stages, limiter)
	}

	var gate probe.Gate
	liveness := probe.Static(true, "")
	readiness := gate.Probe()

	api := &httpserver.API{Version: vi}
	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:          L,
		Port:            conf.HTTPPort,
		RequestLogLevel: reqLvl,
		RequestIDHeader: conf.RequestIDHeader,
		ClientIPOpts:    httpmw.ClientIPOptions{TrustedHops: conf.TrustedHops},
		Stages:          stages,
		UseRecoverMW:    true,
		OnPanic:         m.IncHttpPanic,
		Health:          liveness,
		Readiness:       readiness,
		Routes:          api.RegisterRoutes,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	opsHTTPStop, err := opshttp.Start(ctx, L, opshttp.Options{
		Port:         conf.AdminPort,
		Metrics:      m.Handler(),
		EnablePprof:  conf.EnablePprof,
		Health:       liveness,
		Readiness:    readiness,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		// systemd kills us after its start timeout if this mattered
		L.Debug(ctx, "systemd notify skipped", "reason", err.Error())
	}

	<-ctx.Done()
	// restore default signal handling so a second signal kills us
	stop()

	bg := context.Background()
	L.Info(bg, "shutdown signal received")

	gate.Close("draining")
	L.Info(bg, "readiness gate closed, draining", "drain_delay", conf.DrainDelay.String())

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(conf.DrainDelay):
		L.Info(bg, "drain period complete")
	case <-forceCh:
		L.Warn(bg, "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(bg, 15*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "ops http server shutdown")
	}
	stopLimiter()
	stopProf()

	L.Info(bg, "shutdown complete")
}

// detachedContext keeps parent's values but not its cancellation. Background
// work that must outlive the shutdown signal runs on it until cancel is called
// after the listeners stop.
func detachedContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithCancel(context.WithoutCancel(parent))
}

// notifySystemd sends READY=1 when started as a systemd Type=notify unit.
func notifySystemd() error {
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return xerrors.New("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return xerrors.Wrap(err, "systemd notify dial")
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		return xerrors.Wrap(err, "systemd notify write")
	}
	return nil
}
