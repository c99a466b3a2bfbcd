package cfg

import (
	"flag"
	"fmt"
	"strings"
	"testing"
	"time"
)

func wantErrContains(t *testing.T, err error, sub string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error containing %q, got <nil>", sub)
	}
	if !strings.Contains(err.Error(), sub) {
		t.Fatalf("error %q does not contain %q", err.Error(), sub)
	}
}

// newTestConfig parses args on a fresh FlagSet, isolated from flag.CommandLine.
// The returned *App is the struct the flags are bound to, so later
// FillFromEnv calls are visible through it.
func newTestConfig(t *testing.T, args []string) (*App, *flag.FlagSet) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c := &App{}
	Register(fs, c)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("flag parse: %v", err)
	}
	return c, fs
}

func TestRegister_Defaults(t *testing.T) {
	c, _ := newTestConfig(t, nil)

	want := App{
		LogJSON:              true,
		LogLevel:             "info",
		RequestLogLevel:      "info",
		StacktraceLevel:      "error",
		IncludeErrorLinks:    true,
		MaxErrorLinks:        5,
		HTTPPort:             8080,
		AdminPort:            9000,
		RequestIDHeader:      "X-Request-Id",
		DrainDelay:           5 * time.Second,
		EnableRateLimit:      true,
		RateLimitPerSecond:   10,
		RateLimitBurst:       30,
		RateLimitMaxVisitors: 100000,
		EnablePprof:          true,
	}
	if *c != want {
		t.Fatalf("defaults =\n%+v\nwant\n%+v", c, want)
	}
	if err := Validate(*c); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestRegister_CLIOverrides(t *testing.T) {
	c, _ := newTestConfig(t, []string{
		"-log-json=false",
		"-request-log-level=debug",
		"-http-port=3000",
		"-trusted-hops=2",
		"-rate-limit-rps=2.5",
		"-drain-delay=0s",
	})

	if c.LogJSON || c.RequestLogLevel != "debug" || c.HTTPPort != 3000 || c.TrustedHops != 2 {
		t.Fatalf("overrides not applied: %+v", *c)
	}
	if c.RateLimitPerSecond != 2.5 || c.DrainDelay != 0 {
		t.Fatalf("overrides not applied: %+v", *c)
	}
}

func TestFillFromEnv(t *testing.T) {
	t.Setenv("REQTIMING_HTTP_PORT", "9090")
	t.Setenv("REQTIMING_REQUEST_LOG_LEVEL", "warn")
	t.Setenv("REQTIMING_ENABLE_RATE_LIMIT", "false")

	c, fs := newTestConfig(t, nil)
	FillFromEnv(fs, EnvPrefix, nil)

	if c.HTTPPort != 9090 || c.RequestLogLevel != "warn" || c.EnableRateLimit {
		t.Fatalf("env not applied: %+v", *c)
	}
}

func TestFillFromEnv_CLITakesPrecedence(t *testing.T) {
	t.Setenv("REQTIMING_HTTP_PORT", "9090")

	var logged []string
	c, fs := newTestConfig(t, []string{"-http-port=7070"})
	FillFromEnv(fs, EnvPrefix, func(f string, a ...any) { logged = append(logged, fmt.Sprintf(f, a...)) })

	if c.HTTPPort != 7070 {
		t.Fatalf("HTTPPort = %d, want cli value", c.HTTPPort)
	}
	if len(logged) != 1 {
		t.Fatalf("expected one override notice, got %d", len(logged))
	}
	if !strings.Contains(logged[0], "overrides env REQTIMING_HTTP_PORT") {
		t.Fatalf("notice = %q", logged[0])
	}
}

func TestFillFromEnv_InvalidEnvIgnored(t *testing.T) {
	t.Setenv("REQTIMING_HTTP_PORT", "not-a-number")

	var logged int
	c, fs := newTestConfig(t, nil)
	FillFromEnv(fs, EnvPrefix, func(string, ...any) { logged++ })

	if c.HTTPPort != 8080 {
		t.Fatalf("HTTPPort = %d, want default kept", c.HTTPPort)
	}
	if logged != 1 {
		t.Fatalf("logged = %d, want 1", logged)
	}
}

func TestValidate_InvalidCombined(t *testing.T) {
	c, _ := newTestConfig(t, []string{
		"-http-port=0",
		"-admin-port=70000",
		"-log-level=loud",
		"-request-log-level=trace",
		"-stacktrace-level=nope",
		"-max-error-links=0",
		"-request-id-header=",
		"-trusted-hops=-1",
		"-rate-limit-rps=0",
		"-rate-limit-burst=0",
		"-enable-pyroscope=true",
		"-pyro-server=not a url",
	})

	err := Validate(*c)
	for _, sub := range []string{
		"invalid HTTP_PORT",
		"invalid ADMIN_PORT",
		"invalid LOG_LEVEL",
		"invalid REQUEST_LOG_LEVEL",
		"invalid STACKTRACE_LEVEL",
		"MAX_ERROR_LINKS",
		"REQUEST_ID_HEADER",
		"TRUSTED_HOPS",
		"RATE_LIMIT_RPS",
		"RATE_LIMIT_BURST",
		"PYRO_SERVER must be a URL",
		"PYRO_TENANT required",
	} {
		wantErrContains(t, err, sub)
	}
}

func TestValidate_SamePorts(t *testing.T) {
	c, _ := newTestConfig(t, []string{"-http-port=9000"})
	wantErrContains(t, Validate(*c), "must differ")
}

func TestValidate_RateLimitDisabledSkipsChecks(t *testing.T) {
	c, _ := newTestConfig(t, []string{"-enable-rate-limit=false", "-rate-limit-rps=0"})
	if err := Validate(*c); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
