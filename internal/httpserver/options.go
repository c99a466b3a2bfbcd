package httpserver

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/reqtiming/internal/httpmw"
	"github.com/keithlinneman/reqtiming/internal/log"
	"github.com/keithlinneman/reqtiming/internal/pipeline"
	"github.com/keithlinneman/reqtiming/internal/probe"
	"github.com/keithlinneman/reqtiming/internal/reqtiming"
)

type Options struct {
	Logger log.Logger
	Port   int

	// RequestLogLevel is the level of timing lines for successful requests.
	RequestLogLevel slog.Level
	// TimingOptions configure the timing stage, e.g. a fixed clock in tests.
	TimingOptions   []reqtiming.Option
	RequestIDHeader string
	ClientIPOpts    httpmw.ClientIPOptions

	// Stages run inside the timing stage, in order. A stage whose Before
	// fails (the rate limiter) is still timed and logged.
	Stages []pipeline.Middleware

	UseRecoverMW bool
	OnPanic      func()

	Health    probe.Probe
	Readiness probe.Probe

	// Routes registers application endpoints on the router.
	Routes func(chi.Router)
}
