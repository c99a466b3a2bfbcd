package opshttp

import (
	"net/http"

	"github.com/keithlinneman/reqtiming/internal/probe"
)

type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      probe.Probe
	Readiness   probe.Probe
	// AllowPublic serves callers outside loopback and private ranges.
	AllowPublic  bool
	UseRecoverMW bool
	// OnPanic runs for each recovered panic, e.g. to count it.
	OnPanic func()
}
