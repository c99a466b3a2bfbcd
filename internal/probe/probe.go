// Package probe holds the liveness and readiness checks served on the
// admin listener, and the gate that fails readiness while draining.
package probe

import (
	"context"
	"sync/atomic"

	"github.com/keithlinneman/reqtiming/internal/xerrors"
)

// Probe is evaluated per request: nil passes, an error fails with its text
// as the reason.
type Probe interface{ Check(context.Context) error }

type Func func(context.Context) error

func (f Func) Check(ctx context.Context) error { return f(ctx) }

// Static always passes, or always fails with reason.
func Static(ok bool, reason string) Func {
	if ok {
		return func(context.Context) error { return nil }
	}
	if reason == "" {
		reason = "unhealthy"
	}
	err := xerrors.New(reason)
	return func(context.Context) error { return err }
}

// All passes when every non-nil probe passes and reports the first failure.
func All(ps ...Probe) Func {
	return func(ctx context.Context) error {
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

// Any passes when one probe passes. With none passing it reports the last
// failure.
func Any(ps ...Probe) Func {
	return func(ctx context.Context) error {
		var last error
		for _, p := range ps {
			if p == nil {
				continue
			}
			err := p.Check(ctx)
			if err == nil {
				return nil
			}
			last = err
		}
		if last == nil {
			last = xerrors.New("no healthy probes")
		}
		return last
	}
}

// Gate fails readiness once Close is called, so load balancers stop
// routing before the listeners drain.
type Gate struct {
	closed atomic.Bool
	reason atomic.Value
}

func (g *Gate) Close(reason string) {
	if reason == "" {
		reason = "draining"
	}
	g.reason.Store(reason)
	g.closed.Store(true)
}

func (g *Gate) Open() { g.closed.Store(false) }

func (g *Gate) Closed() bool { return g.closed.Load() }

func (g *Gate) Probe() Func {
	return func(context.Context) error {
		if !g.closed.Load() {
			return nil
		}
		r, _ := g.reason.Load().(string)
		return xerrors.New(r)
	}
}
