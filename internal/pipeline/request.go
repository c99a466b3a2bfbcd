package pipeline

import (
	"context"
	"time"
)

// Request is one request flowing through a pipeline. It is owned by a
// single flow of control and is never shared between requests.
type Request struct {
	RemoteAddr string
	Method     string
	Path       string

	Extensions Extensions

	ctx context.Context
}

// NewRequest builds a Request with fresh Extensions.
func NewRequest(ctx context.Context, remoteAddr, method, path string) *Request {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Request{
		RemoteAddr: remoteAddr,
		Method:     method,
		Path:       path,
		ctx:        ctx,
	}
}

// Context returns the request context, never nil.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// SetContext replaces the request context. Stages use it to hand enriched
// contexts (loggers, ids) to stages and handlers further in.
func (r *Request) SetContext(ctx context.Context) {
	if ctx != nil {
		r.ctx = ctx
	}
}

// Extensions is per-request state written by Before hooks and consumed by
// the matching After hooks.
type Extensions struct {
	starts []startMark
}

// startMark is one stage's start time. owner must be comparable; stages
// pass their own pointer so two instances never read each other's mark.
type startMark struct {
	owner any
	at    time.Time
}

// SetStart records owner's start marker, replacing any previous one it set.
func (e *Extensions) SetStart(owner any, t time.Time) {
	for i := range e.starts {
		if e.starts[i].owner == owner {
			e.starts[i].at = t
			return
		}
	}
	e.starts = append(e.starts, startMark{owner: owner, at: t})
}

// TakeStart removes and returns owner's start marker. ok is false when
// owner set no marker or it was already taken.
func (e *Extensions) TakeStart(owner any) (t time.Time, ok bool) {
	for i := range e.starts {
		if e.starts[i].owner == owner {
			t = e.starts[i].at
			e.starts = append(e.starts[:i], e.starts[i+1:]...)
			return t, true
		}
	}
	return time.Time{}, false
}
