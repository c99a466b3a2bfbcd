package pipeline

import (
	"fmt"

	"github.com/keithlinneman/reqtiming/internal/xerrors"
)

var (
	// ErrUnknown stands in for a failure constructed without an error.
	ErrUnknown = xerrors.New("unknown failure")
	// ErrHandlerPanic marks an outcome produced from a recovered handler panic.
	ErrHandlerPanic = xerrors.New("handler panic")
)

// Handler produces the outcome for a request.
type Handler interface {
	Call(req *Request) Outcome
}

// HandlerFunc adapts a function into a Handler.
type HandlerFunc func(req *Request) Outcome

func (f HandlerFunc) Call(req *Request) Outcome { return f(req) }

// Middleware is one pipeline stage.
type Middleware interface {
	Before(req *Request) error
	After(req *Request, out Outcome) Outcome
}

// Builder assembles stages around a handler. Add stages during setup only;
// once requests are flowing, Call is safe for concurrent use.
type Builder struct {
	handler Handler
	stages  []Middleware
}

// New returns a Builder that dispatches to h.
func New(h Handler) *Builder {
	return &Builder{handler: h}
}

// Add appends a stage. Stages added first run their Before first and their After last.
func (b *Builder) Add(m Middleware) *Builder {
	if m != nil {
		b.stages = append(b.stages, m)
	}
	return b
}

// Len reports the number of stages.
func (b *Builder) Len() int { return len(b.stages) }

// Call runs req through every stage and the handler.
func (b *Builder) Call(req *Request) Outcome {
	ran := 0
	var out Outcome
	failed := false
	for _, m := range b.stages {
		if err := m.Before(req); err != nil {
			out = Failure(err)
			failed = true
			break
		}
		ran++
	}

	if !failed {
		out = b.callHandler(req)
	}

	for i := ran - 1; i >= 0; i-- {
		out = b.stages[i].After(req, out)
	}
	return out
}

func (b *Builder) callHandler(req *Request) (out Outcome) {
	if b.handler == nil {
		return Failure(xerrors.New("pipeline has no handler"))
	}
	defer func() {
		if rec := recover(); rec != nil {
			out = Failure(xerrors.WithDetail(
				xerrors.Wrapf(ErrHandlerPanic, "%s %s", req.Method, req.Path),
				fmt.Sprintf("%v", rec),
			))
		}
	}()
	return b.handler.Call(req)
}
