package httpmw

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/keithlinneman/reqtiming/internal/pipeline"
	"github.com/keithlinneman/reqtiming/internal/xerrors"
)

type exchangeKey struct{}

// exchange is the net/http side of one pipeline request.
type exchange struct {
	w   *statusWriter
	r   *http.Request
	err error
}

func exchangeFrom(ctx context.Context) *exchange {
	ex, _ := ctx.Value(exchangeKey{}).(*exchange)
	return ex
}

// HandlerFunc is an http.Handler that reports failure by returning an
// error. Inside Stages the error becomes the pipeline's failure outcome;
// elsewhere it is written as an error response directly.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

func (f HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := f(w, r)
	if err == nil {
		return
	}
	if ex := exchangeFrom(r.Context()); ex != nil && ex.err == nil {
		ex.err = err
		return
	}
	writeError(w, err)
}

// Stages runs the pipeline stages around next. The stage list is fixed
// when the middleware is built; each request gets its own pipeline.Request.
//
// A failed outcome that left the response unwritten is answered with the
// error's HTTPStatus (500 when it has none).
func Stages(stages ...pipeline.Middleware) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		b := pipeline.New(pipeline.HandlerFunc(func(req *pipeline.Request) pipeline.Outcome {
			ex := exchangeFrom(req.Context())
			next.ServeHTTP(ex.w, ex.r.WithContext(req.Context()))
			if ex.err != nil {
				return pipeline.Failure(ex.err)
			}
			return pipeline.Success(&pipeline.Response{Status: ex.w.Status()})
		}))
		for _, m := range stages {
			b.Add(m)
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ex := &exchange{w: &statusWriter{ResponseWriter: w}, r: r}
			ctx := context.WithValue(r.Context(), exchangeKey{}, ex)

			clientAddr := ClientIPFromContext(ctx)
			if clientAddr == "" {
				clientAddr = peerHost(r.RemoteAddr)
			}
			req := pipeline.NewRequest(ctx, clientAddr, r.Method, r.URL.EscapedPath())

			out := b.Call(req)
			if out.Failed() && !ex.w.written() {
				writeError(ex.w, out.Err())
			}
		})
	}
}

// writeError answers with the error's status and a generic body; error
// text stays in the logs.
func writeError(w http.ResponseWriter, err error) {
	status := xerrors.Status(err, http.StatusInternalServerError)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "30")
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": strings.ToLower(http.StatusText(status)),
	})
}
