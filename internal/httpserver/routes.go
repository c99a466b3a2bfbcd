package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/reqtiming/internal/httpmw"
	"github.com/keithlinneman/reqtiming/internal/log"
	"github.com/keithlinneman/reqtiming/internal/version"
	"github.com/keithlinneman/reqtiming/internal/xerrors"
)

// API is the service's own endpoints.
type API struct {
	Version version.Info
	// MaxDelay caps /api/v1/delay; 0 means 10s.
	MaxDelay time.Duration
}

func (a *API) RegisterRoutes(r chi.Router) {
	r.With(httpmw.Scope("info")).Get("/", a.info)
	r.With(httpmw.Scope("delay")).Method(http.MethodGet, "/api/v1/delay/{ms}", httpmw.HandlerFunc(a.delay))
}

func (a *API) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     version.AppName,
		"version": a.Version.Version,
		"commit":  a.Version.Commit,
	})
}

// delay answers after the requested number of milliseconds. A client that
// goes away first turns the request into a failure.
func (a *API) delay(w http.ResponseWriter, r *http.Request) error {
	raw := chi.URLParam(r, "ms")
	ms, err := strconv.Atoi(raw)
	if err != nil || ms < 0 {
		log.FromContext(r.Context()).Debug(r.Context(), "rejected delay", "ms", raw)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "ms must be a non-negative integer"})
		return nil
	}

	limit := a.MaxDelay
	if limit <= 0 {
		limit = 10 * time.Second
	}
	d := time.Duration(ms) * time.Millisecond
	if d > limit {
		d = limit
	}

	start := time.Now()
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-r.Context().Done():
		err := xerrors.Wrap(r.Context().Err(), "delay interrupted")
		return xerrors.WithDetail(err, fmt.Sprintf("waited=%dms", time.Since(start).Milliseconds()))
	}

	writeJSON(w, http.StatusOK, map[string]int64{"delayed_ms": d.Milliseconds()})
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
