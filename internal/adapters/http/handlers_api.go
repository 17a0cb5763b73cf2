package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"eventportal/internal/domain/mask"
)

// maskResponse is the answer of /api/mask/{kind}.
type maskResponse struct {
	Kind   mask.Kind `json:"kind"`
	Value  string    `json:"value"`
	Digits string    `json:"digits"`
}

// handleMask applies a mask to ?value= so scripts can mirror the server formatting.
func handleMask(w http.ResponseWriter, r *http.Request) {
	kind, ok := mask.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown mask"})
		return
	}
	masked := mask.Apply(kind, r.URL.Query().Get("value"))
	writeJSON(w, http.StatusOK, maskResponse{Kind: kind, Value: masked, Digits: mask.Strip(kind, masked)})
}

// healthReport is the answer of /healthz.
type healthReport struct {
	Status         string         `json:"status"`
	SessionBackend string         `json:"session_backend"`
	SessionError   string         `json:"session_error,omitempty"`
	Outbox         map[string]int `json:"outbox,omitempty"`
	OutboxError    string         `json:"outbox_error,omitempty"`
}

// handleHealth reports whether the session backend answers, plus outbox backlog.
// An outbox failure degrades the report without failing it.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	report := healthReport{Status: "ok", SessionBackend: s.deps.SessionBackend}
	status := http.StatusOK
	if err := s.deps.Sessions.Ping(ctx); err != nil {
		report.Status = "unavailable"
		report.SessionError = err.Error()
		status = http.StatusServiceUnavailable
	}
	if s.deps.Outbox != nil {
		counts, err := s.deps.Outbox.CountByStatus(ctx)
		if err != nil {
			report.OutboxError = err.Error()
			if status == http.StatusOK {
				report.Status = "degraded"
			}
		} else {
			report.Outbox = counts
		}
	}
	writeJSON(w, status, report)
}

// handlePerf returns the timing snapshot for ?window= (default 15m).
func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	window := 15 * time.Minute
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid window"})
			return
		}
		window = d
	}
	if s.deps.Collector == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "perf collector disabled"})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Collector.Snapshot(s.deps.Now().Add(-window), 10))
}
