package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"eventportal/internal/application/orchestrators"
	domainOutbox "eventportal/internal/domain/outbox"
)

// OutboxAdmin lets operators inspect and unblock queued welcome mails.
type OutboxAdmin interface {
	List(ctx context.Context, status string, limit int) ([]domainOutbox.Entry, error)
	ProcessSingle(ctx context.Context, entryID string) (domainOutbox.Entry, error)
	AbandonEntry(ctx context.Context, entryID string) (domainOutbox.Entry, error)
}

var _ OutboxAdmin = (*orchestrators.OutboxProcessor)(nil)

const defaultOutboxLimit = 50

// outboxEntry is the JSON view of an entry. The payload holds addresses and is left out.
type outboxEntry struct {
	ID              string `json:"id"`
	ActionType      string `json:"action_type"`
	Status          string `json:"status"`
	Attempts        int    `json:"attempts"`
	MaxAttempts     int    `json:"max_attempts"`
	LastAttemptedAt string `json:"last_attempted_at,omitempty"`
	CreatedAt       string `json:"created_at"`
	ExternalID      string `json:"external_id,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

func newOutboxEntry(e domainOutbox.Entry) outboxEntry {
	out := outboxEntry{
		ID:           e.ID,
		ActionType:   e.ActionType,
		Status:       e.Status,
		Attempts:     e.Attempts,
		MaxAttempts:  e.MaxAttempts,
		CreatedAt:    e.CreatedAt.UTC().Format(timeLayoutJSON),
		ExternalID:   e.ExternalID,
		ErrorMessage: e.ErrorMessage,
	}
	if !e.LastAttemptedAt.IsZero() {
		out.LastAttemptedAt = e.LastAttemptedAt.UTC().Format(timeLayoutJSON)
	}
	return out
}

const timeLayoutJSON = "2006-01-02T15:04:05Z07:00"

// handleOutboxList serves GET /debug/outbox?status=failed|pending&limit=N.
func (s *Server) handleOutboxList(w http.ResponseWriter, r *http.Request) {
	if s.deps.OutboxAdmin == nil {
		http.Error(w, "outbox not configured", http.StatusServiceUnavailable)
		return
	}
	limit := defaultOutboxLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	status := r.URL.Query().Get("status")
	if status == "" {
		status = domainOutbox.StatusFailed
	}

	entries, err := s.deps.OutboxAdmin.List(r.Context(), status, limit)
	if errors.Is(err, orchestrators.ErrOutboxStatus) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		internalError(w, err)
		return
	}
	out := make([]outboxEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, newOutboxEntry(e))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleOutboxAction serves POST /debug/outbox/{id}/retry and /debug/outbox/{id}/abandon.
func (s *Server) handleOutboxAction(w http.ResponseWriter, r *http.Request) {
	if s.deps.OutboxAdmin == nil {
		http.Error(w, "outbox not configured", http.StatusServiceUnavailable)
		return
	}
	id := chi.URLParam(r, "id")

	var (
		entry domainOutbox.Entry
		err   error
	)
	switch action := chi.URLParam(r, "action"); action {
	case "retry":
		entry, err = s.deps.OutboxAdmin.ProcessSingle(r.Context(), id)
	case "abandon":
		entry, err = s.deps.OutboxAdmin.AbandonEntry(r.Context(), id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown action"})
		return
	}

	switch {
	case errors.Is(err, orchestrators.ErrOutboxEntryNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, orchestrators.ErrOutboxEntryClosed):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case err != nil:
		internalError(w, err)
	default:
		slog.Info("outbox_operator_action", "entry_id", id, "path", r.URL.Path, "status", entry.Status)
		writeJSON(w, http.StatusOK, newOutboxEntry(entry))
	}
}
