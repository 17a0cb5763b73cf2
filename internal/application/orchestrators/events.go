package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"eventportal/internal/domain/apierr"
	"eventportal/internal/domain/event"
	"eventportal/internal/domain/wire"
)

// Messages shown by the edit page when the event cannot be loaded.
const (
	MissingEventIDMessage = "ID do evento não fornecido."
	LoadEventPrefix       = "Erro ao carregar evento: "
)

// ErrMissingEventID is returned when the edit page has no ?id=.
var ErrMissingEventID = errors.New("event id is required")

// CreateEventInput carries input for the create orchestrator.
type CreateEventInput struct {
	Event event.Event
}

// CreateEventDeps holds dependencies for CreateEvent.
type CreateEventDeps struct {
	API EventWriter
}

// ExecuteCreateEvent creates an event in the events API.
// PRE: input.Event dates are in the ISO format of a datetime-local input
// POST: returns the created event; Name falls back to the submitted one
func ExecuteCreateEvent(ctx context.Context, input CreateEventInput, deps CreateEventDeps) (event.Event, error) {
	input.Event.ID = ""
	created, err := deps.API.CreateEvent(ctx, input.Event)
	if err != nil {
		slog.Info("event_create_rejected", "name", input.Event.Name, "error", err)
		return event.Event{}, err
	}
	if created.Name == "" {
		created.Name = input.Event.Name
	}
	slog.Info("event_created", "event_id", created.ID.String(), "type", created.Type)
	return created, nil
}

// LoadEventInput carries input for the load orchestrator.
type LoadEventInput struct {
	ID string
}

// LoadEventDeps holds dependencies for LoadEvent.
type LoadEventDeps struct {
	API EventReader
}

// ExecuteLoadEvent fetches the event being edited.
// PRE: none
// POST: returns ErrMissingEventID for a blank id, otherwise the API result
func ExecuteLoadEvent(ctx context.Context, input LoadEventInput, deps LoadEventDeps) (event.Event, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return event.Event{}, ErrMissingEventID
	}
	e, err := deps.API.GetEvent(ctx, id)
	if err != nil {
		slog.Info("event_load_failed", "event_id", id, "error", err)
		return event.Event{}, err
	}
	if e.ID.IsZero() {
		e.ID = wire.ID(id)
	}
	return e, nil
}

// LoadEventMessage is the page message for a failed ExecuteLoadEvent.
// Any failure other than a missing id reads the server message, else the not-found text.
func LoadEventMessage(err error) string {
	if errors.Is(err, ErrMissingEventID) {
		return MissingEventIDMessage
	}
	if re, ok := apierr.AsResponse(err); ok && re.Message != "" {
		return LoadEventPrefix + re.Message
	}
	return LoadEventPrefix + event.NotFoundMessage
}

// UpdateEventInput carries input for the update orchestrator.
type UpdateEventInput struct {
	ID    string
	Event event.Event
}

// UpdateEventDeps holds dependencies for UpdateEvent.
type UpdateEventDeps struct {
	API EventWriter
}

// ExecuteUpdateEvent replaces the event with the submitted fields.
// PRE: input.ID identifies the event loaded by ExecuteLoadEvent
// POST: returns the updated event; ID and Name fall back to the submitted ones
func ExecuteUpdateEvent(ctx context.Context, input UpdateEventInput, deps UpdateEventDeps) (event.Event, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return event.Event{}, ErrMissingEventID
	}
	input.Event.ID = ""
	updated, err := deps.API.UpdateEvent(ctx, id, input.Event)
	if err != nil {
		slog.Info("event_update_rejected", "event_id", id, "error", err)
		return event.Event{}, err
	}
	if updated.ID.IsZero() {
		updated.ID = wire.ID(id)
	}
	if updated.Name == "" {
		updated.Name = input.Event.Name
	}
	slog.Info("event_updated", "event_id", id)
	return updated, nil
}
