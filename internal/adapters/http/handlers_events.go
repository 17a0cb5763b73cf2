package web

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"eventportal/internal/adapters/http/middleware"
	"eventportal/internal/application/orchestrators"
	"eventportal/internal/application/projections"
	"eventportal/internal/domain/event"
	"eventportal/internal/domain/form"
)

// listingPage is the model of the home page.
type listingPage struct {
	Listing projections.EventListing
	Message string
	Failed  bool
}

// handleListing renders the featured and upcoming events.
func (s *Server) handleListing(w http.ResponseWriter, r *http.Request) {
	listing, err := projections.QueryEventListing(r.Context(), projections.EventListingDeps{
		API:      s.deps.API,
		Location: s.deps.Location,
	})
	page := listingPage{Listing: listing}
	switch {
	case err != nil:
		page.Failed = true
		page.Message = projections.ListingFailedMessage
	case listing.Empty():
		page.Message = projections.ListingEmptyMessage
	}

	if middleware.WantsJSON(r) {
		status := http.StatusOK
		if page.Failed {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, listingJSON(page))
		return
	}
	s.render(w, r, http.StatusOK, "index.html", pageData{Title: "Eventos", Data: page})
}

type listingCard struct {
	event.Event
	TypeLabel string `json:"tipoLabel"`
	Schedule  string `json:"horario"`
}

func listingJSON(p listingPage) map[string]any {
	out := map[string]any{"message": p.Message}
	if f := p.Listing.Featured; f != nil {
		out["featured"] = listingCard{Event: f.Event, TypeLabel: f.TypeLabel, Schedule: f.Schedule.Full}
	}
	upcoming := make([]listingCard, 0, len(p.Listing.Upcoming))
	for _, c := range p.Listing.Upcoming {
		upcoming = append(upcoming, listingCard{Event: c.Event, TypeLabel: c.TypeLabel, Schedule: c.Schedule.Full})
	}
	out["upcoming"] = upcoming
	return out
}

// eventDefinition attaches the event type choices to the named event form.
func eventDefinition(name string) (*form.Definition, error) {
	return form.MustLookup(name).WithOptions("tipo", event.Types)
}

// handleCreateEvent handles GET (empty form) and POST (create) for /evento/create.
// The form is cleared after a successful create so the next event can be typed.
func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	def, err := eventDefinition(form.EventCreate)
	if err != nil {
		internalError(w, err)
		return
	}
	ctrl := form.New(def)
	defer ctrl.Close()

	if r.Method == http.MethodPost {
		if err := bindForm(w, r, ctrl); err != nil {
			badRequest(w, r, err)
			return
		}
		outcome := ctrl.Submit(r.Context(), func(ctx context.Context, p map[string]string) (form.Reply, error) {
			created, err := orchestrators.ExecuteCreateEvent(ctx, orchestrators.CreateEventInput{Event: event.FromPayload(p)},
				orchestrators.CreateEventDeps{API: s.deps.API})
			if err != nil {
				return nil, err
			}
			return created.Reply(), nil
		})
		s.deps.Metrics.IncrementSubmission(form.EventCreate, string(outcome))
	}
	s.respondForm(w, r, "event_form.html", ctrl, newFormView(ctrl, "/evento/create"), nil)
}

// handleEditEvent handles GET (load and prefill) and POST (update) for /editar/evento?id=.
func (s *Server) handleEditEvent(w http.ResponseWriter, r *http.Request) {
	def, err := eventDefinition(form.EventEdit)
	if err != nil {
		internalError(w, err)
		return
	}
	ctrl := form.New(def)
	defer ctrl.Close()

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	view := func() *formView {
		v := newFormView(ctrl, "/editar/evento?id="+url.QueryEscape(id))
		v.Locked = id == ""
		if v.Locked {
			v.JSONStatus = http.StatusBadRequest
		}
		return v
	}

	if id == "" {
		ctrl.Fail(orchestrators.MissingEventIDMessage)
		s.respondForm(w, r, "event_form.html", ctrl, view(), nil)
		return
	}

	if r.Method != http.MethodPost {
		loaded, err := orchestrators.ExecuteLoadEvent(r.Context(), orchestrators.LoadEventInput{ID: id},
			orchestrators.LoadEventDeps{API: s.deps.API})
		if err != nil {
			ctrl.Fail(orchestrators.LoadEventMessage(err))
		} else {
			ctrl.Prefill(loaded.Fields())
		}
		s.respondForm(w, r, "event_form.html", ctrl, view(), nil)
		return
	}

	if err := bindForm(w, r, ctrl); err != nil {
		badRequest(w, r, err)
		return
	}
	outcome := ctrl.Submit(r.Context(), func(ctx context.Context, p map[string]string) (form.Reply, error) {
		updated, err := orchestrators.ExecuteUpdateEvent(ctx, orchestrators.UpdateEventInput{ID: id, Event: event.FromPayload(p)},
			orchestrators.UpdateEventDeps{API: s.deps.API})
		if err != nil {
			return nil, err
		}
		return updated.Reply(), nil
	})
	s.deps.Metrics.IncrementSubmission(form.EventEdit, string(outcome))
	s.respondForm(w, r, "event_form.html", ctrl, view(), nil)
}
