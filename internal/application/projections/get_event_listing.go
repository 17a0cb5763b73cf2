package projections

import (
	"bytes"
	"context"
	"html/template"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"eventportal/internal/domain/datefmt"
	"eventportal/internal/domain/event"
)

// Messages shown by the listing page.
const (
	ListingFailedMessage = "Erro ao carregar eventos. Verifique a conexão com o servidor."
	ListingEmptyMessage  = "Nenhum evento agendado no momento."
)

// EventListingStore defines the API interface needed by this projection.
type EventListingStore interface {
	ListEvents(ctx context.Context) ([]event.Event, error)
}

// EventListingDeps holds dependencies for the projection.
type EventListingDeps struct {
	API EventListingStore
	// Location renders schedules; nil means time.Local.
	Location *time.Location
}

// EventCard is one event as shown on the listing page.
type EventCard struct {
	Event       event.Event
	TypeLabel   string
	Schedule    datefmt.Schedule
	Description template.HTML
}

// EventListing is the listing page model.
type EventListing struct {
	Featured *EventCard
	Upcoming []EventCard
}

// Empty reports whether there is nothing to show.
func (l EventListing) Empty() bool {
	return l.Featured == nil
}

// mdRenderer is a goldmark instance with hard wraps; raw HTML in input is escaped.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// mdPolicy strips anything beyond user-generated-content markup from rendered descriptions.
var mdPolicy = bluemonday.UGCPolicy()

// RenderMarkdown converts an event description to sanitised HTML.
// Rendering failures fall back to the escaped source.
func RenderMarkdown(src string) template.HTML {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(mdPolicy.SanitizeBytes(buf.Bytes()))
}

// QueryEventListing loads events and splits them into the featured card and the upcoming cards.
// PRE: none
// POST: the first event in API order is featured, the rest are upcoming in API order
func QueryEventListing(ctx context.Context, deps EventListingDeps) (EventListing, error) {
	events, err := deps.API.ListEvents(ctx)
	if err != nil {
		return EventListing{}, err
	}
	loc := deps.Location
	if loc == nil {
		loc = time.Local
	}

	var listing EventListing
	for i, e := range events {
		card := EventCard{
			Event:       e,
			TypeLabel:   event.TypeLabel(e.Type),
			Schedule:    e.Schedule(loc),
			Description: RenderMarkdown(e.Description),
		}
		if i == 0 {
			listing.Featured = &card
			continue
		}
		listing.Upcoming = append(listing.Upcoming, card)
	}
	return listing, nil
}
