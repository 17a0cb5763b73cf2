package event

import (
	"time"

	"eventportal/internal/domain/datefmt"
	"eventportal/internal/domain/form"
	"eventportal/internal/domain/wire"
)

// Max length constants enforced by the events API.
const (
	MaxNameLength        = 150
	MaxLocationLength    = 150
	MaxDescriptionLength = 500
)

// NotFoundMessage is shown when an event cannot be loaded and the API gave no reason.
const NotFoundMessage = "Evento não encontrado."

// Types lists the selectable event types. Values are sent verbatim to the API.
var Types = []form.Option{
	{Value: "CONGRESSO", Label: "CONGRESSO"},
	{Value: "TREINAMENTO", Label: "TREINAMENTO"},
	{Value: "WORKSHOP", Label: "WORKSHOP"},
	{Value: "IMERSÃO", Label: "IMERSAO"},
	{Value: "REUNIÃO", Label: "REUNIAO"},
	{Value: "HACKATON", Label: "HACKATON"},
	{Value: "STARTUP", Label: "STARTUP"},
}

// Event is the event DTO of the events API.
type Event struct {
	ID          wire.ID `json:"id,omitempty"`
	Name        string  `json:"nome"`
	Description string  `json:"descricao"`
	Type        string  `json:"tipo"`
	Location    string  `json:"local"`
	Start       string  `json:"dataInicio"`
	End         string  `json:"dataFinal"`
	Link        string  `json:"linkEvento,omitempty"`
	Image       string  `json:"linkImagem,omitempty"`
}

// FromPayload builds the DTO from an event form payload.
func FromPayload(p map[string]string) Event {
	return Event{
		Name:        p["nome"],
		Description: p["descricao"],
		Type:        p["tipo"],
		Location:    p["local"],
		Start:       p["dataInicio"],
		End:         p["dataFinal"],
		Link:        p["linkEvento"],
		Image:       p["linkImagem"],
	}
}

// Fields is the inverse of FromPayload, used to prefill the edit form.
func (e Event) Fields() map[string]string {
	return map[string]string{
		"nome":       e.Name,
		"descricao":  e.Description,
		"tipo":       e.Type,
		"local":      e.Location,
		"dataInicio": e.Start,
		"dataFinal":  e.End,
		"linkEvento": e.Link,
		"linkImagem": e.Image,
	}
}

// Reply exposes the fields used in confirmation messages.
func (e Event) Reply() form.Reply {
	return form.Reply{"id": e.ID.String(), "nome": e.Name}
}

// Schedule formats the event span for listing cards.
func (e Event) Schedule(loc *time.Location) datefmt.Schedule {
	return datefmt.FormatSchedule(e.Start, e.End, loc)
}

// TypeLabel returns the display label for a type value, or the value itself.
func TypeLabel(value string) string {
	for _, o := range Types {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}

// Options renders events as select options keyed by ID.
func Options(events []Event) []form.Option {
	out := make([]form.Option, 0, len(events))
	for _, e := range events {
		out = append(out, form.Option{Value: e.ID.String(), Label: e.Name})
	}
	return out
}
