package enrollment

import (
	"errors"

	"eventportal/internal/domain/event"
	"eventportal/internal/domain/form"
	"eventportal/internal/domain/user"
	"eventportal/internal/domain/wire"
)

// Messages specific to the enrollment page.
const (
	EmptyListsMessage  = "Não há usuários ou eventos disponíveis na API."
	LoadFailedMessage  = "ERRO (Conexão): Falha ao conectar ao servidor de eventos. Verifique se o backend está rodando."
	NoSelectionMessage = "Selecione um Evento e um Usuário válidos."
)

// ErrNoSelection is returned when the chosen user or event is not among the loaded options.
var ErrNoSelection = errors.New("enrollment: user and event must be selected")

// Request is the enrollment DTO sent to the events API.
type Request struct {
	Event wire.ID `json:"evento"`
	User  wire.ID `json:"usuario"`
}

// Enrollment is the API answer to a created enrollment.
type Enrollment struct {
	ID wire.ID `json:"id"`
}

// Options are the prerequisite lists of the enrollment form.
type Options struct {
	Users  []user.User
	Events []event.Event
}

// Empty reports whether either list is empty.
// INVARIANT: Empty() == !Ready()
func (o Options) Empty() bool {
	return len(o.Users) == 0 || len(o.Events) == 0
}

// Ready reports whether the form can be submitted.
func (o Options) Ready() bool {
	return !o.Empty()
}

// FindUser returns the loaded user with the given ID.
func (o Options) FindUser(id string) (user.User, bool) {
	for _, u := range o.Users {
		if id != "" && u.ID.String() == id {
			return u, true
		}
	}
	return user.User{}, false
}

// FindEvent returns the loaded event with the given ID.
func (o Options) FindEvent(id string) (event.Event, bool) {
	for _, e := range o.Events {
		if id != "" && e.ID.String() == id {
			return e, true
		}
	}
	return event.Event{}, false
}

// Select resolves a form payload into a request against the loaded lists.
// PRE: payload carries "evento" and "usuario" IDs
// POST: returns ErrNoSelection unless both IDs match a loaded entry
func (o Options) Select(p map[string]string) (Request, user.User, event.Event, error) {
	u, okUser := o.FindUser(p["usuario"])
	e, okEvent := o.FindEvent(p["evento"])
	if !okUser || !okEvent {
		return Request{}, user.User{}, event.Event{}, ErrNoSelection
	}
	return Request{Event: e.ID, User: u.ID}, u, e, nil
}

// Bind attaches the loaded lists to the enrollment form definition.
// The first entry of each list is preselected.
func (o Options) Bind(def *form.Definition) (*form.Definition, error) {
	def, err := def.WithOptions("evento", event.Options(o.Events))
	if err != nil {
		return nil, err
	}
	return def.WithOptions("usuario", user.Options(o.Users))
}
