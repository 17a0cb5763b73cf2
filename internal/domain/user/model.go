package user

import (
	"eventportal/internal/domain/form"
	"eventportal/internal/domain/wire"
)

// User type constants, as the events API names them.
const (
	TypeClient    = "CLIENTE"
	TypeAdmin     = "ADMINISTRADOR"
	TypeOrganizer = "ORGANIZADOR"
)

// Types lists the selectable user types in display order.
var Types = []form.Option{
	{Value: TypeClient, Label: "Cliente"},
	{Value: TypeAdmin, Label: "Administrador"},
	{Value: TypeOrganizer, Label: "Organizador de Eventos"},
}

// User is the user DTO of the events API.
// Password is only ever sent, never read back.
type User struct {
	ID         wire.ID `json:"id,omitempty"`
	Name       string  `json:"nome"`
	Email      string  `json:"email"`
	Password   string  `json:"senha,omitempty"`
	NationalID string  `json:"cpf"`
	Phone      string  `json:"telefone"`
	Type       string  `json:"tipo"`
	BirthDate  string  `json:"dataNascimento"`
}

// FromPayload builds the DTO from a registration form payload.
// PRE: payload values are already unmasked and in wire date format
func FromPayload(p map[string]string) User {
	return User{
		Name:       p["nome"],
		Email:      p["email"],
		Password:   p["senha"],
		NationalID: p["cpf"],
		Phone:      p["telefone"],
		Type:       p["tipo"],
		BirthDate:  p["dataNascimento"],
	}
}

// Reply exposes the fields used in confirmation messages.
func (u User) Reply() form.Reply {
	return form.Reply{"id": u.ID.String(), "nome": u.Name, "email": u.Email}
}

// ValidType reports whether t is one of Types.
func ValidType(t string) bool {
	for _, o := range Types {
		if o.Value == t {
			return true
		}
	}
	return false
}

// Options renders users as select options keyed by ID.
func Options(users []User) []form.Option {
	out := make([]form.Option, 0, len(users))
	for _, u := range users {
		out = append(out, form.Option{Value: u.ID.String(), Label: u.Name})
	}
	return out
}
