package form

import (
	"strings"

	"eventportal/internal/domain/apierr"
)

// Errors maps a field name to the single message shown under it.
type Errors map[string]string

// FromPayload keeps the first non-blank message reported for each field.
// Fields with no usable message are omitted.
func FromPayload(p apierr.FieldMessages) Errors {
	out := make(Errors, len(p))
	for field, msgs := range p {
		for _, m := range msgs {
			if strings.TrimSpace(m) != "" {
				out[field] = m
				break
			}
		}
	}
	return out
}

// Has reports whether field has a message.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Get returns the message for field, or "".
func (e Errors) Get(field string) string {
	return e[field]
}

// Clear removes the message for field only.
func (e Errors) Clear(field string) {
	delete(e, field)
}

// Clone returns an independent copy.
func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}
