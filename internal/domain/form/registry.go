package form

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed definitions.yaml
var builtinYAML []byte

// Names of the built-in page forms.
const (
	Register    = "register"
	Login       = "login"
	EventCreate = "event_create"
	EventEdit   = "event_edit"
	Enroll      = "enroll"
)

type document struct {
	Forms []*Definition `yaml:"forms"`
}

// Decode reads form definitions from YAML.
// PRE: r yields a document with a top-level "forms" list
// POST: every returned definition is compiled; names are unique
func Decode(r io.Reader) (map[string]*Definition, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode form definitions: %w", err)
	}
	out := make(map[string]*Definition, len(doc.Forms))
	for _, def := range doc.Forms {
		// Aliased field lists share a backing array; give each form its own.
		def.Fields = append([]Field(nil), def.Fields...)
		if err := def.compile(); err != nil {
			return nil, err
		}
		if _, dup := out[def.Name]; dup {
			return nil, fmt.Errorf("form %q defined twice", def.Name)
		}
		out[def.Name] = def
	}
	return out, nil
}

var builtin = sync.OnceValues(func() (map[string]*Definition, error) {
	return Decode(bytes.NewReader(builtinYAML))
})

// Lookup returns the built-in definition with the given name.
func Lookup(name string) (*Definition, error) {
	defs, err := builtin()
	if err != nil {
		return nil, err
	}
	def, ok := defs[name]
	if !ok {
		return nil, fmt.Errorf("form %q: not defined", name)
	}
	return def, nil
}

// MustLookup is Lookup for package initialisation; it panics on a missing definition.
func MustLookup(name string) *Definition {
	def, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return def
}
