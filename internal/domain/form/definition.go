// Package form is the generic form state machine shared by every page of the
// portal. A Definition describes the fields of one page (wire name, label,
// input type, mask, date conversion) and the messages shown for each
// submission outcome. A Controller holds the live values, the validation
// errors and the submission status for one rendering of that page.
package form

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"eventportal/internal/domain/mask"
)

// Input types understood by the page templates.
const (
	InputText          = "text"
	InputEmail         = "email"
	InputPassword      = "password"
	InputTel           = "tel"
	InputURL           = "url"
	InputDate          = "date"
	InputDateTimeLocal = "datetime-local"
	InputSelect        = "select"
	InputTextarea      = "textarea"
)

// DateConversion names how a field moves between the input control and the wire.
type DateConversion string

const (
	// DateNone sends the value as typed.
	DateNone DateConversion = ""
	// DateWire converts YYYY-MM-DD to DD/MM/YYYY on submit and back on prefill.
	DateWire DateConversion = "wire"
	// DateEditable trims wire timestamps to YYYY-MM-DDTHH:mm on prefill.
	DateEditable DateConversion = "editable"
)

var (
	ErrEmptyName      = errors.New("definition name is required")
	ErrNoFields       = errors.New("definition has no fields")
	ErrDuplicateField = errors.New("duplicate field name")
	ErrUnknownField   = errors.New("unknown field")
	ErrUnknownMask    = errors.New("unknown mask kind")
	ErrUnknownDate    = errors.New("unknown date conversion")
)

// Option is one choice of a select field.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Field describes one input of a form.
type Field struct {
	Name        string         `yaml:"name" json:"name"`
	Label       string         `yaml:"label" json:"label"`
	Input       string         `yaml:"input" json:"input"`
	Mask        mask.Kind      `yaml:"mask" json:"mask,omitempty"`
	Date        DateConversion `yaml:"date" json:"date,omitempty"`
	Required    bool           `yaml:"required" json:"required"`
	MaxLength   int            `yaml:"max_length" json:"maxLength,omitempty"`
	Rows        int            `yaml:"rows" json:"rows,omitempty"`
	Placeholder string         `yaml:"placeholder" json:"placeholder,omitempty"`
	Default     string         `yaml:"default" json:"default,omitempty"`
	Wide        bool           `yaml:"wide" json:"-"`
	Options     []Option       `yaml:"options" json:"options,omitempty"`
}

// Messages are the user visible texts of a form.
// Success is a text/template executed over the submitted values merged with the reply.
type Messages struct {
	Validation   string `yaml:"validation"`
	Auth         string `yaml:"auth"`
	ServerPrefix string `yaml:"server_prefix"`
	Transport    string `yaml:"transport"`
	Unexpected   string `yaml:"unexpected"`
	Success      string `yaml:"success"`
}

// Redirect is the navigation scheduled after a successful submission.
// In JSON the delay is written as whole milliseconds under afterMs.
type Redirect struct {
	To    string        `yaml:"to"`
	After time.Duration `yaml:"after"`
}

type redirectJSON struct {
	To      string `json:"to"`
	AfterMs int64  `json:"afterMs"`
}

func (r Redirect) MarshalJSON() ([]byte, error) {
	return json.Marshal(redirectJSON{To: r.To, AfterMs: r.After.Milliseconds()})
}

func (r *Redirect) UnmarshalJSON(data []byte) error {
	var v redirectJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	r.To = v.To
	r.After = time.Duration(v.AfterMs) * time.Millisecond
	return nil
}

// Definition is the immutable configuration of one form.
type Definition struct {
	Name           string    `yaml:"name"`
	Title          string    `yaml:"title"`
	Subtitle       string    `yaml:"subtitle"`
	SubmitLabel    string    `yaml:"submit_label"`
	SubmittingText string    `yaml:"submitting_label"`
	Fields         []Field   `yaml:"fields"`
	Messages       Messages  `yaml:"messages"`
	Redirect       *Redirect `yaml:"redirect"`
	ResetOnSuccess bool      `yaml:"reset_on_success"`

	index   map[string]int
	success *template.Template
}

const defaultUnexpected = "erro inesperado."

// compile validates the definition and prepares lookups.
// POST: index covers every field, success template parsed
func (d *Definition) compile() error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrEmptyName
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("%s: %w", d.Name, ErrNoFields)
	}
	d.index = make(map[string]int, len(d.Fields))
	for i, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("%s: field %d: %w", d.Name, i, ErrEmptyName)
		}
		if _, dup := d.index[f.Name]; dup {
			return fmt.Errorf("%s.%s: %w", d.Name, f.Name, ErrDuplicateField)
		}
		kind, ok := mask.ParseKind(string(f.Mask))
		if !ok {
			return fmt.Errorf("%s.%s: %w %q", d.Name, f.Name, ErrUnknownMask, f.Mask)
		}
		d.Fields[i].Mask = kind
		switch f.Date {
		case DateNone, DateWire, DateEditable:
		default:
			return fmt.Errorf("%s.%s: %w %q", d.Name, f.Name, ErrUnknownDate, f.Date)
		}
		if f.Input == "" {
			d.Fields[i].Input = InputText
		}
		d.index[f.Name] = i
	}
	if d.Messages.Unexpected == "" {
		d.Messages.Unexpected = defaultUnexpected
	}
	if d.SubmitLabel == "" {
		d.SubmitLabel = "Enviar"
	}
	tmpl, err := template.New(d.Name).Option("missingkey=zero").Parse(d.Messages.Success)
	if err != nil {
		return fmt.Errorf("%s: success message: %w", d.Name, err)
	}
	d.success = tmpl
	return nil
}

// Field returns the field with the given wire name.
func (d *Definition) Field(name string) (Field, bool) {
	i, ok := d.index[name]
	if !ok {
		return Field{}, false
	}
	return d.Fields[i], true
}

// WithOptions returns a copy of d whose field carries the given select options.
// PRE: field exists in d
func (d *Definition) WithOptions(field string, opts []Option) (*Definition, error) {
	i, ok := d.index[field]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", d.Name, field, ErrUnknownField)
	}
	cp := *d
	cp.Fields = append([]Field(nil), d.Fields...)
	cp.Fields[i].Options = append([]Option(nil), opts...)
	if cp.Fields[i].Default == "" && len(opts) > 0 {
		cp.Fields[i].Default = opts[0].Value
	}
	return &cp, nil
}

// successMessage renders the success text for the given data.
func (d *Definition) successMessage(data map[string]string) string {
	var b strings.Builder
	if err := d.success.Execute(&b, data); err != nil {
		return d.Messages.Success
	}
	return b.String()
}

// Builder assembles a Definition in code.
type Builder struct {
	def Definition
}

// NewDefinition starts a builder for a form with the given name.
func NewDefinition(name string) *Builder {
	return &Builder{def: Definition{Name: name}}
}

func (b *Builder) Title(title string) *Builder {
	b.def.Title = title
	return b
}

func (b *Builder) Field(f Field) *Builder {
	b.def.Fields = append(b.def.Fields, f)
	return b
}

func (b *Builder) Messages(m Messages) *Builder {
	b.def.Messages = m
	return b
}

func (b *Builder) Redirect(to string, after time.Duration) *Builder {
	b.def.Redirect = &Redirect{To: to, After: after}
	return b
}

func (b *Builder) ResetOnSuccess() *Builder {
	b.def.ResetOnSuccess = true
	return b
}

// Build validates and returns the definition.
func (b *Builder) Build() (*Definition, error) {
	def := b.def
	def.Fields = append([]Field(nil), b.def.Fields...)
	if err := def.compile(); err != nil {
		return nil, err
	}
	return &def, nil
}
