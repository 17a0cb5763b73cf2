package form

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"eventportal/internal/domain/apierr"
	"eventportal/internal/domain/datefmt"
	"eventportal/internal/domain/mask"
)

// Status is the submission state of a form.
type Status int

const (
	Idle Status = iota
	Submitting
	Succeeded
	Failed
)

func (s Status) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "idle"
}

// Outcome classifies how a submission ended.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeValidation Outcome = "validation"
	OutcomeAuth       Outcome = "auth"
	OutcomeServer     Outcome = "server"
	OutcomeTransport  Outcome = "transport"
	OutcomeBusy       Outcome = "busy"
)

// Reply is the part of an API response a form needs for its success message.
type Reply map[string]string

// SubmitFunc performs the remote call for a wire payload.
type SubmitFunc func(ctx context.Context, payload map[string]string) (Reply, error)

// Controller is the live state of one form.
// INVARIANT: errors only ever holds fields reported by the last failed submission
// that have not been edited since.
type Controller struct {
	def *Definition

	mu       sync.Mutex
	values   map[string]string
	errors   Errors
	status   Status
	message  string
	outcome  Outcome
	redirect *Redirect
	timer    *time.Timer
	closed   bool
}

// New returns a controller holding the definition defaults.
// POST: status is Idle, no errors, no message
func New(def *Definition) *Controller {
	c := &Controller{def: def, errors: Errors{}}
	c.values = c.defaults()
	return c
}

func (c *Controller) defaults() map[string]string {
	values := make(map[string]string, len(c.def.Fields))
	for _, f := range c.def.Fields {
		values[f.Name] = f.Default
	}
	return values
}

// Definition returns the configuration the controller was built from.
func (c *Controller) Definition() *Definition {
	return c.def
}

// Change stores a user edit, applying the field's mask.
// POST: the field's error and the global message are cleared; status returns to Idle
func (c *Controller) Change(field, value string) error {
	f, ok := c.def.Field(field)
	if !ok {
		return ErrUnknownField
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[field] = mask.Apply(f.Mask, value)
	c.errors.Clear(field)
	c.message = ""
	if c.status != Submitting {
		c.status = Idle
		c.outcome = ""
	}
	return nil
}

// Prefill loads values as returned by the API into the editable form.
// Unknown keys are ignored. Errors and status are untouched.
func (c *Controller) Prefill(wire map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.def.Fields {
		v, ok := wire[f.Name]
		if !ok {
			continue
		}
		switch f.Date {
		case DateWire:
			v = datefmt.FromWireDate(v)
		case DateEditable:
			v = datefmt.ToEditableDateTime(v)
		}
		if v == "" && f.Default != "" {
			v = f.Default
		}
		c.values[f.Name] = mask.Apply(f.Mask, v)
	}
}

// Value returns the current display value of field.
func (c *Controller) Value(field string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[field]
}

// Values returns a copy of the display values.
func (c *Controller) Values() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Errors returns a copy of the field errors.
func (c *Controller) Errors() Errors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errors.Clone()
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Outcome is the classification of the last finished submission.
func (c *Controller) Outcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Message is the global error or success text.
func (c *Controller) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.message
}

// Redirect is the pending navigation after success, or nil.
func (c *Controller) Redirect() *Redirect {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.redirect == nil {
		return nil
	}
	r := *c.redirect
	return &r
}

// SubmitEnabled is false while a submission is in flight.
func (c *Controller) SubmitEnabled() bool {
	return c.Status() != Submitting
}

// Fail puts the form in the Failed state with a message that did not come from a submission,
// such as a prefill error or a missing selection.
func (c *Controller) Fail(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = Failed
	c.outcome = OutcomeServer
	c.message = message
}

// Payload converts the display values into the wire DTO.
// Masks are stripped and wire-date fields are reformatted.
func (c *Controller) Payload() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.payloadLocked()
}

func (c *Controller) payloadLocked() map[string]string {
	out := make(map[string]string, len(c.def.Fields))
	for _, f := range c.def.Fields {
		v := mask.Strip(f.Mask, c.values[f.Name])
		if f.Date == DateWire {
			v = datefmt.ToWireDate(v)
		}
		out[f.Name] = v
	}
	return out
}

// Submit runs fn with the wire payload and records the classified result.
// A second Submit while one is in flight returns OutcomeBusy without calling fn.
// PRE: fn is non-nil
// POST: status is Succeeded or Failed; submit is enabled again
func (c *Controller) Submit(ctx context.Context, fn SubmitFunc) Outcome {
	c.mu.Lock()
	if c.status == Submitting {
		c.mu.Unlock()
		return OutcomeBusy
	}
	c.status = Submitting
	c.errors = Errors{}
	c.message = ""
	c.outcome = ""
	c.redirect = nil
	payload := c.payloadLocked()
	c.mu.Unlock()

	reply, err := fn(ctx, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		data := make(map[string]string, len(c.values)+len(reply))
		for k, v := range c.values {
			data[k] = v
		}
		for k, v := range reply {
			if v != "" {
				data[k] = v
			}
		}
		c.status = Succeeded
		c.outcome = OutcomeSuccess
		c.message = c.def.successMessage(data)
		if c.def.Redirect != nil {
			r := *c.def.Redirect
			c.redirect = &r
		}
		if c.def.ResetOnSuccess {
			c.values = c.defaults()
		}
		return c.outcome
	}

	outcome, fieldErrs, msg := Classify(err, c.def.Messages)
	c.status = Failed
	c.outcome = outcome
	c.errors = fieldErrs
	c.message = msg
	return outcome
}

// Classify maps a submission error onto an outcome, field errors and a global message.
func Classify(err error, m Messages) (Outcome, Errors, string) {
	if re, ok := apierr.AsResponse(err); ok {
		switch {
		case re.Status == http.StatusBadRequest && re.HasFieldErrors():
			return OutcomeValidation, FromPayload(re.Errors), m.Validation
		case (re.Status == http.StatusUnauthorized || re.Status == http.StatusForbidden) && m.Auth != "":
			return OutcomeAuth, Errors{}, m.Auth
		default:
			return OutcomeServer, Errors{}, m.ServerPrefix + re.Detail()
		}
	}
	if apierr.IsTransport(err) || errors.Is(err, context.DeadlineExceeded) {
		return OutcomeTransport, Errors{}, m.Transport
	}
	unexpected := m.Unexpected
	if unexpected == "" {
		unexpected = defaultUnexpected
	}
	return OutcomeServer, Errors{}, m.ServerPrefix + unexpected
}

// ScheduleRedirect arms a one-shot timer that calls navigate with the pending
// redirect target. It reports false when there is nothing to schedule or the
// controller is closed. Re-arming replaces the previous timer.
func (c *Controller) ScheduleRedirect(navigate func(to string)) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.redirect == nil {
		return false
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	to := c.redirect.To
	c.timer = time.AfterFunc(c.redirect.After, func() {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			navigate(to)
		}
	})
	return true
}

// Close cancels any scheduled redirect. The controller must not be reused for navigation afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
