// Package apierr defines the failure shapes returned by the events API client.
//
// A call either fails before a response arrives (ErrTransport) or receives a
// non-2xx response, which is decoded into a *ResponseError carrying the body
// {status, message, errors?}.
package apierr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// ErrTransport marks failures where no HTTP response was received.
var ErrTransport = errors.New("events api unreachable")

// FieldMessages maps a field name to its messages.
// On the wire each value may be a single string or an array of strings.
type FieldMessages map[string][]string

// UnmarshalJSON accepts {"field": "msg"} and {"field": ["msg", ...]}.
func (f *FieldMessages) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(FieldMessages, len(raw))
	for field, value := range raw {
		value = bytes.TrimSpace(value)
		if len(value) == 0 || bytes.Equal(value, []byte("null")) {
			continue
		}
		if value[0] == '[' {
			var list []string
			if err := json.Unmarshal(value, &list); err != nil {
				return fmt.Errorf("errors.%s: %w", field, err)
			}
			out[field] = list
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err != nil {
			return fmt.Errorf("errors.%s: %w", field, err)
		}
		out[field] = []string{single}
	}
	*f = out
	return nil
}

// ResponseError is a non-2xx answer from the events API.
type ResponseError struct {
	Status     int           `json:"status"`
	StatusText string        `json:"-"`
	Message    string        `json:"message"`
	Errors     FieldMessages `json:"errors,omitempty"`
}

func (e *ResponseError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("events api: %d %s", e.Status, e.Message)
	}
	return fmt.Sprintf("events api: %d %s", e.Status, e.StatusText)
}

// HasFieldErrors reports whether the body carried a structured field map.
func (e *ResponseError) HasFieldErrors() bool {
	return len(e.Errors) > 0
}

// Detail is the server message, or the status text when the body had none.
func (e *ResponseError) Detail() string {
	if e.Message != "" {
		return e.Message
	}
	if e.StatusText != "" {
		return e.StatusText
	}
	return http.StatusText(e.Status)
}

// Decode builds a ResponseError from an HTTP status line and body.
// The body is optional; a malformed body still yields an error with the HTTP status.
func Decode(httpStatus int, statusText string, body []byte) *ResponseError {
	e := &ResponseError{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, e); err != nil {
			slog.Debug("api_error_body_unparsed", "http_status", httpStatus, "error", err)
		}
	}
	// A status in the body wins; the HTTP status fills in when the body has none.
	if e.Status == 0 {
		e.Status = httpStatus
	}
	e.StatusText = statusText
	return e
}

// AsResponse unwraps err into a *ResponseError.
func AsResponse(err error) (*ResponseError, bool) {
	var re *ResponseError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// IsStatus reports whether err is a ResponseError with one of the given statuses.
func IsStatus(err error, statuses ...int) bool {
	re, ok := AsResponse(err)
	if !ok {
		return false
	}
	for _, s := range statuses {
		if re.Status == s {
			return true
		}
	}
	return false
}

// IsTransport reports whether err means no response was received.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
