package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"eventportal/internal/domain/enrollment"
	"eventportal/internal/domain/event"
	"eventportal/internal/domain/user"
)

// CreateUser registers a user. POST /usuario
func (c *Client) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	var out user.User
	err := c.do(ctx, call{op: "CreateUser", method: http.MethodPost, path: "usuario", in: u, out: &out})
	return out, err
}

// ListUsers returns every user. GET /usuario
func (c *Client) ListUsers(ctx context.Context) ([]user.User, error) {
	var out []user.User
	err := c.do(ctx, call{op: "ListUsers", method: http.MethodGet, path: "usuario", out: &out})
	return out, err
}

// Credentials is the login DTO.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

// Login exchanges credentials for a token. POST /auth
// The token is read from "token", "accessToken" or "access_token", or from a bare string body.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	var raw []byte
	if err := c.do(ctx, call{op: "Login", method: http.MethodPost, path: "auth", in: creds, raw: &raw}); err != nil {
		return "", err
	}
	token := tokenFrom(raw)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

func tokenFrom(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	switch body[0] {
	case '{':
		var fields struct {
			Token       string `json:"token"`
			AccessToken string `json:"accessToken"`
			Snake       string `json:"access_token"`
		}
		if err := json.Unmarshal(body, &fields); err != nil {
			return ""
		}
		for _, t := range []string{fields.Token, fields.AccessToken, fields.Snake} {
			if t != "" {
				return t
			}
		}
		return ""
	case '"':
		var s string
		if err := json.Unmarshal(body, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(body)
}

// ListEvents returns every event. GET /evento
func (c *Client) ListEvents(ctx context.Context) ([]event.Event, error) {
	var out []event.Event
	err := c.do(ctx, call{op: "ListEvents", method: http.MethodGet, path: "evento", out: &out})
	return out, err
}

// GetEvent loads one event. GET /evento/{id}
func (c *Client) GetEvent(ctx context.Context, id string) (event.Event, error) {
	var out event.Event
	err := c.do(ctx, call{op: "GetEvent", method: http.MethodGet, path: "evento/" + url.PathEscape(id), out: &out})
	return out, err
}

// CreateEvent creates an event. POST /evento
func (c *Client) CreateEvent(ctx context.Context, e event.Event) (event.Event, error) {
	var out event.Event
	err := c.do(ctx, call{op: "CreateEvent", method: http.MethodPost, path: "evento", in: e, out: &out})
	return out, err
}

// UpdateEvent replaces an event. PUT /evento/{id}
func (c *Client) UpdateEvent(ctx context.Context, id string, e event.Event) (event.Event, error) {
	var out event.Event
	err := c.do(ctx, call{op: "UpdateEvent", method: http.MethodPut, path: "evento/" + url.PathEscape(id), in: e, out: &out})
	return out, err
}

// CreateEnrollment enrolls a user in an event. POST /inscricao
func (c *Client) CreateEnrollment(ctx context.Context, req enrollment.Request) (enrollment.Enrollment, error) {
	var out enrollment.Enrollment
	err := c.do(ctx, call{op: "CreateEnrollment", method: http.MethodPost, path: "inscricao", in: req, out: &out})
	return out, err
}
