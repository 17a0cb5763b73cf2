// Package session models the login state of a portal visitor.
//
// The events API issues the token and owns its signing key, so claims are read
// without verification and only used for display and expiry. The token itself
// is forwarded to the API, which is the authority on its validity.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL applies to tokens that carry no expiry of their own.
const DefaultTTL = 24 * time.Hour

var (
	ErrEmptyToken   = errors.New("session: empty token")
	ErrTokenExpired = errors.New("session: token already expired")
)

// Session is the server side record behind the session cookie.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Subject   string    `json:"subject,omitempty"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	LoggedIn  bool      `json:"logged_in"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims is the subset of token claims the portal displays.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"nome,omitempty"`
	jwt.RegisteredClaims
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Active reports whether s is a logged in, unexpired session.
func (s Session) Active(now time.Time) bool {
	return s.LoggedIn && s.Token != "" && !s.Expired(now)
}

// DisplayName is the best available label for the logged in user.
func (s Session) DisplayName() string {
	switch {
	case s.Name != "":
		return s.Name
	case s.Email != "":
		return s.Email
	}
	return s.Subject
}

// Login returns the logged in successor of s for token.
// A fresh ID is always issued so a pre-login cookie is never promoted.
// PRE: token is the credential returned by the events API
// POST: LoggedIn, Token set; ExpiresAt from the token's exp claim or now+DefaultTTL
func Login(s Session, token string, now time.Time) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return s, ErrEmptyToken
	}
	next := Session{
		ID:        uuid.NewString(),
		Token:     token,
		LoggedIn:  true,
		CreatedAt: now,
		ExpiresAt: now.Add(DefaultTTL),
	}
	if claims, ok := readClaims(token); ok {
		next.Subject = claims.Subject
		next.Email = claims.Email
		next.Name = claims.Name
		if claims.ExpiresAt != nil {
			exp := claims.ExpiresAt.Time
			if !now.Before(exp) {
				return s, ErrTokenExpired
			}
			next.ExpiresAt = exp
		}
	}
	return next, nil
}

// Logout returns the anonymous successor of s.
// POST: no token is retained
func Logout(s Session) Session {
	return Session{}
}

// readClaims decodes a JWT payload without verifying its signature.
// Opaque tokens report ok=false.
func readClaims(token string) (*Claims, bool) {
	if strings.Count(token, ".") != 2 {
		return nil, false
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, false
	}
	return claims, true
}

type contextKey struct{}

// WithContext returns a context carrying s.
func WithContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext extracts the session placed by WithContext.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}

// TokenFromContext returns the bearer token of an active session in ctx, or "".
func TokenFromContext(ctx context.Context, now time.Time) string {
	s, ok := FromContext(ctx)
	if !ok || !s.Active(now) {
		return ""
	}
	return s.Token
}
