package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"eventportal/internal/adapters/metrics"
	sessionStore "eventportal/internal/adapters/storage/session"
	"eventportal/internal/domain/session"
)

// SessionCookieName carries the server side session ID. The API token never reaches the browser.
const SessionCookieName = "portal_session"

// SessionLoader is the part of the session store the Auth middleware needs.
type SessionLoader interface {
	Get(ctx context.Context, id string) (session.Session, error)
}

// Auth returns middleware that loads the session named by the cookie into the request context.
// It does NOT block anonymous requests; use RequireAuth for that.
// A stored session past its expiry is counted as an "expired" session event.
// A nil now uses time.Now; m may be nil.
func Auth(store SessionLoader, now func() time.Time, m *metrics.Metrics) func(http.Handler) http.Handler {
	if now == nil {
		now = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				next.ServeHTTP(w, r)
				return
			}
			s, err := store.Get(r.Context(), cookie.Value)
			at := now()
			switch {
			case errors.Is(err, sessionStore.ErrNotFound):
			case err != nil:
				slog.Warn("session_load_failed", "error", err)
			case s.Expired(at):
				m.IncrementSession("expired")
			case s.Active(at):
				r = r.WithContext(session.WithContext(r.Context(), s))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth returns middleware that sends anonymous visitors to the login page.
// JSON clients get 401 instead of a redirect.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s, ok := session.FromContext(r.Context()); ok && s.LoggedIn {
			next.ServeHTTP(w, r)
			return
		}
		if WantsJSON(r) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}

// WantsJSON reports whether the client asked for a JSON response.
func WantsJSON(r *http.Request) bool {
	return hasMediaType(r.Header.Get("Accept"), "application/json")
}

// SetSessionCookie points the browser at s until it expires, measured from now.
func SetSessionCookie(w http.ResponseWriter, s session.Session, now time.Time, secure bool) {
	maxAge := int(s.ExpiresAt.Sub(now).Seconds())
	if maxAge <= 0 {
		maxAge = int(session.DefaultTTL.Seconds())
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.ID,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   maxAge,
	})
}

// ClearSessionCookie removes the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
