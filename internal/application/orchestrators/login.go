package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"eventportal/internal/adapters/apiclient"
	"eventportal/internal/domain/session"
)

// LoginInput carries input for the login orchestrator.
type LoginInput struct {
	Email    string
	Password string
	// Current is the visitor's session before login, possibly zero.
	Current session.Session
}

// LoginDeps holds dependencies for Login.
type LoginDeps struct {
	API      Authenticator
	Sessions SessionStore
	Now      func() time.Time
}

// ExecuteLogin authenticates against the events API and opens a session.
// PRE: none; empty credentials are sent as-is so the API reports the field errors
// POST: on success a new session holding the token is persisted and the previous one removed
func ExecuteLogin(ctx context.Context, input LoginInput, deps LoginDeps) (session.Session, error) {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}

	token, err := deps.API.Login(ctx, apiclient.Credentials{Email: input.Email, Password: input.Password})
	if err != nil {
		slog.Info("auth_event", "event", "login_failed", "email", input.Email, "error", err)
		return session.Session{}, err
	}

	next, err := session.Login(input.Current, token, now())
	if err != nil {
		slog.Warn("auth_event", "event", "login_rejected_token", "email", input.Email, "error", err)
		return session.Session{}, fmt.Errorf("open session: %w", err)
	}
	if next.Email == "" {
		next.Email = input.Email
	}
	if err := deps.Sessions.Save(ctx, next); err != nil {
		return session.Session{}, fmt.Errorf("save session: %w", err)
	}
	if input.Current.ID != "" {
		if err := deps.Sessions.Delete(ctx, input.Current.ID); err != nil {
			slog.Warn("session_delete_failed", "session_id", input.Current.ID, "error", err)
		}
	}

	slog.Info("auth_event", "event", "login_succeeded", "email", next.Email, "session_id", next.ID)
	return next, nil
}

// LogoutDeps holds dependencies for Logout.
type LogoutDeps struct {
	Sessions SessionStore
}

// ExecuteLogout ends the current session.
// POST: the stored session is removed; the returned session is anonymous
func ExecuteLogout(ctx context.Context, current session.Session, deps LogoutDeps) (session.Session, error) {
	if current.ID != "" {
		if err := deps.Sessions.Delete(ctx, current.ID); err != nil {
			return current, fmt.Errorf("delete session: %w", err)
		}
		slog.Info("auth_event", "event", "logout", "session_id", current.ID)
	}
	return session.Logout(current), nil
}
