package web

import (
	"context"
	"log/slog"
	"net/http"

	"eventportal/internal/adapters/http/middleware"
	"eventportal/internal/application/orchestrators"
	"eventportal/internal/domain/form"
	"eventportal/internal/domain/session"
	"eventportal/internal/domain/user"
)

// registerDefinition is the registration form with the user type choices attached.
func registerDefinition() (*form.Definition, error) {
	return form.MustLookup(form.Register).WithOptions("tipo", user.Types)
}

// handleRegister handles GET (empty form) and POST (create user) for /cadastro.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	def, err := registerDefinition()
	if err != nil {
		internalError(w, err)
		return
	}
	ctrl := form.New(def)
	defer ctrl.Close()

	if r.Method == http.MethodPost {
		if err := bindForm(w, r, ctrl); err != nil {
			badRequest(w, r, err)
			return
		}
		deps := orchestrators.RegisterUserDeps{
			API:      s.deps.API,
			Outbox:   s.deps.Outbox,
			LoginURL: s.deps.LoginURL,
			Now:      s.deps.Now,
		}
		outcome := ctrl.Submit(r.Context(), func(ctx context.Context, p map[string]string) (form.Reply, error) {
			created, err := orchestrators.ExecuteRegisterUser(ctx, orchestrators.RegisterUserInput{User: user.FromPayload(p)}, deps)
			if err != nil {
				return nil, err
			}
			return created.Reply(), nil
		})
		s.deps.Metrics.IncrementSubmission(form.Register, string(outcome))
	}
	s.respondForm(w, r, "register.html", ctrl, newFormView(ctrl, "/cadastro"), nil)
}

// handleLogin handles GET (form) and POST (authenticate) for /login.
// A successful browser login goes straight to the home page.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctrl := form.New(form.MustLookup(form.Login))
	defer ctrl.Close()

	if r.Method != http.MethodPost {
		s.respondForm(w, r, "login.html", ctrl, newFormView(ctrl, "/login"), nil)
		return
	}
	if err := bindForm(w, r, ctrl); err != nil {
		badRequest(w, r, err)
		return
	}

	current, _ := session.FromContext(r.Context())
	var opened session.Session
	outcome := ctrl.Submit(r.Context(), func(ctx context.Context, p map[string]string) (form.Reply, error) {
		next, err := orchestrators.ExecuteLogin(ctx, orchestrators.LoginInput{
			Email:    p["email"],
			Password: p["senha"],
			Current:  current,
		}, orchestrators.LoginDeps{API: s.deps.API, Sessions: s.deps.Sessions, Now: s.deps.Now})
		if err != nil {
			return nil, err
		}
		opened = next
		return form.Reply{"email": next.Email}, nil
	})
	s.deps.Metrics.IncrementSubmission(form.Login, string(outcome))

	if outcome != form.OutcomeSuccess {
		s.respondForm(w, r, "login.html", ctrl, newFormView(ctrl, "/login"), nil)
		return
	}
	s.deps.Metrics.IncrementSession("login")
	middleware.SetSessionCookie(w, opened, s.deps.Now(), s.deps.SecureCookies)
	if middleware.WantsJSON(r) {
		s.respondForm(w, r, "login.html", ctrl, nil, nil)
		return
	}
	to := "/"
	if rd := ctrl.Redirect(); rd != nil {
		to = rd.To
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// handleLogout ends the session and returns to the home page.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	current, _ := session.FromContext(r.Context())
	if _, err := orchestrators.ExecuteLogout(r.Context(), current, orchestrators.LogoutDeps{Sessions: s.deps.Sessions}); err != nil {
		// The cookie is cleared anyway; the stored record expires on its own.
		slog.Warn("logout_failed", "session_id", current.ID, "error", err)
	}
	middleware.ClearSessionCookie(w, s.deps.SecureCookies)
	if current.ID != "" {
		s.deps.Metrics.IncrementSession("logout")
	}
	if middleware.WantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]bool{"loggedIn": false})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
