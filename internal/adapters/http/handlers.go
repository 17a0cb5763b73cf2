package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/gorilla/csrf"

	"eventportal/internal/adapters/http/middleware"
	"eventportal/internal/domain/form"
	"eventportal/internal/domain/session"
)

// maxFormBody bounds posted forms; the largest field is a 500 character description.
const maxFormBody = 64 << 10

func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json_encode_failed", "error", err.Error())
	}
}

// pageData is what the layout and every page template receive.
type pageData struct {
	Title string
	// Refresh is the meta refresh content ("2;url=/login"), or "".
	Refresh string
	Form    *formView
	Data    any
}

// pageFuncs are replaced per request; the stubs only make parsing possible.
var pageFuncs = template.FuncMap{
	"csrfToken":   func() string { return "" },
	"isLoggedIn":  func() bool { return false },
	"currentUser": func() string { return "" },
	"currentPath": func() string { return "" },
	"fieldValue":  func(*formView, string) string { return "" },
	"fieldError":  func(*formView, string) string { return "" },
}

// parsePages pairs the layout with each page template.
func parsePages() (map[string]*template.Template, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(names))
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" || base == "form.html" {
			continue
		}
		tpl, err := template.New("layout.html").Funcs(pageFuncs).ParseFS(templateFS,
			"templates/layout.html", "templates/form.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", base, err)
		}
		pages[base] = tpl
	}
	return pages, nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	base, ok := s.pages[name]
	if !ok {
		internalError(w, fmt.Errorf("template %q not found", name))
		return
	}
	tpl, err := base.Clone()
	if err != nil {
		internalError(w, err)
		return
	}

	sess, _ := session.FromContext(r.Context())
	tpl.Funcs(template.FuncMap{
		"csrfToken":   func() string { return csrf.Token(r) },
		"isLoggedIn":  func() bool { return sess.Active(s.deps.Now()) },
		"currentUser": sess.DisplayName,
		"currentPath": func() string { return r.URL.Path },
		"fieldValue":  (*formView).value,
		"fieldError":  (*formView).fieldError,
	})

	// Render to a buffer so a template failure never sends a half page.
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		internalError(w, fmt.Errorf("render %s: %w", name, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// formView is the template model of a form controller.
type formView struct {
	Def           *form.Definition
	Action        string
	Values        map[string]string
	Errors        form.Errors
	Status        string
	Outcome       form.Outcome
	Message       string
	Success       bool
	SubmitEnabled bool
	// Notice is a warning shown above the form, such as empty prerequisite lists.
	Notice string
	// Locked disables the submit button regardless of status.
	Locked bool
	// JSONStatus overrides the status derived from the outcome for JSON clients.
	JSONStatus int
}

func newFormView(c *form.Controller, action string) *formView {
	return &formView{
		Def:           c.Definition(),
		Action:        action,
		Values:        c.Values(),
		Errors:        c.Errors(),
		Status:        c.Status().String(),
		Outcome:       c.Outcome(),
		Message:       c.Message(),
		Success:       c.Status() == form.Succeeded,
		SubmitEnabled: c.SubmitEnabled(),
	}
}

func (v *formView) value(field string) string {
	if v == nil {
		return ""
	}
	return v.Values[field]
}

func (v *formView) fieldError(field string) string {
	if v == nil {
		return ""
	}
	return v.Errors.Get(field)
}

// formResult is the JSON variant of a form page.
type formResult struct {
	Form     string            `json:"form"`
	Status   string            `json:"status"`
	Outcome  form.Outcome      `json:"outcome,omitempty"`
	Message  string            `json:"message,omitempty"`
	Errors   form.Errors       `json:"errors,omitempty"`
	Values   map[string]string `json:"values"`
	Fields   []form.Field      `json:"fields,omitempty"`
	Redirect *form.Redirect    `json:"redirect,omitempty"`
	Notice   string            `json:"notice,omitempty"`
}

func newFormResult(c *form.Controller, notice string) formResult {
	values := c.Values()
	for _, f := range c.Definition().Fields {
		if f.Input == form.InputPassword {
			delete(values, f.Name)
		}
	}
	return formResult{
		Form:     c.Definition().Name,
		Status:   c.Status().String(),
		Outcome:  c.Outcome(),
		Message:  c.Message(),
		Errors:   c.Errors(),
		Values:   values,
		Fields:   c.Definition().Fields,
		Redirect: c.Redirect(),
		Notice:   notice,
	}
}

// bindForm feeds the submitted values through the controller so masks apply.
// JSON bodies carry the same field names as the form.
// POST: fields missing from the request keep their defaults
func bindForm(w http.ResponseWriter, r *http.Request, c *form.Controller) error {
	values := map[string]string{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxFormBody))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if err := json.Unmarshal(body, &values); err != nil {
			return fmt.Errorf("decode body: %w", err)
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("parse form: %w", err)
		}
		for _, f := range c.Definition().Fields {
			if _, ok := r.PostForm[f.Name]; ok {
				values[f.Name] = r.PostForm.Get(f.Name)
			}
		}
	}
	for name, v := range values {
		if _, ok := c.Definition().Field(name); !ok {
			continue
		}
		if err := c.Change(name, v); err != nil {
			return err
		}
	}
	return nil
}

// outcomeStatus is the HTTP status of a JSON form response.
func outcomeStatus(o form.Outcome) int {
	switch o {
	case form.OutcomeSuccess, "":
		return http.StatusOK
	case form.OutcomeValidation:
		return http.StatusUnprocessableEntity
	case form.OutcomeAuth:
		return http.StatusUnauthorized
	case form.OutcomeTransport:
		return http.StatusBadGateway
	case form.OutcomeBusy:
		return http.StatusConflict
	}
	return http.StatusBadGateway
}

// respondForm writes a form page, or its JSON variant when the client asked for JSON.
// A pending redirect becomes a meta refresh so the browser navigates after the delay.
func (s *Server) respondForm(w http.ResponseWriter, r *http.Request, page string, c *form.Controller, view *formView, data any) {
	if middleware.WantsJSON(r) {
		status, notice := outcomeStatus(c.Outcome()), ""
		if view != nil {
			notice = view.Notice
			if view.JSONStatus != 0 {
				status = view.JSONStatus
			}
		}
		writeJSON(w, status, newFormResult(c, notice))
		return
	}
	pd := pageData{Title: c.Definition().Title, Form: view, Data: data}
	if rd := c.Redirect(); rd != nil {
		pd.Refresh = fmt.Sprintf("%d;url=%s", int(rd.After.Seconds()), rd.To)
	}
	s.render(w, r, http.StatusOK, page, pd)
}

// badRequest answers a malformed submission in the client's format.
func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	slog.Info("bad_form_request", "path", r.URL.Path, "error", err.Error())
	if middleware.WantsJSON(r) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	http.Error(w, "Bad Request", http.StatusBadRequest)
}
