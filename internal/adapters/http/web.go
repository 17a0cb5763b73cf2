package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"eventportal/internal/adapters/apiclient"
	"eventportal/internal/adapters/http/middleware"
	"eventportal/internal/adapters/http/perf"
	"eventportal/internal/adapters/metrics"
	sessionStore "eventportal/internal/adapters/storage/session"
	"eventportal/internal/application/orchestrators"
	domainOutbox "eventportal/internal/domain/outbox"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// EventsAPI is every events API operation the pages call.
type EventsAPI interface {
	orchestrators.UserCreator
	orchestrators.UserLister
	orchestrators.Authenticator
	orchestrators.EventLister
	orchestrators.EventReader
	orchestrators.EventWriter
	orchestrators.EnrollmentCreator
}

var _ EventsAPI = (*apiclient.Client)(nil)

// OutboxStore is the outbox access the web layer needs.
type OutboxStore interface {
	Save(ctx context.Context, e domainOutbox.Entry) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// Deps holds everything the handlers use.
type Deps struct {
	API      EventsAPI
	Sessions sessionStore.Store
	// SessionBackend names the session store in /healthz.
	SessionBackend string
	// Outbox queues welcome mails; nil disables them.
	Outbox OutboxStore
	// OutboxAdmin backs /debug/outbox; nil answers 503.
	OutboxAdmin OutboxAdmin
	Collector   *perf.Collector
	Metrics     *metrics.Metrics
	// Location renders event schedules; nil means time.Local.
	Location *time.Location
	// LoginURL is the absolute login link put in welcome mails.
	LoginURL      string
	SecureCookies bool
	Now           func() time.Time
}

// Options configures the outer middleware chain.
type Options struct {
	// CSRFKey is the 32-byte gorilla/csrf authentication key.
	CSRFKey        []byte
	TrustedOrigins []string
	// RateLimit is the per-IP request budget per second; 0 disables limiting.
	RateLimit   int
	SlowRequest time.Duration
}

// Server renders the portal pages.
type Server struct {
	deps  Deps
	pages map[string]*template.Template
}

// NewServer parses the embedded templates.
// PRE: deps.API and deps.Sessions are non-nil
// POST: every page template is parsed; template errors surface here, not per request
func NewServer(deps Deps) (*Server, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	return &Server{deps: deps, pages: pages}, nil
}

// Routes returns the router with session loading but without the outer chain.
// Tests drive it directly.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Auth(s.deps.Sessions, s.deps.Now, s.deps.Metrics))

	static, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))

	r.Get("/", s.handleListing)
	r.Get("/cadastro", s.handleRegister)
	r.Post("/cadastro", s.handleRegister)
	r.Get("/login", s.handleLogin)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Get("/evento/create", s.handleCreateEvent)
		r.Post("/evento/create", s.handleCreateEvent)
		r.Get("/editar/evento", s.handleEditEvent)
		r.Post("/editar/evento", s.handleEditEvent)
		r.Get("/inscricao", s.handleEnroll)
		r.Post("/inscricao", s.handleEnroll)
		r.Get("/debug/outbox", s.handleOutboxList)
		r.Post("/debug/outbox/{id}/{action}", s.handleOutboxAction)
	})

	r.Get("/api/mask/{kind}", handleMask)
	r.Get("/healthz", s.handleHealth)
	r.Get("/debug/perf", s.handlePerf)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusNotFound, "notfound.html", pageData{Title: "Página não encontrada"})
	})
	return r
}

// Handler wires the routes behind the full middleware chain.
// ctx bounds background work such as the rate limiter sweep.
func (s *Server) Handler(ctx context.Context, opts Options) (http.Handler, error) {
	if len(opts.CSRFKey) != 32 {
		return nil, fmt.Errorf("csrf key must be 32 bytes, got %d", len(opts.CSRFKey))
	}
	chain := []func(http.Handler) http.Handler{
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, middleware.CSRFOptions{
			Secure:         s.deps.SecureCookies,
			TrustedOrigins: opts.TrustedOrigins,
		}),
	}
	if opts.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(ctx, opts.RateLimit, time.Second)
		chain = append(chain, middleware.RateLimit(limiter, s.deps.Metrics))
	}
	// Timing -> RateLimit -> CSRF -> SecurityHeaders -> routes, with RequestID outermost
	chain = append(chain,
		middleware.Timing(s.deps.Collector, opts.SlowRequest),
		middleware.RequestID,
	)
	return middleware.Chain(s.Routes(), chain...), nil
}
