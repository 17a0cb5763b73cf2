package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"eventportal/internal/adapters/apiclient"
	"eventportal/internal/adapters/http/middleware"
	sessionStore "eventportal/internal/adapters/storage/session"
	"eventportal/internal/application/orchestrators"
	"eventportal/internal/domain/apierr"
	"eventportal/internal/domain/enrollment"
	"eventportal/internal/domain/event"
	domainOutbox "eventportal/internal/domain/outbox"
	"eventportal/internal/domain/session"
	"eventportal/internal/domain/user"
)

// fakeAPI is an in-memory events API.
type fakeAPI struct {
	mu sync.Mutex

	createdUser user.User
	userErr     error
	gotUser     user.User

	token    string
	loginErr error

	users     []user.User
	events    []event.Event
	listErr   error
	event     event.Event
	eventErr  error
	gotEvent  event.Event
	gotID     string
	enrolled  enrollment.Enrollment
	enrollReq enrollment.Request
}

func (f *fakeAPI) CreateUser(_ context.Context, u user.User) (user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotUser = u
	return f.createdUser, f.userErr
}

func (f *fakeAPI) ListUsers(context.Context) ([]user.User, error) {
	return f.users, f.listErr
}

func (f *fakeAPI) Login(context.Context, apiclient.Credentials) (string, error) {
	return f.token, f.loginErr
}

func (f *fakeAPI) ListEvents(context.Context) ([]event.Event, error) {
	return f.events, f.listErr
}

func (f *fakeAPI) GetEvent(_ context.Context, id string) (event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotID = id
	return f.event, f.eventErr
}

func (f *fakeAPI) CreateEvent(_ context.Context, e event.Event) (event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotEvent = e
	return f.event, f.eventErr
}

func (f *fakeAPI) UpdateEvent(_ context.Context, id string, e event.Event) (event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotID = id
	f.gotEvent = e
	return f.event, f.eventErr
}

func (f *fakeAPI) CreateEnrollment(_ context.Context, req enrollment.Request) (enrollment.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enrollReq = req
	return f.enrolled, nil
}

// fakeOutbox records queued entries.
type fakeOutbox struct {
	mu      sync.Mutex
	entries []domainOutbox.Entry
}

func (o *fakeOutbox) Save(_ context.Context, e domainOutbox.Entry) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, e)
	return nil
}

func (o *fakeOutbox) CountByStatus(context.Context) (map[string]int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return map[string]int{domainOutbox.StatusPending: len(o.entries)}, nil
}

type testEnv struct {
	api      *fakeAPI
	sessions *sessionStore.MemoryStore
	outbox   *fakeOutbox
	server   *Server
	handler  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		api:      &fakeAPI{},
		sessions: sessionStore.NewMemoryStore(),
		outbox:   &fakeOutbox{},
	}
	srv, err := NewServer(Deps{
		API:            env.api,
		Sessions:       env.sessions,
		SessionBackend: sessionStore.BackendMemory,
		Outbox:         env.outbox,
		Location:       time.UTC,
		LoginURL:       "http://portal.test/login",
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	env.server = srv
	env.handler = srv.Routes()
	return env
}

// login stores a live session and returns its cookie.
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	now := time.Now()
	s := session.Session{ID: "sess-1", Token: "tok", Email: "ana@example.com", LoggedIn: true, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := e.sessions.Save(context.Background(), s); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return &http.Cookie{Name: middleware.SessionCookieName, Value: s.ID}
}

func (e *testEnv) do(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func postForm(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func assertContains(t *testing.T, body, want string) {
	t.Helper()
	if !strings.Contains(body, want) {
		t.Errorf("body does not contain %q", want)
	}
}

func TestListing(t *testing.T) {
	env := newTestEnv(t)
	env.api.events = []event.Event{
		{ID: "1", Name: "GopherCon", Type: "CONGRESSO", Start: "2025-12-01T09:00:00", End: "2025-12-01T18:00:00", Description: "**Go** day"},
		{ID: "2", Name: "Hack Night", Type: "HACKATON", Start: "2025-12-05T19:00:00", End: "2025-12-06T07:00:00"},
	}

	rr := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	assertContains(t, body, "GopherCon")
	assertContains(t, body, "01/12/2025 das 09:00 às 18:00")
	assertContains(t, body, "<strong>Go</strong>")
	assertContains(t, body, "Hack Night")
	assertContains(t, body, "Próximos eventos")
}

func TestListing_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.api.listErr = apierr.ErrTransport

	rr := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assertContains(t, rr.Body.String(), "Erro ao carregar eventos.")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/json")
	if rr := env.do(req); rr.Code != http.StatusBadGateway {
		t.Errorf("JSON status = %d, want 502", rr.Code)
	}
}

func TestListing_Empty(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assertContains(t, rr.Body.String(), "Nenhum evento agendado no momento.")
}

func TestRegister_Get(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/cadastro", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	assertContains(t, body, "Registro de Novo Usuário")
	assertContains(t, body, `name="gorilla.csrf.Token"`)
	assertContains(t, body, `data-mask="cpf"`)
	assertContains(t, body, "Organizador de Eventos")
}

func TestRegister_Success(t *testing.T) {
	env := newTestEnv(t)
	env.api.createdUser = user.User{ID: "7", Name: "Ana"}

	rr := env.do(postForm("/cadastro", url.Values{
		"nome":           {"Ana"},
		"email":          {"ana@example.com"},
		"senha":          {"segredo"},
		"cpf":            {"111.444.777-35"},
		"telefone":       {"(11) 99999-8888"},
		"dataNascimento": {"1990-05-17"},
		"tipo":           {user.TypeClient},
	}))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := rr.Body.String()
	assertContains(t, body, "Usuário Ana cadastrado com sucesso! Redirecionando...")
	assertContains(t, body, "url=/login")

	got := env.api.gotUser
	if got.NationalID != "11144477735" || got.Phone != "11999998888" || got.BirthDate != "17/05/1990" {
		t.Errorf("sent user = %+v, want unmasked wire values", got)
	}
	if len(env.outbox.entries) != 1 || env.outbox.entries[0].ActionType != domainOutbox.ActionWelcomeEmail {
		t.Errorf("outbox = %+v, want one welcome mail", env.outbox.entries)
	}
}

func TestRegister_ValidationKeepsValues(t *testing.T) {
	env := newTestEnv(t)
	env.api.userErr = &apierr.ResponseError{
		Status: http.StatusBadRequest,
		Errors: apierr.FieldMessages{"cpf": {"CPF inválido"}},
	}

	rr := env.do(postForm("/cadastro", url.Values{"nome": {"Ana"}, "cpf": {"11144477735"}, "senha": {"segredo"}}))
	body := rr.Body.String()
	assertContains(t, body, "Falha na validação. Verifique os campos com erros.")
	assertContains(t, body, "CPF inválido")
	assertContains(t, body, `value="111.444.777-35"`)
	if strings.Contains(body, "segredo") {
		t.Error("password must not be echoed back")
	}
	if len(env.outbox.entries) != 0 {
		t.Error("no welcome mail for a rejected registration")
	}
}

func TestRegister_JSON(t *testing.T) {
	env := newTestEnv(t)
	env.api.userErr = &apierr.ResponseError{
		Status: http.StatusBadRequest,
		Errors: apierr.FieldMessages{"email": {"inválido"}},
	}

	req := httptest.NewRequest(http.MethodPost, "/cadastro", strings.NewReader(`{"nome":"Ana","email":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	rr := env.do(req)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rr.Code)
	}
	var res formResult
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Errors["email"] != "inválido" || res.Status != "failed" {
		t.Errorf("result = %+v", res)
	}
}

func TestRegister_JSONSuccessRedirectInMilliseconds(t *testing.T) {
	env := newTestEnv(t)
	env.api.createdUser = user.User{ID: "7", Name: "Ana"}

	body := `{"nome":"Ana","email":"ana@example.com","senha":"segredo","cpf":"111.444.777-35",` +
		`"telefone":"(11) 99999-8888","dataNascimento":"1990-05-17","tipo":"` + user.TypeClient + `"}`
	req := httptest.NewRequest(http.MethodPost, "/cadastro", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	rr := env.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}
	var raw struct {
		Redirect struct {
			To      string `json:"to"`
			AfterMs int64  `json:"afterMs"`
		} `json:"redirect"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw.Redirect.To != "/login" || raw.Redirect.AfterMs != 2000 {
		t.Errorf("redirect = %+v, want /login after 2000ms", raw.Redirect)
	}
}

func TestRegister_TransportError(t *testing.T) {
	env := newTestEnv(t)
	env.api.userErr = apierr.ErrTransport

	rr := env.do(postForm("/cadastro", url.Values{"nome": {"Ana"}}))
	assertContains(t, rr.Body.String(), "Erro de conexão: Não foi possível conectar ao servidor.")
}

func TestLogin_Success(t *testing.T) {
	env := newTestEnv(t)
	env.api.token = "opaque-token"

	rr := env.do(postForm("/login", url.Values{"email": {"ana@example.com"}, "senha": {"pw"}}))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Fatalf("status = %d, location = %q, want 303 to /", rr.Code, rr.Header().Get("Location"))
	}
	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value == "" {
		t.Fatal("session cookie not set")
	}
	if strings.Contains(cookie.Value, "opaque-token") {
		t.Error("cookie must carry the session ID, not the token")
	}
	s, err := env.sessions.Get(context.Background(), cookie.Value)
	if err != nil {
		t.Fatalf("stored session: %v", err)
	}
	if s.Token != "opaque-token" || !s.LoggedIn {
		t.Errorf("stored session = %+v", s)
	}

	// The next request shows the logged in top bar.
	rr = env.do(httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	assertContains(t, rr.Body.String(), "ana@example.com")
	assertContains(t, rr.Body.String(), `action="/logout"`)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.api.loginErr = &apierr.ResponseError{Status: http.StatusUnauthorized, Message: "bad credentials"}

	rr := env.do(postForm("/login", url.Values{"email": {"ana@example.com"}, "senha": {"x"}}))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with the form", rr.Code)
	}
	assertContains(t, rr.Body.String(), "Credenciais inválidas. Verifique seu email e senha.")
	if len(rr.Result().Cookies()) != 0 {
		t.Error("no cookie on failed login")
	}
}

func TestLogin_MissingTokenIsConnectionError(t *testing.T) {
	env := newTestEnv(t)
	env.api.loginErr = apiclient.ErrNoToken

	rr := env.do(postForm("/login", url.Values{"email": {"ana@example.com"}, "senha": {"x"}}))
	assertContains(t, rr.Body.String(), "Erro de conexão: Não foi possível alcançar o servidor de autenticação.")
	if len(rr.Result().Cookies()) != 0 {
		t.Error("no cookie without a token")
	}
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	rr := env.do(httptest.NewRequest(http.MethodPost, "/logout", nil), cookie)
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rr.Code)
	}
	if _, err := env.sessions.Get(context.Background(), cookie.Value); err == nil {
		t.Error("session should be deleted")
	}
	cleared := false
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("session cookie not cleared")
	}
}

func TestProtectedPages_RequireLogin(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/evento/create", "/editar/evento?id=1", "/inscricao"} {
		rr := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/login" {
			t.Errorf("%s: status = %d, location = %q", path, rr.Code, rr.Header().Get("Location"))
		}
	}
}

func TestCreateEvent_SuccessResetsForm(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.api.event = event.Event{ID: "42", Name: "GopherCon"}

	rr := env.do(postForm("/evento/create", url.Values{
		"nome":       {"GopherCon"},
		"local":      {"São Paulo"},
		"tipo":       {"CONGRESSO"},
		"dataInicio": {"2025-12-01T09:00"},
		"dataFinal":  {"2025-12-01T18:00"},
		"descricao":  {"Um dia de Go"},
	}), cookie)
	body := rr.Body.String()
	assertContains(t, body, "criado com sucesso! (ID: 42)")
	if strings.Contains(body, `value="São Paulo"`) {
		t.Error("form should be reset after a successful create")
	}
	if env.api.gotEvent.Start != "2025-12-01T09:00" || env.api.gotEvent.ID != "" {
		t.Errorf("sent event = %+v", env.api.gotEvent)
	}
}

func TestEditEvent_Prefill(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.api.event = event.Event{ID: "4", Name: "GopherCon", Type: "WORKSHOP", Start: "2025-12-01T09:00:00.000", End: "2025-12-01T18:00:00"}

	rr := env.do(httptest.NewRequest(http.MethodGet, "/editar/evento?id=4", nil), cookie)
	body := rr.Body.String()
	if env.api.gotID != "4" {
		t.Errorf("requested id = %q, want 4", env.api.gotID)
	}
	assertContains(t, body, `value="2025-12-01T09:00"`)
	assertContains(t, body, `value="WORKSHOP" selected`)
	assertContains(t, body, `action="/editar/evento?id=4"`)
}

func TestEditEvent_MissingID(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/editar/evento", nil), cookie)
	body := rr.Body.String()
	assertContains(t, body, "ID do evento não fornecido.")
	assertContains(t, body, "disabled")
}

func TestEditEvent_NotFound(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.api.eventErr = &apierr.ResponseError{Status: http.StatusNotFound}

	rr := env.do(httptest.NewRequest(http.MethodGet, "/editar/evento?id=9", nil), cookie)
	assertContains(t, rr.Body.String(), "Erro ao carregar evento: Evento não encontrado.")
}

func TestEditEvent_Update(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	rr := env.do(postForm("/editar/evento?id=4", url.Values{"nome": {"Renomeado"}, "tipo": {"WORKSHOP"}}), cookie)
	assertContains(t, rr.Body.String(), "(ID: 4) atualizado com sucesso!")
	if env.api.gotID != "4" || env.api.gotEvent.Name != "Renomeado" {
		t.Errorf("update got id=%q event=%+v", env.api.gotID, env.api.gotEvent)
	}
}

func TestEnroll_EmptyLists(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/inscricao", nil), cookie)
	body := rr.Body.String()
	assertContains(t, body, "Não há usuários ou eventos disponíveis na API.")
	assertContains(t, body, "disabled")
}

func TestEnroll_LoadFailure(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.api.listErr = apierr.ErrTransport

	rr := env.do(httptest.NewRequest(http.MethodGet, "/inscricao", nil), cookie)
	assertContains(t, rr.Body.String(), "ERRO (Conexão): Falha ao conectar ao servidor de eventos.")
}

func TestEnroll_Submit(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.api.users = []user.User{{ID: "2", Name: "Ana"}}
	env.api.events = []event.Event{{ID: "10", Name: "GopherCon"}}
	env.api.enrolled = enrollment.Enrollment{ID: "99"}

	rr := env.do(postForm("/inscricao", url.Values{"usuario": {"2"}, "evento": {"10"}}), cookie)
	assertContains(t, rr.Body.String(), "Sucesso: Inscrição de Ana para GopherCon realizada! ID: 99")
	if env.api.enrollReq.User != "2" || env.api.enrollReq.Event != "10" {
		t.Errorf("request = %+v", env.api.enrollReq)
	}
}

func TestEnroll_InvalidSelection(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)
	env.api.users = []user.User{{ID: "2", Name: "Ana"}}
	env.api.events = []event.Event{{ID: "10", Name: "GopherCon"}}

	req := postForm("/inscricao", url.Values{"usuario": {"3"}, "evento": {"10"}})
	req.Header.Set("Accept", "application/json")
	rr := env.do(req, cookie)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rr.Code)
	}
	assertContains(t, rr.Body.String(), "Selecione um Evento e um Usuário válidos.")
	if env.api.enrollReq.User != "" {
		t.Error("API must not be called for an invalid selection")
	}
}

func TestMaskEndpoint(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		path string
		code int
		want string
	}{
		{"/api/mask/cpf?value=11144477735", http.StatusOK, "111.444.777-35"},
		{"/api/mask/phone?value=1133334444", http.StatusOK, "(11) 3333-4444"},
		{"/api/mask/iban?value=1", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		rr := env.do(httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rr.Code != tt.code {
			t.Errorf("%s: status = %d, want %d", tt.path, rr.Code, tt.code)
			continue
		}
		if tt.want == "" {
			continue
		}
		var res maskResponse
		if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if res.Value != tt.want {
			t.Errorf("%s: value = %q, want %q", tt.path, res.Value, tt.want)
		}
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var report healthReport
	if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Status != "ok" || report.SessionBackend != sessionStore.BackendMemory {
		t.Errorf("report = %+v", report)
	}
}

func TestNotFound(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestHandler_Chain(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := env.server.Handler(ctx, Options{CSRFKey: []byte("short")}); err == nil {
		t.Error("expected an error for a short CSRF key")
	}

	h, err := env.server.Handler(ctx, Options{CSRFKey: make([]byte, 32), RateLimit: 100})
	if err != nil {
		t.Fatalf("Handler: %v", err)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/cadastro", nil))
	if rr.Header().Get("Content-Security-Policy") == "" || rr.Header().Get(middleware.RequestIDHeader) == "" {
		t.Errorf("missing chain headers: %v", rr.Header())
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, postForm("/cadastro", url.Values{"nome": {"Ana"}}))
	if rr.Code != http.StatusForbidden {
		t.Errorf("form post without token: status = %d, want 403", rr.Code)
	}
}

// fakeOutboxAdmin serves a fixed set of entries.
type fakeOutboxAdmin struct {
	entries map[string]domainOutbox.Entry
}

func (f *fakeOutboxAdmin) List(_ context.Context, status string, _ int) ([]domainOutbox.Entry, error) {
	if status != domainOutbox.StatusFailed && status != domainOutbox.StatusPending {
		return nil, orchestrators.ErrOutboxStatus
	}
	var out []domainOutbox.Entry
	for _, e := range f.entries {
		if e.Status == status {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeOutboxAdmin) ProcessSingle(_ context.Context, id string) (domainOutbox.Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return e, orchestrators.ErrOutboxEntryNotFound
	}
	e.Status = domainOutbox.StatusDone
	f.entries[id] = e
	return e, nil
}

func (f *fakeOutboxAdmin) AbandonEntry(_ context.Context, id string) (domainOutbox.Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return e, orchestrators.ErrOutboxEntryNotFound
	}
	if e.Status == domainOutbox.StatusDone {
		return e, orchestrators.ErrOutboxEntryClosed
	}
	e.Status = domainOutbox.StatusAbandoned
	f.entries[id] = e
	return e, nil
}

func TestOutboxAdmin(t *testing.T) {
	env := newTestEnv(t)
	admin := &fakeOutboxAdmin{entries: map[string]domainOutbox.Entry{
		"e1": {ID: "e1", ActionType: domainOutbox.ActionWelcomeEmail, Payload: `{"to":"ana@example.com"}`, Status: domainOutbox.StatusFailed, Attempts: 5, MaxAttempts: 5, CreatedAt: time.Now()},
	}}
	env.server.deps.OutboxAdmin = admin
	cookie := env.login(t)

	if rr := env.do(httptest.NewRequest(http.MethodGet, "/debug/outbox", nil)); rr.Code != http.StatusUnauthorized && rr.Code != http.StatusSeeOther {
		t.Errorf("anonymous status = %d, want login required", rr.Code)
	}

	rr := env.do(httptest.NewRequest(http.MethodGet, "/debug/outbox", nil), cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rr.Code)
	}
	var listed []outboxEntry
	if err := json.NewDecoder(rr.Body).Decode(&listed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != "e1" {
		t.Errorf("listed = %+v", listed)
	}
	if strings.Contains(rr.Body.String(), "ana@example.com") {
		t.Error("payload must not be exposed")
	}

	if rr := env.do(httptest.NewRequest(http.MethodGet, "/debug/outbox?status=weird", nil), cookie); rr.Code != http.StatusBadRequest {
		t.Errorf("bad filter status = %d, want 400", rr.Code)
	}

	tests := []struct {
		path string
		code int
	}{
		{"/debug/outbox/e1/retry", http.StatusOK},
		{"/debug/outbox/e1/abandon", http.StatusConflict},
		{"/debug/outbox/nope/retry", http.StatusNotFound},
		{"/debug/outbox/e1/explode", http.StatusNotFound},
	}
	for _, tt := range tests {
		if rr := env.do(httptest.NewRequest(http.MethodPost, tt.path, nil), cookie); rr.Code != tt.code {
			t.Errorf("POST %s status = %d, want %d", tt.path, rr.Code, tt.code)
		}
	}
}
