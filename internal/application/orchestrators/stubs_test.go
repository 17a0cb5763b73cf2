package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"eventportal/internal/adapters/apiclient"
	"eventportal/internal/domain/enrollment"
	"eventportal/internal/domain/event"
	domainOutbox "eventportal/internal/domain/outbox"
	"eventportal/internal/domain/session"
	"eventportal/internal/domain/user"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

// stubAPI implements every events API port with canned answers.
type stubAPI struct {
	mu sync.Mutex

	createdUser user.User
	userErr     error
	users       []user.User
	usersErr    error

	token    string
	loginErr error
	creds    apiclient.Credentials

	events    []event.Event
	eventsErr error
	event     event.Event
	eventErr  error
	gotID     string
	gotEvent  event.Event

	enrollment    enrollment.Enrollment
	enrollErr     error
	enrollReq     enrollment.Request
	enrollCalls   int
	createdEvents int
}

func (s *stubAPI) CreateUser(_ context.Context, u user.User) (user.User, error) {
	if s.userErr != nil {
		return user.User{}, s.userErr
	}
	return s.createdUser, nil
}

func (s *stubAPI) ListUsers(context.Context) ([]user.User, error) {
	return s.users, s.usersErr
}

func (s *stubAPI) Login(_ context.Context, c apiclient.Credentials) (string, error) {
	s.creds = c
	return s.token, s.loginErr
}

func (s *stubAPI) ListEvents(context.Context) ([]event.Event, error) {
	return s.events, s.eventsErr
}

func (s *stubAPI) GetEvent(_ context.Context, id string) (event.Event, error) {
	s.gotID = id
	return s.event, s.eventErr
}

func (s *stubAPI) CreateEvent(_ context.Context, e event.Event) (event.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createdEvents++
	s.gotEvent = e
	return s.event, s.eventErr
}

func (s *stubAPI) UpdateEvent(_ context.Context, id string, e event.Event) (event.Event, error) {
	s.gotID = id
	s.gotEvent = e
	return s.event, s.eventErr
}

func (s *stubAPI) CreateEnrollment(_ context.Context, req enrollment.Request) (enrollment.Enrollment, error) {
	s.enrollCalls++
	s.enrollReq = req
	return s.enrollment, s.enrollErr
}

// memSessions records saved and deleted sessions.
type memSessions struct {
	saved   map[string]session.Session
	deleted []string
	saveErr error
}

func newMemSessions() *memSessions {
	return &memSessions{saved: map[string]session.Session{}}
}

func (m *memSessions) Save(_ context.Context, s session.Session) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved[s.ID] = s
	return nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.saved, id)
	return nil
}

// memOutbox is an in-memory OutboxStore.
type memOutbox struct {
	entries map[string]domainOutbox.Entry
	order   []string
	saveErr error
}

func newMemOutbox() *memOutbox {
	return &memOutbox{entries: map[string]domainOutbox.Entry{}}
}

func (m *memOutbox) Save(_ context.Context, e domainOutbox.Entry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.entries[e.ID]; !ok {
		m.order = append(m.order, e.ID)
	}
	m.entries[e.ID] = e
	return nil
}

func (m *memOutbox) ListPending(_ context.Context, limit int) ([]domainOutbox.Entry, error) {
	var out []domainOutbox.Entry
	for _, id := range m.order {
		e := m.entries[id]
		if e.Status == domainOutbox.StatusPending || e.Status == domainOutbox.StatusRetrying {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memOutbox) GetByID(_ context.Context, id string) (domainOutbox.Entry, error) {
	e, ok := m.entries[id]
	if !ok {
		return domainOutbox.Entry{}, sql.ErrNoRows
	}
	return e, nil
}

func (m *memOutbox) ListFailed(_ context.Context, limit int) ([]domainOutbox.Entry, error) {
	var out []domainOutbox.Entry
	for i := len(m.order) - 1; i >= 0 && len(out) < limit; i-- {
		if e := m.entries[m.order[i]]; e.Status == domainOutbox.StatusFailed {
			out = append(out, e)
		}
	}
	return out, nil
}

var errBoom = errors.New("boom")
