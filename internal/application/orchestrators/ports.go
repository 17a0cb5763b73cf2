package orchestrators

import (
	"context"

	"eventportal/internal/adapters/apiclient"
	"eventportal/internal/domain/enrollment"
	"eventportal/internal/domain/event"
	domainOutbox "eventportal/internal/domain/outbox"
	"eventportal/internal/domain/session"
	"eventportal/internal/domain/user"
)

// UserCreator registers users in the events API.
type UserCreator interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
}

// UserLister lists users from the events API.
type UserLister interface {
	ListUsers(ctx context.Context) ([]user.User, error)
}

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, creds apiclient.Credentials) (string, error)
}

// EventLister lists events from the events API.
type EventLister interface {
	ListEvents(ctx context.Context) ([]event.Event, error)
}

// EventReader loads one event.
type EventReader interface {
	GetEvent(ctx context.Context, id string) (event.Event, error)
}

// EventWriter creates and replaces events.
type EventWriter interface {
	CreateEvent(ctx context.Context, e event.Event) (event.Event, error)
	UpdateEvent(ctx context.Context, id string, e event.Event) (event.Event, error)
}

// EnrollmentCreator enrolls users in events.
type EnrollmentCreator interface {
	CreateEnrollment(ctx context.Context, req enrollment.Request) (enrollment.Enrollment, error)
}

// SessionStore persists logged in sessions.
type SessionStore interface {
	Save(ctx context.Context, s session.Session) error
	Delete(ctx context.Context, id string) error
}

// OutboxWriter queues side effects for background delivery.
type OutboxWriter interface {
	Save(ctx context.Context, e domainOutbox.Entry) error
}

// OutboxStore is the outbox persistence the processor needs.
type OutboxStore interface {
	OutboxWriter
	GetByID(ctx context.Context, id string) (domainOutbox.Entry, error)
	ListPending(ctx context.Context, limit int) ([]domainOutbox.Entry, error)
	ListFailed(ctx context.Context, limit int) ([]domainOutbox.Entry, error)
}
