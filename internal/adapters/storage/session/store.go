// Package session persists logged in sessions behind the session cookie.
//
// Three backends share one contract: an in-process map for development,
// SQLite for a single instance that survives restarts, and Redis for
// several instances behind a load balancer. Expired sessions are never
// returned by Get.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventportal/internal/adapters/http/perf"
	domain "eventportal/internal/domain/session"
)

// ErrNotFound is returned when no live session has the given ID.
var ErrNotFound = errors.New("session not found")

// Store defines the interface for session persistence.
type Store interface {
	// Get returns the session with id.
	// POST: returns ErrNotFound when missing or expired
	Get(ctx context.Context, id string) (domain.Session, error)

	// Save stores s until s.ExpiresAt.
	// PRE: s.ID is non-empty and s.ExpiresAt is in the future
	Save(ctx context.Context, s domain.Session) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// Backend names accepted in configuration.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

func validate(s domain.Session, now time.Time) error {
	if s.ID == "" {
		return errors.New("session id is required")
	}
	if !s.ExpiresAt.After(now) {
		return domain.ErrTokenExpired
	}
	return nil
}

// Timed records every store call in the perf collector.
type Timed struct {
	next      Store
	backend   string
	collector *perf.Collector
}

// NewTimed wraps next. A nil collector makes it a pass-through.
func NewTimed(next Store, backend string, collector *perf.Collector) *Timed {
	return &Timed{next: next, backend: backend, collector: collector}
}

func (t *Timed) record(op string, start time.Time) {
	t.collector.Since(perf.KindStore, fmt.Sprintf("session.%s.%s", t.backend, op), 0, start)
}

// Get implements Store.
func (t *Timed) Get(ctx context.Context, id string) (domain.Session, error) {
	defer t.record("Get", time.Now())
	return t.next.Get(ctx, id)
}

// Save implements Store.
func (t *Timed) Save(ctx context.Context, s domain.Session) error {
	defer t.record("Save", time.Now())
	return t.next.Save(ctx, s)
}

// Delete implements Store.
func (t *Timed) Delete(ctx context.Context, id string) error {
	defer t.record("Delete", time.Now())
	return t.next.Delete(ctx, id)
}

// Ping implements Store.
func (t *Timed) Ping(ctx context.Context) error {
	return t.next.Ping(ctx)
}
