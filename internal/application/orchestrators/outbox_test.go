package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"eventportal/internal/adapters/email"
	domainOutbox "eventportal/internal/domain/outbox"
)

type failingExecutor struct{ calls int }

func (f *failingExecutor) Execute(context.Context, string) (string, error) {
	f.calls++
	return "", errBoom
}

func queue(t *testing.T, store *memOutbox, action, payload string) string {
	t.Helper()
	e, err := domainOutbox.New(action, payload, fixedTime)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := store.Save(context.Background(), e); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return e.ID
}

func TestOutboxProcessor_DeliversWelcome(t *testing.T) {
	store := newMemOutbox()
	sender := email.NewNoopSender()
	payload, _ := json.Marshal(email.Welcome{To: "ana@example.com", Name: "Ana"})
	id := queue(t, store, domainOutbox.ActionWelcomeEmail, string(payload))

	p := NewOutboxProcessor(store, map[string]ActionExecutor{
		domainOutbox.ActionWelcomeEmail: WelcomeEmailExecutor{Sender: sender},
	})
	p.now = fixedNow
	if err := p.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}

	got := store.entries[id]
	if got.Status != domainOutbox.StatusDone || got.ExternalID == "" {
		t.Errorf("entry = %+v, want done with external id", got)
	}
	sent := sender.Sent()
	if len(sent) != 1 || sent[0].To[0] != "ana@example.com" {
		t.Errorf("sent = %+v", sent)
	}
}

func TestOutboxProcessor_BacksOffThenFails(t *testing.T) {
	store := newMemOutbox()
	exec := &failingExecutor{}
	id := queue(t, store, domainOutbox.ActionWelcomeEmail, "{}")
	e := store.entries[id]
	e.MaxAttempts = 2
	store.entries[id] = e

	now := fixedTime
	p := NewOutboxProcessor(store, map[string]ActionExecutor{domainOutbox.ActionWelcomeEmail: exec})
	p.now = func() time.Time { return now }
	ctx := context.Background()

	p.ProcessPending(ctx)
	if got := store.entries[id]; got.Status != domainOutbox.StatusRetrying || got.Attempts != 1 {
		t.Fatalf("after first attempt = %+v", got)
	}

	p.ProcessPending(ctx)
	if exec.calls != 1 {
		t.Errorf("calls = %d, want 1 (backoff not elapsed)", exec.calls)
	}

	now = now.Add(time.Minute)
	p.ProcessPending(ctx)
	if got := store.entries[id]; got.Status != domainOutbox.StatusFailed || got.Attempts != 2 {
		t.Errorf("after second attempt = %+v, want failed", got)
	}
}

func TestOutboxProcessor_UnknownAction(t *testing.T) {
	store := newMemOutbox()
	id := queue(t, store, "mystery", "{}")
	p := NewOutboxProcessor(store, nil)
	p.now = fixedNow

	p.ProcessPending(context.Background())
	got := store.entries[id]
	if got.Attempts != 1 || got.ErrorMessage == "" {
		t.Errorf("entry = %+v, want an attempt with error recorded", got)
	}
}

func TestOutboxProcessor_RunStopsOnCancel(t *testing.T) {
	p := NewOutboxProcessor(newMemOutbox(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestOutboxProcessor_ManualRetryRevivesFailedEntry(t *testing.T) {
	store := newMemOutbox()
	payload, _ := json.Marshal(email.Welcome{To: "ana@example.com", Name: "Ana"})
	id := queue(t, store, domainOutbox.ActionWelcomeEmail, string(payload))
	e := store.entries[id]
	e.MaxAttempts = 1
	store.entries[id] = e
	ctx := context.Background()

	failing := NewOutboxProcessor(store, map[string]ActionExecutor{domainOutbox.ActionWelcomeEmail: &failingExecutor{}})
	failing.now = fixedNow
	failing.ProcessPending(ctx)
	if got := store.entries[id]; got.Status != domainOutbox.StatusFailed {
		t.Fatalf("status = %q, want failed", got.Status)
	}

	listed, err := failing.List(ctx, domainOutbox.StatusFailed, 10)
	if err != nil || len(listed) != 1 {
		t.Fatalf("List(failed) = %v, %v", listed, err)
	}

	sender := email.NewNoopSender()
	p := NewOutboxProcessor(store, map[string]ActionExecutor{
		domainOutbox.ActionWelcomeEmail: WelcomeEmailExecutor{Sender: sender},
	})
	p.now = fixedNow
	got, err := p.ProcessSingle(ctx, id)
	if err != nil {
		t.Fatalf("ProcessSingle: %v", err)
	}
	if got.Status != domainOutbox.StatusDone || got.Attempts != 2 {
		t.Errorf("entry = %+v, want done after 2 attempts", got)
	}

	if _, err := p.ProcessSingle(ctx, id); !errors.Is(err, ErrOutboxEntryClosed) {
		t.Errorf("retry of done entry err = %v, want ErrOutboxEntryClosed", err)
	}
	if _, err := p.AbandonEntry(ctx, id); !errors.Is(err, ErrOutboxEntryClosed) {
		t.Errorf("abandon of done entry err = %v, want ErrOutboxEntryClosed", err)
	}
}

func TestOutboxProcessor_AbandonAndLookupErrors(t *testing.T) {
	store := newMemOutbox()
	id := queue(t, store, domainOutbox.ActionWelcomeEmail, "{}")
	p := NewOutboxProcessor(store, nil)
	ctx := context.Background()

	got, err := p.AbandonEntry(ctx, id)
	if err != nil {
		t.Fatalf("AbandonEntry: %v", err)
	}
	if got.Status != domainOutbox.StatusAbandoned || store.entries[id].Status != domainOutbox.StatusAbandoned {
		t.Errorf("status = %q, want abandoned", got.Status)
	}
	if pending, _ := p.List(ctx, domainOutbox.StatusPending, 10); len(pending) != 0 {
		t.Errorf("abandoned entry still pending: %+v", pending)
	}

	if _, err := p.ProcessSingle(ctx, "missing"); !errors.Is(err, ErrOutboxEntryNotFound) {
		t.Errorf("err = %v, want ErrOutboxEntryNotFound", err)
	}
	if _, err := p.List(ctx, "weird", 10); !errors.Is(err, ErrOutboxStatus) {
		t.Errorf("err = %v, want ErrOutboxStatus", err)
	}
}
