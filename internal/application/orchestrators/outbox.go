package orchestrators

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"eventportal/internal/adapters/email"
	domainOutbox "eventportal/internal/domain/outbox"
)

// ActionExecutor delivers one kind of outbox entry.
type ActionExecutor interface {
	// Execute runs the action for payload and returns the provider's ID.
	Execute(ctx context.Context, payload string) (string, error)
}

// OutboxProcessor delivers queued entries with exponential backoff.
type OutboxProcessor struct {
	store     OutboxStore
	executors map[string]ActionExecutor
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	now       func() time.Time
}

// NewOutboxProcessor creates a processor for the given action executors.
func NewOutboxProcessor(store OutboxStore, executors map[string]ActionExecutor) *OutboxProcessor {
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		baseDelay: 30 * time.Second,
		maxDelay:  time.Hour,
		batchSize: 10,
		now:       time.Now,
	}
}

// ProcessPending attempts every due pending entry once.
// PRE: ctx is valid
// POST: each due entry is saved as done, retrying or failed
func (p *OutboxProcessor) ProcessPending(ctx context.Context) error {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("list pending outbox entries: %w", err)
	}
	for _, entry := range entries {
		if err := p.processEntry(ctx, entry); err != nil {
			slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err.Error())
		}
	}
	return nil
}

func (p *OutboxProcessor) processEntry(ctx context.Context, entry domainOutbox.Entry) error {
	now := p.now()
	if !entry.Due(now, p.baseDelay, p.maxDelay) {
		return nil
	}

	executor, ok := p.executors[entry.ActionType]
	entry.MarkAttempt(now)
	if !ok {
		entry.MarkFailed(fmt.Errorf("no executor registered for action type: %s", entry.ActionType))
		return p.store.Save(ctx, entry)
	}

	externalID, err := executor.Execute(ctx, entry.Payload)
	if err != nil {
		entry.MarkFailed(err)
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "attempt", entry.Attempts, "error", err.Error())
	} else {
		entry.MarkSuccess(externalID)
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	}
	return p.store.Save(ctx, entry)
}

// Outbox operator errors.
var (
	ErrOutboxEntryNotFound = errors.New("outbox entry not found")
	ErrOutboxEntryClosed   = errors.New("outbox entry is done or abandoned")
	ErrOutboxStatus        = errors.New("unknown outbox status filter")
)

// List returns entries by status filter: "failed" (newest first) or "pending" (oldest first).
// PRE: limit > 0
func (p *OutboxProcessor) List(ctx context.Context, status string, limit int) ([]domainOutbox.Entry, error) {
	switch status {
	case domainOutbox.StatusFailed:
		return p.store.ListFailed(ctx, limit)
	case domainOutbox.StatusPending:
		return p.store.ListPending(ctx, limit)
	}
	return nil, fmt.Errorf("%w: %q", ErrOutboxStatus, status)
}

// ProcessSingle attempts one entry now, ignoring backoff.
// A failed entry whose attempts are used up gets one more.
// PRE: entryID is non-empty
// POST: the entry is saved as done, retrying or failed
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) (domainOutbox.Entry, error) {
	entry, err := p.get(ctx, entryID)
	if err != nil {
		return domainOutbox.Entry{}, err
	}
	if entry.Status == domainOutbox.StatusDone || entry.Status == domainOutbox.StatusAbandoned {
		return entry, ErrOutboxEntryClosed
	}
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		return entry, fmt.Errorf("no executor registered for action type: %s", entry.ActionType)
	}
	if entry.Attempts >= entry.MaxAttempts {
		entry.MaxAttempts = entry.Attempts + 1
	}

	entry.MarkAttempt(p.now())
	externalID, err := executor.Execute(ctx, entry.Payload)
	if err != nil {
		entry.MarkFailed(err)
		slog.Warn("outbox_manual_retry_failed", "entry_id", entry.ID, "attempt", entry.Attempts, "error", err.Error())
	} else {
		entry.MarkSuccess(externalID)
		slog.Info("outbox_manual_retry_succeeded", "entry_id", entry.ID, "external_id", externalID)
	}
	return entry, p.store.Save(ctx, entry)
}

// AbandonEntry stops all further attempts for an entry.
// PRE: entryID is non-empty
// POST: entry status is abandoned unless it was already delivered
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) (domainOutbox.Entry, error) {
	entry, err := p.get(ctx, entryID)
	if err != nil {
		return domainOutbox.Entry{}, err
	}
	if entry.Status == domainOutbox.StatusDone {
		return entry, ErrOutboxEntryClosed
	}
	entry.MarkAbandoned()
	slog.Info("outbox_entry_abandoned", "entry_id", entry.ID, "action_type", entry.ActionType)
	return entry, p.store.Save(ctx, entry)
}

func (p *OutboxProcessor) get(ctx context.Context, id string) (domainOutbox.Entry, error) {
	entry, err := p.store.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return domainOutbox.Entry{}, ErrOutboxEntryNotFound
	}
	if err != nil {
		return domainOutbox.Entry{}, fmt.Errorf("get outbox entry: %w", err)
	}
	return entry, nil
}

// Run processes the outbox every interval until ctx is cancelled.
func (p *OutboxProcessor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, interval)
			if err := p.ProcessPending(runCtx); err != nil {
				slog.Error("outbox_background_process_failed", "error", err.Error())
			}
			cancel()
		case <-ctx.Done():
			slog.Info("outbox_background_worker_stopped")
			return
		}
	}
}

// WelcomeEmailExecutor sends queued welcome mails.
type WelcomeEmailExecutor struct {
	Sender email.Sender
}

// Execute sends the welcome mail described by payload.
// PRE: payload is JSON matching email.Welcome
// POST: returns the provider message ID
func (e WelcomeEmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var w email.Welcome
	if err := json.Unmarshal([]byte(payload), &w); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	req, err := w.Request()
	if err != nil {
		return "", err
	}
	res, err := e.Sender.Send(ctx, req)
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}
