package orchestrators

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"eventportal/internal/adapters/email"
	domainOutbox "eventportal/internal/domain/outbox"
	"eventportal/internal/domain/user"
)

// RegisterUserInput carries input for the registration orchestrator.
type RegisterUserInput struct {
	User user.User
}

// RegisterUserDeps holds dependencies for RegisterUser.
type RegisterUserDeps struct {
	API UserCreator
	// Outbox queues the welcome mail; nil disables it.
	Outbox   OutboxWriter
	LoginURL string
	Now      func() time.Time
}

// ExecuteRegisterUser creates the user in the events API and queues a welcome mail.
// PRE: input.User carries wire-format values (unmasked digits, dd/mm/yyyy birth date)
// POST: on success the created user is returned with blank fields filled from input
// INVARIANT: a failure to queue the welcome mail never fails the registration
func ExecuteRegisterUser(ctx context.Context, input RegisterUserInput, deps RegisterUserDeps) (user.User, error) {
	created, err := deps.API.CreateUser(ctx, input.User)
	if err != nil {
		slog.Info("user_register_rejected", "email", input.User.Email, "error", err)
		return user.User{}, err
	}
	if created.Name == "" {
		created.Name = input.User.Name
	}
	if created.Email == "" {
		created.Email = input.User.Email
	}
	created.Password = ""
	slog.Info("user_registered", "user_id", created.ID.String(), "type", created.Type)

	if deps.Outbox != nil && created.Email != "" {
		queueWelcome(ctx, created, deps)
	}
	return created, nil
}

func queueWelcome(ctx context.Context, u user.User, deps RegisterUserDeps) {
	now := time.Now
	if deps.Now != nil {
		now = deps.Now
	}
	payload, err := json.Marshal(email.Welcome{To: u.Email, Name: u.Name, LoginURL: deps.LoginURL})
	if err != nil {
		slog.Error("welcome_email_encode_failed", "user_id", u.ID.String(), "error", err)
		return
	}
	entry, err := domainOutbox.New(domainOutbox.ActionWelcomeEmail, string(payload), now())
	if err != nil {
		slog.Error("welcome_email_invalid", "user_id", u.ID.String(), "error", err)
		return
	}
	if err := deps.Outbox.Save(ctx, entry); err != nil {
		slog.Error("welcome_email_enqueue_failed", "user_id", u.ID.String(), "error", err)
		return
	}
	slog.Info("welcome_email_queued", "user_id", u.ID.String(), "entry_id", entry.ID)
}
