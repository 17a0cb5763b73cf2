package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"eventportal/internal/domain/enrollment"
	"eventportal/internal/domain/event"
	"eventportal/internal/domain/form"
	"eventportal/internal/domain/user"
)

// LoadEnrollmentOptionsDeps holds dependencies for LoadEnrollmentOptions.
type LoadEnrollmentOptionsDeps struct {
	Users  UserLister
	Events EventLister
}

// ExecuteLoadEnrollmentOptions fetches users and events concurrently.
// PRE: none
// POST: both lists are returned, or the first error once both calls have returned
// INVARIANT: a partial result is never returned
func ExecuteLoadEnrollmentOptions(ctx context.Context, deps LoadEnrollmentOptionsDeps) (enrollment.Options, error) {
	var users []user.User
	var events []event.Event

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = deps.Users.ListUsers(gctx)
		if err != nil {
			return fmt.Errorf("list users: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		events, err = deps.Events.ListEvents(gctx)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		slog.Warn("enrollment_options_failed", "error", err)
		return enrollment.Options{}, err
	}
	return enrollment.Options{Users: users, Events: events}, nil
}

// EnrollInput carries input for the enroll orchestrator.
type EnrollInput struct {
	Options enrollment.Options
	Payload map[string]string
}

// EnrollDeps holds dependencies for Enroll.
type EnrollDeps struct {
	API EnrollmentCreator
}

// EnrollResult describes a created enrollment.
type EnrollResult struct {
	Enrollment enrollment.Enrollment
	User       user.User
	Event      event.Event
}

// Reply exposes the fields used in the confirmation message.
func (r EnrollResult) Reply() form.Reply {
	return form.Reply{
		"id":          r.Enrollment.ID.String(),
		"usuarioNome": r.User.Name,
		"eventoNome":  r.Event.Name,
	}
}

// ExecuteEnroll enrolls the selected user in the selected event.
// PRE: input.Options were loaded by ExecuteLoadEnrollmentOptions
// POST: returns enrollment.ErrNoSelection without calling the API unless both selections are loaded entries
func ExecuteEnroll(ctx context.Context, input EnrollInput, deps EnrollDeps) (EnrollResult, error) {
	req, u, e, err := input.Options.Select(input.Payload)
	if err != nil {
		return EnrollResult{}, err
	}
	created, err := deps.API.CreateEnrollment(ctx, req)
	if err != nil {
		slog.Info("enrollment_rejected", "user_id", u.ID.String(), "event_id", e.ID.String(), "error", err)
		return EnrollResult{}, err
	}
	slog.Info("enrollment_created", "enrollment_id", created.ID.String(), "user_id", u.ID.String(), "event_id", e.ID.String())
	return EnrollResult{Enrollment: created, User: u, Event: e}, nil
}

// IsNoSelection reports whether err means the form selection was invalid.
func IsNoSelection(err error) bool {
	return errors.Is(err, enrollment.ErrNoSelection)
}
