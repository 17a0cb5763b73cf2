package web

import (
	"context"
	"net/http"

	"eventportal/internal/application/orchestrators"
	"eventportal/internal/domain/enrollment"
	"eventportal/internal/domain/form"
)

// handleEnroll handles GET (load options) and POST (enroll) for /inscricao.
// Both lists are reloaded on POST so a selection is checked against current data.
func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	opts, loadErr := orchestrators.ExecuteLoadEnrollmentOptions(r.Context(), orchestrators.LoadEnrollmentOptionsDeps{
		Users:  s.deps.API,
		Events: s.deps.API,
	})
	def, err := opts.Bind(form.MustLookup(form.Enroll))
	if err != nil {
		internalError(w, err)
		return
	}
	ctrl := form.New(def)
	defer ctrl.Close()

	notice := ""
	switch {
	case loadErr != nil:
		notice = enrollment.LoadFailedMessage
	case opts.Empty():
		notice = enrollment.EmptyListsMessage
	}
	view := func() *formView {
		v := newFormView(ctrl, "/inscricao")
		v.Notice = notice
		v.Locked = !opts.Ready()
		return v
	}

	if r.Method != http.MethodPost {
		s.respondForm(w, r, "enroll.html", ctrl, view(), nil)
		return
	}
	if err := bindForm(w, r, ctrl); err != nil {
		badRequest(w, r, err)
		return
	}

	if _, _, _, err := opts.Select(ctrl.Payload()); err != nil {
		ctrl.Fail(enrollment.NoSelectionMessage)
		s.deps.Metrics.IncrementSubmission(form.Enroll, string(form.OutcomeValidation))
		v := view()
		v.JSONStatus = http.StatusUnprocessableEntity
		s.respondForm(w, r, "enroll.html", ctrl, v, nil)
		return
	}
	outcome := ctrl.Submit(r.Context(), func(ctx context.Context, p map[string]string) (form.Reply, error) {
		res, err := orchestrators.ExecuteEnroll(ctx, orchestrators.EnrollInput{Options: opts, Payload: p},
			orchestrators.EnrollDeps{API: s.deps.API})
		if err != nil {
			return nil, err
		}
		return res.Reply(), nil
	})
	s.deps.Metrics.IncrementSubmission(form.Enroll, string(outcome))
	s.respondForm(w, r, "enroll.html", ctrl, view(), nil)
}
