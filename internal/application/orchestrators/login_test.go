package orchestrators

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"eventportal/internal/domain/apierr"
	"eventportal/internal/domain/session"
)

func TestExecuteLogin_OpensSession(t *testing.T) {
	api := &stubAPI{token: "opaque"}
	sessions := newMemSessions()
	previous := session.Session{ID: "old"}

	got, err := ExecuteLogin(context.Background(),
		LoginInput{Email: "ana@example.com", Password: "pw", Current: previous},
		LoginDeps{API: api, Sessions: sessions, Now: fixedNow})
	if err != nil {
		t.Fatalf("ExecuteLogin: %v", err)
	}
	if !got.Active(fixedTime) || got.Token != "opaque" {
		t.Errorf("session = %+v, want active with token", got)
	}
	if got.ID == "old" {
		t.Error("login must issue a fresh session ID")
	}
	if got.Email != "ana@example.com" {
		t.Errorf("Email = %q, want submitted email for opaque tokens", got.Email)
	}
	if _, ok := sessions.saved[got.ID]; !ok {
		t.Error("new session not saved")
	}
	if len(sessions.deleted) != 1 || sessions.deleted[0] != "old" {
		t.Errorf("deleted = %v, want [old]", sessions.deleted)
	}
	if api.creds.Email != "ana@example.com" || api.creds.Password != "pw" {
		t.Errorf("creds = %+v", api.creds)
	}
}

func TestExecuteLogin_APIErrorPassesThrough(t *testing.T) {
	want := &apierr.ResponseError{Status: http.StatusUnauthorized}
	sessions := newMemSessions()
	_, err := ExecuteLogin(context.Background(), LoginInput{},
		LoginDeps{API: &stubAPI{loginErr: want}, Sessions: sessions})
	if !apierr.IsStatus(err, http.StatusUnauthorized) {
		t.Errorf("err = %v, want 401 response", err)
	}
	if len(sessions.saved) != 0 {
		t.Error("no session should be saved")
	}
}

func TestExecuteLogin_SaveFailure(t *testing.T) {
	sessions := newMemSessions()
	sessions.saveErr = errBoom
	_, err := ExecuteLogin(context.Background(), LoginInput{},
		LoginDeps{API: &stubAPI{token: "t"}, Sessions: sessions, Now: fixedNow})
	if !errors.Is(err, errBoom) {
		t.Errorf("err = %v, want errBoom", err)
	}
}

func TestExecuteLogout(t *testing.T) {
	sessions := newMemSessions()
	current := session.Session{ID: "s1", Token: "t", LoggedIn: true}
	sessions.saved["s1"] = current

	got, err := ExecuteLogout(context.Background(), current, LogoutDeps{Sessions: sessions})
	if err != nil {
		t.Fatalf("ExecuteLogout: %v", err)
	}
	if got.LoggedIn || got.Token != "" {
		t.Errorf("session after logout = %+v", got)
	}
	if _, ok := sessions.saved["s1"]; ok {
		t.Error("stored session should be deleted")
	}

	if _, err := ExecuteLogout(context.Background(), session.Session{}, LogoutDeps{Sessions: sessions}); err != nil {
		t.Errorf("anonymous logout err = %v", err)
	}
}
