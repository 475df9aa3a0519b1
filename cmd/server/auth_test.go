package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Simplici0/voltquote/internal/accounts"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	auth, err := newAuthService(nil, "secret", time.Hour, true)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	user := accounts.User{ID: "user-1", Name: "Sam", Role: accounts.RoleInstaller, CompanyID: "company-1"}

	token, err := auth.createSessionValue(user)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	sess, ok := auth.verifySessionValue(token)
	if !ok {
		t.Fatalf("expected token to verify")
	}
	if sess.UserID != "user-1" || sess.Role != accounts.RoleInstaller || sess.CompanyID != "company-1" || sess.Name != "Sam" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	other, _ := newAuthService(nil, "another-secret", time.Hour, true)
	if _, ok := other.verifySessionValue(token); ok {
		t.Fatalf("expected token signed with another key to be rejected")
	}
	if _, ok := auth.verifySessionValue(token + "x"); ok {
		t.Fatalf("expected tampered token to be rejected")
	}
}

func TestSessionTokenExpires(t *testing.T) {
	auth, err := newAuthService(nil, "secret", time.Hour, false)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	issued := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return issued }

	token, err := auth.createSessionValue(accounts.User{ID: "user-1", Role: accounts.RoleAdmin})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	auth.now = func() time.Time { return issued.Add(59 * time.Minute) }
	if _, ok := auth.verifySessionValue(token); !ok {
		t.Fatalf("expected token valid before expiry")
	}
	auth.now = func() time.Time { return issued.Add(61 * time.Minute) }
	if _, ok := auth.verifySessionValue(token); ok {
		t.Fatalf("expected token rejected after expiry")
	}
}

func TestEmptySecretGeneratesKey(t *testing.T) {
	a, err := newAuthService(nil, "", time.Hour, false)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	b, err := newAuthService(nil, "", time.Hour, false)
	if err != nil {
		t.Fatalf("new auth service: %v", err)
	}
	if len(a.sessionSecret) != 32 || string(a.sessionSecret) == string(b.sessionSecret) {
		t.Fatalf("expected distinct random keys")
	}
}

func TestSessionCookieAndLogout(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/login", "", map[string]string{
		"email": strings.ToUpper(testInstallerEmail), "password": testPassword, "role": "installer",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", rec.Code, rec.Body.String())
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			cookie = c
		}
	}
	if cookie == nil || !cookie.HttpOnly || cookie.Value == "" {
		t.Fatalf("expected http-only session cookie, got %+v", cookie)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookie)
	me := httptest.NewRecorder()
	app.handler.ServeHTTP(me, req)
	if me.Code != http.StatusOK {
		t.Fatalf("me with cookie: status %d", me.Code)
	}
	var body map[string]any
	decodeBody(t, me, &body)
	if body["role"] != "installer" || body["company_id"] == "" {
		t.Fatalf("unexpected me response: %+v", body)
	}

	out := app.do(t, http.MethodPost, "/api/logout", "", nil)
	if out.Code != http.StatusNoContent {
		t.Fatalf("logout: status %d", out.Code)
	}
	cleared := out.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Fatalf("expected logout to clear the cookie, got %+v", cleared)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status %d", rec.Code)
	}
	var body struct {
		Status        string `json:"status"`
		SchemaVersion int64  `json:"schema_version"`
	}
	decodeBody(t, rec, &body)
	if body.Status != "ok" || body.SchemaVersion != 3 {
		t.Fatalf("unexpected health response: %+v", body)
	}
}
