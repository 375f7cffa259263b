package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessionBoundaryAttach(t *testing.T) {
	boundary := NewSessionBoundary("auth-token", true)
	res := httptest.NewRecorder()

	boundary.Attach(res, "tok123", time.Now().Add(time.Hour))

	cookies := res.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != "auth-token" || cookie.Value != "tok123" {
		t.Fatalf("unexpected cookie: %+v", cookie)
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteStrictMode || cookie.Path != "/" {
		t.Fatalf("expected HttpOnly Secure SameSite=Strict Path=/ cookie, got %+v", cookie)
	}
	if cookie.MaxAge < 3500 || cookie.MaxAge > 3600 {
		t.Fatalf("expected MaxAge near 3600, got %d", cookie.MaxAge)
	}
}

func TestSessionBoundaryClear(t *testing.T) {
	boundary := NewSessionBoundary("auth-token", false)
	res := httptest.NewRecorder()

	boundary.Clear(res)

	cookies := res.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Fatalf("expected immediately expiring empty cookie, got %+v", cookie)
	}
}

func TestSessionBoundaryExtractPrecedence(t *testing.T) {
	boundary := NewSessionBoundary("auth-token", false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := boundary.Extract(req); ok {
		t.Fatalf("expected no token on bare request")
	}

	req.AddCookie(&http.Cookie{Name: "auth-token", Value: "from-cookie"})
	token, ok := boundary.Extract(req)
	if !ok || token != "from-cookie" {
		t.Fatalf("expected cookie token, got %q", token)
	}

	req.Header.Set("Authorization", "Bearer from-header")
	token, ok = boundary.Extract(req)
	if !ok || token != "from-header" {
		t.Fatalf("expected header token to win, got %q", token)
	}
}

func TestClientIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := ClientIdentity(req); got != "unknown" {
		t.Fatalf("expected unknown bucket, got %q", got)
	}

	req.Header.Set("X-Real-IP", "10.0.0.2")
	if got := ClientIdentity(req); got != "10.0.0.2" {
		t.Fatalf("expected X-Real-IP fallback, got %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ClientIdentity(req); got != "203.0.113.7" {
		t.Fatalf("expected first forwarded hop, got %q", got)
	}
}
