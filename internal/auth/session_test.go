package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"veraz/internal/core"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestSessionRoundTrip(t *testing.T) {
	s := NewSessions(secret, time.Hour, false)
	want := core.Identity{Username: "Fran", Role: core.RoleAdmin}

	rec := httptest.NewRecorder()
	if err := s.Issue(rec, want); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(cookies[0])
	got, err := s.FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}
	if got != want {
		t.Fatalf("identity = %+v, want %+v", got, want)
	}
}

func TestSessionExpired(t *testing.T) {
	s := NewSessions(secret, time.Minute, false)
	s.now = func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := s.Token(core.Identity{Username: "a", Role: core.RoleUser})
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	s.now = time.Now
	if _, err := s.Parse(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestSessionWrongSecret(t *testing.T) {
	token, _ := NewSessions(secret, time.Hour, false).Token(core.Identity{Username: "a", Role: core.RoleUser})
	other := NewSessions("ffffffffffffffffffffffffffffffff", time.Hour, false)
	if _, err := other.Parse(token); err == nil {
		t.Fatal("expected signature check to fail")
	}
}

func TestSessionRejectsUnknownRole(t *testing.T) {
	s := NewSessions(secret, time.Hour, false)
	token, _ := s.Token(core.Identity{Username: "a", Role: "root"})
	if _, err := s.Parse(token); err == nil {
		t.Fatal("expected invalid role to be rejected")
	}
}

func TestMiddleware(t *testing.T) {
	s := NewSessions(secret, time.Hour, false)
	var seen core.Identity
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("redirects browsers", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
			t.Fatalf("status = %d location = %q", rec.Code, rec.Header().Get("Location"))
		}
	})

	t.Run("401 for api", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/query", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d", rec.Code)
		}
	})

	t.Run("htmx redirect header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/ui/query", nil)
		req.Header.Set("HX-Request", "true")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized || rec.Header().Get("HX-Redirect") != "/login" {
			t.Fatalf("status = %d headers = %v", rec.Code, rec.Header())
		}
	})

	t.Run("passes identity", func(t *testing.T) {
		token, _ := s.Token(core.Identity{Username: "Fran", Role: core.RoleUser})
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent || seen.Username != "Fran" {
			t.Fatalf("status = %d identity = %+v", rec.Code, seen)
		}
	})
}
