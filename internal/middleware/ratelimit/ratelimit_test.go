package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(rpm int) (*Limiter, *time.Time) {
	rl := NewLimiter(Config{RequestsPerMinute: rpm, IdleTTL: time.Minute})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllow_BurstThenDeny(t *testing.T) {
	rl, _ := newTestLimiter(3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.1.1.1") {
			t.Fatalf("request %d denied", i+1)
		}
	}
	if rl.Allow("1.1.1.1") {
		t.Fatal("fourth request allowed")
	}
	if !rl.Allow("2.2.2.2") {
		t.Fatal("other client should have its own bucket")
	}
	if got := rl.GetMetrics().TotalHits; got != 1 {
		t.Fatalf("TotalHits = %d, want 1", got)
	}
}

func TestAllow_Refills(t *testing.T) {
	rl, now := newTestLimiter(60)

	for i := 0; i < 60; i++ {
		rl.Allow("1.1.1.1")
	}
	if rl.Allow("1.1.1.1") {
		t.Fatal("bucket should be empty")
	}
	*now = now.Add(2 * time.Second)
	if !rl.Allow("1.1.1.1") {
		t.Fatal("bucket should have refilled")
	}
}

func TestCleanExpired(t *testing.T) {
	rl, now := newTestLimiter(10)
	rl.Allow("1.1.1.1")
	*now = now.Add(30 * time.Second)
	rl.Allow("2.2.2.2")
	*now = now.Add(45 * time.Second)

	if removed := rl.CleanExpired(); removed != 1 {
		t.Fatalf("removed %d, want 1", removed)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("active clients = %d", rl.ActiveClients())
	}
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(1)
	h := rl.Middleware(func(r *http.Request) string { return r.RemoteAddr }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/ui/query", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}
