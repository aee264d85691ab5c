package auth

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/evcraddock/offer-form/internal/db"
)

type guard struct {
	sessions *SessionStore
	keys     *APIKeyStore
	limiter  *Limiter
	handler  http.Handler
}

func newGuard(t *testing.T) *guard {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("close: %v", err)
		}
	})

	g := &guard{
		sessions: NewSessionStore(d, NewGate("letmein"), true),
		keys:     NewAPIKeyStore(d),
		limiter:  NewLimiter(time.Minute, 3),
	}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	g.handler = RequireAdmin(g.sessions, g.keys, g.limiter, inner)
	return g
}

func (g *guard) do(mod func(r *http.Request)) int {
	r := httptest.NewRequest("GET", "/api/admin/agents", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	if mod != nil {
		mod(r)
	}
	w := httptest.NewRecorder()
	g.handler.ServeHTTP(w, r)
	return w.Code
}

func TestRequireAdminRejectsAnonymous(t *testing.T) {
	g := newGuard(t)

	if code := g.do(nil); code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", code, http.StatusUnauthorized)
	}
}

func TestRequireAdminAllowsSession(t *testing.T) {
	g := newGuard(t)

	w := httptest.NewRecorder()
	if _, err := g.sessions.GrantPassphrase(w); err != nil {
		t.Fatalf("create session: %v", err)
	}
	cookies := w.Result().Cookies()

	code := g.do(func(r *http.Request) {
		for _, c := range cookies {
			r.AddCookie(c)
		}
	})
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
}

func TestRequireAdminAllowsAPIKey(t *testing.T) {
	g := newGuard(t)

	raw, _, err := g.keys.Create("cli")
	if err != nil {
		t.Fatalf("create key: %v", err)
	}

	code := g.do(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+raw) })
	if code != http.StatusOK {
		t.Errorf("status = %d, want %d", code, http.StatusOK)
	}
}

func TestRequireAdminRateLimitsFailures(t *testing.T) {
	g := newGuard(t)

	raw, _, err := g.keys.Create("cli")
	if err != nil {
		t.Fatalf("create key: %v", err)
	}

	bad := func(r *http.Request) { r.Header.Set("Authorization", "Bearer of_wrong") }
	for i := 0; i < 3; i++ {
		if code := g.do(bad); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i, code)
		}
	}
	if code := g.do(bad); code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", code)
	}

	// Once limited, even a good key waits for the window.
	good := func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+raw) }
	if code := g.do(good); code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", code)
	}

	// Another client is unaffected.
	other := func(r *http.Request) {
		good(r)
		r.RemoteAddr = "198.51.100.7:1234"
	}
	if code := g.do(other); code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", code)
	}
}

func TestRequireAdminSuccessDoesNotCount(t *testing.T) {
	g := newGuard(t)

	raw, _, err := g.keys.Create("cli")
	if err != nil {
		t.Fatalf("create key: %v", err)
	}

	for i := 0; i < 10; i++ {
		code := g.do(func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+raw) })
		if code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, code)
		}
	}
}

func TestLimiterWindow(t *testing.T) {
	l := NewLimiter(time.Minute, 2)
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Fail("a")
	l.Fail("a")
	if !l.Limited("a") {
		t.Fatal("expected limited after two failures")
	}

	now = now.Add(61 * time.Second)
	if l.Limited("a") {
		t.Error("expected window to expire")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer of_abc", "of_abc", true},
		{"Bearer   ", "", false},
		{"Basic xyz", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", "/", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		got, ok := BearerToken(r)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "203.0.113.9:4321"
	if got := ClientIP(r); got != "203.0.113.9" {
		t.Errorf("ClientIP = %q", got)
	}

	r.RemoteAddr = "pipe"
	if got := ClientIP(r); got != "pipe" {
		t.Errorf("ClientIP = %q", got)
	}
}
