package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// newRoutedServer builds a fully wired Server via New so requests travel the
// real mux and middleware chain.
func newRoutedServer(t *testing.T, deps Deps, cfg *Config) *Server {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg.Registry = prometheus.NewRegistry()
	s, err := New(deps, cfg)
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(s.stopRL)
	return s
}

func TestNew_RequiresChatService(t *testing.T) {
	t.Parallel()

	if _, err := New(Deps{}, nil); err == nil {
		t.Errorf("want error for missing chat service")
	}
}

func TestRouting_ChatThroughMiddleware(t *testing.T) {
	t.Parallel()

	c := &fakeChatter{response: "hello"}
	s := newRoutedServer(t, Deps{Chat: c}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(chatBody("hi")))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "hello" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestRouting_AuthProtectsAPIButNotOps(t *testing.T) {
	t.Parallel()

	s := newRoutedServer(t, Deps{Chat: &fakeChatter{}, Merchants: &fakeSearcher{}}, &Config{APIKey: "secret"})

	// Protected route without a token.
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/mcc", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("/api/mcc without token: expected 401, got %d", w.Code)
	}

	// Protected route with the token.
	req := httptest.NewRequest(http.MethodGet, "/api/mcc", nil)
	req.Header.Set("Authorization", "Bearer secret")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("/api/mcc with token: expected 200, got %d", w.Code)
	}

	// Operational endpoints stay open for probes and scrapers.
	for _, path := range []string{"/api/health", "/api/ready", "/metrics"} {
		w = httptest.NewRecorder()
		s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200 without credentials, got %d", path, w.Code)
		}
	}
}

func TestRouting_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	s := newRoutedServer(t, Deps{Chat: &fakeChatter{}}, nil)

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /api/chat: expected 405, got %d", w.Code)
	}
}
