package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bizdash/auth"
	"bizdash/store"
)

// fakeBackend serves just enough of the REST API for handler tests.
func fakeBackend(t *testing.T, token string) *httptest.Server {
	t.Helper()
	// Method-prefixed ServeMux patterns require Go 1.22; check the method
	// inside each handler so the fake backend also works on Go 1.21.
	mux := http.NewServeMux()
	requireMethod := func(method string, h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			h(w, r)
		}
	}
	mux.HandleFunc("/auth/login", requireMethod("POST", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "correct" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "invalid credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"token": token, "refreshToken": "rt-1",
			"id": "u1", "email": "u1@example.com", "name": "User One",
		})
	}))
	mux.HandleFunc("/auth/me", requireMethod("GET", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "u1", "email": "u1@example.com"})
	}))
	mux.HandleFunc("/stats", requireMethod("GET", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"totalRevenue": 1000.0, "totalOrders": 10})
	}))
	mux.HandleFunc("/sales", requireMethod("GET", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"sales": []any{}, "total": 0, "page": 1, "totalPages": 1})
	}))
	mux.HandleFunc("/customers", requireMethod("GET", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"customers": []any{}, "total": 0, "page": 1})
	}))
	return httptest.NewServer(mux)
}

func testToken(t *testing.T, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return raw
}

func newTestApp(t *testing.T, backendURL string) *App {
	t.Helper()
	cfg := DefaultConfig()
	cfg.API.BaseURL = backendURL
	cfg.API.IPLookupURL = "" // never leave the test process

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := NewAppWithStore(context.Background(), cfg, store.NewMemStore(), logger)
	if err != nil {
		t.Fatalf("NewAppWithStore: %v", err)
	}
	return app
}

func TestDashboardRedirectsWhenUnauthenticated(t *testing.T) {
	backend := fakeBackend(t, testToken(t, time.Now().Add(time.Hour)))
	defer backend.Close()
	app := newTestApp(t, backend.URL)

	w := httptest.NewRecorder()
	app.Routes().ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/login" {
		t.Fatalf("unexpected redirect target: %q", loc)
	}
}

func TestLoginPageRenders(t *testing.T) {
	backend := fakeBackend(t, testToken(t, time.Now().Add(time.Hour)))
	defer backend.Close()
	app := newTestApp(t, backend.URL)

	w := httptest.NewRecorder()
	app.Routes().ServeHTTP(w, httptest.NewRequest("GET", "/login", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Sign in") {
		t.Fatalf("login page missing heading")
	}
}

func postForm(handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestLoginFlowReachesDashboard(t *testing.T) {
	backend := fakeBackend(t, testToken(t, time.Now().Add(time.Hour)))
	defer backend.Close()
	app := newTestApp(t, backend.URL)
	routes := app.Routes()

	w := postForm(routes, "/login", url.Values{
		"email":    {"u1@example.com"},
		"password": {"correct"},
	})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected login redirect, got %d: %s", w.Code, w.Body.String())
	}
	if app.Manager.State() != auth.StateAuthenticated {
		t.Fatalf("expected authenticated state, got %v", app.Manager.State())
	}

	w = httptest.NewRecorder()
	routes.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Dashboard") {
		t.Fatalf("dashboard page missing heading")
	}
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	backend := fakeBackend(t, testToken(t, time.Now().Add(time.Hour)))
	defer backend.Close()
	app := newTestApp(t, backend.URL)

	w := postForm(app.Routes(), "/login", url.Values{
		"email":    {"u1@example.com"},
		"password": {"wrong"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected re-rendered form, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "invalid credentials") {
		t.Fatalf("server message not surfaced: %s", w.Body.String())
	}
	if app.Manager.State() != auth.StateUnauthenticated {
		t.Fatalf("state must remain unauthenticated")
	}
}

func TestLogoutEndsSession(t *testing.T) {
	backend := fakeBackend(t, testToken(t, time.Now().Add(time.Hour)))
	defer backend.Close()
	app := newTestApp(t, backend.URL)
	routes := app.Routes()

	postForm(routes, "/login", url.Values{"email": {"u1@example.com"}, "password": {"correct"}})
	if app.Manager.State() != auth.StateAuthenticated {
		t.Fatalf("precondition: login failed")
	}

	w := postForm(routes, "/logout", url.Values{})
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected logout redirect, got %d", w.Code)
	}
	if app.Manager.State() != auth.StateUnauthenticated {
		t.Fatalf("expected unauthenticated after logout")
	}

	// Dashboard is gated again.
	w = httptest.NewRecorder()
	routes.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect after logout, got %d", w.Code)
	}
}

func TestSecurityPageListsEvents(t *testing.T) {
	backend := fakeBackend(t, testToken(t, time.Now().Add(time.Hour)))
	defer backend.Close()
	app := newTestApp(t, backend.URL)
	routes := app.Routes()

	postForm(routes, "/login", url.Values{"email": {"u1@example.com"}, "password": {"correct"}})

	// The success entry is appended after a background IP lookup.
	deadline := time.Now().Add(2 * time.Second)
	for {
		w := httptest.NewRecorder()
		routes.ServeHTTP(w, httptest.NewRequest("GET", "/security", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("security page status: %d", w.Code)
		}
		if strings.Contains(w.Body.String(), "login_success") {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("login_success never appeared on security page")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestOAuthStartRejectsUnknownProvider(t *testing.T) {
	backend := fakeBackend(t, testToken(t, time.Now().Add(time.Hour)))
	defer backend.Close()
	app := newTestApp(t, backend.URL)

	w := httptest.NewRecorder()
	app.Routes().ServeHTTP(w, httptest.NewRequest("GET", "/oauth/nowhere/start", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown provider, got %d", w.Code)
	}
}
