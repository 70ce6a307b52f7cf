package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoginParsesTokenAndIdentity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "u1@example.com", body["email"])
		require.Equal(t, "hunter2", body["password"])

		json.NewEncoder(w).Encode(map[string]any{
			"token":        "tok",
			"refreshToken": "rt",
			"id":           "u1",
			"email":        "u1@example.com",
			"name":         "User One",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	resp, err := c.Login(context.Background(), "u1@example.com", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "tok", resp.Token)
	require.Equal(t, "rt", resp.RefreshToken)
	require.Equal(t, "u1", resp.ID)
	require.Equal(t, "User One", resp.Name)
}

func TestErrorCarriesServerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid credentials"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	_, err := c.Login(context.Background(), "u1@example.com", "nope")

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "invalid credentials", apiErr.Message)
}

func TestErrorToleratesAlternateKeysAndEmptyBody(t *testing.T) {
	for _, tc := range []struct {
		body string
		want string
	}{
		{`{"error":"nope"}`, "nope"},
		{`{"detail":"bad request"}`, "bad request"},
		{``, ""},
		{`not json`, ""},
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, tc.body)
		}))

		c := NewClient(srv.URL, time.Second, testLogger())
		_, err := c.Login(context.Background(), "a", "b")
		var apiErr *Error
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, tc.want, apiErr.Message)
		srv.Close()
	}
}

func TestMeSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/me", r.URL.Path)
		require.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(Identity{ID: "u1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	id, err := c.Me(context.Background(), "tok-123")
	require.NoError(t, err)
	require.Equal(t, "u1", id.ID)
}

func TestRefreshPostsStoredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/refresh", r.URL.Path)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		require.Equal(t, "rt-1", body["refreshToken"])
		json.NewEncoder(w).Encode(RefreshResponse{Token: "tok-2", NewRefreshToken: "rt-2"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	resp, err := c.Refresh(context.Background(), "rt-1")
	require.NoError(t, err)
	require.Equal(t, "tok-2", resp.Token)
	require.Equal(t, "rt-2", resp.NewRefreshToken)
}

func TestOAuthLoginHitsProviderPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/google", r.URL.Path)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		require.Equal(t, "idt", body["idToken"])
		json.NewEncoder(w).Encode(map[string]any{"token": "tok", "id": "u1"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	resp, err := c.OAuthLogin(context.Background(), "google", map[string]string{"idToken": "idt"})
	require.NoError(t, err)
	require.Equal(t, "tok", resp.Token)
}

func TestListSalesEncodesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/sales", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "2", q.Get("page"))
		require.Equal(t, "50", q.Get("pageSize"))
		require.Equal(t, "-amount", q.Get("sort"))
		require.Equal(t, "paid", q.Get("status"))
		require.Equal(t, "", q.Get("search"), "empty params must be omitted")

		json.NewEncoder(w).Encode(SalesPage{Total: 1, Page: 2, PageSize: 50, TotalPages: 3,
			Sales: []Sale{{ID: "s1", Amount: 99.5, Status: "paid"}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	page, err := c.ListSales(context.Background(), "tok", SalesQuery{
		Page: 2, PageSize: 50, Sort: "-amount", Status: "paid",
	})
	require.NoError(t, err)
	require.Len(t, page.Sales, 1)
	require.Equal(t, 3, page.TotalPages)
}

func TestGetStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/stats", r.URL.Path)
		require.Equal(t, "30d", r.URL.Query().Get("range"))
		json.NewEncoder(w).Encode(Stats{TotalRevenue: 1200.50, TotalOrders: 42,
			Series: []StatsPoint{{Date: "2026-08-01", Revenue: 100, Orders: 3}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, testLogger())
	stats, err := c.GetStats(context.Background(), "tok", "30d")
	require.NoError(t, err)
	require.Equal(t, 42, stats.TotalOrders)
	require.Len(t, stats.Series, 1)
}

func TestIPLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"ip": "198.51.100.7"})
	}))
	defer srv.Close()

	l := NewIPLookup(srv.URL)
	require.Equal(t, "198.51.100.7", l.ResolveIP(context.Background()))
}

func TestIPLookupFailuresYieldUnknown(t *testing.T) {
	require.Equal(t, UnknownIP, NewIPLookup("").ResolveIP(context.Background()))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	require.Equal(t, UnknownIP, NewIPLookup(srv.URL).ResolveIP(context.Background()))
	srv.Close()

	// Dead endpoint after Close.
	require.Equal(t, UnknownIP, NewIPLookup(srv.URL).ResolveIP(context.Background()))
}
