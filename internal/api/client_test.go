package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kshimizu/anitrack/internal/domain"
)

func TestClient(t *testing.T) {
	t.Run("Attaches Bearer Token When Present", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode([]string{"Action"})
		}))
		defer server.Close()

		c := NewClient(server.URL, nil)
		c.SetTokenSource(func() string { return "tok-1" })

		if _, err := c.Genres(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotAuth != "Bearer tok-1" {
			t.Errorf("expected 'Bearer tok-1', got %q", gotAuth)
		}
	})

	t.Run("Omits Authorization Header When Anonymous", func(t *testing.T) {
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode([]string{})
		}))
		defer server.Close()

		c := NewClient(server.URL, nil)
		c.SetTokenSource(func() string { return "" })

		if _, err := c.Genres(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if gotAuth != "" {
			t.Errorf("expected no Authorization header, got %q", gotAuth)
		}
	})

	t.Run("401 On Protected Route Invokes Auth Failure Handler Once", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		c := NewClient(server.URL, nil)
		calls := 0
		c.SetAuthFailureHandler(func() { calls++ })

		_, err := c.Watchlist(context.Background())
		if !errors.Is(err, domain.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected exactly one auth failure callback, got %d", calls)
		}
	})

	t.Run("401 On Public Route Has No Side Effects", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		c := NewClient(server.URL, nil)
		calls := 0
		c.SetAuthFailureHandler(func() { calls++ })

		_, err := c.SearchAnime(context.Background(), "frieren", nil, "")
		if !errors.Is(err, domain.ErrAuthFailed) {
			t.Fatalf("expected ErrAuthFailed, got %v", err)
		}
		if calls != 0 {
			t.Errorf("expected no auth failure callback on a public route, got %d", calls)
		}
	})

	t.Run("Login Rejection Maps To Invalid Credentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		c := NewClient(server.URL, nil)
		calls := 0
		c.SetAuthFailureHandler(func() { calls++ })

		_, err := c.Login(context.Background(), "ann", "wrong")
		if !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
		if calls != 0 {
			t.Errorf("expected no forced sign-out from a failed login, got %d callbacks", calls)
		}
	})

	t.Run("Login Success Returns Token And User", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/auth/login" {
				t.Errorf("expected path '/auth/login', got %s", r.URL.Path)
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["username"] != "ann" {
				t.Errorf("expected username 'ann', got %q", body["username"])
			}
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok-9",
				"token_type":   "bearer",
				"user": map[string]any{
					"id":       7,
					"username": "ann",
					"email":    "ann@example.com",
				},
			})
		}))
		defer server.Close()

		c := NewClient(server.URL, nil)
		res, err := c.Login(context.Background(), "ann", "pw")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if res.Token != "tok-9" {
			t.Errorf("expected token 'tok-9', got %q", res.Token)
		}
		if res.User.Username != "ann" || res.User.ID != 7 {
			t.Errorf("unexpected user: %+v", res.User)
		}
	})

	t.Run("404 Maps To Item Not Found", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		c := NewClient(server.URL, nil)
		_, err := c.GetAnime(context.Background(), 42)
		if !errors.Is(err, domain.ErrItemNotFound) {
			t.Fatalf("expected ErrItemNotFound, got %v", err)
		}
	})

	t.Run("Unreachable Server Maps To Server Offline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		server.Close() // Refuse connections

		c := NewClient(server.URL, nil)
		_, err := c.Genres(context.Background())
		if !errors.Is(err, domain.ErrServerOffline) {
			t.Fatalf("expected ErrServerOffline, got %v", err)
		}
	})

	t.Run("Search Defaults Missing Fields", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("query"); got != "frieren" {
				t.Errorf("expected query 'frieren', got %q", got)
			}
			if got := r.URL.Query().Get("genres"); got != "Drama,Fantasy" {
				t.Errorf("expected genres 'Drama,Fantasy', got %q", got)
			}
			// Sparse payload: no title, no genres, no coverImage.large
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": 1, "coverImage": map[string]string{"medium": "m.png"}},
			})
		}))
		defer server.Close()

		c := NewClient(server.URL, nil)
		results, err := c.SearchAnime(context.Background(), "frieren", []string{"Drama", "Fantasy"}, "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		got := results[0]
		if got.Title != "Unknown Title" {
			t.Errorf("expected defaulted title, got %q", got.Title)
		}
		if got.Genres == nil || len(got.Genres) != 0 {
			t.Errorf("expected empty genre slice, got %#v", got.Genres)
		}
		if got.CoverURL != "m.png" {
			t.Errorf("expected medium cover fallback, got %q", got.CoverURL)
		}
	})

	t.Run("Watchlist Maps Status And Embedded Anime", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode([]map[string]any{
				{
					"id":       "wl-1",
					"animeId":  12,
					"status":   "CURRENT",
					"progress": 4,
					"anime":    map[string]any{"id": 12, "title": "Mushishi", "episodes": 26},
				},
			})
		}))
		defer server.Close()

		c := NewClient(server.URL, nil)
		entries, err := c.Watchlist(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(entries))
		}
		e := entries[0]
		if e.Status != domain.WatchStatusWatching {
			t.Errorf("expected Watching, got %v", e.Status)
		}
		if e.Title != "Mushishi" || e.Episodes != 26 {
			t.Errorf("expected embedded anime fields, got %+v", e)
		}
		if e.ProgressLabel() != "4/26" {
			t.Errorf("expected progress '4/26', got %q", e.ProgressLabel())
		}
	})
}
