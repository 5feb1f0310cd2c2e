// ABOUTME: Tests for the API client transport
// ABOUTME: Verifies headers, error normalization, timeouts and typed endpoints

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/carportal/carportal-cli/internal/session"
)

func TestClientSendsNoCacheHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Cache-Control"); got != "no-cache, no-store, must-revalidate" {
			t.Errorf("expected no-cache Cache-Control, got %q", got)
		}
		if got := r.Header.Get("Pragma"); got != "no-cache" {
			t.Errorf("expected Pragma no-cache, got %q", got)
		}
		if got := r.Header.Get("Expires"); got != "0" {
			t.Errorf("expected Expires 0, got %q", got)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := New(server.URL)
	if _, err := c.Catalog(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientTrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:8080/")
	if c.BaseURL() != "http://localhost:8080" {
		t.Errorf("expected trailing slash trimmed, got %s", c.BaseURL())
	}
}

func TestCheckLogin_ReturnsSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/checklogin" {
			t.Errorf("expected /user/checklogin, got %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(session.Session{ID: 7, Username: "alice", Role: session.RoleAdmin})
	}))
	defer server.Close()

	sess, err := New(server.URL).CheckLogin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess == nil || sess.Username != "alice" || sess.Role != session.RoleAdmin {
		t.Errorf("expected alice/ADMIN, got %+v", sess)
	}
}

func TestCheckLogin_EmptyBodyIsNoSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sess, err := New(server.URL).CheckLogin(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess != nil {
		t.Errorf("expected nil session, got %+v", sess)
	}
}

func TestLogin_PostsCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/user/login" {
			t.Errorf("expected POST /user/login, got %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		var creds session.Credentials
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.Username != "alice" || creds.Password != "secret" {
			t.Errorf("unexpected credentials %+v", creds)
		}
		json.NewEncoder(w).Encode(session.Session{Username: "alice", Role: session.RoleUser})
	}))
	defer server.Close()

	sess, err := New(server.URL).Login(context.Background(), session.Credentials{Username: "alice", Password: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.Username != "alice" {
		t.Errorf("expected alice, got %s", sess.Username)
	}
}

func TestLogin_EmptyReplyIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	if _, err := New(server.URL).Login(context.Background(), session.Credentials{Username: "a", Password: "b"}); err == nil {
		t.Error("expected error for empty login reply")
	}
}

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		kind     Kind
		sentinel error
		message  string
	}{
		{"bad request json", http.StatusBadRequest, `{"error":"Bad Request","message":"Username taken"}`, KindValidation, ErrValidation, "Username taken"},
		{"forbidden text", http.StatusForbidden, "Access denied", KindValidation, ErrValidation, "Access denied"},
		{"not found", http.StatusNotFound, "", KindValidation, ErrValidation, "Not Found"},
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, KindServer, ErrServer, "boom"},
		{"unavailable", http.StatusServiceUnavailable, "<html>down</html>", KindServer, ErrServer, "Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New(server.URL).Catalog(context.Background())

			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %T: %v", err, err)
			}
			if apiErr.Kind != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, apiErr.Kind)
			}
			if apiErr.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.Status)
			}
			if apiErr.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, apiErr.Message)
			}
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("expected errors.Is(err, %v)", tt.sentinel)
			}
			if string(apiErr.RawBody) != tt.body {
				t.Errorf("expected raw body preserved, got %q", apiErr.RawBody)
			}
		})
	}
}

func TestNetworkError_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New(url).Catalog(context.Background())
	if !IsKind(err, KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if !errors.Is(err, ErrNetwork) {
		t.Error("expected errors.Is(err, ErrNetwork)")
	}
	if !strings.Contains(err.Error(), "cannot connect to backend") {
		t.Errorf("expected connection message, got %q", err.Error())
	}
}

func TestNetworkError_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	_, err := New(server.URL, WithTimeout(20*time.Millisecond)).Catalog(context.Background())
	if !IsKind(err, KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout message, got %q", err.Error())
	}
}

func TestNetworkError_Canceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := New(server.URL).Catalog(ctx)
	if !IsKind(err, KindNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if !strings.Contains(err.Error(), "canceled") {
		t.Errorf("expected canceled message, got %q", err.Error())
	}
}

func TestUploadAvatar_SendsMultipartFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/user/avatar" {
			t.Errorf("expected POST /user/avatar, got %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("expected multipart field 'file': %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "me.png" || string(data) != "PNGDATA" {
			t.Errorf("unexpected upload %s %q", header.Filename, data)
		}
		w.Write([]byte("/avatars/7.png\n"))
	}))
	defer server.Close()

	url, err := New(server.URL).UploadAvatar(context.Background(), "me.png", bytes.NewReader([]byte("PNGDATA")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "/avatars/7.png" {
		t.Errorf("expected trimmed avatar URL, got %q", url)
	}
}

func TestCarsByPrice_SendsRange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cars/price-range" {
			t.Errorf("expected /cars/price-range, got %s", r.URL.Path)
		}
		if r.URL.Query().Get("minPrice") != "1000" || r.URL.Query().Get("maxPrice") != "25000.5" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode([]Car{{ID: 1, Brand: "Lada", Model: "Niva", Price: 9000, Available: true}})
	}))
	defer server.Close()

	cars, err := New(server.URL).CarsByPrice(context.Background(), 1000, 25000.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cars) != 1 || cars[0].Brand != "Lada" || !cars[0].Available {
		t.Errorf("unexpected cars %+v", cars)
	}
}

func TestSearchNews_EscapesKeyword(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("keyword"); got != "new & used" {
			t.Errorf("expected keyword 'new & used', got %q", got)
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	if _, err := New(server.URL).SearchNews(context.Background(), "new & used"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServerTime_FromBackend(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("19.10.2026 12:00:00"))
	}))
	defer server.Close()

	value, fromServer := New(server.URL).ServerTime(context.Background())
	if !fromServer || value != "19.10.2026 12:00:00" {
		t.Errorf("expected server time, got %q (fromServer=%t)", value, fromServer)
	}
}

func TestServerTime_FallsBackToLocalClock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	value, fromServer := New(server.URL).ServerTime(context.Background())
	if fromServer {
		t.Error("expected local fallback")
	}
	if _, err := time.Parse(TimeLayout, value); err != nil {
		t.Errorf("expected %s layout, got %q: %v", TimeLayout, value, err)
	}
}

func TestRateLimit_Throttles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	c := New(server.URL, WithRateLimit(20, 1))
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := c.Catalog(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	// burst 1 at 20/s: the 2nd and 3rd calls wait ~50ms each
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected throttling, finished in %s", elapsed)
	}
}
