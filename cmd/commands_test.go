// ABOUTME: Tests for the portal commands against an in-memory backend
// ABOUTME: Verifies guard denials, role checks, session refresh outcomes and formatting

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/carportal/carportal-cli/internal/client"
	"github.com/carportal/carportal-cli/internal/session"
)

func TestCarsList_Public(t *testing.T) {
	newTestBackend(t)

	var buf bytes.Buffer
	if code := runCarsList(context.Background(), &buf); code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, buf.String())
	}
	out := buf.String()
	if !strings.Contains(out, "Niva") || !strings.Contains(out, "GAZ-21") {
		t.Errorf("expected both cars in output:\n%s", out)
	}
	if !strings.Contains(out, "2 car(s)") {
		t.Errorf("expected count line:\n%s", out)
	}
}

func TestCarsShow(t *testing.T) {
	newTestBackend(t)

	var buf bytes.Buffer
	if code := runCarsShow(context.Background(), &buf, "2"); code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "Car #2:      Volga GAZ-21") || !strings.Contains(buf.String(), "sold") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}

	buf.Reset()
	if code := runCarsShow(context.Background(), &buf, "99"); code != exitError {
		t.Errorf("expected exit 2 for a missing car, got %d", code)
	}
	if !strings.Contains(buf.String(), "Car not found") {
		t.Errorf("expected backend message, got: %s", buf.String())
	}
}

func TestCarsShow_InvalidID(t *testing.T) {
	var buf bytes.Buffer
	if code := runCarsShow(context.Background(), &buf, "abc"); code != exitError {
		t.Errorf("expected exit 2, got %d", code)
	}
}

func TestCarsPrice_InvalidRange(t *testing.T) {
	tests := []struct {
		min, max string
	}{
		{"x", "10"},
		{"10", "y"},
		{"500", "100"},
	}

	for _, tt := range tests {
		var buf bytes.Buffer
		if code := runCarsPrice(context.Background(), &buf, tt.min, tt.max); code != exitError {
			t.Errorf("runCarsPrice(%s, %s): expected exit 2, got %d", tt.min, tt.max, code)
		}
		if !strings.HasPrefix(buf.String(), "Error:") {
			t.Errorf("expected error output, got %q", buf.String())
		}
	}
}

func TestFavorites_SignedOutIsDenied(t *testing.T) {
	newTestBackend(t)

	var buf bytes.Buffer
	code := runFavoritesList(context.Background(), &buf)

	if code != exitDenied {
		t.Errorf("expected exit 1, got %d", code)
	}
	out := buf.String()
	if !strings.Contains(out, "Access denied to /favorites: redirect to /login (from /favorites)") {
		t.Errorf("unexpected denial: %s", out)
	}
	if !strings.Contains(out, "carportal login") {
		t.Errorf("expected login hint: %s", out)
	}
}

func TestFavorites_SignedIn(t *testing.T) {
	newTestBackend(t)
	login(t, "alice", "alice-pw")

	var buf bytes.Buffer
	if code := runFavoritesList(context.Background(), &buf); code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "Niva") {
		t.Errorf("expected favorite car: %s", buf.String())
	}
}

func TestFavorites_ExpiredCallIsReplayed(t *testing.T) {
	b := newTestBackend(t)
	login(t, "alice", "alice-pw")
	b.favorites401.Store(1)

	var buf bytes.Buffer
	if code := runFavoritesList(context.Background(), &buf); code != exitOK {
		t.Fatalf("expected the 401 to be refreshed and replayed, got %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "Niva") {
		t.Errorf("expected replayed result: %s", buf.String())
	}
}

func TestFavorites_RevokedSessionSignsOut(t *testing.T) {
	b := newTestBackend(t)
	login(t, "alice", "alice-pw")
	b.revokeOnFavorites.Store(true)

	var buf bytes.Buffer
	code := runFavoritesList(context.Background(), &buf)
	if code != exitError {
		t.Fatalf("expected exit 2, got %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "Your session has expired") {
		t.Errorf("expected expiry hint: %s", buf.String())
	}

	buf.Reset()
	if code := runWhoami(context.Background(), &buf); code != exitDenied {
		t.Errorf("expected the local session to be cleared, got %d", code)
	}
}

func TestProfile_RevokedSessionReportsUnauthorized(t *testing.T) {
	b := newTestBackend(t)
	login(t, "alice", "alice-pw")
	b.revokeOnDashboard.Store(true)

	var buf bytes.Buffer
	code := runProfile(context.Background(), &buf)
	if code != exitError {
		t.Fatalf("expected exit 2, got %d: %s", code, buf.String())
	}
	if strings.Contains(buf.String(), "session refresh failed") {
		t.Errorf("expected the original 401, not the refresh error: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "Your session has expired") {
		t.Errorf("expected expiry hint: %s", buf.String())
	}

	buf.Reset()
	if code := runWhoami(context.Background(), &buf); code != exitDenied {
		t.Errorf("expected the local session to be cleared, got %d", code)
	}
}

func TestAdminUsers_UserIsSentHome(t *testing.T) {
	newTestBackend(t)
	login(t, "alice", "alice-pw")

	var buf bytes.Buffer
	code := runAdminUsers(context.Background(), &buf)

	if code != exitDenied {
		t.Errorf("expected exit 1, got %d", code)
	}
	if !strings.Contains(buf.String(), "Access denied to /admin/users: redirect to /") {
		t.Errorf("unexpected output: %s", buf.String())
	}
	if strings.Contains(buf.String(), "carportal login") {
		t.Error("role denials should not suggest signing in")
	}
}

func TestAdminUsers_Admin(t *testing.T) {
	newTestBackend(t)
	login(t, "root", "root-pw")

	var buf bytes.Buffer
	if code := runAdminUsers(context.Background(), &buf); code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, buf.String())
	}
	for _, name := range []string{"alice", "mod", "root", "3 user(s)"} {
		if !strings.Contains(buf.String(), name) {
			t.Errorf("expected %q in output:\n%s", name, buf.String())
		}
	}
}

func TestModeratorNewsAdd_RequiresFields(t *testing.T) {
	var buf bytes.Buffer
	code := runModeratorNewsAdd(context.Background(), &buf, client.NewsInput{Title: "Only title"})
	if code != exitError {
		t.Errorf("expected exit 2, got %d", code)
	}
}

func TestProfileEdit_NothingToUpdate(t *testing.T) {
	var buf bytes.Buffer
	if code := runProfileEdit(context.Background(), &buf, session.ProfileUpdate{}); code != exitError {
		t.Errorf("expected exit 2, got %d", code)
	}
}

func TestProfile_Dashboard(t *testing.T) {
	newTestBackend(t)
	login(t, "mod", "mod-pw")

	var buf bytes.Buffer
	if code := runProfile(context.Background(), &buf); code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, buf.String())
	}
	if !strings.Contains(buf.String(), "Visits:     3") {
		t.Errorf("expected dashboard fields:\n%s", buf.String())
	}
}

func TestRoute_JSON(t *testing.T) {
	newTestBackend(t)
	jsonOutput = true

	var buf bytes.Buffer
	code := runRoute(context.Background(), &buf, "/profile/")
	if code != exitDenied {
		t.Errorf("expected exit 1, got %d", code)
	}

	var result routeResult
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if result.Path != "/profile" || result.Outcome != "redirect" || result.To != "/login" || result.From != "/profile" {
		t.Errorf("unexpected result %+v", result)
	}
	if result.Location != "/login" {
		t.Errorf("expected router at /login, got %s", result.Location)
	}
}

func TestRoute_ModeratorPages(t *testing.T) {
	newTestBackend(t)
	login(t, "mod", "mod-pw")

	var buf bytes.Buffer
	if code := runRoute(context.Background(), &buf, "/moderator/news"); code != exitOK {
		t.Errorf("expected moderator access, got %d: %s", code, buf.String())
	}

	buf.Reset()
	if code := runRoute(context.Background(), &buf, "/admin"); code != exitDenied {
		t.Errorf("expected moderator to be denied /admin, got %d", code)
	}

	buf.Reset()
	if code := runRoute(context.Background(), &buf, "/news/12"); code != exitOK {
		t.Fatalf("expected public access, got %d", code)
	}
	if !strings.Contains(buf.String(), "Params:   id=12") {
		t.Errorf("expected params line:\n%s", buf.String())
	}
}

func TestTime(t *testing.T) {
	b := newTestBackend(t)

	var buf bytes.Buffer
	runTime(context.Background(), &buf)
	if strings.TrimSpace(buf.String()) != "19.10.2026 12:00:00" {
		t.Errorf("expected server time, got %q", buf.String())
	}

	b.timeDown.Store(true)
	buf.Reset()
	if code := runTime(context.Background(), &buf); code != exitOK {
		t.Errorf("expected exit 0 on fallback, got %d", code)
	}
	if !strings.Contains(buf.String(), "(local clock, server unavailable at "+b.URL+")") {
		t.Errorf("expected fallback note, got %q", buf.String())
	}
}

func TestFormatCarsHuman(t *testing.T) {
	if got := formatCarsHuman(nil); got != "No cars found." {
		t.Errorf("expected empty message, got %q", got)
	}

	out := formatCarsHuman([]client.Car{{ID: 1, Brand: "Lada", Model: "Niva", Year: 2021, Price: 9000, Available: true}})
	if !strings.Contains(out, "available") || !strings.Contains(out, "1 car(s)") {
		t.Errorf("unexpected table:\n%s", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Mercedes-Benz", 8); got != "Mercede…" {
		t.Errorf("expected truncation, got %q", got)
	}
	if got := truncate("Lada", 8); got != "Lada" {
		t.Errorf("expected unchanged, got %q", got)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		arg   string
		valid bool
	}{
		{"1", true},
		{"42", true},
		{"0", false},
		{"-3", false},
		{"abc", false},
	}

	for _, tt := range tests {
		_, err := parseID(tt.arg)
		if tt.valid && err != nil {
			t.Errorf("parseID(%q) expected valid, got %v", tt.arg, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("parseID(%q) expected error", tt.arg)
		}
	}
}
