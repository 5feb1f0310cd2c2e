// ABOUTME: In-memory Car Portal backend for command tests
// ABOUTME: Cookie sessions, role checks and switches for expiring or rejecting sessions

package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/carportal/carportal-cli/internal/client"
	"github.com/carportal/carportal-cli/internal/session"
)

const sessionCookie = "JSESSIONID"

type testAccount struct {
	password string
	user     session.Session
}

type testBackend struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*testAccount
	sessions map[string]string
	cars     []client.Car

	// favorites401 makes /favorites reply 401 this many times before serving
	favorites401 atomic.Int32
	// revokeOnFavorites drops every session when /favorites is requested
	revokeOnFavorites atomic.Bool
	// revokeOnDashboard drops every session when /user/dashboard is requested
	revokeOnDashboard atomic.Bool
	// timeDown makes /time fail
	timeDown atomic.Bool

	checks atomic.Int32
}

// newTestBackend starts a backend and points the CLI at it with a fresh
// config directory
func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	b := &testBackend{
		accounts: map[string]*testAccount{
			"alice": {password: "alice-pw", user: session.Session{ID: 1, Username: "alice", Email: "alice@example.com", Role: session.RoleUser}},
			"mod":   {password: "mod-pw", user: session.Session{ID: 2, Username: "mod", Email: "mod@example.com", Role: session.RoleModerator}},
			"root":  {password: "root-pw", user: session.Session{ID: 3, Username: "root", Email: "root@example.com", Role: session.RoleAdmin}},
		},
		sessions: make(map[string]string),
		cars: []client.Car{
			{ID: 1, Brand: "Lada", Model: "Niva", Year: 2021, Price: 9000, Available: true},
			{ID: 2, Brand: "Volga", Model: "GAZ-21", Year: 1965, Price: 15000.5},
		},
	}
	b.Server = httptest.NewServer(b.routes())
	t.Cleanup(b.Close)

	apiURL = ""
	configDir = ""
	jsonOutput = false
	t.Setenv("CARPORTAL_API_URL", b.URL)
	t.Setenv("CARPORTAL_CONFIG_DIR", t.TempDir())
	t.Setenv("CARPORTAL_RATE_LIMIT", "0")
	t.Setenv("LOG_FILE", "")
	t.Cleanup(func() { jsonOutput = false })
	return b
}

func (b *testBackend) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /user/login", func(w http.ResponseWriter, r *http.Request) {
		var creds session.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		b.mu.Lock()
		acct, ok := b.accounts[creds.Username]
		if !ok || acct.password != creds.Password {
			b.mu.Unlock()
			writeJSON(w, http.StatusBadRequest, client.ErrorResponse{Error: "Bad Request", Message: "Invalid username or password"})
			return
		}
		token := uuid.NewString()
		b.sessions[token] = creds.Username
		user := acct.user
		b.mu.Unlock()

		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true})
		writeJSON(w, http.StatusOK, user)
	})

	mux.HandleFunc("GET /user/checklogin", func(w http.ResponseWriter, r *http.Request) {
		b.checks.Add(1)
		user, ok := b.current(r)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, user)
	})

	mux.HandleFunc("GET /user/logout", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(sessionCookie); err == nil {
			b.mu.Lock()
			delete(b.sessions, c.Value)
			b.mu.Unlock()
		}
		http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	})

	mux.HandleFunc("POST /user/signup", func(w http.ResponseWriter, r *http.Request) {
		var reg session.Registration
		json.NewDecoder(r.Body).Decode(&reg)
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, exists := b.accounts[reg.Username]; exists {
			http.Error(w, "Username already taken", http.StatusBadRequest)
			return
		}
		user := session.Session{ID: int64(len(b.accounts) + 1), Username: reg.Username, Email: reg.Email, Role: session.RoleUser}
		b.accounts[reg.Username] = &testAccount{password: reg.Password, user: user}
		writeJSON(w, http.StatusOK, user)
	})

	dashboard := b.authed(func(w http.ResponseWriter, r *http.Request, user session.Session) {
		user.VisitCount = 3
		writeJSON(w, http.StatusOK, user)
	})
	mux.HandleFunc("GET /user/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if b.revokeOnDashboard.Load() {
			b.mu.Lock()
			b.sessions = make(map[string]string)
			b.mu.Unlock()
		}
		dashboard(w, r)
	})

	mux.HandleFunc("GET /cars/catalog", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, b.cars)
	})

	mux.HandleFunc("GET /cars/{id}", func(w http.ResponseWriter, r *http.Request) {
		for _, c := range b.cars {
			if r.PathValue("id") == jsonNumber(c.ID) {
				writeJSON(w, http.StatusOK, c)
				return
			}
		}
		http.Error(w, "Car not found", http.StatusNotFound)
	})

	mux.HandleFunc("GET /favorites", func(w http.ResponseWriter, r *http.Request) {
		if b.revokeOnFavorites.Load() {
			b.mu.Lock()
			b.sessions = make(map[string]string)
			b.mu.Unlock()
		}
		if b.favorites401.Load() > 0 {
			b.favorites401.Add(-1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b.authed(func(w http.ResponseWriter, r *http.Request, _ session.Session) {
			writeJSON(w, http.StatusOK, b.cars[:1])
		})(w, r)
	})

	mux.HandleFunc("GET /admin/users", b.authed(func(w http.ResponseWriter, r *http.Request, user session.Session) {
		if user.Role != session.RoleAdmin {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		users := make([]session.Session, 0, len(b.accounts))
		for _, name := range []string{"alice", "mod", "root"} {
			users = append(users, b.accounts[name].user)
		}
		writeJSON(w, http.StatusOK, users)
	}))

	mux.HandleFunc("GET /time", func(w http.ResponseWriter, r *http.Request) {
		if b.timeDown.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("19.10.2026 12:00:00"))
	})

	return mux
}

func (b *testBackend) current(r *http.Request) (session.Session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return session.Session{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	name, ok := b.sessions[c.Value]
	if !ok {
		return session.Session{}, false
	}
	return b.accounts[name].user, true
}

func (b *testBackend) authed(next func(http.ResponseWriter, *http.Request, session.Session)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := b.current(r)
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		next(w, r, user)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonNumber(id int64) string {
	data, _ := json.Marshal(id)
	return string(data)
}
