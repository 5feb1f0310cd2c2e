// ABOUTME: Route table of the portal and a router that applies guard decisions
// ABOUTME: The router is the navigator used by the refresh coordinator

package guard

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/carportal/carportal-cli/internal/session"
)

// Access is the protection level of a route
type Access int

const (
	Public Access = iota
	Authenticated
	Restricted
)

// Route is one navigable location
type Route struct {
	Pattern string
	Title   string
	Access  Access
	Roles   []session.Role
}

// Routes mirrors the portal's page map
var Routes = []Route{
	{Pattern: "/", Title: "Home", Access: Public},
	{Pattern: "/cars", Title: "Car catalog", Access: Public},
	{Pattern: "/cars/:id", Title: "Car details", Access: Public},
	{Pattern: "/news", Title: "News", Access: Public},
	{Pattern: "/news/:id", Title: "News article", Access: Public},
	{Pattern: "/login", Title: "Sign in", Access: Public},
	{Pattern: "/register", Title: "Register", Access: Public},
	{Pattern: "/profile", Title: "Profile", Access: Authenticated},
	{Pattern: "/favorites", Title: "Favorites", Access: Authenticated},
	{Pattern: "/moderator/news", Title: "News management", Access: Restricted, Roles: []session.Role{session.RoleModerator, session.RoleAdmin}},
	{Pattern: "/admin", Title: "Admin dashboard", Access: Restricted, Roles: []session.Role{session.RoleAdmin}},
	{Pattern: "/admin/cars", Title: "Manage cars", Access: Restricted, Roles: []session.Role{session.RoleAdmin}},
	{Pattern: "/admin/users", Title: "Manage users", Access: Restricted, Roles: []session.Role{session.RoleAdmin}},
}

// NotFound is matched by any path outside the table
var NotFound = Route{Pattern: "*", Title: "Not found", Access: Public}

// Check runs the guard for this route
func (r Route) Check(state AuthState, requested string) Decision {
	switch r.Access {
	case Authenticated:
		return RequireAuth(state, requested)
	case Restricted:
		return RequireRole(state, r.Roles...)
	default:
		return Decision{Outcome: Allow}
	}
}

// Match finds the route for path and extracts its parameters
func Match(path string) (Route, map[string]string) {
	path = Clean(path)
	segs := splitPath(path)
	for _, r := range Routes {
		if params, ok := matchPattern(r.Pattern, segs); ok {
			return r, params
		}
	}
	return NotFound, nil
}

// Clean strips query and fragment and normalizes slashes
func Clean(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		return "/"
	}
	return path
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func matchPattern(pattern string, segs []string) (map[string]string, bool) {
	parts := splitPath(pattern)
	if len(parts) != len(segs) {
		return nil, false
	}
	var params map[string]string
	for i, p := range parts {
		if strings.HasPrefix(p, ":") {
			if params == nil {
				params = make(map[string]string)
			}
			params[p[1:]] = segs[i]
			continue
		}
		if p != segs[i] {
			return nil, false
		}
	}
	return params, true
}

// Router tracks the current location and applies guard decisions
type Router struct {
	state AuthState

	mu        sync.Mutex
	location  string
	returnTo  string
	listeners []func(string)
}

// NewRouter creates a router positioned at start without running guards
func NewRouter(state AuthState, start string) *Router {
	return &Router{state: state, location: Clean(start)}
}

// Location returns the current path
func (r *Router) Location() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location
}

// OnNavigate registers fn to be called with every new location
func (r *Router) OnNavigate(fn func(string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Visit runs the guard for path. Allowed paths become the location;
// redirects move to the target and remember where login should return.
// Pending leaves the location unchanged.
func (r *Router) Visit(path string) Decision {
	path = Clean(path)
	route, _ := Match(path)
	d := route.Check(r.state, path)

	switch d.Outcome {
	case Allow:
		r.moveTo(path, "")
	case Redirect:
		slog.Debug("Navigation redirected", "requested", path, "to", d.To)
		r.moveTo(d.To, d.From)
	}
	return d
}

// Navigate implements the coordinator's Navigator
func (r *Router) Navigate(path string) {
	r.Visit(path)
}

// ReturnPath is where to go after a successful login
func (r *Router) ReturnPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.returnTo == "" {
		return HomePath
	}
	return r.returnTo
}

// CompleteLogin navigates to the remembered location and forgets it
func (r *Router) CompleteLogin() Decision {
	target := r.ReturnPath()
	r.mu.Lock()
	r.returnTo = ""
	r.mu.Unlock()
	return r.Visit(target)
}

func (r *Router) moveTo(path, returnTo string) {
	r.mu.Lock()
	r.location = path
	if returnTo != "" {
		r.returnTo = returnTo
	}
	listeners := append([]func(string){}, r.listeners...)
	r.mu.Unlock()

	for _, fn := range listeners {
		fn(path)
	}
}
