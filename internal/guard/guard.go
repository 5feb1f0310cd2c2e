// ABOUTME: Navigation guards that allow, hold, or redirect based on session and role
// ABOUTME: Guards return a decision; the router performs the navigation

package guard

import (
	"fmt"

	"github.com/carportal/carportal-cli/internal/session"
)

// Well-known locations
const (
	HomePath     = "/"
	LoginPath    = "/login"
	RegisterPath = "/register"
)

// AuthState is the read side of the auth store that guards consult.
// *session.Store satisfies it.
type AuthState interface {
	Session() *session.Session
	Loading() bool
}

// Outcome is the kind of a guard decision
type Outcome int

const (
	// Allow lets navigation proceed
	Allow Outcome = iota
	// Pending means the store is still reconciling; render a neutral state
	Pending
	// Redirect sends the user elsewhere
	Redirect
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Pending:
		return "pending"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the result of a guard. For Redirect, To is the target and
// From is the requested location to return to after login (empty when the
// redirect is not a login redirect).
type Decision struct {
	Outcome Outcome
	To      string
	From    string
}

func (d Decision) String() string {
	switch d.Outcome {
	case Redirect:
		if d.From != "" {
			return fmt.Sprintf("redirect to %s (from %s)", d.To, d.From)
		}
		return "redirect to " + d.To
	default:
		return d.Outcome.String()
	}
}

// Allowed reports whether navigation may proceed
func (d Decision) Allowed() bool {
	return d.Outcome == Allow
}

// RequireAuth allows navigation to requested iff a session exists.
// Otherwise it redirects to login and records requested for the return trip.
func RequireAuth(state AuthState, requested string) Decision {
	if state.Loading() {
		return Decision{Outcome: Pending}
	}
	if state.Session() == nil {
		return Decision{Outcome: Redirect, To: LoginPath, From: requested}
	}
	return Decision{Outcome: Allow}
}

// RequireRole allows navigation iff a session exists with one of allowed.
// Anyone else, signed in or not, is sent home.
func RequireRole(state AuthState, allowed ...session.Role) Decision {
	if state.Loading() {
		return Decision{Outcome: Pending}
	}
	if !state.Session().HasRole(allowed...) {
		return Decision{Outcome: Redirect, To: HomePath}
	}
	return Decision{Outcome: Allow}
}
