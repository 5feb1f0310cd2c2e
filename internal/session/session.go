// ABOUTME: Client-side session record for the signed-in Car Portal user
// ABOUTME: Mirrors the backend user payload and the role set used by route guards

package session

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the authorization role assigned to a user by the backend
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// Roles lists every role the backend can assign
var Roles = []Role{RoleUser, RoleModerator, RoleAdmin}

// ParseRole converts a role name (case-insensitive) to a Role
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q; valid roles: %v", s, Roles)
}

// Session is the authenticated identity and profile held client-side.
// Field names follow the backend's user response payload.
type Session struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Role        Role   `json:"role"`
	Phone       string `json:"phone,omitempty"`
	Avatar      string `json:"avatar,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	LastLoginAt string `json:"lastLoginAt,omitempty"`
	VisitCount  int    `json:"visitCount,omitempty"`
}

// Clone returns a copy that callers may mutate freely
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// HasRole reports whether the session's role is one of allowed
func (s *Session) HasRole(allowed ...Role) bool {
	if s == nil {
		return false
	}
	for _, r := range allowed {
		if s.Role == r {
			return true
		}
	}
	return false
}

// SameIdentity reports whether two sessions describe the same account
func (s *Session) SameIdentity(other *Session) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.ID == other.ID &&
		s.Username == other.Username &&
		s.Email == other.Email &&
		s.Role == other.Role
}

// Decode parses a session payload. An empty body or JSON null yields (nil, nil).
func Decode(data []byte) (*Session, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("invalid session payload: %w", err)
	}
	return &s, nil
}

// Credentials is the login request body
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the signup request body
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// ProfileUpdate is the profile edit request body; empty fields are left unchanged
type ProfileUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password,omitempty"`
}
