// ABOUTME: Cookie jar that persists the backend session cookie between runs
// ABOUTME: Owns the "cookies" storage slot; the session store never touches it

package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/carportal/carportal-cli/internal/session"
)

// CookieStorageKey is the storage slot holding persisted cookies
const CookieStorageKey = "cookies"

// storedCookie is the persisted form of a cookie
type storedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

type jarData struct {
	// Origins maps scheme://host to the cookies it set
	Origins map[string][]storedCookie `json:"origins"`
}

// PersistentJar is an http.CookieJar that saves cookies to a storage slot
type PersistentJar struct {
	mu      sync.Mutex
	storage session.Storage
	inner   *cookiejar.Jar
	data    jarData
}

// NewPersistentJar creates a jar and restores unexpired cookies from storage.
// A corrupt slot is discarded.
func NewPersistentJar(storage session.Storage) (*PersistentJar, error) {
	j := &PersistentJar{storage: storage}
	if err := j.resetInner(); err != nil {
		return nil, err
	}

	raw, ok, err := storage.Get(CookieStorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read cookies: %w", err)
	}
	if !ok {
		return j, nil
	}

	var data jarData
	if err := json.Unmarshal(raw, &data); err != nil {
		slog.Debug("Discarding corrupt cookie store", "error", err)
		_ = storage.Remove(CookieStorageKey)
		return j, nil
	}

	now := time.Now()
	for origin, stored := range data.Origins {
		u, err := url.Parse(origin)
		if err != nil {
			continue
		}
		var live []storedCookie
		for _, sc := range stored {
			if !sc.Expires.IsZero() && sc.Expires.Before(now) {
				continue
			}
			live = append(live, sc)
		}
		if len(live) == 0 {
			continue
		}
		j.data.Origins[origin] = live
		j.inner.SetCookies(u, toHTTPCookies(live))
	}
	return j, nil
}

func (j *PersistentJar) resetInner() error {
	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}
	j.inner = inner
	j.data = jarData{Origins: make(map[string][]storedCookie)}
	return nil
}

// SetCookies implements http.CookieJar and persists the change
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.inner.SetCookies(u, cookies)

	origin := originOf(u)
	merged := j.data.Origins[origin]
	now := time.Now()
	for _, c := range cookies {
		path := cookiePath(u, c.Path)
		merged = removeCookie(merged, c.Name, path, c.Domain)
		deleted := c.MaxAge < 0 || (!c.Expires.IsZero() && c.Expires.Before(now))
		if deleted {
			continue
		}
		sc := storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     path,
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		if c.MaxAge > 0 {
			sc.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}
		merged = append(merged, sc)
	}
	if len(merged) == 0 {
		delete(j.data.Origins, origin)
	} else {
		j.data.Origins[origin] = merged
	}

	if err := j.save(); err != nil {
		slog.Warn("Failed to persist cookies", "error", err)
	}
}

// Cookies implements http.CookieJar
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

// Clear drops every cookie in memory and in storage
func (j *PersistentJar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.resetInner(); err != nil {
		return err
	}
	return j.storage.Remove(CookieStorageKey)
}

func (j *PersistentJar) save() error {
	if len(j.data.Origins) == 0 {
		return j.storage.Remove(CookieStorageKey)
	}
	raw, err := json.Marshal(j.data)
	if err != nil {
		return err
	}
	return j.storage.Set(CookieStorageKey, raw)
}

func originOf(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}

// removeCookie drops the cookie identified by name, path and domain
func removeCookie(cookies []storedCookie, name, path, domain string) []storedCookie {
	domain = cookieDomain(domain)
	out := cookies[:0:0]
	for _, c := range cookies {
		if c.Name == name && c.Path == path && cookieDomain(c.Domain) == domain {
			continue
		}
		out = append(out, c)
	}
	return out
}

// cookiePath applies the default-path rule of RFC 6265 section 5.1.4
func cookiePath(u *url.URL, path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	dir := u.Path
	i := strings.LastIndex(dir, "/")
	if i <= 0 {
		return "/"
	}
	return dir[:i]
}

func cookieDomain(domain string) string {
	return strings.TrimPrefix(strings.ToLower(domain), ".")
}

func toHTTPCookies(stored []storedCookie) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(stored))
	for _, sc := range stored {
		out = append(out, &http.Cookie{
			Name:     sc.Name,
			Value:    sc.Value,
			Path:     sc.Path,
			Domain:   sc.Domain,
			Expires:  sc.Expires,
			Secure:   sc.Secure,
			HttpOnly: sc.HttpOnly,
		})
	}
	return out
}
