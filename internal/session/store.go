// ABOUTME: Single-owner auth state container for the current user session
// ABOUTME: Exposes login, logout, register, checkAuth and avatar operations

package session

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// AuthAPI is the subset of the backend the store needs.
// *client.Client satisfies it.
type AuthAPI interface {
	CheckLogin(ctx context.Context) (*Session, error)
	Login(ctx context.Context, creds Credentials) (*Session, error)
	Logout(ctx context.Context) error
	Signup(ctx context.Context, reg Registration) (*Session, error)
	UploadAvatar(ctx context.Context, filename string, r io.Reader) (string, error)
	DeleteAvatar(ctx context.Context) (string, error)
	EditProfile(ctx context.Context, update ProfileUpdate) (*Session, error)
	ClearCredentials() error
}

// Listener is notified with a copy of the session after every change (nil = signed out)
type Listener func(*Session)

// Store holds the current session and is the only writer of the persisted slot.
// Create it with New, then call Start once to reconcile with the backend.
type Store struct {
	api     AuthAPI
	storage Storage

	mu        sync.RWMutex
	current   *Session
	loading   bool
	listeners map[int]Listener
	nextID    int

	// persist serializes each memory update with its storage write
	persist sync.Mutex

	checks    singleflight.Group
	startOnce sync.Once
	ready     chan struct{}
}

// New creates a store and synchronously hydrates it from storage.
// A corrupt persisted entry is discarded. Loading stays true until Start completes.
func New(api AuthAPI, storage Storage) *Store {
	s := &Store{
		api:       api,
		storage:   storage,
		loading:   true,
		listeners: make(map[int]Listener),
		ready:     make(chan struct{}),
	}
	s.hydrate()
	return s
}

func (s *Store) hydrate() {
	data, ok, err := s.storage.Get(StorageKey)
	if err != nil {
		slog.Warn("Failed to read persisted session", "error", err)
		return
	}
	if !ok {
		return
	}

	sess, err := Decode(data)
	if err != nil || sess == nil {
		slog.Debug("Discarding corrupt persisted session", "error", err)
		if err := s.storage.Remove(StorageKey); err != nil {
			slog.Warn("Failed to remove corrupt session", "error", err)
		}
		return
	}
	s.current = sess
	slog.Debug("Session hydrated from storage", "user", sess.Username)
}

// Start issues the one reconciling CheckAuth call in the background.
// Subsequent calls are no-ops.
func (s *Store) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		go func() {
			s.CheckAuth(ctx)
			s.mu.Lock()
			s.loading = false
			s.mu.Unlock()
			close(s.ready)
			s.notify()
		}()
	})
}

// Init starts reconciliation and waits for it to finish
func (s *Store) Init(ctx context.Context) error {
	s.Start(ctx)
	return s.Wait(ctx)
}

// Wait blocks until the startup reconciliation has completed
func (s *Store) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready is closed once the startup reconciliation has completed
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Loading reports whether startup reconciliation is still in flight
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Session returns a copy of the current session, or nil when signed out
func (s *Store) Session() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// IsAuthenticated reports whether a session is present
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// Subscribe registers l for change notifications and returns an unsubscribe func
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Login authenticates with the backend and stores the returned session
func (s *Store) Login(ctx context.Context, creds Credentials) (*Session, error) {
	sess, err := s.api.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	s.set(sess)
	slog.Info("Logged in", "user", sess.Username, "role", sess.Role)
	return sess.Clone(), nil
}

// Logout ends the remote session. Local state, the persisted slot and the
// stored credential are always cleared; a remote failure is only logged.
func (s *Store) Logout(ctx context.Context) {
	defer s.reset()

	if err := s.api.Logout(ctx); err != nil {
		slog.Warn("Remote logout failed, clearing local session anyway", "error", err)
		return
	}
	slog.Info("Logged out")
}

// Register creates an account and returns the backend record verbatim.
// It does not sign the new user in.
func (s *Store) Register(ctx context.Context, reg Registration) (*Session, error) {
	return s.api.Signup(ctx, reg)
}

// CheckAuth asks the backend for the current session. It never fails:
// any error is reported as a nil session and clears local state.
// Concurrent callers share a single request. A caller whose ctx ends
// first gets the current session without changing it.
func (s *Store) CheckAuth(ctx context.Context) *Session {
	// The shared check outlives any single caller.
	shared := context.WithoutCancel(ctx)
	ch := s.checks.DoChan("check", func() (interface{}, error) {
		sess, err := s.api.CheckLogin(shared)
		if err != nil || sess == nil {
			slog.Debug("Not authenticated", "error", err)
			s.clear()
			return (*Session)(nil), nil
		}
		s.set(sess)
		return sess, nil
	})

	select {
	case res := <-ch:
		sess, _ := res.Val.(*Session)
		return sess.Clone()
	case <-ctx.Done():
		slog.Debug("Session check abandoned by caller", "error", ctx.Err())
		return s.Session()
	}
}

// UploadAvatar uploads a new avatar, merges it optimistically, then
// reconciles with the backend. Returns the server's avatar URL when the
// reconciled session carries one, else the upload response.
func (s *Store) UploadAvatar(ctx context.Context, filename string, r io.Reader) (string, error) {
	url, err := s.api.UploadAvatar(ctx, filename, r)
	if err != nil {
		return "", err
	}

	s.mergeAvatar(url)

	if updated := s.CheckAuth(ctx); updated != nil && updated.Avatar != "" {
		return updated.Avatar, nil
	}
	return url, nil
}

// DeleteAvatar removes the avatar and applies the default one returned by the backend
func (s *Store) DeleteAvatar(ctx context.Context) (string, error) {
	url, err := s.api.DeleteAvatar(ctx)
	if err != nil {
		return "", err
	}
	s.mergeAvatar(url)
	return url, nil
}

// UpdateProfile edits the profile and stores the updated session
func (s *Store) UpdateProfile(ctx context.Context, update ProfileUpdate) (*Session, error) {
	sess, err := s.api.EditProfile(ctx, update)
	if err != nil {
		return nil, err
	}
	s.set(sess)
	return sess.Clone(), nil
}

// SessionRefreshed is called by the refresh coordinator after a successful re-check
func (s *Store) SessionRefreshed(sess *Session) {
	if sess == nil {
		s.clear()
		return
	}
	slog.Debug("Session refreshed", "user", sess.Username)
	s.set(sess)
}

// SessionExpired is called by the refresh coordinator when re-authentication fails
func (s *Store) SessionExpired() {
	slog.Info("Session expired, signing out")
	s.reset()
}

func (s *Store) mergeAvatar(url string) {
	s.persist.Lock()
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		s.persist.Unlock()
		return
	}
	merged := s.current.Clone()
	merged.Avatar = url
	s.current = merged
	s.mu.Unlock()
	s.save(merged)
	s.persist.Unlock()
	s.notify()
}

func (s *Store) set(sess *Session) {
	s.persist.Lock()
	s.mu.Lock()
	s.current = sess.Clone()
	s.mu.Unlock()
	s.save(sess)
	s.persist.Unlock()
	s.notify()
}

func (s *Store) clear() {
	s.persist.Lock()
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	if err := s.storage.Remove(StorageKey); err != nil {
		slog.Warn("Failed to remove persisted session", "error", err)
	}
	s.persist.Unlock()
	s.notify()
}

// save writes sess to the persisted slot; callers hold persist
func (s *Store) save(sess *Session) {
	data, err := json.Marshal(sess)
	if err == nil {
		err = s.storage.Set(StorageKey, data)
	}
	if err != nil {
		slog.Warn("Failed to persist session", "error", err)
	}
}

// reset clears the session and the transport credential
func (s *Store) reset() {
	s.clear()
	if err := s.api.ClearCredentials(); err != nil {
		slog.Warn("Failed to clear stored credentials", "error", err)
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	snapshot := s.current.Clone()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.RUnlock()

	for _, l := range listeners {
		l(snapshot.Clone())
	}
}
