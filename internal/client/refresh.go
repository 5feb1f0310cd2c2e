// ABOUTME: Single-flight session refresh triggered by 401 responses
// ABOUTME: Queues concurrent failures and replays them once, in arrival order, after the refresh settles

package client

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/carportal/carportal-cli/internal/session"
)

// LoginPath is where a failed refresh sends the user
const LoginPath = "/login"

// unauthenticatedPaths are locations that never trigger a redirect to login
var unauthenticatedPaths = []string{"/login", "/register"}

// SessionHandler receives refresh outcomes. session.Store implements it.
type SessionHandler interface {
	SessionRefreshed(*session.Session)
	SessionExpired()
}

// Navigator exposes the current location and performs navigation
type Navigator interface {
	Location() string
	Navigate(path string)
}

// pending is a request waiting on the outcome of a refresh
type pending struct {
	ctx   context.Context
	req   *request
	cause error
	done  chan outcome
}

type outcome struct {
	resp *Response
	err  error
}

// coordinator owns the refreshing flag and the FIFO of pending replays.
// At most one refresh is in flight; every 401 that arrives meanwhile joins
// the same batch and shares its outcome.
type coordinator struct {
	client *Client

	mu         sync.Mutex
	refreshing bool
	queue      []*pending
	handler    SessionHandler
	nav        Navigator
}

func newCoordinator(c *Client) *coordinator {
	return &coordinator{client: c}
}

func (rc *coordinator) setHandler(h SessionHandler) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.handler = h
}

func (rc *coordinator) setNavigator(n Navigator) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.nav = n
}

// recover enqueues req and either waits for the in-flight refresh or runs it
func (rc *coordinator) recover(ctx context.Context, req *request, cause error) (*Response, error) {
	p := &pending{
		ctx:   ctx,
		req:   req,
		cause: cause,
		done:  make(chan outcome, 1),
	}

	rc.mu.Lock()
	rc.queue = append(rc.queue, p)
	if rc.refreshing {
		rc.mu.Unlock()
		rc.client.metrics.queued.Inc()
		slog.Debug("Waiting for session refresh", "method", req.method, "path", req.path)

		select {
		case res := <-p.done:
			return res.resp, res.err
		case <-ctx.Done():
			return nil, newNetworkError(ctx, rc.client.baseURL, ctx.Err())
		}
	}
	rc.refreshing = true
	rc.mu.Unlock()

	rc.settle(ctx)

	res := <-p.done
	return res.resp, res.err
}

// settle runs the refresh, then resolves or rejects the whole batch
func (rc *coordinator) settle(ctx context.Context) {
	// The refresh serves every queued caller, so it must outlive the leader's cancellation.
	sess, err := rc.client.CheckLogin(context.WithoutCancel(ctx))
	if err == nil && sess == nil {
		err = &APIError{Kind: KindAuthorization, Status: 200, Message: "backend returned no session"}
	}

	rc.mu.Lock()
	batch := rc.queue
	rc.queue = nil
	rc.refreshing = false
	handler := rc.handler
	nav := rc.nav
	rc.mu.Unlock()

	rc.client.metrics.observeRefresh(err == nil)

	if err != nil {
		slog.Info("Session refresh failed", "error", err, "rejected", len(batch))
		// Sign out before any caller sees the rejection.
		if handler != nil {
			handler.SessionExpired()
		}
		redirectToLogin(nav)
		for _, p := range batch {
			p.done <- outcome{err: &RefreshError{Err: err, Original: p.cause}}
		}
		return
	}

	slog.Debug("Session refreshed, replaying requests", "user", sess.Username, "replays", len(batch))
	if handler != nil {
		handler.SessionRefreshed(sess)
	}
	for _, p := range batch {
		resp, err := rc.client.send(p.ctx, p.req)
		rc.client.metrics.observeReplay(err)
		p.done <- outcome{resp: resp, err: err}
	}
}

func redirectToLogin(nav Navigator) {
	if nav == nil {
		return
	}
	loc := nav.Location()
	for _, p := range unauthenticatedPaths {
		if strings.HasPrefix(loc, p) {
			return
		}
	}
	slog.Debug("Redirecting to login", "from", loc)
	nav.Navigate(LoginPath)
}

func isCheckLoginPath(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.TrimRight(path, "/") == CheckLoginPath
}
