// ABOUTME: HTTP client for the Car Portal REST backend
// ABOUTME: Attaches credentials and no-cache headers, normalizes errors, hands 401s to the refresh coordinator

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// DefaultTimeout is the transport-level request timeout
const DefaultTimeout = 15 * time.Second

// maxBodySize caps how much of a response body is read
const maxBodySize = 10 << 20

// Client is the API client for the Car Portal backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	jar        *PersistentJar
	limiter    *rate.Limiter
	metrics    *Metrics
	refresh    *coordinator
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request transport timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithJar installs a persistent cookie jar holding the session credential
func WithJar(j *PersistentJar) Option {
	return func(c *Client) {
		if j == nil {
			return
		}
		c.jar = j
		c.httpClient.Jar = j
	}
}

// WithRateLimit throttles outbound requests. rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTransport replaces the underlying round tripper
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// New creates a new API client with the given base URL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		metrics: newMetrics(),
	}
	c.refresh = newCoordinator(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Metrics returns the client's instrumentation
func (c *Client) Metrics() *Metrics {
	return c.metrics
}

// SetSessionHandler wires the auth store that receives refresh outcomes
func (c *Client) SetSessionHandler(h SessionHandler) {
	c.refresh.setHandler(h)
}

// SetNavigator wires the router used to send the user to the login page
// after a failed refresh
func (c *Client) SetNavigator(n Navigator) {
	c.refresh.setNavigator(n)
}

// ClearCredentials drops the stored session cookie
func (c *Client) ClearCredentials() error {
	if c.jar == nil {
		return nil
	}
	return c.jar.Clear()
}

// Response is a successful (2xx) reply
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v
func (r *Response) Decode(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("invalid response from backend: %w", err)
	}
	return nil
}

// Text returns the body as a trimmed string (several endpoints reply with plain text)
func (r *Response) Text() string {
	return strings.TrimSpace(string(r.Body))
}

// request is a fully buffered call that can be sent more than once
type request struct {
	method      string
	path        string
	body        []byte
	contentType string
	header      http.Header
}

// RequestOption adjusts a single request
type RequestOption func(*request)

// WithHeader sets an extra request header
func WithHeader(key, value string) RequestOption {
	return func(r *request) {
		r.header.Set(key, value)
	}
}

// WithContentType sets the content type of a raw body
func WithContentType(ct string) RequestOption {
	return func(r *request) {
		r.contentType = ct
	}
}

// WithQuery appends query parameters to the path
func WithQuery(q url.Values) RequestOption {
	return func(r *request) {
		if len(q) == 0 {
			return
		}
		sep := "?"
		if strings.Contains(r.path, "?") {
			sep = "&"
		}
		r.path += sep + q.Encode()
	}
}

// Request sends a call to the backend. body may be nil, []byte, io.Reader,
// or any JSON-marshalable value. A 401 triggers one session refresh and a
// single replay; every other failure is returned as *APIError.
func (c *Client) Request(ctx context.Context, method, path string, body interface{}, opts ...RequestOption) (*Response, error) {
	req := &request{
		method: method,
		path:   path,
		header: make(http.Header),
	}

	switch b := body.(type) {
	case nil:
	case []byte:
		req.body = b
		req.contentType = "application/octet-stream"
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		req.body = data
		req.contentType = "application/octet-stream"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal input: %w", err)
		}
		req.body = data
		req.contentType = "application/json"
	}

	for _, opt := range opts {
		opt(req)
	}

	return c.do(ctx, req)
}

// do sends req and routes authorization failures through the coordinator
func (c *Client) do(ctx context.Context, req *request) (*Response, error) {
	resp, err := c.send(ctx, req)
	if err == nil {
		return resp, nil
	}
	if !IsKind(err, KindAuthorization) || isCheckLoginPath(req.path) {
		return nil, err
	}
	return c.refresh.recover(ctx, req, err)
}

// send performs exactly one HTTP exchange
func (c *Client) send(ctx context.Context, r *request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, newNetworkError(ctx, c.baseURL, err)
		}
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if r.body != nil && r.contentType != "" {
		httpReq.Header.Set("Content-Type", r.contentType)
	}
	httpReq.Header.Set("Accept", "application/json, text/plain, */*")
	httpReq.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	httpReq.Header.Set("Pragma", "no-cache")
	httpReq.Header.Set("Expires", "0")
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.observeRequest(r.method, 0)
		slog.Debug("Request failed", "method", r.method, "path", r.path, "request_id", requestID, "error", err)
		return nil, newNetworkError(ctx, c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		c.metrics.observeRequest(r.method, 0)
		return nil, newNetworkError(ctx, c.baseURL, err)
	}

	c.metrics.observeRequest(r.method, resp.StatusCode)
	slog.Debug("Request completed",
		"method", r.method,
		"path", r.path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp.StatusCode, data)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// getJSON sends a GET and decodes the JSON reply into out
func (c *Client) getJSON(ctx context.Context, path string, out interface{}, opts ...RequestOption) error {
	resp, err := c.Request(ctx, http.MethodGet, path, nil, opts...)
	if err != nil {
		return err
	}
	return resp.Decode(out)
}

// postJSON sends a JSON body and decodes the JSON reply into out (out may be nil)
func (c *Client) postJSON(ctx context.Context, path string, in, out interface{}) error {
	resp, err := c.Request(ctx, http.MethodPost, path, in)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

// deleteText sends a DELETE and returns the plain-text reply
func (c *Client) deleteText(ctx context.Context, path string) (string, error) {
	resp, err := c.Request(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// SafeGet fetches path and decodes into out. When the session could not be
// re-established it returns the original 401 instead of the refresh error.
func (c *Client) SafeGet(ctx context.Context, path string, out interface{}) error {
	err := c.getJSON(ctx, path, out)
	var refreshErr *RefreshError
	if errors.As(err, &refreshErr) && refreshErr.Original != nil {
		return refreshErr.Original
	}
	return err
}
