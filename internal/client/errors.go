// ABOUTME: Normalized API errors returned by the Car Portal client
// ABOUTME: Classifies failures as network, authorization, validation or server errors

package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed call
type Kind int

const (
	// KindNetwork is a transport failure with no response (including timeouts)
	KindNetwork Kind = iota
	// KindAuthorization is an HTTP 401
	KindAuthorization
	// KindValidation is any other 4xx; the body is surfaced verbatim
	KindValidation
	// KindServer is a 5xx
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Sentinel errors matching each Kind, for use with errors.Is
var (
	ErrNetwork       = errors.New("network error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrValidation    = errors.New("request rejected")
	ErrServer        = errors.New("server error")
	ErrRefreshFailed = errors.New("session refresh failed")
)

// ErrorResponse is the backend's JSON error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// APIError is a normalized failure of a single call
type APIError struct {
	Kind    Kind
	Status  int
	Message string
	RawBody []byte
	Err     error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return e.Message
}

// Unwrap exposes the sentinel for the kind plus the transport cause, if any
func (e *APIError) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *APIError) sentinel() error {
	switch e.Kind {
	case KindAuthorization:
		return ErrUnauthorized
	case KindValidation:
		return ErrValidation
	case KindServer:
		return ErrServer
	default:
		return ErrNetwork
	}
}

// RefreshError rejects a request whose session could not be re-established.
// Original is the 401 that triggered the refresh for this request.
type RefreshError struct {
	Err      error
	Original error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("session refresh failed: %v", e.Err)
}

func (e *RefreshError) Unwrap() []error {
	return []error{ErrRefreshFailed, ErrUnauthorized, e.Err}
}

// IsKind reports whether err is an APIError of kind k
func IsKind(err error, k Kind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == k
}

// kindForStatus maps a non-2xx status to a Kind
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindAuthorization
	case status >= 500:
		return KindServer
	default:
		return KindValidation
	}
}

// newStatusError builds an APIError from a non-2xx response body
func newStatusError(status int, body []byte) *APIError {
	return &APIError{
		Kind:    kindForStatus(status),
		Status:  status,
		Message: errorMessage(status, body),
		RawBody: body,
	}
}

// errorMessage extracts a readable message from an error body.
// Prefers the JSON message, then the JSON error, then plain text.
func errorMessage(status int, body []byte) string {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Message != "" {
			return errResp.Message
		}
		if errResp.Error != "" {
			return errResp.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "<") {
		return text
	}
	if t := http.StatusText(status); t != "" {
		return t
	}
	return fmt.Sprintf("status %d", status)
}

// newNetworkError converts transport errors to user-friendly messages
func newNetworkError(ctx context.Context, baseURL string, err error) *APIError {
	msg := fmt.Sprintf("cannot connect to backend at %s", baseURL)
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		msg = "request canceled"
	case errors.Is(ctx.Err(), context.DeadlineExceeded), isTimeout(err):
		msg = "request timed out"
	}
	return &APIError{Kind: KindNetwork, Message: msg, Err: err}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
