// ABOUTME: Server clock lookup with a local-clock fallback
// ABOUTME: Shown in headers; never fails so the display always has a time

package client

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// TimeLayout is the backend's dd.MM.yyyy HH:mm:ss format in Go layout form
const TimeLayout = "02.01.2006 15:04:05"

// ServerTime calls GET /time. When the backend cannot answer it returns the
// local time in the same format and fromServer=false.
func (c *Client) ServerTime(ctx context.Context) (value string, fromServer bool) {
	resp, err := c.Request(ctx, http.MethodGet, "/time", nil)
	if err == nil && resp.Text() != "" {
		return resp.Text(), true
	}
	slog.Debug("Server time unavailable, using local clock", "error", err)
	return time.Now().Format(TimeLayout), false
}
