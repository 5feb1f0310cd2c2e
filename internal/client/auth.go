// ABOUTME: Account endpoints: session check, login, logout, signup, profile and avatar
// ABOUTME: Returns session records shared with the auth store

package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/carportal/carportal-cli/internal/session"
)

// Account endpoint paths
const (
	CheckLoginPath = "/user/checklogin"
	userLoginPath  = "/user/login"
	userLogoutPath = "/user/logout"
	signupPath     = "/user/signup"
	editPath       = "/user/edit"
	dashboardPath  = "/user/dashboard"
	avatarPath     = "/user/avatar"
)

// CheckLogin calls GET /user/checklogin and returns the current session.
// A 401 here is never routed to the refresh coordinator.
func (c *Client) CheckLogin(ctx context.Context) (*session.Session, error) {
	resp, err := c.Request(ctx, http.MethodGet, CheckLoginPath, nil)
	if err != nil {
		return nil, err
	}
	return session.Decode(resp.Body)
}

// Login calls POST /user/login; the backend sets the session cookie
func (c *Client) Login(ctx context.Context, creds session.Credentials) (*session.Session, error) {
	resp, err := c.Request(ctx, http.MethodPost, userLoginPath, creds)
	if err != nil {
		return nil, err
	}
	sess, err := session.Decode(resp.Body)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("invalid response from backend: empty login reply")
	}
	return sess, nil
}

// Logout calls GET /user/logout
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Request(ctx, http.MethodGet, userLogoutPath, nil)
	return err
}

// Signup calls POST /user/signup and returns the created account
func (c *Client) Signup(ctx context.Context, reg session.Registration) (*session.Session, error) {
	var created session.Session
	if err := c.postJSON(ctx, signupPath, reg, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// Dashboard calls GET /user/dashboard for the full profile
func (c *Client) Dashboard(ctx context.Context) (*session.Session, error) {
	var profile session.Session
	if err := c.SafeGet(ctx, dashboardPath, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// EditProfile calls POST /user/edit and returns the updated account
func (c *Client) EditProfile(ctx context.Context, update session.ProfileUpdate) (*session.Session, error) {
	var updated session.Session
	if err := c.postJSON(ctx, editPath, update, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// UploadAvatar calls POST /user/avatar with a multipart "file" field
// and returns the new avatar URL
func (c *Client) UploadAvatar(ctx context.Context, filename string, r io.Reader) (string, error) {
	body, contentType, err := multipartFile("file", filename, r)
	if err != nil {
		return "", err
	}
	resp, err := c.Request(ctx, http.MethodPost, avatarPath, body, WithContentType(contentType))
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// DeleteAvatar calls DELETE /user/avatar and returns the default avatar URL
func (c *Client) DeleteAvatar(ctx context.Context) (string, error) {
	return c.deleteText(ctx, avatarPath)
}

// multipartFile encodes r as a single-file multipart form
func multipartFile(field, filename string, r io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
