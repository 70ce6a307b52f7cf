// Package api is the thin client for the dashboard's REST backend. Request
// and response shapes are kept to the fields the dashboard reads; everything
// else the backend returns is ignored. Any non-2xx response becomes an
// *Error carrying the backend's human-readable message when one is present.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Error is a failed backend call: HTTP status plus the optional message the
// backend put in the error body.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Identity is the authenticated user as the backend reports it.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// AuthResponse is the shape shared by login, register, OAuth, and refresh.
type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	Identity
}

// RegisterParams holds the fields the registration form collects.
type RegisterParams struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
}

// Client talks to the REST backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient constructs a Client with sane defaults.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Login exchanges credentials for a token pair and identity.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	err := c.post(ctx, "/auth/login", "", map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates an account and returns the same shape as Login.
func (c *Client) Register(ctx context.Context, params RegisterParams) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.post(ctx, "/auth/register", "", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// OAuthLogin forwards a provider payload (code, id_token, redirect URI) to
// the backend's provider endpoint.
func (c *Client) OAuthLogin(ctx context.Context, provider string, payload map[string]string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.post(ctx, "/auth/"+provider, "", payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RefreshResponse is the refresh endpoint payload. The rotated refresh token
// is optional; absence means the old one stays valid.
type RefreshResponse struct {
	Token           string `json:"token"`
	NewRefreshToken string `json:"newRefreshToken"`
}

// Refresh exchanges a refresh token for a new bearer token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*RefreshResponse, error) {
	var resp RefreshResponse
	if err := c.post(ctx, "/auth/refresh", "", map[string]string{"refreshToken": refreshToken}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me fetches the identity behind a bearer token.
func (c *Client) Me(ctx context.Context, token string) (*Identity, error) {
	var id Identity
	if err := c.get(ctx, "/auth/me", token, nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// RequestPasswordReset asks the backend to mail a reset link.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.post(ctx, "/auth/password/reset-request", "", map[string]string{"email": email}, nil)
}

// ResetPassword completes a mailed reset flow.
func (c *Client) ResetPassword(ctx context.Context, resetToken, newPassword string) error {
	return c.post(ctx, "/auth/password/reset", "", map[string]string{
		"token":       resetToken,
		"newPassword": newPassword,
	}, nil)
}

// ChangePassword changes the password of the authenticated user.
func (c *Client) ChangePassword(ctx context.Context, token, currentPassword, newPassword string) error {
	return c.post(ctx, "/auth/password/change", token, map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}, nil)
}

func (c *Client) post(ctx context.Context, path, token string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, token, out)
}

func (c *Client) get(ctx context.Context, path, token string, query map[string]string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if len(query) > 0 {
		q := req.URL.Query()
		for k, v := range query {
			if v != "" {
				q.Set(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
	return c.do(req, token, out)
}

func (c *Client) do(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &Error{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
		c.logger.Debug("backend call failed", "path", req.URL.Path, "status", resp.StatusCode)
		return apiErr
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// errorMessage pulls the optional message field out of an error body.
// Backends are inconsistent about the key, so try the common ones.
func errorMessage(r io.Reader) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 1<<16)).Decode(&body); err != nil {
		return ""
	}
	switch {
	case body.Message != "":
		return body.Message
	case body.Error != "":
		return body.Error
	default:
		return body.Detail
	}
}
