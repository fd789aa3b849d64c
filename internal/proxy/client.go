// Package proxy forwards shell requests to the backend REST API.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/heartmarshall/qrfactory/internal/domain"
	"github.com/heartmarshall/qrfactory/internal/transport/middleware"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseBody = 16 << 20
)

var (
	// ErrForbiddenPath is returned for paths outside the backend API.
	ErrForbiddenPath = errors.New("path not allowed")
	// ErrMethodNotAllowed is returned for methods other than GET and POST.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// StatusError is a non-2xx backend response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend %d: %s", e.Status, e.Body)
}

// Client calls the backend on behalf of the UI. The base URL and the admin
// token stay on this side of the bridge.
type Client struct {
	baseURL    string
	adminToken string
	http       *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the backend at baseURL.
func New(baseURL, adminToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		adminToken: adminToken,
		http:       &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Get is Do with GET.
func (c *Client) Get(ctx context.Context, path string) (any, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post is Do with POST.
func (c *Client) Post(ctx context.Context, path string, body any) (any, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Do sends a request to the backend and returns the decoded JSON response.
// A non-JSON success body is returned as {"ok": true, "text": <body>}.
func (c *Client) Do(ctx context.Context, method, path string, body any) (any, error) {
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("%w: %s", ErrMethodNotAllowed, method)
	}
	if err := CheckPath(path); err != nil {
		return nil, err
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("%w: base url unknown", domain.ErrBackendUnavailable)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.adminToken != "" {
		req.Header.Set(middleware.AdminTokenHeader, c.adminToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrBackendUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return map[string]any{"ok": true, "text": string(raw)}, nil
	}
	return out, nil
}

// CheckPath accepts only absolute backend API paths: no scheme, no host,
// no empty or dot-dot segments. A query string is allowed.
func CheckPath(path string) error {
	if !strings.HasPrefix(path, "/api/") || strings.ContainsAny(path, "\\#") {
		return fmt.Errorf("%w: %q", ErrForbiddenPath, path)
	}

	u, err := url.Parse(path)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return fmt.Errorf("%w: %q", ErrForbiddenPath, path)
	}

	for _, p := range []string{u.Path, u.RawPath} {
		if strings.Contains(p, "//") {
			return fmt.Errorf("%w: %q", ErrForbiddenPath, path)
		}
		for _, seg := range strings.Split(p, "/") {
			if seg == ".." || seg == "." {
				return fmt.Errorf("%w: %q", ErrForbiddenPath, path)
			}
		}
	}
	return nil
}
