// Package api is the HTTP client for the student enrollment REST API.
//
// The API owns all business rules and persistence. This client only moves
// records and credentials over the wire, attaches the session's bearer token
// and converts non-2xx responses into *Error values.
package api

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

	"github.com/JonMunkholm/matricula/internal/logging"
)

const (
	DefaultBaseURL = "http://localhost:3000"
	DefaultTimeout = 10 * time.Second

	maxErrorBody = 64 << 10
)

// TokenSource supplies the bearer token for a browser session and forgets it
// when the API rejects it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Clear(ctx context.Context) error
}

// Observer is notified after every API round trip. route is the path
// template, e.g. "/student/{id}". status is 0 on transport failure.
type Observer func(method, route string, status int, elapsed time.Duration)

// Client talks to the student API. The zero value is not usable; use New.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	tokens   TokenSource
	observer Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithObserver installs a round-trip hook, used for metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New returns a client for baseURL. timeout bounds every request; zero means
// DefaultTimeout.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q: scheme must be http or https", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithSession returns a copy of c that authenticates as ts.
func (c *Client) WithSession(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string { return c.baseURL.String() }

type request struct {
	method string
	route  string // template for metrics
	path   string
	body   Payload
}

// do performs one round trip and decodes a 2xx JSON body into out (when
// non-nil). Requests are never retried.
func (c *Client) do(ctx context.Context, req request, out any) error {
	var (
		body        io.Reader
		contentType string
	)
	if req.body != nil {
		var err error
		body, contentType, err = req.body.Encode()
		if err != nil {
			return err
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL.String()+req.path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("read session token: %w", err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	logger := logging.WithFields(ctx, "method", req.method, "route", req.route)
	start := time.Now()
	resp, err := c.http.Do(httpReq)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(req, 0, elapsed)
		logger.Warn("api request failed", "error", err, "duration_ms", elapsed.Milliseconds())
		return fmt.Errorf("%w: %s %s: %v", ErrNetwork, req.method, req.route, err)
	}
	defer resp.Body.Close()
	c.observe(req, resp.StatusCode, elapsed)
	logger.Debug("api request", "status", resp.StatusCode, "duration_ms", elapsed.Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &Error{Status: resp.StatusCode, Message: decodeMessage(raw)}

		if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
			if cerr := c.tokens.Clear(ctx); cerr != nil {
				logger.Error("failed to clear session after 401", "error", cerr)
			}
		}
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.method, req.route, err)
	}
	return nil
}

func (c *Client) observe(req request, status int, elapsed time.Duration) {
	if c.observer != nil {
		c.observer(req.method, req.route, status, elapsed)
	}
}

// IsRetryable reports whether err is a transport failure or a 5xx. The
// client itself never retries; callers use this to word messages.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrNetwork) {
		return true
	}
	return StatusOf(err) >= 500
}

func logRequestError(ctx context.Context, msg string, err error, args ...any) {
	level := slog.LevelWarn
	if IsRetryable(err) {
		level = slog.LevelError
	}
	logging.FromContext(ctx).Log(ctx, level, msg, append(args, "error", err)...)
}
