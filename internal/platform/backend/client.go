// Package backend talks JSON to the course portal REST API.
package backend

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

	"github.com/course-portal/portal/internal/observability"
)

const maxResponseBytes = 4 << 20

// API is the subset of the REST collaborator the screens depend on.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, in, out any) error
	Put(ctx context.Context, path string, in, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// TokenSource yields the bearer credential for the request carried by ctx.
type TokenSource func(ctx context.Context) (string, bool)

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Tokens    TokenSource
	Logger    *slog.Logger
	Metrics   *observability.Metrics
	Transport http.RoundTripper
}

// Client wraps interactions with the portal API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient constructs a new client.
func NewClient(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend: base url %q must be http or https", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if cfg.Tokens != nil {
		transport = &bearerTransport{base: transport, tokens: cfg.Tokens}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: base.String(),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		logger:  logger,
		metrics: cfg.Metrics,
	}, nil
}

// Get issues a GET and decodes the response into out.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post sends in as JSON and decodes the response into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

// Put sends in as JSON and decodes the response into out.
func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, in, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do performs one JSON round trip. Non-2xx answers become *Error; a nil out
// discards the body.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("backend: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimLeft(path, "/"), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveBackend(method, 0, time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		c.logger.Warn("backend request failed", slog.String("method", method), slog.String("path", path), slog.Any("error", err))
		return fmt.Errorf("backend: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.metrics.ObserveBackend(method, resp.StatusCode, time.Since(start))

	reader := io.LimitReader(resp.Body, maxResponseBytes)
	if resp.StatusCode >= 400 {
		return newError(method, path, resp.StatusCode, reader)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, reader)
		return nil
	}
	if err := json.NewDecoder(reader).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
	}
	return nil
}

type bearerTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

// RoundTrip attaches the session credential when one is present. Requests
// without one are sent as-is.
func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") == "" {
		if token, ok := t.tokens(req.Context()); ok && token != "" {
			req = req.Clone(req.Context())
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return t.base.RoundTrip(req)
}
