// Package chroma is a client for a Chroma-style vector store whose path
// convention is not known ahead of time. Requests are tried against each
// candidate Shape in turn; the Shape that accepted the latest write is pinned
// and tried first from then on.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"amplie/internal/adapter/encoder"
	"amplie/internal/port"
)

const (
	DefaultTimeout  = 1500 * time.Millisecond
	DefaultTenant   = "default_tenant"
	DefaultDatabase = "default_database"

	maxErrorBody = 512
)

// Config holds connection settings.
type Config struct {
	BaseURL    string
	APIKey     string // sent as a bearer token when set
	Timeout    time.Duration
	APIVersion string // "v1" restricts the client to the oldest shape
	Tenant     string
	Database   string
}

var _ port.VectorStore = (*Client)(nil)

// Client talks to one Chroma server. It is safe for concurrent use.
type Client struct {
	cfg     Config
	base    *url.URL
	http    *http.Client
	logger  *slog.Logger
	encoder port.PolicyEncoder

	// pinned holds a Shape. Writes are last-writer-wins; a stale pin costs at
	// most one failed request.
	pinned atomic.Int32
}

type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithEncoder overrides the policy encoder used for writes and queries.
func WithEncoder(e port.PolicyEncoder) Option {
	return func(c *Client) { c.encoder = e }
}

// New creates a client. BaseURL is required.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("chroma base URL is required")
	}
	base := cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid chroma base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Tenant == "" {
		cfg.Tenant = DefaultTenant
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}

	c := &Client{
		cfg:  cfg,
		base: u,
		http: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger:  slog.Default(),
		encoder: encoder.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do sends one request under one shape. out may be nil.
func (c *Client) do(ctx context.Context, shape Shape, cl call, body []byte, requestID string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	rel, err := url.Parse(c.prefix(shape) + cl.path)
	if err != nil {
		return fmt.Errorf("build path: %w", err)
	}
	endpoint := c.base.ResolveReference(rel)

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, endpoint.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		kind := KindUpstream
		if isTimeout(ctx, err) {
			kind = KindTimeout
		}
		return &Error{Kind: kind, Op: cl.op, Shape: shape, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		kind := KindUpstream
		if isTimeout(ctx, err) {
			kind = KindTimeout
		}
		return &Error{Kind: kind, Op: cl.op, Shape: shape, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Kind:   KindUpstream,
			Op:     cl.op,
			Shape:  shape,
			Status: resp.StatusCode,
			Body:   truncate(respBody, maxErrorBody),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{
			Kind:   KindValidation,
			Op:     cl.op,
			Shape:  shape,
			Status: resp.StatusCode,
			Body:   truncate(respBody, maxErrorBody),
			Err:    fmt.Errorf("decode response: %w", err),
		}
	}
	return nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
