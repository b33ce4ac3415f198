// Package httpclient provides a reusable HTTP client with context
// management, timeouts, connection pooling, and observability hooks.
//
// It is the byte-level transport used by the logo fetch coordinator and
// the market-data client: issue a GET, receive bytes or an error, abort
// via context cancellation.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coinviewapp/coinview-go/internal/errors"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests if not specified.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodyBytes caps response bodies read by GetBytes.
	DefaultMaxBodyBytes = 5 * 1024 * 1024

	defaultMaxIdleConns        = 100
	defaultMaxIdleConnsPerHost = 10
	defaultIdleConnTimeout     = 90 * time.Second

	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultResponseHeaderTimeout = 10 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultDialTimeout           = 30 * time.Second
	defaultDialKeepAlive         = 30 * time.Second

	defaultUserAgent = "CoinView-Go"

	// PriorityHeader carries the fetch-priority scheduling hint. It is
	// advisory: intermediaries and origin servers may use it to bias
	// scheduling, nothing in this process depends on it being honored.
	PriorityHeader = "X-Fetch-Priority"
)

// Client wraps the standard http.Client with context-aware request
// management, a tuned connection pool, and before/after hooks.
// Thread-safe for concurrent use.
type Client struct {
	client         *http.Client
	defaultTimeout time.Duration
	maxBodyBytes   int64
	userAgent      string

	hookMu        sync.RWMutex
	beforeRequest func(*http.Request)
	afterResponse func(*http.Request, *http.Response, error)
}

// Config holds configuration for creating an HTTP client.
type Config struct {
	// DefaultTimeout is applied when the request context has no deadline.
	DefaultTimeout time.Duration

	// MaxBodyBytes caps bodies read by GetBytes (default: 5 MiB).
	MaxBodyBytes int64

	// UserAgent is added to all requests.
	UserAgent string

	// MaxIdleConns controls connection pool size (default: 100).
	MaxIdleConns int

	// MaxIdleConnsPerHost controls per-host connection pool (default: 10).
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections stay pooled (default: 90s).
	IdleConnTimeout time.Duration

	// Transport overrides the built http.Transport when non-nil. Used by
	// tests to substitute a mock round tripper.
	Transport http.RoundTripper
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout:      DefaultTimeout,
		MaxBodyBytes:        DefaultMaxBodyBytes,
		UserAgent:           defaultUserAgent,
		MaxIdleConns:        defaultMaxIdleConns,
		MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
		IdleConnTimeout:     defaultIdleConnTimeout,
	}
}

// New creates a new HTTP client with the given configuration.
// Accepts nil cfg (falls back to DefaultConfig) and does not mutate the
// caller's config.
func New(cfg *Config) *Client {
	var c Config
	if cfg == nil {
		c = DefaultConfig()
	} else {
		c = *cfg
		if c.DefaultTimeout == 0 {
			c.DefaultTimeout = DefaultTimeout
		}
		if c.MaxBodyBytes == 0 {
			c.MaxBodyBytes = DefaultMaxBodyBytes
		}
		if c.UserAgent == "" {
			c.UserAgent = defaultUserAgent
		}
		if c.MaxIdleConns == 0 {
			c.MaxIdleConns = defaultMaxIdleConns
		}
		if c.MaxIdleConnsPerHost == 0 {
			c.MaxIdleConnsPerHost = defaultMaxIdleConnsPerHost
		}
		if c.IdleConnTimeout == 0 {
			c.IdleConnTimeout = defaultIdleConnTimeout
		}
	}

	transport := c.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   defaultDialTimeout,
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          c.MaxIdleConns,
			MaxIdleConnsPerHost:   c.MaxIdleConnsPerHost,
			IdleConnTimeout:       c.IdleConnTimeout,
			TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
			ResponseHeaderTimeout: defaultResponseHeaderTimeout,
			ExpectContinueTimeout: defaultExpectContinueTimeout,
		}
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			// No client-level timeout, handled per-request with context.
		},
		defaultTimeout: c.DefaultTimeout,
		maxBodyBytes:   c.MaxBodyBytes,
		userAgent:      c.UserAgent,
	}
}

// Do executes an HTTP request with context management and timeout
// enforcement. If ctx carries a deadline it is used as-is, otherwise the
// client's default timeout applies. The response body must be closed by
// the caller if err is nil.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	req = req.WithContext(ctx)

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && c.defaultTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.defaultTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.hookMu.RLock()
	beforeHook := c.beforeRequest
	c.hookMu.RUnlock()
	if beforeHook != nil {
		beforeHook(req)
	}

	resp, err := c.client.Do(req)

	c.hookMu.RLock()
	afterHook := c.afterResponse
	c.hookMu.RUnlock()
	if afterHook != nil {
		afterHook(req, resp, err)
	}

	return resp, err
}

// Get performs a GET request with context.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

// GetBytes performs a GET request and returns the response body, capped at
// the configured maximum size. A non-2xx status is an error. The priority
// argument, if non-empty, is sent as the fetch-priority scheduling hint.
func (c *Client) GetBytes(ctx context.Context, url, priority string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, errors.New(err).
			Component("httpclient").
			Category(errors.CategoryValidation).
			Context("url", url).
			Build()
	}
	if priority != "" {
		req.Header.Set(PriorityHeader, priority)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, errors.New(err).
			Component("httpclient").
			Category(errors.CategoryNetwork).
			Context("url", url).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Newf("unexpected status %d fetching %s", resp.StatusCode, url).
			Component("httpclient").
			Category(errors.CategoryHTTP).
			Context("status", resp.StatusCode).
			Build()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, errors.New(err).
			Component("httpclient").
			Category(errors.CategoryNetwork).
			Context("url", url).
			Build()
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, errors.Newf("response body exceeds %d bytes", c.maxBodyBytes).
			Component("httpclient").
			Category(errors.CategoryHTTP).
			Context("url", url).
			Build()
	}
	return body, nil
}

// SetBeforeRequestHook sets a function called before each request.
// Safe to call concurrently with Do and other hook setters.
func (c *Client) SetBeforeRequestHook(fn func(*http.Request)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.beforeRequest = fn
}

// SetAfterResponseHook sets a function called after each request.
// Safe to call concurrently with Do and other hook setters.
func (c *Client) SetAfterResponseHook(fn func(*http.Request, *http.Response, error)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.afterResponse = fn
}

// Close closes idle connections in the connection pool.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}
