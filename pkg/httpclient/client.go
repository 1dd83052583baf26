// Package httpclient provides a retrying HTTP client shared by every
// provider adapter and the web fetch/search tools, so backoff policy and
// TLS configuration live in one place instead of being reimplemented per
// vendor.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"os"
	"time"
)

// RetryStrategy controls how a non-2xx response is retried.
type RetryStrategy int

const (
	NoRetry RetryStrategy = iota
	ConservativeRetry
	SmartRetry
)

// StrategyFunc maps a status code to a RetryStrategy.
type StrategyFunc func(statusCode int) RetryStrategy

// Client wraps http.Client with exponential backoff and jitter.
type Client struct {
	http       *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	strategy   StrategyFunc
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }
func WithMaxRetries(n int) Option          { return func(c *Client) { c.maxRetries = n } }
func WithBaseDelay(d time.Duration) Option { return func(c *Client) { c.baseDelay = d } }
func WithMaxDelay(d time.Duration) Option  { return func(c *Client) { c.maxDelay = d } }
func WithRetryStrategy(f StrategyFunc) Option {
	return func(c *Client) { c.strategy = f }
}

// TLSConfig configures outbound TLS — used for MCP/LSP-adjacent HTTP
// endpoints that sit behind corporate proxies with custom CAs.
type TLSConfig struct {
	InsecureSkipVerify bool
	CACertificate      string
}

// ConfigureTLS builds an *http.Transport honoring TLSConfig.
func ConfigureTLS(cfg *TLSConfig) (*http.Transport, error) {
	transport := &http.Transport{TLSClientConfig: &tls.Config{}}
	if cfg == nil {
		return transport, nil
	}

	if cfg.CACertificate != "" {
		pem, err := os.ReadFile(cfg.CACertificate)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate %s: %w", cfg.CACertificate, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("parse CA certificate %s", cfg.CACertificate)
		}
		transport.TLSClientConfig.RootCAs = pool
	}

	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig.InsecureSkipVerify = true
		slog.Warn("TLS certificate verification disabled for outbound client")
	}

	return transport, nil
}

func WithTLSConfig(cfg *TLSConfig) Option {
	return func(c *Client) {
		transport, err := ConfigureTLS(cfg)
		if err != nil {
			slog.Warn("failed to configure TLS, using default transport", "error", err)
			return
		}
		timeout := c.http.Timeout
		c.http = &http.Client{Transport: transport, Timeout: timeout}
	}
}

// DefaultStrategy retries 429/503 with backoff honoring Retry-After, and
// retries transient 5xx/408 conservatively; everything else is terminal.
func DefaultStrategy(statusCode int) RetryStrategy {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return SmartRetry
	case http.StatusRequestTimeout, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusGatewayTimeout:
		return ConservativeRetry
	default:
		return NoRetry
	}
}

// New creates a Client with sane defaults (5 retries, 2s-60s backoff).
func New(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: 120 * time.Second},
		maxRetries: 5,
		baseDelay:  2 * time.Second,
		maxDelay:   60 * time.Second,
		strategy:   DefaultStrategy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RetryableError is returned when retries are exhausted.
type RetryableError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *RetryableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *RetryableError) Unwrap() error { return e.Err }

// Do executes req, retrying on transient failures per the configured
// strategy. The request body is buffered so it can be replayed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("buffer request body: %w", err)
		}
	}

	var lastResp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt >= c.maxRetries || req.Context().Err() != nil {
				return nil, fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
			}
			c.sleep(req.Context(), c.delayFor(ConservativeRetry, attempt, nil))
			continue
		}

		strategy := c.strategy(resp.StatusCode)
		if strategy == NoRetry {
			return resp, nil
		}

		lastResp = resp
		if attempt >= c.maxRetries {
			return resp, &RetryableError{
				StatusCode: resp.StatusCode,
				Message:    fmt.Sprintf("max retries (%d) exceeded", c.maxRetries),
			}
		}

		delay := c.delayFor(strategy, attempt, resp)
		resp.Body.Close()
		slog.Debug("retrying HTTP request", "status", resp.StatusCode, "attempt", attempt, "delay", delay)
		if !c.sleep(req.Context(), delay) {
			return lastResp, fmt.Errorf("request cancelled during backoff: %w", req.Context().Err())
		}
	}

	return lastResp, lastErr
}

func (c *Client) delayFor(strategy RetryStrategy, attempt int, resp *http.Response) time.Duration {
	if strategy == SmartRetry {
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if secs, err := time.ParseDuration(ra + "s"); err == nil {
				return clamp(secs, c.maxDelay)
			}
		}
	}
	backoff := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
	jitter := time.Duration(rand.Int63n(int64(c.baseDelay)))
	return clamp(backoff+jitter, c.maxDelay)
}

func clamp(d, max time.Duration) time.Duration {
	if d > max {
		return max
	}
	return d
}

// sleep waits out a backoff delay, returning false if ctx was cancelled first.
func (c *Client) sleep(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
