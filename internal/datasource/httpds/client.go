// Package httpds implements a small HTTP datasource with built-in retry and
// backoff. The ETL pipeline uses it to download the raw season files.
//
// Design goals:
//
//   - Keep a tiny, explicit API (Do, Get, FetchFirstBytes).
//   - Buffer the whole response inside the retried operation, so a body that
//     breaks halfway through is retried like a failed connection.
//   - Decide retries through Classify: permanent failures (HTTP 401/404,
//     cancellation, data errors) are never retried.
//   - Respect context cancellation during requests and backoff waits.
package httpds

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"footballetl/internal/logging"
)

// Config configures the HTTP datasource client.
//
// Zero values are given defaults:
//   - Timeout:        10s
//   - InitialBackoff: 500ms
//   - MaxBackoff:     5s
//
// MaxRetries has no default; zero means a single attempt. Negative values are
// treated as zero.
type Config struct {
	// Timeout is the per-attempt timeout applied at the http.Client level.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the initial request.
	MaxRetries int

	// InitialBackoff is the wait before the first retry; later waits grow
	// exponentially up to MaxBackoff.
	InitialBackoff time.Duration

	// MaxBackoff caps a single backoff wait.
	MaxBackoff time.Duration

	// UserAgent is sent on every request when set.
	UserAgent string

	// BaseHeaders are headers added to every request. Per-request headers
	// take precedence.
	BaseHeaders http.Header

	// Transport is an optional custom RoundTripper.
	Transport http.RoundTripper

	Logger logrus.FieldLogger
}

// Response is a fully buffered HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client wraps an http.Client with retry and backoff behavior.
type Client struct {
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	userAgent      string
	baseHeaders    http.Header
	log            logrus.FieldLogger
}

// NewClient constructs a Client from Config, applying defaults for zero values.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	hdr := http.Header{}
	for k, vs := range cfg.BaseHeaders {
		for _, v := range vs {
			hdr.Add(k, v)
		}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		maxRetries:     cfg.MaxRetries,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		userAgent:      cfg.UserAgent,
		baseHeaders:    hdr,
		log:            logging.Component(cfg.Logger, "httpds"),
	}
}

// newBackOff builds the retry schedule for one call.
func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.initialBackoff
	eb.MaxInterval = c.maxBackoff
	eb.MaxElapsedTime = 0
	eb.RandomizationFactor = 0.2
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.maxRetries)), ctx)
}

// Do sends a request and buffers the response. Non-2xx responses become a
// *StatusError. Failures are retried according to Classify until MaxRetries
// is exhausted; the last error is returned.
func (c *Client) Do(
	ctx context.Context,
	method, url string,
	body []byte,
	headers http.Header,
) (*Response, error) {
	if method == "" {
		return nil, fmt.Errorf("httpds: method must not be empty")
	}
	if url == "" {
		return nil, fmt.Errorf("httpds: url must not be empty")
	}

	attempt := 0
	var out *Response
	op := func() error {
		attempt++
		resp, err := c.once(ctx, method, url, body, headers)
		if err != nil {
			var pe *backoff.PermanentError
			if !errors.As(err, &pe) && !ShouldRetry(Classify(err)) {
				return backoff.Permanent(err)
			}
			return err
		}
		out = resp
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.log.WithFields(logrus.Fields{
			logging.FieldURL:     url,
			logging.FieldAttempt: attempt,
			"class":              Classify(err).String(),
			"backoff":            wait.Truncate(time.Millisecond),
		}).WithError(err).Warn("request failed, retrying")
	}

	if err := backoff.RetryNotify(op, c.newBackOff(ctx), notify); err != nil {
		return nil, err
	}
	return out, nil
}

// once performs a single attempt.
func (c *Client) once(
	ctx context.Context,
	method, url string,
	body []byte,
	headers http.Header,
) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("httpds: build request: %w", err))
	}

	// Apply base headers, then per-request headers (which override).
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, vs := range c.baseHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Method: method,
			URL:    url,
			Code:   resp.StatusCode,
			Body:   string(snippet),
		}
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpds: read body from %s: %w", url, err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: b}, nil
}

// Get is a convenience wrapper over Do for HTTP GET.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, headers)
}
