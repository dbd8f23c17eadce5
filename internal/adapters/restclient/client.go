// Package restclient is the shared outbound HTTP core used by every external
// service adapter: client-side rate limiting, retries on 429/5xx honoring
// Retry-After, and JSON encode/decode.
package restclient

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"estate_assistant/internal/adapters/observability"
	"estate_assistant/internal/domain"
)

var (
	ErrNotFound     = domain.ErrNotFound
	ErrUnauthorized = errors.New("remote: unauthorized")
	ErrForbidden    = errors.New("remote: forbidden")
)

// StatusError carries a non-retryable (or retries-exhausted) HTTP status.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote %d", e.Status)
	}
	return fmt.Sprintf("bad status %d: %s", e.Status, e.Body)
}

type Client struct {
	service  string
	hc       *http.Client
	rl       *rate.Limiter
	header   http.Header
	attempts int
	backoff  func(int) time.Duration
}

type Option func(*Client)

func WithHeader(k, v string) Option {
	return func(c *Client) {
		if v != "" {
			c.header.Set(k, v)
		}
	}
}

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithBackoff replaces the retry delay policy (tests use a zero delay).
func WithBackoff(f func(int) time.Duration) Option { return func(c *Client) { c.backoff = f } }

func New(service string, rps int, timeout time.Duration, opts ...Option) *Client {
	if rps <= 0 {
		rps = 5
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	c := &Client{
		service:  service,
		hc:       &http.Client{Timeout: timeout},
		rl:       rate.NewLimiter(rate.Limit(rps), rps),
		header:   http.Header{},
		attempts: 4,
		backoff:  backoff,
	}
	c.header.Set("Accept", "application/json")
	c.header.Set("User-Agent", "estate-assistant/1.0")
	for _, o := range opts {
		o(c)
	}
	return c
}

type Request struct {
	Method      string
	URL         string
	Endpoint    string // metrics label, e.g. "runs.start"
	ContentType string
	Body        []byte
	Header      http.Header
	NoRetry     bool
}

func (c *Client) GetJSON(ctx context.Context, url, endpoint string, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: url, Endpoint: endpoint}, out)
}

func (c *Client) PostJSON(ctx context.Context, url, endpoint string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s body: %w", endpoint, err)
	}
	return c.Do(ctx, Request{Method: http.MethodPost, URL: url, Endpoint: endpoint, ContentType: "application/json", Body: b}, out)
}

// Do performs the request with rate limiting, retries and JSON decode into out.
// Retries on network errors, 429 and transient 5xx unless r.NoRetry is set.
func (c *Client) Do(ctx context.Context, r Request, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	attempts := c.attempts
	if r.NoRetry {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		last := i == attempts-1

		// build a fresh request each attempt
		var body io.Reader
		if r.Body != nil {
			body = bytes.NewReader(r.Body)
		}
		req, err := http.NewRequestWithContext(ctx, r.Method, r.URL, body)
		if err != nil {
			return err
		}
		for k, vs := range c.header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		for k, vs := range r.Header {
			req.Header[k] = vs
		}
		if r.ContentType != "" {
			req.Header.Set("Content-Type", r.ContentType)
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal(c.service, r.Endpoint, 0, time.Since(start))
			observability.ObserveExternalError(c.service, r.Endpoint, err)
			// network error or context canceled
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if !last && sleepCtx(ctx, c.backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal(c.service, r.Endpoint, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			var err error
			if out != nil {
				err = json.NewDecoder(resp.Body).Decode(out)
			}
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return err

		case http.StatusNoContent:
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = c.backoff(i)
			}
			lastErr = &StatusError{Status: resp.StatusCode}
			if !last && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential backoff delay with concurrency-safe jitter.
// Base doubles each attempt (200ms, 400ms, 800ms...), with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
