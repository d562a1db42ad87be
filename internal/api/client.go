package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the Buildkite REST API root.
	DefaultBaseURL = "https://api.buildkite.com/v2"

	defaultTimeout = 30 * time.Second
	userAgent      = "flakescan"

	// maxJSONBytes bounds how much of a JSON response body is read.
	maxJSONBytes = 2 << 20
)

// RetryPolicy controls how transient failures (429, 5xx, timeouts) are
// retried. Delays double per attempt starting from BaseDelay; rate-limit
// responses start from the longer RateLimitDelay and honour a parseable
// Retry-After header. Tests inject near-zero delays.
type RetryPolicy struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	RateLimitDelay time.Duration
	MaxDelay       time.Duration
}

// DefaultRetryPolicy mirrors the provider's documented rate-limit guidance:
// three attempts, 1s doubling backoff, 5s base for 429s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		RateLimitDelay: 5 * time.Second,
		MaxDelay:       60 * time.Second,
	}
}

// delay returns how long to sleep before the next attempt. attempt is
// zero-based; retryAfter, when positive, comes from a Retry-After header.
func (p RetryPolicy) delay(attempt, status int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		if p.MaxDelay > 0 {
			return min(retryAfter, p.MaxDelay)
		}
		return retryAfter
	}
	base := p.BaseDelay
	if status == http.StatusTooManyRequests {
		base = p.RateLimitDelay
	}
	d := base << attempt
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Config carries everything the client needs. Zero values fall back to the
// production defaults; tests override BaseURL and Retry.
type Config struct {
	BaseURL  string
	Token    string
	Org      string
	Pipeline string
	Timeout  time.Duration
	Retry    RetryPolicy

	// RequestInterval spaces successive requests to stay clear of the
	// provider's rate limits. Zero disables pacing.
	RequestInterval time.Duration

	Logger *slog.Logger
}

// Client is a read-only Buildkite REST client scoped to one pipeline.
type Client struct {
	http     *http.Client
	baseURL  string
	token    string
	org      string
	pipeline string
	retry    RetryPolicy
	limiter  *rate.Limiter
	logger   *slog.Logger
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.RequestInterval), 1)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		http:     &http.Client{Timeout: timeout},
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    cfg.Token,
		org:      cfg.Org,
		pipeline: cfg.Pipeline,
		retry:    retry,
		limiter:  limiter,
		logger:   logger.With(slog.String("component", "api")),
	}
}

// pipelinePath prefixes a path with the organization/pipeline scope.
func (c *Client) pipelinePath(path string) string {
	return fmt.Sprintf("organizations/%s/pipelines/%s/%s", c.org, c.pipeline, path)
}

// do executes one GET with auth, pacing and the retry policy applied.
// On success the response body is open and owned by the caller. 404 maps to
// *NotFoundError, 401/403 to *AuthError; other non-2xx statuses surface as
// *StatusError once the retry budget (for retryable statuses) is spent.
func (c *Client) do(ctx context.Context, path string, params url.Values, accept string) (*http.Response, error) {
	reqURL := c.baseURL + "/" + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var lastStatus int
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("User-Agent", userAgent)
		if accept != "" {
			req.Header.Set("Accept", accept)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if retryableTransport(ctx, err) && attempt < c.retry.MaxAttempts-1 {
				c.logger.Debug("request failed, retrying",
					slog.String("url", reqURL),
					slog.Int("attempt", attempt+1),
					slog.Any("error", err))
				if werr := c.sleep(ctx, c.retry.delay(attempt, 0, 0)); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, fmt.Errorf("GET %s: %w", reqURL, err)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case resp.StatusCode == http.StatusNotFound:
			drain(resp)
			return nil, &NotFoundError{URL: reqURL}

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			drain(resp)
			return nil, &AuthError{StatusCode: resp.StatusCode}

		case retryableStatus(resp.StatusCode):
			lastStatus = resp.StatusCode
			retryAfter := parseRetryAfter(resp.Header)
			drain(resp)
			if attempt < c.retry.MaxAttempts-1 {
				d := c.retry.delay(attempt, resp.StatusCode, retryAfter)
				c.logger.Debug("transient status, retrying",
					slog.String("url", reqURL),
					slog.Int("status", resp.StatusCode),
					slog.Int("attempt", attempt+1),
					slog.Duration("wait", d))
				if werr := c.sleep(ctx, d); werr != nil {
					return nil, werr
				}
				continue
			}

		default:
			drain(resp)
			return nil, &StatusError{StatusCode: resp.StatusCode, URL: reqURL, Attempts: 1}
		}
	}

	return nil, &StatusError{StatusCode: lastStatus, URL: reqURL, Attempts: c.retry.MaxAttempts}
}

// getJSON runs a request and decodes a bounded JSON body into v, returning
// the response headers for pagination.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, v any) (http.Header, error) {
	resp, err := c.do(ctx, path, params, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return resp.Header, nil
}

// sleep waits for the backoff delay or the context, whichever ends first.
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// parseRetryAfter reads a Retry-After header as delay seconds or an HTTP
// date. Zero means absent or unparseable.
func parseRetryAfter(h http.Header) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// drain discards and closes a response body so the connection can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

// hasNextPage reports whether an RFC 5988 Link header advertises another
// page of results.
func hasNextPage(h http.Header) bool {
	for _, link := range h.Values("Link") {
		for _, part := range strings.Split(link, ",") {
			if strings.Contains(part, `rel="next"`) {
				return true
			}
		}
	}
	return false
}
