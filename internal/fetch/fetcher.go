package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	DefaultUserAgent  = "DataGateBot/1.0 (+https://datagate.dev)"
	DefaultMaxRetries = 2
	DefaultTimeout    = 30 * time.Second

	AcceptFeed = "application/rss+xml, application/xml, text/xml, */*"
	AcceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	AcceptJSON = "application/json"

	maxBodyBytes = 20 << 20
)

// Attempt outcomes reported to an AttemptObserver.
const (
	OutcomeSuccess     = "success"
	OutcomeServerError = "server_error"
	OutcomeClientError = "client_error"
	OutcomeTimeout     = "timeout"
	OutcomeNetwork     = "network_error"
)

// HTTPError is a non-2xx response.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d fetching %s: %s", e.StatusCode, e.URL, e.Status)
}

// Permanent reports whether the response is a client error that must not be retried.
func (e *HTTPError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// TimeoutError reports that a single attempt exceeded its deadline.
type TimeoutError struct {
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout after %s fetching %s", e.Timeout, e.URL)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err was caused by a per-attempt timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// StatusCode extracts the HTTP status from err, or 0 when there is none.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.StatusCode
	}
	return 0
}

// AttemptObserver is notified of every HTTP attempt.
type AttemptObserver interface {
	ObserveFetchAttempt(outcome string)
}

// Client retrieves remote documents with retry, backoff and per-attempt timeouts.
type Client struct {
	httpClient *http.Client
	policy     RetryPolicy
	timeout    time.Duration
	userAgent  string
	observer   AttemptObserver
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithTimeout sets the default per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithObserver attaches an attempt observer, typically the metrics collector.
func WithObserver(o AttemptObserver) Option {
	return func(c *Client) { c.observer = o }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient constructs a Client with production defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		policy:     DefaultRetryPolicy(),
		timeout:    DefaultTimeout,
		userAgent:  DefaultUserAgent,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	accept     string
	headers    map[string]string
	maxRetries int
	timeout    time.Duration
}

// RequestOption adjusts a single fetch.
type RequestOption func(*request)

// Accept sets the Accept header for this request.
func Accept(value string) RequestOption {
	return func(r *request) { r.accept = value }
}

// Header adds an extra request header.
func Header(key, value string) RequestOption {
	return func(r *request) {
		if r.headers == nil {
			r.headers = make(map[string]string)
		}
		r.headers[key] = value
	}
}

// MaxRetries overrides the number of retries for this request.
func MaxRetries(n int) RequestOption {
	return func(r *request) { r.maxRetries = n }
}

// Timeout overrides the per-attempt timeout for this request.
func Timeout(d time.Duration) RequestOption {
	return func(r *request) { r.timeout = d }
}

// FetchText retrieves url and returns the body as a string. Network errors,
// timeouts and 5xx responses are retried with exponential backoff; 4xx
// responses fail immediately.
func (c *Client) FetchText(ctx context.Context, url string, opts ...RequestOption) (string, error) {
	req := request{
		accept:     AcceptFeed,
		maxRetries: c.policy.MaxRetries,
		timeout:    c.timeout,
	}
	for _, opt := range opts {
		opt(&req)
	}

	policy := c.policy
	policy.MaxRetries = req.maxRetries

	var body []byte
	attempts, err := Retry(ctx, policy, func(attempt int) error {
		b, err := c.attempt(ctx, url, req)
		if err != nil {
			if IsRetryable(err) && attempt < policy.MaxRetries {
				c.logger.Warn("fetch attempt failed, retrying",
					"url", url,
					"attempt", attempt+1,
					"backoff", Backoff(policy, attempt),
					"error", err,
				)
			}
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRetriesExhausted) {
			return "", fmt.Errorf("fetch %s failed after %d attempts: %w", url, attempts, err)
		}
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}

	return string(body), nil
}

// FetchJSON retrieves url and decodes the JSON body into v.
func (c *Client) FetchJSON(ctx context.Context, url string, v any, opts ...RequestOption) error {
	opts = append([]RequestOption{Accept(AcceptJSON)}, opts...)
	body, err := c.FetchText(ctx, url, opts...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("decode json from %s: %w", url, err)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, url string, req request) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, req.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("Accept", req.accept)
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.classify(ctx, attemptCtx, url, req.timeout, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := &HTTPError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		if httpErr.Permanent() {
			c.observe(OutcomeClientError)
			return nil, httpErr
		}
		c.observe(OutcomeServerError)
		return nil, NewRetryableError(httpErr)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, c.classify(ctx, attemptCtx, url, req.timeout, err)
	}

	c.observe(OutcomeSuccess)
	return body, nil
}

// classify maps a transport error onto the fetch error taxonomy. Cancellation
// of the caller's context is never retried.
func (c *Client) classify(parent, attemptCtx context.Context, url string, timeout time.Duration, err error) error {
	if parent.Err() != nil {
		c.observe(OutcomeNetwork)
		return parent.Err()
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		c.observe(OutcomeTimeout)
		return NewRetryableError(&TimeoutError{URL: url, Timeout: timeout, Err: err})
	}
	c.observe(OutcomeNetwork)
	return NewRetryableError(fmt.Errorf("network error: %w", err))
}

func (c *Client) observe(outcome string) {
	if c.observer != nil {
		c.observer.ObserveFetchAttempt(outcome)
	}
}
