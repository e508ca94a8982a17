// Package backend provides a client for the Neufin REST backend.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neufin/neufin"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// DefaultHoldingsPath is the holdings endpoint of the backend.
	DefaultHoldingsPath = "/api/plaid/holdings"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 5

	// maxErrorBody bounds the response body kept in an APIError.
	maxErrorBody = 4 << 10
)

var (
	// ErrUnauthorized is matched by errors.Is for 401 responses.
	ErrUnauthorized = errors.New("not authenticated")

	// ErrNoSession is returned when a fetch is attempted without credentials.
	ErrNoSession = errors.New("no session")
)

// Client is a Neufin backend client.
type Client struct {
	baseURL      string
	holdingsPath string
	httpClient   *http.Client
	timeout      time.Duration
	transport    http.RoundTripper
	logger       zerolog.Logger
	limiter      *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHoldingsPath sets the holdings endpoint path.
func WithHoldingsPath(path string) ClientOption {
	return func(c *Client) {
		c.holdingsPath = path
	}
}

// WithHTTPClient sets a custom HTTP client. It is used as is: WithTimeout
// and WithTransport do not apply to it.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the HTTP timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets a logger.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// NewClient creates a new backend client for baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		holdingsPath: DefaultHoldingsPath,
		timeout:      DefaultTimeout,
		logger:       zerolog.Nop(),
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout:   c.timeout,
			Transport: c.transport,
		}
	}

	return c
}

// APIError represents a non-success response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// Unwrap lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// get performs an authenticated GET request and returns the response body.
func (c *Client) get(ctx context.Context, s Session, path string) ([]byte, error) {
	if s.IsZero() {
		return nil, ErrNoSession
	}

	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	s.apply(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("request_id", requestID).
		Str("endpoint", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Backend request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    msg,
			Endpoint:   path,
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// FetchHoldings retrieves the raw holdings of the session's user.
//
// A 401 response is returned as an *APIError matching ErrUnauthorized. An
// empty list is not an error.
func (c *Client) FetchHoldings(ctx context.Context, s Session) ([]neufin.RawHolding, error) {
	body, err := c.get(ctx, s, c.holdingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holdings: %w", err)
	}

	holdings, err := neufin.DecodeHoldings(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holdings: %w", err)
	}

	c.logger.Debug().Int("holdings", len(holdings)).Msg("Fetched holdings")
	return holdings, nil
}
