// Package apiclient is a reference consumer of the example web API that the
// contract-test suite describes: user registration and authentication,
// paginated product listings, and file uploads. It is the implementation
// wrapped by the testservice package, and the client used by the end-to-end
// journey tests against the sample application.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = time.Second * 10
const defaultRetryBackoffBase = time.Millisecond * 500
const maxRetryDelay = time.Second * 30
const defaultUserAgent = "qualitykit-apiclient/1.0"

// Logger matches the logging interface used elsewhere in this repository.
type Logger interface {
	Printf(message string, args ...interface{})
}

type nullLogger struct{}

func (n nullLogger) Printf(string, ...interface{}) {}

// RetryListener is called just before the client sleeps and re-issues a
// request after a retryable failure.
type RetryListener func(attempt int, statusCode int, delay time.Duration)

// Config holds the options for New.
type Config struct {
	// BaseURL is the root of the API, e.g. "https://example.test". Required.
	BaseURL string

	// HTTPClient is the underlying client; nil means a client with Timeout.
	HTTPClient *http.Client

	// Headers are added to every request.
	Headers map[string]string

	// AuthToken, if set, is sent as a bearer token from the first request on.
	// Login replaces it.
	AuthToken string

	// Timeout applies when HTTPClient is nil. Zero means 10 seconds.
	Timeout time.Duration

	// MaxRetries is the number of re-attempts after a retryable failure.
	// Zero means no retries.
	MaxRetries int

	// RetryServerErrors enables retrying of 5xx responses and transport
	// errors. 429 responses are always retryable when MaxRetries > 0.
	RetryServerErrors bool

	// RetryBackoffBase is the first backoff delay when the server does not
	// supply Retry-After; it doubles per attempt. Zero means 500ms.
	RetryBackoffBase time.Duration

	// RetryListener, if set, observes every retry decision.
	RetryListener RetryListener

	// UserAgent overrides the default User-Agent header value.
	UserAgent string

	// Logger receives debug output. Nil disables it.
	Logger Logger
}

// Client is a thread-safe consumer of the API. Use New to create one.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    map[string]string
	userAgent  string
	config     Config
	logger     Logger

	authToken string
	lock      sync.RWMutex
}

// New validates the configuration and returns a Client.
func New(config Config) (*Client, error) {
	base := strings.TrimSuffix(config.BaseURL, "/")
	if base == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout == 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := config.Logger
	if logger == nil {
		logger = nullLogger{}
	}
	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:    base,
		httpClient: httpClient,
		headers:    config.Headers,
		userAgent:  userAgent,
		config:     config,
		logger:     logger,
		authToken:  config.AuthToken,
	}, nil
}

// SetAuthToken replaces the bearer token used on subsequent requests. Login
// calls this automatically.
func (c *Client) SetAuthToken(token string) {
	c.lock.Lock()
	c.authToken = token
	c.lock.Unlock()
}

func (c *Client) currentAuthToken() string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.authToken
}

// requestSpec is everything needed to (re-)issue one request; the body is
// captured as bytes up front so retries can replay it.
type requestSpec struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

// do sends the request, retrying per the retry policy, and decodes a 2xx
// response body into out (when out is non-nil). Errors from the API are
// returned as *APIError.
func (c *Client) do(ctx context.Context, spec requestSpec, out interface{}) error {
	maxAttempts := c.config.MaxRetries + 1
	backoff := c.config.RetryBackoffBase
	if backoff <= 0 {
		backoff = defaultRetryBackoffBase
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, header, body, err := c.send(ctx, spec)
		if err == nil && status < 300 {
			if out != nil && len(body) > 0 {
				if err := json.Unmarshal(body, out); err != nil {
					return fmt.Errorf("malformed response body from %s %s: %w", spec.method, spec.path, err)
				}
			}
			return nil
		}

		var retryAfter time.Duration
		retryable := false
		switch {
		case err != nil:
			lastErr = fmt.Errorf("request to %s %s failed: %w", spec.method, spec.path, err)
			retryable = c.config.RetryServerErrors
		default:
			apiErr := newAPIError(status, body)
			lastErr = apiErr
			if status == http.StatusTooManyRequests {
				retryable = true
				apiErr.setRetryAfter(header.Get("Retry-After"))
				if secs := apiErr.RetryAfterSeconds(); secs > 0 {
					retryAfter = time.Duration(secs) * time.Second
				}
			} else if status >= 500 {
				retryable = c.config.RetryServerErrors
			}
		}

		if !retryable || attempt == maxAttempts {
			return lastErr
		}

		delay := retryAfter
		if delay <= 0 {
			delay = backoff
			backoff *= 2
		}
		if delay > maxRetryDelay {
			delay = maxRetryDelay
		}
		statusForListener := status
		if err != nil {
			statusForListener = 0
		}
		c.logger.Printf("retrying %s %s after %s (attempt %d, status %d)",
			spec.method, spec.path, delay, attempt, statusForListener)
		if c.config.RetryListener != nil {
			c.config.RetryListener(attempt, statusForListener, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (c *Client) send(ctx context.Context, spec requestSpec) (int, http.Header, []byte, error) {
	u := c.baseURL + spec.path
	if len(spec.query) > 0 {
		u += "?" + spec.query.Encode()
	}
	var bodyReader io.Reader
	if spec.body != nil {
		bodyReader = bytes.NewReader(spec.body)
	}
	req, err := http.NewRequestWithContext(ctx, spec.method, u, bodyReader)
	if err != nil {
		return 0, nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if spec.contentType != "" {
		req.Header.Set("Content-Type", spec.contentType)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	// The token goes in the Authorization header and nowhere else; in
	// particular it must never appear in the query string.
	if token := c.currentAuthToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, resp.Header, nil, err
	}
	return resp.StatusCode, resp.Header, body, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in interface{}, out interface{}) error {
	var body []byte
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = data
		contentType = "application/json"
	}
	return c.do(ctx, requestSpec{method: method, path: path, body: body, contentType: contentType}, out)
}
