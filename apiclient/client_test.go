package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonResponse(status int, body string) http.Handler {
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	return httphelpers.HandlerWithResponse(status, headers, []byte(body))
}

func newTestClient(t *testing.T, handler http.Handler, configure func(*Config)) (*Client, <-chan httphelpers.HTTPRequestInfo, func()) {
	recording, requests := httphelpers.RecordingHandler(handler)
	server := httptest.NewServer(recording)
	config := Config{BaseURL: server.URL}
	if configure != nil {
		configure(&config)
	}
	client, err := New(config)
	require.NoError(t, err)
	return client, requests, server.Close
}

func TestNewRequiresBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestStandardRequestHeaders(t *testing.T) {
	client, requests, cleanup := newTestClient(t, jsonResponse(200, `{"id":"u1","email":"a@example.com"}`), nil)
	defer cleanup()

	_, err := client.GetUser(context.Background(), "u1")
	require.NoError(t, err)

	req := <-requests
	assert.Equal(t, "application/json", req.Request.Header.Get("Accept"))
	assert.Equal(t, defaultUserAgent, req.Request.Header.Get("User-Agent"))
	assert.Empty(t, req.Request.Header.Get("Authorization"))
}

func TestCustomHeadersAreSentOnEveryRequest(t *testing.T) {
	client, requests, cleanup := newTestClient(t, jsonResponse(200, `{"id":"u1","email":"a@example.com"}`),
		func(c *Config) {
			c.Headers = map[string]string{"X-Request-Source": "unit-test"}
		})
	defer cleanup()

	_, err := client.GetUser(context.Background(), "u1")
	require.NoError(t, err)

	req := <-requests
	assert.Equal(t, "unit-test", req.Request.Header.Get("X-Request-Source"))
}

func TestLoginStoresBearerToken(t *testing.T) {
	loginBody := `{"token":"tok-123","user":{"id":"u1","email":"a@example.com"}}`
	userBody := `{"id":"u1","email":"a@example.com"}`
	handler := httphelpers.SequentialHandler(
		jsonResponse(200, loginBody),
		jsonResponse(200, userBody),
	)
	client, requests, cleanup := newTestClient(t, handler, nil)
	defer cleanup()

	result, err := client.Login(context.Background(), "a@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", result.Token)

	_, err = client.GetUser(context.Background(), "u1")
	require.NoError(t, err)

	loginReq := <-requests
	assert.Equal(t, "POST", loginReq.Request.Method)
	assert.Equal(t, "/api/users/login", loginReq.Request.URL.Path)
	assert.Empty(t, loginReq.Request.Header.Get("Authorization"),
		"login request itself should not carry a token")
	assert.Empty(t, loginReq.Request.URL.RawQuery,
		"credentials must never appear in the query string")

	getReq := <-requests
	assert.Equal(t, "Bearer tok-123", getReq.Request.Header.Get("Authorization"))
}

func TestErrorEnvelopeIsParsedIntoAPIError(t *testing.T) {
	body := `{"error":{"code":"validation_error","message":"invalid input",` +
		`"details":[{"field":"email","message":"not a valid email address"}]}}`
	client, _, cleanup := newTestClient(t, jsonResponse(400, body), nil)
	defer cleanup()

	_, err := client.RegisterUser(context.Background(), RegisterUserRequest{Email: "nope"})
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected *APIError, got %T", err)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Equal(t, "validation_error", apiErr.Code)
	require.Len(t, apiErr.Details, 1)
	assert.Equal(t, "email", apiErr.Details[0].Field)
}

func TestMalformedErrorBodyStillYieldsStatusCodedError(t *testing.T) {
	client, _, cleanup := newTestClient(t, jsonResponse(500, `<html>oops</html>`), nil)
	defer cleanup()

	_, err := client.GetUser(context.Background(), "u1")
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, 500, apiErr.StatusCode)
	assert.Empty(t, apiErr.Code)
}

func TestRetryAfter429HonorsRetryAfterHeader(t *testing.T) {
	rateLimitHeaders := make(http.Header)
	rateLimitHeaders.Set("Retry-After", "1")
	handler := httphelpers.SequentialHandler(
		httphelpers.HandlerWithResponse(429, rateLimitHeaders, nil),
		jsonResponse(200, `{"id":"u1","email":"a@example.com"}`),
	)

	var retries []time.Duration
	client, requests, cleanup := newTestClient(t, handler, func(c *Config) {
		c.MaxRetries = 2
		c.RetryListener = func(attempt, status int, delay time.Duration) {
			assert.Equal(t, 429, status)
			retries = append(retries, delay)
		}
	})
	defer cleanup()

	started := time.Now()
	_, err := client.GetUser(context.Background(), "u1")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(started), time.Second, "client should wait at least Retry-After")
	require.Len(t, retries, 1)
	assert.Equal(t, time.Second, retries[0])
	assert.Len(t, requests, 2)
}

func TestRetryAfter429WithoutHeaderUsesBackoff(t *testing.T) {
	handler := httphelpers.SequentialHandler(
		httphelpers.HandlerWithStatus(429),
		httphelpers.HandlerWithStatus(429),
		jsonResponse(200, `{"id":"u1","email":"a@example.com"}`),
	)
	var delays []time.Duration
	client, _, cleanup := newTestClient(t, handler, func(c *Config) {
		c.MaxRetries = 3
		c.RetryBackoffBase = time.Millisecond * 10
		c.RetryListener = func(attempt, status int, delay time.Duration) {
			delays = append(delays, delay)
		}
	})
	defer cleanup()

	_, err := client.GetUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, delays, 2)
	assert.Equal(t, time.Millisecond*10, delays[0])
	assert.Equal(t, time.Millisecond*20, delays[1], "backoff should double per attempt")
}

func TestGivesUpAfterMaxRetriesAndSurfacesThe429(t *testing.T) {
	client, requests, cleanup := newTestClient(t, httphelpers.HandlerWithStatus(429), func(c *Config) {
		c.MaxRetries = 2
		c.RetryBackoffBase = time.Millisecond
	})
	defer cleanup()

	_, err := client.GetUser(context.Background(), "u1")
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
	assert.Len(t, requests, 3, "one initial attempt plus two retries")
}

func TestNoRetryOn4xxOtherThan429(t *testing.T) {
	client, requests, cleanup := newTestClient(t, httphelpers.HandlerWithStatus(404), func(c *Config) {
		c.MaxRetries = 3
		c.RetryBackoffBase = time.Millisecond
	})
	defer cleanup()

	_, err := client.GetUser(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Len(t, requests, 1)
}

func TestServerErrorsRetriedOnlyWhenConfigured(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		client, requests, cleanup := newTestClient(t, httphelpers.HandlerWithStatus(500), func(c *Config) {
			c.MaxRetries = 2
			c.RetryBackoffBase = time.Millisecond
		})
		defer cleanup()

		_, err := client.GetUser(context.Background(), "u1")
		require.Error(t, err)
		assert.Len(t, requests, 1)
	})

	t.Run("enabled", func(t *testing.T) {
		handler := httphelpers.SequentialHandler(
			httphelpers.HandlerWithStatus(500),
			jsonResponse(200, `{"id":"u1","email":"a@example.com"}`),
		)
		client, requests, cleanup := newTestClient(t, handler, func(c *Config) {
			c.MaxRetries = 2
			c.RetryBackoffBase = time.Millisecond
			c.RetryServerErrors = true
		})
		defer cleanup()

		_, err := client.GetUser(context.Background(), "u1")
		require.NoError(t, err)
		assert.Len(t, requests, 2)
	})
}

func TestRetrySleepIsInterruptedByContextCancellation(t *testing.T) {
	rateLimitHeaders := make(http.Header)
	rateLimitHeaders.Set("Retry-After", "30")
	client, _, cleanup := newTestClient(t, httphelpers.HandlerWithResponse(429, rateLimitHeaders, nil),
		func(c *Config) { c.MaxRetries = 1 })
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*50)
	defer cancel()
	started := time.Now()
	_, err := client.GetUser(ctx, "u1")
	require.Error(t, err)
	assert.Less(t, time.Since(started), time.Second)
}

func TestUpdateAndDeleteUseExpectedMethods(t *testing.T) {
	handler := httphelpers.SequentialHandler(
		jsonResponse(200, `{"id":"u1","email":"new@example.com"}`),
		httphelpers.HandlerWithStatus(204),
	)
	client, requests, cleanup := newTestClient(t, handler, nil)
	defer cleanup()

	_, err := client.UpdateUser(context.Background(), "u1", UpdateUserRequest{Email: "new@example.com"})
	require.NoError(t, err)
	require.NoError(t, client.DeleteUser(context.Background(), "u1"))

	patchReq := <-requests
	assert.Equal(t, "PATCH", patchReq.Request.Method)
	assert.Equal(t, "/api/users/u1", patchReq.Request.URL.Path)
	var patchBody map[string]interface{}
	require.NoError(t, json.Unmarshal(patchReq.Body, &patchBody))
	assert.Equal(t, map[string]interface{}{"email": "new@example.com"}, patchBody)

	deleteReq := <-requests
	assert.Equal(t, "DELETE", deleteReq.Request.Method)
}
