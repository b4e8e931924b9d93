package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// ErrorDetail is one field-level problem reported by the API, normally
// accompanying a validation failure.
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is returned for any response with a non-2xx status. Code, Message,
// and Details are populated from the API's error envelope when the body can
// be parsed; StatusCode is always set.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    []ErrorDetail

	retryAfterSeconds int
}

// RetryAfterSeconds returns the value of the Retry-After header that came
// with a 429 response, or zero if the server did not send one.
func (e *APIError) RetryAfterSeconds() int {
	return e.retryAfterSeconds
}

func (e *APIError) setRetryAfter(headerValue string) {
	if secs, err := strconv.Atoi(headerValue); err == nil && secs >= 0 {
		e.retryAfterSeconds = secs
	}
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("API returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("API returned HTTP %d (%s: %s)", e.StatusCode, e.Code, e.Message)
}

// errorEnvelope matches the API's error response shape:
// {"error": {"code": ..., "message": ..., "details": [...]}}
type errorEnvelope struct {
	Error struct {
		Code    string        `json:"code"`
		Message string        `json:"message"`
		Details []ErrorDetail `json:"details"`
	} `json:"error"`
}

func newAPIError(statusCode int, body []byte) *APIError {
	e := &APIError{StatusCode: statusCode}
	var envelope errorEnvelope
	if len(body) > 0 && json.Unmarshal(body, &envelope) == nil {
		e.Code = envelope.Error.Code
		e.Message = envelope.Error.Message
		e.Details = envelope.Error.Details
	}
	return e
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool { return hasStatus(err, http.StatusNotFound) }

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool { return hasStatus(err, http.StatusUnauthorized) }

// IsRateLimited reports whether err is an APIError with status 429.
func IsRateLimited(err error) bool { return hasStatus(err, http.StatusTooManyRequests) }

func hasStatus(err error, status int) bool {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr.StatusCode == status
	}
	return false
}
