package sampleapp

import (
	"encoding/json"
	"net/http"
)

// Error codes used across the API.
const (
	codeValidationError      = "validation_error"
	codeInvalidRequest       = "invalid_request"
	codeEmailExists          = "email_exists"
	codeInvalidCredentials   = "invalid_credentials"
	codeInvalidToken         = "invalid_token"
	codeUserNotFound         = "user_not_found"
	codeRateLimited          = "rate_limited"
	codeUnsupportedMediaType = "unsupported_media_type"
	codePayloadTooLarge      = "payload_too_large"
	codeInternalError        = "internal_error"
)

type errorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorBody struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []errorDetail `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// writeError responds with the API's standard error envelope:
// {"error": {"code", "message", "details"}}.
func writeError(w http.ResponseWriter, status int, code, message string, details ...errorDetail) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
