package apitests

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/qualitykit/api-contract-tests/framework"
)

// mockAPI simulates the provider: it is the web API that the consumer under
// test will be pointed at. It sits on one of the harness's mock endpoints so
// every incoming request is observable; the response behavior is whatever
// handler the current test installs.
type mockAPI struct {
	endpoint *framework.MockEndpoint
	logger   framework.Logger
	handler  http.Handler
	lock     sync.Mutex
}

func newMockAPI(harness *framework.TestHarness, logger framework.Logger) *mockAPI {
	m := &mockAPI{logger: logger}
	apiLogger := framework.LoggerWithPrefix(logger, "[mock API] ")
	m.endpoint = harness.NewMockEndpoint(m, 0, apiLogger)
	return m
}

func (m *mockAPI) Close() {
	m.endpoint.Close()
}

func (m *mockAPI) BaseURL() string {
	return m.endpoint.BaseURL()
}

// SetHandler installs the response behavior for subsequent requests. Tests
// normally call this once before starting the consumer.
func (m *mockAPI) SetHandler(handler http.Handler) {
	m.lock.Lock()
	m.handler = handler
	m.lock.Unlock()
}

func (m *mockAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.lock.Lock()
	handler := m.handler
	m.lock.Unlock()
	m.logger.Printf("received %s %s", r.Method, r.URL)
	if handler == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	handler.ServeHTTP(w, r)
}

// jsonHandler responds to every request with the given status and literal
// JSON body.
func jsonHandler(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// errorHandler responds with the API's standard error envelope.
func errorHandler(status int, code, message string) http.Handler {
	return jsonHandler(status, fmt.Sprintf(`{"error":{"code":%q,"message":%q}}`, code, message))
}

// rateLimitHandler responds 429; retryAfter, if non-empty, is sent in the
// Retry-After header.
func rateLimitHandler(retryAfter string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if retryAfter != "" {
			w.Header().Set("Retry-After", retryAfter)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":"rate_limited","message":"slow down"}}`))
	})
}

const defaultUserBody = `{"id":"u1","email":"test@example.com","name":"Test User"}`

// paginationPageBody builds one page of the standard listing envelope.
// nextPage < 0 means null.
func paginationPageBody(itemsJSON string, page, pageSize, totalItems, totalPages, nextPage int) string {
	next := "null"
	if nextPage > 0 {
		next = fmt.Sprintf("%d", nextPage)
	}
	return fmt.Sprintf(`{"items":%s,"pagination":{"page":%d,"pageSize":%d,"totalItems":%d,"totalPages":%d,"nextPage":%s}}`,
		itemsJSON, page, pageSize, totalItems, totalPages, next)
}
