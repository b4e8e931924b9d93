package framework

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

// MockEndpoint is an endpoint on the harness's listener that tests can point
// the consumer under test at. Tests observe every request it receives and
// decide, via the handler, how it responds.
type MockEndpoint struct {
	owner       *TestHarness
	id          string
	description string
	basePath    string
	handler     http.Handler
	newConns    chan IncomingRequestInfo
	cancels     []*context.CancelFunc
	logger      Logger
	lock        sync.Mutex
	closing     sync.Once
}

// IncomingRequestInfo describes one HTTP request that the consumer under test
// sent to a mock endpoint. Path and Query are relative to the endpoint's base
// URL; the body has already been fully read.
type IncomingRequestInfo struct {
	Headers http.Header
	Method  string
	Path    string
	Query   url.Values
	Body    []byte
	Context context.Context
}

// NewMockEndpoint allocates a new endpoint that can receive requests.
//
// The handler is called for all requests to the endpoint's base URL or any
// subpath of it. If the base URL (as reported by MockEndpoint.BaseURL()) is
// http://localhost:8111/endpoints/3, a request to
// http://localhost:8111/endpoints/3/api/users is delivered to the handler
// with its URL rewritten to the subpath /api/users. The request also gets a
// Context whose Done channel closes if Close is called on the endpoint.
//
// queueSize limits how many unobserved requests are buffered for
// AwaitConnection; zero means a default of 100.
func (h *TestHarness) NewMockEndpoint(
	handler http.Handler,
	queueSize int,
	logger Logger,
) *MockEndpoint {
	if logger == nil {
		logger = h.logger
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	e := &MockEndpoint{
		owner:    h,
		handler:  handler,
		newConns: make(chan IncomingRequestInfo, queueSize),
		logger:   logger,
	}
	h.lock.Lock()
	h.lastEndpointID++
	e.id = strconv.Itoa(h.lastEndpointID)
	e.basePath = endpointPathPrefix + e.id
	e.description = "endpoint " + e.id
	h.endpoints[e.id] = e
	h.lock.Unlock()

	return e
}

// BaseURL returns the externally visible URL of the mock endpoint.
func (e *MockEndpoint) BaseURL() string {
	return e.owner.testHarnessExternalBaseURL + e.basePath
}

// AwaitConnection waits for an incoming request to the endpoint.
func (e *MockEndpoint) AwaitConnection(timeout time.Duration) (IncomingRequestInfo, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case cxn, ok := <-e.newConns:
		if !ok {
			return IncomingRequestInfo{}, fmt.Errorf("endpoint %s was closed while waiting for a request", e.description)
		}
		return cxn, nil
	case <-deadline.C:
		return IncomingRequestInfo{}, fmt.Errorf("timed out waiting for an incoming request to %s", e.description)
	}
}

// Close unregisters the endpoint. Any subsequent requests to it will receive
// 404 errors. It also cancels the Context for every active request to it.
func (e *MockEndpoint) Close() {
	e.closing.Do(func() {
		e.owner.lock.Lock()
		delete(e.owner.endpoints, e.id)
		e.owner.lock.Unlock()

		e.lock.Lock()
		cancellers := e.cancels
		e.cancels = nil
		close(e.newConns)
		e.lock.Unlock()

		for _, cancel := range cancellers {
			(*cancel)()
		}
	})
}
