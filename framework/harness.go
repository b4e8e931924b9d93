package framework

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

const endpointPathPrefix = "/endpoints/"
const httpListenerTimeout = time.Second * 10

// TestHarness is the central object of a test run. It verifies that the test
// service is alive, remembers the service's advertised capabilities, and runs
// an HTTP listener on which tests can allocate mock endpoints that the
// consumer under test will be directed to call.
type TestHarness struct {
	testServiceBaseURL         string
	testHarnessExternalBaseURL string
	testServiceInfo            TestServiceInfo
	endpoints                  map[string]*MockEndpoint
	lastEndpointID             int
	logger                     Logger
	lock                       sync.Mutex
}

// NewTestHarness queries the test service's status resource (retrying until
// the timeout elapses, since the service may still be starting), then starts
// the harness's own HTTP listener on the specified port and verifies it is
// reachable before returning.
func NewTestHarness(
	testServiceBaseURL string,
	testHarnessExternalHostname string,
	testHarnessPort int,
	statusQueryTimeout time.Duration,
	debugLogger Logger,
	startupOutput io.Writer,
) (*TestHarness, error) {
	if debugLogger == nil {
		debugLogger = NullLogger()
	}

	externalBaseURL := fmt.Sprintf("http://%s:%d", testHarnessExternalHostname, testHarnessPort)

	h := &TestHarness{
		testServiceBaseURL:         testServiceBaseURL,
		testHarnessExternalBaseURL: externalBaseURL,
		endpoints:                  make(map[string]*MockEndpoint),
		logger:                     debugLogger,
	}

	testServiceInfo, err := queryTestServiceInfo(testServiceBaseURL, statusQueryTimeout, startupOutput)
	if err != nil {
		return nil, err
	}
	h.testServiceInfo = testServiceInfo

	if err = startServer(testHarnessPort, http.HandlerFunc(h.serveHTTP)); err != nil {
		return nil, err
	}

	return h, nil
}

// TestServiceInfo returns the metadata the test service reported at startup.
func (h *TestHarness) TestServiceInfo() TestServiceInfo {
	return h.testServiceInfo
}

// TestServiceHasCapability checks whether the test service declared support
// for an optional area of behavior.
func (h *TestHarness) TestServiceHasCapability(desired string) bool {
	for _, capability := range h.testServiceInfo.Capabilities {
		if capability == desired {
			return true
		}
	}
	return false
}

func (h *TestHarness) serveHTTP(w http.ResponseWriter, req *http.Request) {
	if req.Method == "HEAD" {
		w.WriteHeader(200) // we use this to test whether our own listener is active yet
		return
	}

	if !strings.HasPrefix(req.URL.Path, endpointPathPrefix) {
		h.logger.Printf("Received request for unrecognized URL path %s", req.URL.Path)
		w.WriteHeader(404)
		return
	}
	path := strings.TrimPrefix(req.URL.Path, endpointPathPrefix)
	var endpointID string
	slashPos := strings.Index(path, "/")
	if slashPos >= 0 {
		endpointID = path[0:slashPos]
		path = path[slashPos:]
	} else {
		endpointID = path
		path = ""
	}

	h.lock.Lock()
	e := h.endpoints[endpointID]
	h.lock.Unlock()
	if e == nil {
		h.logger.Printf("Received request for unrecognized endpoint %s", req.URL.Path)
		w.WriteHeader(404)
		return
	}

	var body []byte
	if req.Body != nil {
		data, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			h.logger.Printf("Unexpected error trying to read request body: %s", err)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		body = data
	}

	e.lock.Lock()
	ctx, canceller := context.WithCancel(req.Context())
	cancellerPtr := &canceller
	e.cancels = append(e.cancels, cancellerPtr)
	e.lock.Unlock()

	incoming := IncomingRequestInfo{
		Headers: req.Header,
		Method:  req.Method,
		Path:    path,
		Query:   req.URL.Query(),
		Body:    body,
		Context: ctx,
	}
	select { // non-blocking push
	case e.newConns <- incoming:
		break
	default:
		h.logger.Printf("Incoming connection channel was full for %s", req.URL)
	}

	transformedReq := req.WithContext(ctx)
	url := *req.URL
	url.Path = path
	transformedReq.URL = &url
	if body != nil {
		transformedReq.Body = io.NopCloser(bytes.NewBuffer(body))
	}

	e.handler.ServeHTTP(w, transformedReq)

	e.lock.Lock()
	for i, c := range e.cancels {
		if c == cancellerPtr { // can't compare functions with ==, but can compare pointers
			e.cancels = append(e.cancels[:i], e.cancels[i+1:]...)
			break
		}
	}
	e.lock.Unlock()
}

func startServer(port int, handler http.Handler) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil {
			panic(err)
		}
	}()

	// Wait till the server is definitely listening for requests before we run any tests
	deadline := time.NewTimer(httpListenerTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(time.Millisecond * 10)
	defer ticker.Stop()
	for {
		select {
		case <-deadline.C:
			return fmt.Errorf("could not detect own listener at %s", server.Addr)
		case <-ticker.C:
			resp, err := http.DefaultClient.Head(fmt.Sprintf("http://localhost:%d", port))
			if err == nil && resp.StatusCode == 200 {
				return nil
			}
		}
	}
}
