package apitests

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/qualitykit/api-contract-tests/framework"
	"github.com/qualitykit/api-contract-tests/servicedef"
)

const awaitRequestTimeout = time.Second * 5
const awaitCallbackTimeout = time.Second * 5

// awaitQuietPeriod is how long tests wait when asserting that nothing further
// happens (no extra request, no extra callback).
const awaitQuietPeriod = time.Millisecond * 300

// AllCapabilities lists every optional capability the suite knows about, for
// reporting which tests may be skipped against a given test service.
var AllCapabilities = []string{
	servicedef.CapabilityAuth,
	servicedef.CapabilityRegistration,
	servicedef.CapabilityPagination,
	servicedef.CapabilityRateLimit,
	servicedef.CapabilityUploads,
	servicedef.CapabilityErrorDetails,
	servicedef.CapabilityCustomHeaders,
}

// T represents a test or subtest in the API contract-test suite.
//
// It implements the same basic functionality as Go's testing.T, but in an
// environment that is outside of the Go test runner, and with some extra
// features such as debug logging that are convenient for our use case. Those
// features are provided by our lower-level framework package.
//
// It also provides functionality that is specific to this domain. Every T
// instance maintains a mock API (the simulated provider) and a callback
// receiver, and - once StartConsumer has been called - a reference to an API
// consumer in the test service. To make test assertions, you can use the
// assert and require packages, passing the *T as if it were a *testing.T.
type T struct {
	context          *framework.Context
	harness          *framework.TestHarness
	mockAPI          *mockAPI
	callbackReceiver *callbackReceiver
	consumerEntity   *framework.TestServiceEntity
}

func newTestScope(context *framework.Context, harness *framework.TestHarness) *T {
	t := &T{
		context: context,
		harness: harness,
	}
	t.mockAPI = newMockAPI(harness, context.DebugLogger())
	t.callbackReceiver = newCallbackReceiver(harness, context.DebugLogger())
	return t
}

func (t *T) close() {
	if t.consumerEntity != nil {
		_ = t.consumerEntity.Close()
	}
	if t.callbackReceiver != nil {
		t.callbackReceiver.Close()
	}
	if t.mockAPI != nil {
		t.mockAPI.Close()
	}
}

// Errorf is called by assertions to log a test failure. It does not cause an
// immediate exit.
func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

// FailNow is called by assertions when a test should fail and immediately
// exit. The methods in the require package call FailNow.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs a subtest. This is equivalent to the Run method of testing.T.
//
// The specified function receives a new T instance, with its own mock API and
// callback receiver.
func (t *T) Run(name string, action func(*T)) {
	var t1 *T
	t.context.Run(name, func(c *framework.Context) {
		t1 = newTestScope(c, t.harness)
		action(t1)
	})
	if t1 != nil {
		t1.close()
	}
}

// Debug logs some debug output for the test. The output will be passed to the
// test logger at the end of the test.
func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

func (t *T) DebugLogger() framework.Logger {
	return t.context.DebugLogger()
}

// RequireCapability skips this test if the test service did not declare that
// it supports the specified capability.
func (t *T) RequireCapability(capability string) {
	if !t.harness.TestServiceHasCapability(capability) {
		t.context.SkipWithReason(fmt.Sprintf("test service does not have capability %q", capability))
	}
}

// consumerOpt modifies the parameters used to create a consumer entity.
type consumerOpt func(*servicedef.CreateConsumerParams)

func withHeaders(headers map[string]string) consumerOpt {
	return func(p *servicedef.CreateConsumerParams) { p.Headers = headers }
}

func withAuthToken(token string) consumerOpt {
	return func(p *servicedef.CreateConsumerParams) { p.AuthToken = token }
}

func withMaxRetries(n int) consumerOpt {
	return func(p *servicedef.CreateConsumerParams) { p.MaxRetries = ldvalue.NewOptionalInt(n) }
}

func withRetryServerErrors() consumerOpt {
	return func(p *servicedef.CreateConsumerParams) { p.RetryServerErrors = true }
}

// StartConsumer tells the test service to create an API consumer pointed at
// this test's mock API, reporting progress to this test's callback receiver.
// All subsequent command methods refer to this consumer. The test fails and
// immediately exits if the entity cannot be created.
func (t *T) StartConsumer(opts ...consumerOpt) {
	params := servicedef.CreateConsumerParams{
		Tag:         t.context.ID().String(),
		BaseURL:     t.mockAPI.BaseURL(),
		CallbackURL: t.callbackReceiver.endpoint.BaseURL(),
	}
	for _, opt := range opts {
		opt(&params)
	}
	entity, err := t.harness.NewTestServiceEntity(params, "API consumer", t.context.DebugLogger())
	require.NoError(t, err)
	t.consumerEntity = entity
}

func (t *T) requireConsumerStarted() {
	require.NotNil(t, t.consumerEntity, "test tried to send a command before starting a consumer")
}

// SendCommand issues a command to the consumer entity and returns its result.
// A transport- or protocol-level failure (as opposed to an API error surfaced
// by the consumer, which arrives inside the result) fails the test
// immediately.
func (t *T) SendCommand(params servicedef.CommandParams) servicedef.CommandResult {
	t.requireConsumerStarted()
	data, err := t.consumerEntity.SendCommand(params)
	require.NoError(t, err)
	var result servicedef.CommandResult
	require.NoError(t, json.Unmarshal(data, &result), "malformed command result: %s", string(data))
	return result
}

// RequireSuccess fails the test if the command result carries an error.
func (t *T) RequireSuccess(result servicedef.CommandResult) servicedef.CommandResult {
	if result.Error != nil {
		data, _ := json.Marshal(result.Error)
		require.Fail(t, "consumer reported an unexpected error", "error was: %s", string(data))
	}
	return result
}

// RequireAPIError fails the test unless the command result carries an error
// with the given HTTP status.
func (t *T) RequireAPIError(result servicedef.CommandResult, statusCode int) *servicedef.ErrorRep {
	if result.Error == nil {
		require.Fail(t, "expected the consumer to report an error but the command succeeded")
	}
	require.Equal(t, statusCode, result.Error.StatusCode,
		"consumer reported an error but with the wrong status code (message: %s)", result.Error.Message)
	return result.Error
}

// AwaitRequest waits for the consumer to send a request to the mock API. It
// fails and immediately exits the test if it times out.
func (t *T) AwaitRequest() framework.IncomingRequestInfo {
	info, err := t.mockAPI.endpoint.AwaitConnection(awaitRequestTimeout)
	require.NoError(t, err)
	return info
}

// ExpectNoMoreRequests asserts that the mock API receives no further requests
// within the given interval.
func (t *T) ExpectNoMoreRequests(duration time.Duration) {
	info, err := t.mockAPI.endpoint.AwaitConnection(duration)
	if err == nil {
		require.Fail(t, "consumer sent a request when none was expected",
			"request was %s %s", info.Method, info.Path)
	}
}

// RequireRetryCallback waits for the consumer to report that it is retrying a
// request.
func (t *T) RequireRetryCallback() servicedef.RetryCallback {
	message, err := t.callbackReceiver.AwaitMessage(awaitCallbackTimeout)
	require.NoError(t, err)
	require.Equal(t, servicedef.CallbackKindRetry, message.Kind, "received an unexpected callback kind")
	require.NotNil(t, message.Retry)
	return *message.Retry
}

// RequirePageCallback waits for the consumer to report that it finished
// reading a page of a listing.
func (t *T) RequirePageCallback() servicedef.PageCallback {
	message, err := t.callbackReceiver.AwaitMessage(awaitCallbackTimeout)
	require.NoError(t, err)
	require.Equal(t, servicedef.CallbackKindPage, message.Kind, "received an unexpected callback kind")
	require.NotNil(t, message.Page)
	return *message.Page
}

// ExpectNoMoreCallbacks asserts that the consumer reports nothing further
// within the given interval.
func (t *T) ExpectNoMoreCallbacks(duration time.Duration) {
	require.NoError(t, t.callbackReceiver.ExpectNoMessage(duration))
}
