package apitests

import (
	"time"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"

	"github.com/qualitykit/api-contract-tests/servicedef"
)

// DoRateLimitingTests checks how the consumer reacts to 429 responses:
// honoring Retry-After, backing off when the header is absent, and giving up
// after its configured retry budget.
func DoRateLimitingTests(t *T) {
	t.RequireCapability(servicedef.CapabilityRateLimit)

	getUserCommand := servicedef.CommandParams{
		Command: servicedef.CommandGetUser,
		GetUser: &servicedef.GetUserParams{UserID: "u1"},
	}

	t.Run("429 with Retry-After", func(t *T) {
		t.Run("delay is honored and the request is retried", func(t *T) {
			t.mockAPI.SetHandler(httphelpers.SequentialHandler(
				rateLimitHandler("1"),
				jsonHandler(200, defaultUserBody),
			))
			t.StartConsumer(withMaxRetries(2))

			commandSent := time.Now()
			result := t.RequireSuccess(t.SendCommand(getUserCommand))
			assert.NotNil(t, result.User, "consumer should eventually return the user")

			first := t.AwaitRequest()
			second := t.AwaitRequest()
			assert.Equal(t, first.Path, second.Path, "retry should target the same path")
			assert.GreaterOrEqual(t, time.Since(commandSent), time.Second,
				"consumer retried sooner than the Retry-After delay")

			retry := t.RequireRetryCallback()
			assert.Equal(t, 429, retry.StatusCode)
			assert.GreaterOrEqual(t, retry.DelayMS, int64(1000),
				"consumer reported a delay shorter than Retry-After")
		})
	})

	t.Run("429 without Retry-After uses increasing backoff", func(t *T) {
		t.mockAPI.SetHandler(httphelpers.SequentialHandler(
			rateLimitHandler(""),
			rateLimitHandler(""),
			jsonHandler(200, defaultUserBody),
		))
		t.StartConsumer(withMaxRetries(3))

		t.RequireSuccess(t.SendCommand(getUserCommand))

		firstRetry := t.RequireRetryCallback()
		secondRetry := t.RequireRetryCallback()
		assert.Greater(t, firstRetry.DelayMS, int64(0), "backoff delay should be nonzero")
		assert.Greater(t, secondRetry.DelayMS, firstRetry.DelayMS,
			"backoff should increase between attempts")
	})

	t.Run("gives up after the retry budget and surfaces the 429", func(t *T) {
		t.mockAPI.SetHandler(rateLimitHandler(""))
		t.StartConsumer(withMaxRetries(1))

		errorRep := t.RequireAPIError(t.SendCommand(getUserCommand), 429)
		assert.Equal(t, "rate_limited", errorRep.Code)

		_ = t.AwaitRequest()
		_ = t.AwaitRequest()
		t.ExpectNoMoreRequests(awaitQuietPeriod)
	})

	t.Run("4xx statuses other than 429 are not retried", func(t *T) {
		t.mockAPI.SetHandler(errorHandler(404, "user_not_found", "no such user"))
		t.StartConsumer(withMaxRetries(3))

		t.RequireAPIError(t.SendCommand(getUserCommand), 404)
		_ = t.AwaitRequest()
		t.ExpectNoMoreRequests(awaitQuietPeriod)
		t.ExpectNoMoreCallbacks(awaitQuietPeriod)
	})

	t.Run("no retries are attempted when the budget is zero", func(t *T) {
		t.mockAPI.SetHandler(rateLimitHandler("1"))
		t.StartConsumer()

		t.RequireAPIError(t.SendCommand(getUserCommand), 429)
		_ = t.AwaitRequest()
		t.ExpectNoMoreRequests(awaitQuietPeriod)
	})
}
