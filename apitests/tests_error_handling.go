package apitests

import (
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"

	"github.com/qualitykit/api-contract-tests/servicedef"
)

// DoErrorHandlingTests checks that the consumer surfaces the API's error
// envelope faithfully for each of the standard failure statuses.
func DoErrorHandlingTests(t *T) {
	getUserCommand := servicedef.CommandParams{
		Command: servicedef.CommandGetUser,
		GetUser: &servicedef.GetUserParams{UserID: "u1"},
	}

	t.Run("404 with envelope", func(t *T) {
		t.mockAPI.SetHandler(errorHandler(404, "user_not_found", "no such user"))
		t.StartConsumer()

		errorRep := t.RequireAPIError(t.SendCommand(getUserCommand), 404)
		assert.Equal(t, "user_not_found", errorRep.Code)
		assert.Equal(t, "no such user", errorRep.Message)
	})

	t.Run("400 with envelope", func(t *T) {
		t.mockAPI.SetHandler(errorHandler(400, "invalid_request", "the request could not be understood"))
		t.StartConsumer()

		errorRep := t.RequireAPIError(t.SendCommand(getUserCommand), 400)
		assert.Equal(t, "invalid_request", errorRep.Code)
	})

	t.Run("500 with envelope", func(t *T) {
		t.mockAPI.SetHandler(errorHandler(500, "internal_error", "something went wrong"))
		t.StartConsumer()

		errorRep := t.RequireAPIError(t.SendCommand(getUserCommand), 500)
		assert.Equal(t, "internal_error", errorRep.Code)
	})

	t.Run("500 is not retried by default", func(t *T) {
		t.mockAPI.SetHandler(errorHandler(500, "internal_error", "something went wrong"))
		t.StartConsumer(withMaxRetries(3))

		t.RequireAPIError(t.SendCommand(getUserCommand), 500)
		_ = t.AwaitRequest()
		t.ExpectNoMoreRequests(awaitQuietPeriod)
	})

	t.Run("500 is retried when server-error retries are enabled", func(t *T) {
		t.mockAPI.SetHandler(httphelpers.SequentialHandler(
			errorHandler(500, "internal_error", "something went wrong"),
			jsonHandler(200, defaultUserBody),
		))
		t.StartConsumer(withMaxRetries(2), withRetryServerErrors())

		result := t.RequireSuccess(t.SendCommand(getUserCommand))
		assert.NotNil(t, result.User)

		retry := t.RequireRetryCallback()
		assert.Equal(t, 500, retry.StatusCode)
	})

	t.Run("non-JSON error body still yields the status code", func(t *T) {
		t.mockAPI.SetHandler(jsonHandler(500, `<html><body>Internal Server Error</body></html>`))
		t.StartConsumer()

		errorRep := t.RequireAPIError(t.SendCommand(getUserCommand), 500)
		assert.Empty(t, errorRep.Code, "no code should be invented for an unparseable body")
	})

	t.Run("empty error body still yields the status code", func(t *T) {
		t.mockAPI.SetHandler(jsonHandler(404, ``))
		t.StartConsumer()

		t.RequireAPIError(t.SendCommand(getUserCommand), 404)
	})
}
