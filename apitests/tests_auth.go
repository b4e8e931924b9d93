package apitests

import (
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"

	"github.com/qualitykit/api-contract-tests/servicedef"
)

// DoAuthTests checks bearer-token handling: obtaining a token via login,
// attaching it to later requests, and surfacing 401s without retrying.
func DoAuthTests(t *T) {
	t.RequireCapability(servicedef.CapabilityAuth)

	getUserCommand := servicedef.CommandParams{
		Command: servicedef.CommandGetUser,
		GetUser: &servicedef.GetUserParams{UserID: "u1"},
	}

	t.Run("login obtains a token that is attached to later requests", func(t *T) {
		t.mockAPI.SetHandler(httphelpers.SequentialHandler(
			jsonHandler(200, `{"token":"tok-xyz","user":`+defaultUserBody+`}`),
			jsonHandler(200, defaultUserBody),
		))
		t.StartConsumer()

		result := t.RequireSuccess(t.SendCommand(servicedef.CommandParams{
			Command: servicedef.CommandLogin,
			Login:   &servicedef.LoginParams{Email: "test@example.com", Password: "hunter22"},
		}))
		assert.Equal(t, "tok-xyz", result.Token)

		loginRequest := t.AwaitRequest()
		assert.Empty(t, loginRequest.Headers.Values("Authorization"),
			"login request itself should not carry an Authorization header")

		t.RequireSuccess(t.SendCommand(getUserCommand))
		getRequest := t.AwaitRequest()
		assert.Equal(t, "Bearer tok-xyz", getRequest.Headers.Get("Authorization"),
			"missing or incorrect Authorization header after login")
	})

	t.Run("preconfigured token is attached from the first request", func(t *T) {
		t.mockAPI.SetHandler(jsonHandler(200, defaultUserBody))
		t.StartConsumer(withAuthToken("tok-preset"))

		t.RequireSuccess(t.SendCommand(getUserCommand))
		request := t.AwaitRequest()
		assert.Equal(t, "Bearer tok-preset", request.Headers.Get("Authorization"))
	})

	t.Run("401 is surfaced as an auth error", func(t *T) {
		t.mockAPI.SetHandler(errorHandler(401, "invalid_token", "the access token is invalid or expired"))
		t.StartConsumer(withAuthToken("tok-expired"))

		errorRep := t.RequireAPIError(t.SendCommand(getUserCommand), 401)
		assert.Equal(t, "invalid_token", errorRep.Code)
	})

	t.Run("401 is not retried", func(t *T) {
		t.mockAPI.SetHandler(errorHandler(401, "invalid_token", "the access token is invalid or expired"))
		t.StartConsumer(withAuthToken("tok-expired"), withMaxRetries(3))

		t.RequireAPIError(t.SendCommand(getUserCommand), 401)
		_ = t.AwaitRequest()
		t.ExpectNoMoreRequests(awaitQuietPeriod)
		t.ExpectNoMoreCallbacks(awaitQuietPeriod)
	})

	t.Run("login failure does not install a token", func(t *T) {
		t.mockAPI.SetHandler(httphelpers.SequentialHandler(
			errorHandler(401, "invalid_credentials", "email or password is incorrect"),
			jsonHandler(200, defaultUserBody),
		))
		t.StartConsumer()

		t.RequireAPIError(t.SendCommand(servicedef.CommandParams{
			Command: servicedef.CommandLogin,
			Login:   &servicedef.LoginParams{Email: "test@example.com", Password: "wrong"},
		}), 401)
		_ = t.AwaitRequest()

		t.RequireSuccess(t.SendCommand(getUserCommand))
		getRequest := t.AwaitRequest()
		assert.Empty(t, getRequest.Headers.Values("Authorization"),
			"a failed login must not leave a token installed")
	})
}
