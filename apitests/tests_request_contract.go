package apitests

import (
	"encoding/json"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualitykit/api-contract-tests/servicedef"
)

// DoRequestContractTests checks the basic shape of every request the consumer
// sends: methods, paths, standard headers, and JSON body encoding.
func DoRequestContractTests(t *T) {
	t.Run("getUser uses GET with the expected path and headers", func(t *T) {
		t.mockAPI.SetHandler(jsonHandler(200, defaultUserBody))
		t.StartConsumer()

		t.RequireSuccess(t.SendCommand(servicedef.CommandParams{
			Command: servicedef.CommandGetUser,
			GetUser: &servicedef.GetUserParams{UserID: "u1"},
		}))

		request := t.AwaitRequest()
		assert.Equal(t, "GET", request.Method, "incorrect request method")
		assert.Equal(t, "/api/users/u1", request.Path, "incorrect request path")
		assert.Equal(t, "application/json", request.Headers.Get("Accept"), "missing or incorrect Accept header")
		assert.NotEmpty(t, request.Headers.Get("User-Agent"), "consumer should identify itself with a User-Agent")
		assert.Empty(t, request.Headers.Values("Authorization"),
			"Authorization header should not have had a value before login")
	})

	t.Run("registerUser posts a JSON body to the registration route", func(t *T) {
		t.mockAPI.SetHandler(jsonHandler(201, defaultUserBody))
		t.StartConsumer()

		t.RequireSuccess(t.SendCommand(servicedef.CommandParams{
			Command: servicedef.CommandRegisterUser,
			RegisterUser: &servicedef.RegisterUserParams{
				Email:    "new@example.com",
				Password: "correct-horse-battery",
				Name:     "New User",
			},
		}))

		request := t.AwaitRequest()
		assert.Equal(t, "POST", request.Method, "incorrect request method")
		assert.Equal(t, "/api/users/register", request.Path, "incorrect request path")
		assert.Equal(t, "application/json", request.Headers.Get("Content-Type"),
			"missing or incorrect Content-Type header")

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(request.Body, &body), "request body was not valid JSON")
		assert.Equal(t, "new@example.com", body["email"])
		assert.Equal(t, "correct-horse-battery", body["password"])
		assert.Equal(t, "New User", body["name"])
	})

	t.Run("updateUser uses PATCH and omits unchanged fields", func(t *T) {
		t.mockAPI.SetHandler(jsonHandler(200, defaultUserBody))
		t.StartConsumer()

		t.RequireSuccess(t.SendCommand(servicedef.CommandParams{
			Command:    servicedef.CommandUpdateUser,
			UpdateUser: &servicedef.UpdateUserParams{UserID: "u1", Name: "Renamed"},
		}))

		request := t.AwaitRequest()
		assert.Equal(t, "PATCH", request.Method, "incorrect request method")
		assert.Equal(t, "/api/users/u1", request.Path, "incorrect request path")

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(request.Body, &body))
		assert.Equal(t, map[string]interface{}{"name": "Renamed"}, body,
			"partial update should only include the fields being changed")
	})

	t.Run("credentials are never sent in the query string", func(t *T) {
		t.mockAPI.SetHandler(jsonHandler(200, `{"token":"tok-1","user":`+defaultUserBody+`}`))
		t.StartConsumer()

		t.RequireSuccess(t.SendCommand(servicedef.CommandParams{
			Command: servicedef.CommandLogin,
			Login:   &servicedef.LoginParams{Email: "test@example.com", Password: "hunter22"},
		}))

		request := t.AwaitRequest()
		assert.Equal(t, "/api/users/login", request.Path)
		assert.Empty(t, request.Query, "login request should not carry any query parameters")
	})

	t.Run("custom headers", func(t *T) {
		t.RequireCapability(servicedef.CapabilityCustomHeaders)

		t.mockAPI.SetHandler(jsonHandler(200, defaultUserBody))
		t.StartConsumer(withHeaders(map[string]string{
			"header-name-1": "value-1",
			"header-name-2": "value-2",
		}))

		t.RequireSuccess(t.SendCommand(servicedef.CommandParams{
			Command: servicedef.CommandGetUser,
			GetUser: &servicedef.GetUserParams{UserID: "u1"},
		}))

		request := t.AwaitRequest()
		assert.Equal(t, "value-1", request.Headers.Get("header-name-1"),
			"missing or incorrect custom header 'header-name-1'")
		assert.Equal(t, "value-2", request.Headers.Get("header-name-2"),
			"missing or incorrect custom header 'header-name-2'")
	})
}
