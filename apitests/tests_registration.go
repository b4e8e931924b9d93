package apitests

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qualitykit/api-contract-tests/servicedef"
)

// DoRegistrationTests checks how the consumer performs and interprets the
// account registration flow.
func DoRegistrationTests(t *T) {
	t.RequireCapability(servicedef.CapabilityRegistration)

	registerCommand := servicedef.CommandParams{
		Command: servicedef.CommandRegisterUser,
		RegisterUser: &servicedef.RegisterUserParams{
			Email:    "new@example.com",
			Password: "correct-horse-battery",
		},
	}

	t.Run("successful registration returns the created user", func(t *T) {
		t.mockAPI.SetHandler(jsonHandler(201, `{"id":"u42","email":"new@example.com","name":""}`))
		t.StartConsumer()

		result := t.RequireSuccess(t.SendCommand(registerCommand))
		require.NotNil(t, result.User, "consumer did not return the created user")
		assert.Equal(t, "u42", result.User.ID)
		assert.Equal(t, "new@example.com", result.User.Email)
	})

	t.Run("duplicate email is surfaced as a 409 conflict", func(t *T) {
		t.mockAPI.SetHandler(errorHandler(409, "email_exists", "an account with this email already exists"))
		t.StartConsumer()

		errorRep := t.RequireAPIError(t.SendCommand(registerCommand), 409)
		assert.Equal(t, "email_exists", errorRep.Code)
	})

	t.Run("registration failures are not retried", func(t *T) {
		t.mockAPI.SetHandler(errorHandler(409, "email_exists", "an account with this email already exists"))
		t.StartConsumer(withMaxRetries(3))

		t.RequireAPIError(t.SendCommand(registerCommand), 409)
		_ = t.AwaitRequest()
		t.ExpectNoMoreRequests(awaitQuietPeriod)
	})

	t.Run("validation error field details", func(t *T) {
		t.RequireCapability(servicedef.CapabilityErrorDetails)

		t.mockAPI.SetHandler(jsonHandler(400,
			`{"error":{"code":"validation_error","message":"invalid input",`+
				`"details":[{"field":"email","message":"not a valid email address"},`+
				`{"field":"password","message":"must be at least 8 characters"}]}}`))
		t.StartConsumer()

		errorRep := t.RequireAPIError(t.SendCommand(registerCommand), 400)
		assert.Equal(t, "validation_error", errorRep.Code)
		require.Len(t, errorRep.Details, 2, "consumer should preserve all field details")
		assert.Equal(t, "email", errorRep.Details[0].Field)
		assert.Equal(t, "password", errorRep.Details[1].Field)
	})
}
