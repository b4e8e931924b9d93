package apitests

import (
	"github.com/qualitykit/api-contract-tests/framework"
)

// RunTestSuite runs the full consumer contract-test suite against the test
// service that the harness is connected to.
func RunTestSuite(
	harness *framework.TestHarness,
	filter framework.Filter,
	testLogger framework.TestLogger,
) framework.Results {
	return framework.Run(filter, testLogger, func(c *framework.Context) {
		t := newTestScope(c, harness)

		t.Run("request contract", DoRequestContractTests)
		t.Run("registration", DoRegistrationTests)
		t.Run("auth", DoAuthTests)
		t.Run("pagination", DoPaginationTests)
		t.Run("rate limiting", DoRateLimitingTests)
		t.Run("error handling", DoErrorHandlingTests)
		t.Run("uploads", DoUploadTests)
	})
}
