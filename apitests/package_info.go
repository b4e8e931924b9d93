// Package apitests contains the API consumer contract tests themselves and their
// supporting API.
//
// Test harness infrastructure that is not specific to this domain, such as the
// ability to communicate with the test service and to receive requests on mock
// endpoints, is in the lower-level framework package.
package apitests
