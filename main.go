// Command api-contract-tests runs the consumer contract-test suite against a
// test service that wraps an API consumer implementation. See docs/ for an
// overview of the protocol and the methodology.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/qualitykit/api-contract-tests/apitests"
	"github.com/qualitykit/api-contract-tests/framework"
)

const defaultPort = 8111
const statusQueryTimeout = time.Second * 10

func main() {
	var params commandParams
	if !params.Read(os.Args) {
		os.Exit(1)
	}

	mainDebugLogger := framework.NullLogger()
	if params.debugAll {
		mainDebugLogger = log.New(os.Stdout, "", log.LstdFlags)
	}

	harness, err := framework.NewTestHarness(
		params.serviceURL,
		params.host,
		params.port,
		statusQueryTimeout,
		mainDebugLogger,
		os.Stdout,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Test service error: %s\n", err)
		os.Exit(1)
	}

	fmt.Println()
	framework.PrintFilterDescription(os.Stdout, harness, params.filters, apitests.AllCapabilities)

	fmt.Println("Running test suite")

	testLogger := ConsoleTestLogger{
		DebugOutputOnFailure: params.debug || params.debugAll,
		DebugOutputOnSuccess: params.debugAll,
	}

	results := apitests.RunTestSuite(harness, params.filters.AsFilter, &testLogger)

	if params.stopServiceAtEnd {
		fmt.Println("Stopping test service")
		if err := harness.StopService(); err != nil {
			fmt.Fprintf(os.Stderr, "Error stopping test service: %s\n", err)
		}
	}

	fmt.Println()
	framework.PrintResults(os.Stdout, results)
	if !results.OK() {
		fmt.Println()
		fmt.Println("To re-run only the failed tests:")
		fmt.Printf("  %s\n", rerunCommand(os.Args, results.Failures))
		os.Exit(1)
	}
}
