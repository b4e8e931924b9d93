package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/qualitykit/api-contract-tests/framework"
)

// ConsoleTestLogger prints per-test progress to stdout while the suite runs.
type ConsoleTestLogger struct {
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
}

var failureColor = color.New(color.FgRed)
var skipColor = color.New(color.FgHiBlack)

func (c *ConsoleTestLogger) TestStarted(id framework.TestID) {
	fmt.Printf("[%s]\n", id)
}

func (c *ConsoleTestLogger) TestError(id framework.TestID, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		failureColor.Printf("  %s\n", line)
	}
}

func (c *ConsoleTestLogger) TestFinished(id framework.TestID, failed bool, debugOutput framework.CapturedOutput) {
	if failed {
		failureColor.Printf("  FAILED: %s\n", id)
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		debugOutput.Dump(os.Stdout, "    DEBUG ")
	}
}

func (c *ConsoleTestLogger) TestSkipped(id framework.TestID, reason string) {
	if reason == "" {
		skipColor.Printf("  SKIPPED: %s\n", id)
	} else {
		skipColor.Printf("  SKIPPED: %s (%s)\n", id, reason)
	}
}
