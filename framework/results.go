package framework

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// TestID identifies a test or subtest by its path within the suite, for
// instance "rate limiting/429 with Retry-After/delay is honored".
type TestID struct {
	Path []string
}

func (t TestID) String() string {
	return strings.Join(t.Path, "/")
}

// Plus returns a TestID with one more path component appended. The receiver's
// slice is copied so sibling subtests cannot clobber each other's paths.
func (t TestID) Plus(name string) TestID {
	path := make([]string, 0, len(t.Path)+1)
	path = append(path, t.Path...)
	return TestID{Path: append(path, name)}
}

// TestResult is the outcome of a single test.
type TestResult struct {
	TestID  TestID
	Errors  []error
	Skipped bool
}

// Results accumulates the outcomes of an entire suite run.
type Results struct {
	Tests    []TestResult
	Failures []TestResult
}

// OK is true if there were no failures.
func (r Results) OK() bool {
	return len(r.Failures) == 0
}

// PrintResults writes a summary of the run to dest: a count line, and for a
// failed run the identifiers of every failed test.
func PrintResults(dest io.Writer, results Results) {
	if results.OK() {
		color.New(color.FgGreen).Fprintf(dest, "All tests passed (%d)\n", len(results.Tests))
		return
	}

	red := color.New(color.FgRed)
	red.Fprintf(dest, "FAILED TESTS (%d/%d):\n", len(results.Failures), len(results.Tests))
	for _, f := range results.Failures {
		red.Fprintf(dest, "  * %s\n", f.TestID)
		for _, err := range f.Errors {
			for _, line := range strings.Split(err.Error(), "\n") {
				fmt.Fprintf(dest, "      %s\n", line)
			}
		}
	}
}
