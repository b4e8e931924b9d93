package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/qualitykit/api-contract-tests/framework"
)

type commandParams struct {
	serviceURL       string
	port             int
	host             string
	filters          framework.RegexFilters
	stopServiceAtEnd bool
	debug            bool
	debugAll         bool
}

func (c *commandParams) Read(args []string) bool {
	fs := flag.NewFlagSet("", flag.ExitOnError)
	fs.StringVar(&c.serviceURL, "url", "", "test service URL")
	fs.StringVar(&c.host, "host", "localhost", "external hostname of the test harness")
	fs.IntVar(&c.port, "port", defaultPort, "port that the test harness will listen on")
	fs.Var(&c.filters.MustMatch, "run", "regex pattern(s) to select tests to run")
	fs.Var(&c.filters.MustNotMatch, "skip", "regex pattern(s) to select tests not to run")
	fs.BoolVar(&c.stopServiceAtEnd, "stop-service-at-end", false, "tell test service to exit after the test run")
	fs.BoolVar(&c.debug, "debug", false, "enable debug logging for failed tests")
	fs.BoolVar(&c.debugAll, "debug-all", false, "enable debug logging for all tests")

	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return false
	}
	if c.serviceURL == "" {
		fmt.Fprintln(os.Stderr, "-url is required")
		fs.Usage()
		return false
	}
	return true
}

// rerunCommand builds a shell-escaped command line that would re-run only the
// failed tests from a run.
func rerunCommand(args []string, failures []framework.TestResult) string {
	var b commandBuilder
	b.add(args[0])
	for i := 1; i < len(args); i++ {
		arg := args[i]
		if arg == "-run" || arg == "-skip" || arg == "--run" || arg == "--skip" {
			i++ // drop the flag and its value
			continue
		}
		b.add(arg)
	}
	for _, f := range failures {
		b.add("-run", "^"+regexQuoteSlashes(f.TestID.String())+"$")
	}
	return b.String()
}

// regexQuoteSlashes escapes regex metacharacters in a test path so the result
// matches the path literally.
func regexQuoteSlashes(s string) string {
	special := `\.+*?()|[]{}^$`
	var sb strings.Builder
	for _, ch := range s {
		if strings.ContainsRune(special, ch) {
			sb.WriteRune('\\')
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}
