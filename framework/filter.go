package framework

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

// Filter decides whether a specific test should run.
type Filter func(TestID) bool

// RegexFilters is the command-line representation of test filtering: tests
// run only if they match at least one -run pattern (when any are given) and
// no -skip pattern.
type RegexFilters struct {
	MustMatch    RegexList
	MustNotMatch RegexList
}

func (r RegexFilters) AsFilter(id TestID) bool {
	name := id.String()
	return (!r.MustMatch.IsDefined() || r.MustMatch.AnyMatch(name)) &&
		!r.MustNotMatch.AnyMatch(name)
}

// RegexList is a repeatable regex flag. It implements flag.Value.
type RegexList struct {
	patterns []*regexp.Regexp
}

func (r RegexList) String() string {
	var ss []string
	for _, p := range r.patterns {
		ss = append(ss, `"`+p.String()+`"`)
	}
	return strings.Join(ss, " or ")
}

// Set is called by the command line parser.
func (r *RegexList) Set(value string) error {
	rx, err := regexp.Compile(value)
	if err != nil {
		return fmt.Errorf("invalid regex: %w", err)
	}
	r.patterns = append(r.patterns, rx)
	return nil
}

func (r RegexList) IsDefined() bool {
	return len(r.patterns) != 0
}

func (r RegexList) AnyMatch(s string) bool {
	for _, p := range r.patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// PrintFilterDescription explains, before the run starts, which tests may be
// skipped due to filter flags or missing test service capabilities.
func PrintFilterDescription(dest io.Writer, harness *TestHarness, filters RegexFilters, allCapabilities []string) {
	if filters.MustMatch.IsDefined() || filters.MustNotMatch.IsDefined() {
		fmt.Fprintln(dest, "Some tests will be skipped based on the filter criteria for this test run:")
		if filters.MustMatch.IsDefined() {
			fmt.Fprintf(dest, "  skip any not matching %s\n", filters.MustMatch)
		}
		if filters.MustNotMatch.IsDefined() {
			fmt.Fprintf(dest, "  skip any matching %s\n", filters.MustNotMatch)
		}
		fmt.Fprintln(dest)
	}

	var missing []string
	for _, c := range allCapabilities {
		if !harness.TestServiceHasCapability(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		fmt.Fprintln(dest, "Some tests may be skipped because the test service does not support the following capabilities:")
		fmt.Fprintf(dest, "  %s\n", strings.Join(missing, ", "))
		fmt.Fprintln(dest)
	}
}
