package framework

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTestID(path ...string) TestID {
	return TestID{Path: path}
}

func TestRegexFiltersWithNoPatternsMatchEverything(t *testing.T) {
	var f RegexFilters
	assert.True(t, f.AsFilter(makeTestID("anything", "at all")))
}

func TestRegexFiltersMustMatch(t *testing.T) {
	var f RegexFilters
	require.NoError(t, f.MustMatch.Set("rate limiting"))

	assert.True(t, f.AsFilter(makeTestID("rate limiting", "429 with Retry-After")))
	assert.False(t, f.AsFilter(makeTestID("pagination", "follows nextPage")))
}

func TestRegexFiltersMustMatchMultiplePatternsAreORed(t *testing.T) {
	var f RegexFilters
	require.NoError(t, f.MustMatch.Set("^pagination"))
	require.NoError(t, f.MustMatch.Set("^uploads"))

	assert.True(t, f.AsFilter(makeTestID("pagination", "empty result set")))
	assert.True(t, f.AsFilter(makeTestID("uploads", "rejects oversize file")))
	assert.False(t, f.AsFilter(makeTestID("auth", "bearer token")))
}

func TestRegexFiltersMustNotMatchOverridesMustMatch(t *testing.T) {
	var f RegexFilters
	require.NoError(t, f.MustMatch.Set("registration"))
	require.NoError(t, f.MustNotMatch.Set("duplicate"))

	assert.True(t, f.AsFilter(makeTestID("registration", "valid request")))
	assert.False(t, f.AsFilter(makeTestID("registration", "duplicate email")))
}

func TestRegexFiltersMatchAgainstFullSlashDelimitedPath(t *testing.T) {
	var f RegexFilters
	require.NoError(t, f.MustMatch.Set("^error handling/404"))

	assert.True(t, f.AsFilter(makeTestID("error handling", "404 on unknown user")))
	assert.False(t, f.AsFilter(makeTestID("error handling", "500 is surfaced")))
}

func TestRegexListRejectsInvalidPattern(t *testing.T) {
	var l RegexList
	assert.Error(t, l.Set("("))
	assert.False(t, l.IsDefined())
}
