package framework

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runNoFilter(action func(*Context)) Results {
	return Run(nil, nil, action)
}

func TestRunCollectsResultsFromSubtests(t *testing.T) {
	results := runNoFilter(func(c *Context) {
		c.Run("passes", func(c *Context) {})
		c.Run("fails", func(c *Context) {
			c.Errorf("deliberate failure")
		})
	})

	assert.False(t, results.OK())
	require.Len(t, results.Failures, 1)
	assert.Equal(t, "fails", results.Failures[0].TestID.String())
}

func TestFailNowStopsTestImmediately(t *testing.T) {
	reachedAfterFailNow := false
	results := runNoFilter(func(c *Context) {
		c.Run("fails fast", func(c *Context) {
			c.Errorf("stopping here")
			c.FailNow()
			reachedAfterFailNow = true
		})
		c.Run("still runs", func(c *Context) {})
	})

	assert.False(t, reachedAfterFailNow)
	require.Len(t, results.Failures, 1)
	assert.Len(t, results.Tests, 2, "a FailNow in one subtest should not prevent siblings from running")
}

func TestFailNowWithNoPriorErrorStillProducesFailureMessage(t *testing.T) {
	results := runNoFilter(func(c *Context) {
		c.Run("silent failure", func(c *Context) {
			c.FailNow()
		})
	})

	require.Len(t, results.Failures, 1)
	require.Len(t, results.Failures[0].Errors, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "no failure message")
}

func TestUnexpectedPanicBecomesFailure(t *testing.T) {
	results := runNoFilter(func(c *Context) {
		c.Run("panics", func(c *Context) {
			panic(errors.New("boom"))
		})
	})

	require.Len(t, results.Failures, 1)
	assert.Contains(t, results.Failures[0].Errors[0].Error(), "boom")
}

func TestSkippedTestIsNotAFailure(t *testing.T) {
	reachedAfterSkip := false
	results := runNoFilter(func(c *Context) {
		c.Run("skipped", func(c *Context) {
			c.SkipWithReason("not relevant here")
			reachedAfterSkip = true
		})
	})

	assert.False(t, reachedAfterSkip)
	assert.True(t, results.OK())
}

func TestFilterExcludesSubtests(t *testing.T) {
	var ran []string
	filter := func(id TestID) bool { return id.String() != "excluded" }
	results := Run(filter, nil, func(c *Context) {
		for _, name := range []string{"included", "excluded"} {
			name := name
			c.Run(name, func(c *Context) { ran = append(ran, name) })
		}
	})

	assert.Equal(t, []string{"included"}, ran)
	assert.True(t, results.OK())
}

func TestSubtestIDsAreIndependent(t *testing.T) {
	var ids []string
	results := runNoFilter(func(c *Context) {
		c.Run("parent", func(c *Context) {
			c.Run("first", func(c *Context) { ids = append(ids, c.ID().String()) })
			c.Run("second", func(c *Context) { ids = append(ids, c.ID().String()) })
		})
	})

	assert.Equal(t, []string{"parent/first", "parent/second"}, ids)
	assert.True(t, results.OK())
}

func TestDebugOutputIsCapturedPerTest(t *testing.T) {
	type finished struct {
		id     TestID
		output CapturedOutput
	}
	var captured []finished
	logger := recordingTestLogger{onFinished: func(id TestID, failed bool, output CapturedOutput) {
		captured = append(captured, finished{id: id, output: output})
	}}

	Run(nil, logger, func(c *Context) {
		c.Run("with debug", func(c *Context) {
			c.Debug("saw %d requests", 3)
		})
		c.Run("without debug", func(c *Context) {})
	})

	require.Len(t, captured, 2)
	require.Len(t, captured[0].output, 1)
	assert.Equal(t, "saw 3 requests", captured[0].output[0].Message)
	assert.Empty(t, captured[1].output)
}

type recordingTestLogger struct {
	onFinished func(TestID, bool, CapturedOutput)
}

func (r recordingTestLogger) TestStarted(TestID)      {}
func (r recordingTestLogger) TestError(TestID, error) {}
func (r recordingTestLogger) TestFinished(id TestID, failed bool, output CapturedOutput) {
	if r.onFinished != nil {
		r.onFinished(id, failed, output)
	}
}
func (r recordingTestLogger) TestSkipped(TestID, string) {}
