package framework

import (
	"fmt"
	"io"
	"sync"
	"time"
)

const timestampFormat = "2006-01-02 15:04:05.000"

// Logger is the minimal logging interface used throughout the harness. Debug
// output from tests is captured rather than written directly, so components
// receive a Logger instead of an io.Writer.
type Logger interface {
	Printf(message string, args ...interface{})
}

type nullLogger struct{}

func (n nullLogger) Printf(message string, args ...interface{}) {}

// NullLogger returns a Logger that discards all output.
func NullLogger() Logger { return nullLogger{} }

type prefixedLogger struct {
	wrapped Logger
	prefix  string
}

func (p prefixedLogger) Printf(message string, args ...interface{}) {
	p.wrapped.Printf(p.prefix+message, args...)
}

// LoggerWithPrefix decorates a Logger so that every message starts with the
// given prefix. Used to distinguish output from the mock API, the callback
// receiver, and the consumer entity within a single test's debug log.
func LoggerWithPrefix(wrapped Logger, prefix string) Logger {
	return prefixedLogger{wrapped: wrapped, prefix: prefix}
}

// CapturedMessage is one timestamped line of captured debug output.
type CapturedMessage struct {
	Time    time.Time
	Message string
}

type CapturedOutput []CapturedMessage

// CapturingLogger accumulates debug output in memory so the harness can
// decide after the fact (success vs. failure) whether to print it.
type CapturingLogger struct {
	output []CapturedMessage
	lock   sync.Mutex
}

func (l *CapturingLogger) Printf(message string, args ...interface{}) {
	l.lock.Lock()
	l.output = append(l.output, CapturedMessage{Time: time.Now(), Message: fmt.Sprintf(message, args...)})
	l.lock.Unlock()
}

func (l *CapturingLogger) Output() CapturedOutput {
	l.lock.Lock()
	ret := append(CapturedOutput(nil), l.output...)
	l.lock.Unlock()
	return ret
}

// Dump writes every captured message to dest, one line per message, with the
// given prefix before each line.
func (output CapturedOutput) Dump(dest io.Writer, prefix string) {
	for _, m := range output {
		fmt.Fprintf(dest, "%s[%s] %s\n",
			prefix,
			m.Time.Format(timestampFormat),
			m.Message,
		)
	}
}
