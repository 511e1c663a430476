// Package collector implements the Failure Collector: an ordered,
// multi-bucket container that every other component reports into during the
// evaluation phase of a command execution, and from which the final
// aggregated error message is rendered.
package collector

import (
	"fmt"
	"strings"
	"sync"
)

// Stream identifies which pipe a failure or exception is attributed to.
type Stream int

const (
	// None is used for failures that are not attributable to a single
	// stream (stdin callback errors, exit-code assertion failures).
	None Stream = iota
	Stdout
	Stderr
)

// String renders the stream tag the way it appears in error messages.
func (s Stream) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return ""
	}
}

// bucket holds the failures and exceptions attributed to one Stream, plus an
// optional closure that renders that stream's captured output on demand.
type bucket struct {
	exceptions     []error
	failures       []string
	capturePrinter func() string
}

// Collector accumulates failures across the None/Stdout/Stderr buckets and
// renders them into the single aggregated message format the spec requires.
// A Collector is only ever written to by multiple goroutines during the
// final evaluation phase (never during streaming), so its exported methods
// take a lock to be safe under that access pattern without requiring every
// caller to reason about it.
type Collector struct {
	mu      sync.Mutex
	buckets map[Stream]*bucket
}

// New returns an empty Collector.
func New() *Collector {
	return &Collector{buckets: make(map[Stream]*bucket, 3)}
}

func (c *Collector) bucketFor(s Stream) *bucket {
	b, ok := c.buckets[s]
	if !ok {
		b = &bucket{}
		c.buckets[s] = b
	}
	return b
}

// AddFailure records an assertion failure attributed to stream.
func (c *Collector) AddFailure(stream Stream, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bucketFor(stream).failures = append(c.bucketFor(stream).failures, message)
}

// AddException records an error attributed to stream. Exceptions are
// rendered before failures within a bucket.
func (c *Collector) AddException(stream Stream, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bucketFor(stream).exceptions = append(c.bucketFor(stream).exceptions, err)
}

// SetCapturePrinter attaches a closure that, when the aggregated message is
// rendered, produces the captured-output block for stream. It is only
// invoked if that stream's bucket ends up with at least one failure;
// exceptions alone do not print the capture block.
func (c *Collector) SetCapturePrinter(stream Stream, printer func() string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bucketFor(stream).capturePrinter = printer
}

// counts returns the total number of exceptions and failures across every
// bucket.
func (c *Collector) counts() (exceptions, failures int) {
	for _, b := range c.buckets {
		exceptions += len(b.exceptions)
		failures += len(b.failures)
	}
	return
}

// Empty reports whether nothing was ever recorded.
func (c *Collector) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, f := c.counts()
	return e == 0 && f == 0
}

// Render produces the aggregated failure message described in the spec:
// a header naming the nonzero exception/failure counts, the command string,
// then per-stream (none, stdout, stderr) exceptions, failures, and capture
// blocks, in that order.
func (c *Collector) Render(commandString string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	exceptions, failures := c.counts()

	var header strings.Builder
	var terms []string
	if exceptions > 0 {
		terms = append(terms, fmt.Sprintf("%d exception%s", exceptions, plural(exceptions)))
	}
	if failures > 0 {
		terms = append(terms, fmt.Sprintf("%d assertion failure%s", failures, plural(failures)))
	}
	header.WriteString(strings.Join(terms, " and "))
	header.WriteString(" occurred while executing")

	var b strings.Builder
	b.WriteString(header.String())
	b.WriteString("\n\n    ")
	b.WriteString(commandString)
	b.WriteString("\n")

	exceptionIdx, failureIdx := 0, 0
	for _, stream := range []Stream{None, Stdout, Stderr} {
		bk, ok := c.buckets[stream]
		if !ok {
			continue
		}
		wroteAny := false
		for _, err := range bk.exceptions {
			exceptionIdx++
			fmt.Fprintf(&b, "\nException %d/%d: %v", exceptionIdx, exceptions, err)
		}
		for _, msg := range bk.failures {
			failureIdx++
			fmt.Fprintf(&b, "\nFailure %d/%d: %s", failureIdx, failures, msg)
			wroteAny = true
		}
		if wroteAny && bk.capturePrinter != nil {
			fmt.Fprintf(&b, "\n%s:\n%s\n", stream, bk.capturePrinter())
		}
	}

	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// AggregatedError wraps a rendered Collector; it is what AssertSuccess
// returns when the collector recorded any exception or failure.
type AggregatedError struct {
	Message string
}

func (e *AggregatedError) Error() string { return e.Message }

// NewAggregatedError renders c against commandString and returns nil if c is
// empty, matching the "exactly one of success or aggregated error" contract.
func NewAggregatedError(c *Collector, commandString string) error {
	if c.Empty() {
		return nil
	}
	return &AggregatedError{Message: c.Render(commandString)}
}

// TimeoutError is the distinct sentinel type surfaced when a command-level
// or awaiter-level timeout elapses.
type TimeoutError struct {
	Message string
}

func (e *TimeoutError) Error() string { return e.Message }
