package engine

import (
	"fmt"
	"time"

	"github.com/a2y-d5l/cmdassert/collector"
)

// CommandResult is the outcome of one Wait/WaitWithTimeout call: the
// rendered command string, exit code (-1 on timeout), wall-clock duration,
// per-stream byte counts, and the failure collector backing AssertSuccess.
// Exactly one of AssertSuccess/AssertTimeout is the "expected" outcome for
// any given test; calling either is idempotent and pure.
type CommandResult struct {
	CommandString   string
	ExitCode        int
	Duration        time.Duration
	ByteCountStdout int64
	ByteCountStderr int64
	TimeoutErr      error

	col *collector.Collector
}

// AssertSuccess reports the composed assertion's verdict: nil if every
// stream, awaiter, stdin producer, and exit-code assertion passed; otherwise
// an *collector.AggregatedError with stable ordering and text. A recorded
// timeout is itself reported as a failing exception.
func (r *CommandResult) AssertSuccess() error {
	if r.TimeoutErr != nil {
		c := collector.New()
		c.AddException(collector.None, r.TimeoutErr)
		return collector.NewAggregatedError(c, r.CommandString)
	}
	return collector.NewAggregatedError(r.col, r.CommandString)
}

// AssertTimeout reports success iff the run produced a timeout error.
func (r *CommandResult) AssertTimeout() error {
	if r.TimeoutErr == nil {
		return fmt.Errorf("expected the command to time out but it completed with exit code %d", r.ExitCode)
	}
	return nil
}
