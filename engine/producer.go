package engine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/a2y-d5l/cmdassert/collector"
	"github.com/a2y-d5l/cmdassert/command"
	"github.com/a2y-d5l/cmdassert/pool"
)

// errStdinCancelled is returned from a cancellableSink's Write once the sink
// has been cancelled.
var errStdinCancelled = errors.New("stdin: cancelled")

// cancellableSink wraps the child's stdin pipe so Kill can unblock a
// callback that is mid-write. Write checks the cancelled flag first; Close
// closes the underlying pipe at most once and returns that first close's
// result on every call. cancel closes the underlying pipe best-effort and is
// idempotent.
type cancellableSink struct {
	w         io.WriteCloser
	cancelled atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func (s *cancellableSink) Write(p []byte) (int, error) {
	if s.cancelled.Load() {
		return 0, errStdinCancelled
	}
	return s.w.Write(p)
}

func (s *cancellableSink) Close() error {
	s.closeOnce.Do(func() { s.closeErr = s.w.Close() })
	return s.closeErr
}

func (s *cancellableSink) cancel() {
	if s.cancelled.CompareAndSwap(false, true) {
		_ = s.Close()
	}
}

// inputProducer is the Input Producer: it drives exactly one of
// StdinString/StdinFile/StdinCallback against a cancellableSink on a
// dedicated worker.
type inputProducer struct {
	spec command.StdinSpec
	sink *cancellableSink
	col  *collector.Collector
	done chan struct{}
}

func newInputProducer(spec command.StdinSpec, stdin io.WriteCloser, col *collector.Collector) *inputProducer {
	return &inputProducer{
		spec: spec,
		sink: &cancellableSink{w: stdin},
		col:  col,
		done: make(chan struct{}),
	}
}

// Start submits the producer's run loop to p under the given worker name.
func (ip *inputProducer) Start(p pool.Pool, workerName string) pool.Handle {
	return p.Submit(workerName, ip.run)
}

// Cancel closes the sink; any write in flight returns errStdinCancelled.
func (ip *inputProducer) Cancel() { ip.sink.cancel() }

// Join blocks until the producer's callback has returned and the sink is
// closed.
func (ip *inputProducer) Join() { <-ip.done }

func (ip *inputProducer) run() {
	defer close(ip.done)

	err := ip.drive()

	if closeErr := ip.sink.Close(); err == nil {
		err = closeErr
	}

	if err != nil && !errors.Is(err, errStdinCancelled) && !ip.sink.cancelled.Load() {
		ip.col.AddFailure(collector.None, fmt.Sprintf("stdin: %v", err))
	}
}

// drive runs the configured stdin source, recovering a panicking callback
// into an exception rather than letting it take the whole producer down, the
// way streamConsumer.observeLine does for a panicking assertion.
func (ip *inputProducer) drive() (err error) {
	defer func() {
		if r := recover(); r != nil {
			ip.col.AddException(collector.None, fmt.Errorf("stdin callback panicked: %v", r))
		}
	}()

	switch ip.spec.Kind {
	case command.StdinString:
		_, err = io.WriteString(ip.sink, ip.spec.String)
	case command.StdinFile:
		err = ip.copyFile()
	case command.StdinCallback:
		err = ip.spec.Callback(ip.sink)
	}
	return err
}

func (ip *inputProducer) copyFile() error {
	f, err := os.Open(ip.spec.FilePath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(ip.sink, f)
	return err
}
