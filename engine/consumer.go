package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/a2y-d5l/cmdassert/assertion"
	"github.com/a2y-d5l/cmdassert/capture"
	"github.com/a2y-d5l/cmdassert/collector"
	"github.com/a2y-d5l/cmdassert/command"
	"github.com/a2y-d5l/cmdassert/internal/obslog"
	"github.com/a2y-d5l/cmdassert/pool"
	"github.com/sirupsen/logrus"
)

const (
	scannerInitialBufferSize = 64 * 1024
	scannerMaxBufferSize     = 1024 * 1024
)

// streamConsumer is the Stream Consumer: it reads one pipe line by line and
// fans every line out to capture, line assertions, line awaiters, an
// optional log callback, and an optional redirect sink. Exactly one consumer
// owns a pipe; all of its mutable state (capture, assertion observations,
// byte count) is written only from the goroutine running loop.
type streamConsumer struct {
	tag    collector.Stream
	source io.ReadCloser
	cfg    command.StreamConfig
	col    *collector.Collector

	capture    *capture.Capture
	assertions []assertion.Assertion
	awaiters   []command.Acceptor

	byteCount atomic.Int64
	cancelled atomic.Bool
	done      chan struct{}
}

func newStreamConsumer(tag collector.Stream, source io.ReadCloser, cfg command.StreamConfig, col *collector.Collector) *streamConsumer {
	assertions := make([]assertion.Assertion, len(cfg.Assertions))
	for i, a := range cfg.Assertions {
		assertions[i] = a.Clone()
	}
	sc := &streamConsumer{
		tag:        tag,
		source:     source,
		cfg:        cfg,
		col:        col,
		capture:    capture.New(cfg.MaxHeadLines, cfg.MaxTailLines),
		assertions: assertions,
		awaiters:   cfg.Awaiters,
		done:       make(chan struct{}),
	}
	col.SetCapturePrinter(tag, func() string { return sc.capture.Render(tag.String()) })
	return sc
}

// Start submits the read loop to p under the given worker name.
func (sc *streamConsumer) Start(p pool.Pool, workerName string) pool.Handle {
	return p.Submit(workerName, sc.run)
}

// Cancel marks the consumer cancelled and closes the underlying pipe so the
// read loop returns promptly instead of blocking forever on a child that
// will never produce EOF on its own.
func (sc *streamConsumer) Cancel() {
	sc.cancelled.Store(true)
	_ = sc.source.Close()
}

// Join blocks until the read loop has exited.
func (sc *streamConsumer) Join() { <-sc.done }

// ByteCount returns the number of raw bytes drained from the pipe,
// regardless of decoding.
func (sc *streamConsumer) ByteCount() int64 { return sc.byteCount.Load() }

// Evaluate asks every line assertion to report into the collector. Called
// once, after Join, from the Expectation Engine.
func (sc *streamConsumer) Evaluate() {
	for _, a := range sc.assertions {
		if bc, ok := a.(assertion.ByteCountAware); ok {
			bc.RecordByteCount(sc.byteCount.Load())
		}
		a.Evaluate(sc.col, sc.tag)
	}
}

type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (c countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

func (sc *streamConsumer) run() {
	defer close(sc.done)
	defer sc.source.Close()

	counted := countingReader{r: sc.source, n: &sc.byteCount}

	if sc.cfg.Discard {
		_, err := io.Copy(io.Discard, counted)
		if err != nil && !sc.cancelled.Load() {
			sc.col.AddException(sc.tag, fmt.Errorf("drain %s: %w", sc.tag, err))
		}
		return
	}

	var reader io.Reader = counted
	if sc.cfg.Charset != nil {
		reader = sc.cfg.Charset.NewDecoder().Reader(reader)
	}

	redirect, closeRedirect := sc.openRedirect()
	if closeRedirect != nil {
		defer closeRedirect()
	}

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, scannerInitialBufferSize), scannerMaxBufferSize)

	for scanner.Scan() {
		sc.dispatch(scanner.Text(), redirect)
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) && !sc.cancelled.Load() {
		sc.col.AddException(sc.tag, fmt.Errorf("read %s: %w", sc.tag, err))
	}

	for _, a := range sc.awaiters {
		a.Close()
	}
}

// openRedirect opens the file-path redirect, if configured, or returns the
// user-owned writer unmodified. Only a file-path redirect is ever closed by
// the consumer.
func (sc *streamConsumer) openRedirect() (io.Writer, func()) {
	switch {
	case sc.cfg.RedirectPath != "":
		f, err := os.Create(sc.cfg.RedirectPath)
		if err != nil {
			sc.col.AddException(sc.tag, fmt.Errorf("open redirect %q: %w", sc.cfg.RedirectPath, err))
			return nil, nil
		}
		return f, func() { _ = f.Close() }
	case sc.cfg.RedirectWriter != nil:
		return sc.cfg.RedirectWriter, nil
	default:
		return nil, nil
	}
}

func (sc *streamConsumer) dispatch(line string, redirect io.Writer) {
	sc.capture.Add(line)

	for _, a := range sc.assertions {
		sc.observeLine(a, line)
	}
	for _, aw := range sc.awaiters {
		aw.Accept(line)
	}
	if sc.cfg.LogFn != nil {
		sc.cfg.LogFn(line)
	}
	if redirect != nil {
		if _, err := fmt.Fprintln(redirect, line); err != nil {
			obslog.Warnf(logrus.Fields{"stream": sc.tag.String()}, "redirect write failed: %v", err)
		}
	}
}

// observeLine feeds line to a, recovering a panicking assertion into an
// exception rather than letting it take the whole read loop down.
func (sc *streamConsumer) observeLine(a assertion.Assertion, line string) {
	defer func() {
		if r := recover(); r != nil {
			sc.col.AddException(sc.tag, fmt.Errorf("assertion panicked while observing a line: %v", r))
		}
	}()
	a.Line(line)
}
