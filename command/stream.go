package command

import (
	"io"

	"golang.org/x/text/encoding"

	"github.com/a2y-d5l/cmdassert/assertion"
	"github.com/a2y-d5l/cmdassert/capture"
	"github.com/a2y-d5l/cmdassert/collector"
)

const (
	streamStdout = collector.Stdout
	streamStderr = collector.Stderr
)

// Acceptor is the subset of *awaiter.Awaiter[T] the Stream Consumer needs:
// it can feed a line to an awaiter without knowing its result type T.
// *awaiter.Awaiter[T] satisfies this interface for any T.
type Acceptor interface {
	Accept(line string)
	Close()
}

// StreamConfig configures one of a command's two streams: its character
// encoding, the line assertions and awaiters attached to it, an optional
// line-callback logger, an optional redirect sink, and its capture policy.
type StreamConfig struct {
	Tag collector.Stream

	// Charset is the stream's character encoding. The zero value means
	// UTF-8, which is decoded directly without going through a
	// golang.org/x/text/encoding transform.
	Charset encoding.Encoding

	// Discard, when true, drains the stream's bytes (still counted) without
	// decoding lines or running any assertion, matching the spec's
	// "/dev/null" stream mode.
	Discard bool

	Assertions []assertion.Assertion
	Awaiters   []Acceptor
	LogFn      func(string)

	// RedirectPath, if non-empty, names a file opened (and closed) by the
	// Stream Consumer itself. RedirectWriter, if non-nil, is a
	// caller-owned sink that the consumer writes to but never closes.
	RedirectPath   string
	RedirectWriter io.Writer

	MaxHeadLines int
	MaxTailLines int
}

func newStreamConfig(tag collector.Stream) StreamConfig {
	return StreamConfig{
		Tag:          tag,
		MaxHeadLines: capture.Unbounded,
		MaxTailLines: capture.Unbounded,
	}
}

func (s StreamConfig) clone() StreamConfig {
	clone := s
	clone.Assertions = append([]assertion.Assertion(nil), s.Assertions...)
	clone.Awaiters = append([]Acceptor(nil), s.Awaiters...)
	return clone
}

// HasLines appends a whole-line-match assertion (see assertion.HasLines).
func (s StreamConfig) HasLines(expected ...string) StreamConfig {
	clone := s.clone()
	clone.Assertions = append(clone.Assertions, assertion.HasLines(expected...))
	return clone
}

// DoesNotHaveLines appends the negated whole-line-match assertion.
func (s StreamConfig) DoesNotHaveLines(expected ...string) StreamConfig {
	clone := s.clone()
	clone.Assertions = append(clone.Assertions, assertion.DoesNotHaveLines(expected...))
	return clone
}

// Containing appends a substring assertion (see assertion.Containing).
func (s StreamConfig) Containing(expected ...string) StreamConfig {
	clone := s.clone()
	clone.Assertions = append(clone.Assertions, assertion.Containing(expected...))
	return clone
}

// DoesNotContain appends the negated substring assertion.
func (s StreamConfig) DoesNotContain(expected ...string) StreamConfig {
	clone := s.clone()
	clone.Assertions = append(clone.Assertions, assertion.DoesNotContain(expected...))
	return clone
}

// ContainingIgnoringCase appends the case-folded substring assertion.
func (s StreamConfig) ContainingIgnoringCase(expected ...string) StreamConfig {
	clone := s.clone()
	clone.Assertions = append(clone.Assertions, assertion.ContainingIgnoringCase(expected...))
	return clone
}

// Matching appends a regex assertion. It panics on an invalid pattern, since
// stream assertions are normally built from compile-time-known literals;
// callers needing to handle a dynamic, possibly-invalid pattern should use
// MatchingPattern.
func (s StreamConfig) Matching(patterns ...string) StreamConfig {
	clone := s.clone()
	a, err := assertion.Matching(patterns...)
	if err != nil {
		panic(err)
	}
	clone.Assertions = append(clone.Assertions, a)
	return clone
}

// MatchingPattern is the error-returning counterpart of Matching.
func (s StreamConfig) MatchingPattern(patterns ...string) (StreamConfig, error) {
	clone := s.clone()
	a, err := assertion.Matching(patterns...)
	if err != nil {
		return s, err
	}
	clone.Assertions = append(clone.Assertions, a)
	return clone, nil
}

// DoesNotMatch appends the negated regex assertion; see Matching for the
// panic-on-invalid-pattern rationale.
func (s StreamConfig) DoesNotMatch(patterns ...string) StreamConfig {
	clone := s.clone()
	a, err := assertion.DoesNotMatch(patterns...)
	if err != nil {
		panic(err)
	}
	clone.Assertions = append(clone.Assertions, a)
	return clone
}

// HasLineCount appends an exact line-count assertion.
func (s StreamConfig) HasLineCount(n int) StreamConfig {
	clone := s.clone()
	clone.Assertions = append(clone.Assertions, assertion.HasLineCount(n))
	return clone
}

// LinesSatisfy appends a predicate-over-count assertion.
func (s StreamConfig) LinesSatisfy(predicate func(int) bool, template string) StreamConfig {
	clone := s.clone()
	clone.Assertions = append(clone.Assertions, assertion.LineCountSatisfies(predicate, template))
	return clone
}

// IsEmpty appends a zero-lines assertion.
func (s StreamConfig) IsEmpty() StreamConfig {
	clone := s.clone()
	clone.Assertions = append(clone.Assertions, assertion.IsEmpty())
	return clone
}

// HasByteCount appends an exact raw-byte-count assertion, evaluated against
// the total bytes drained from the pipe regardless of decoding.
func (s StreamConfig) HasByteCount(n int64) StreamConfig {
	clone := s.clone()
	clone.Assertions = append(clone.Assertions, assertion.HasByteCount(n))
	return clone
}

// ByteCountSatisfies appends a predicate-over-byte-count assertion; template
// may use "${actual}".
func (s StreamConfig) ByteCountSatisfies(predicate func(int64) bool, template string) StreamConfig {
	clone := s.clone()
	clone.Assertions = append(clone.Assertions, assertion.ByteCountSatisfies(predicate, template))
	return clone
}

// Log attaches a per-line callback invoked as a side effect; it never
// fails the assertion.
func (s StreamConfig) Log(fn func(string)) StreamConfig {
	clone := s.clone()
	clone.LogFn = fn
	return clone
}

// Await registers an Acceptor (an *awaiter.Awaiter[T]) to be fed every line
// as it streams by.
func (s StreamConfig) Await(a Acceptor) StreamConfig {
	clone := s.clone()
	clone.Awaiters = append(clone.Awaiters, a)
	return clone
}

// Redirect writes every raw line, newline-terminated, to a caller-owned
// writer. The Stream Consumer never closes w.
func (s StreamConfig) Redirect(w io.Writer) StreamConfig {
	clone := s.clone()
	clone.RedirectWriter = w
	clone.RedirectPath = ""
	return clone
}

// RedirectToFile writes every raw line to the named file, which the Stream
// Consumer opens and closes itself.
func (s StreamConfig) RedirectToFile(path string) StreamConfig {
	clone := s.clone()
	clone.RedirectPath = path
	clone.RedirectWriter = nil
	return clone
}

// WithCharset overrides the stream's character encoding.
func (s StreamConfig) WithCharset(enc encoding.Encoding) StreamConfig {
	clone := s.clone()
	clone.Charset = enc
	return clone
}

// Capture bounds the retained head/tail lines used when rendering a failure
// for this stream. Use capture.Unbounded for "keep everything" and 0 for
// "keep nothing".
func (s StreamConfig) Capture(maxHead, maxTail int) StreamConfig {
	clone := s.clone()
	clone.MaxHeadLines = maxHead
	clone.MaxTailLines = maxTail
	return clone
}

// CaptureAll is equivalent to Capture(capture.Unbounded, capture.Unbounded).
func (s StreamConfig) CaptureAll() StreamConfig {
	return s.Capture(capture.Unbounded, capture.Unbounded)
}

// AsDiscard marks the stream to be drained without decoding, registering no
// assertions (the "/dev/null" mode).
func (s StreamConfig) AsDiscard() StreamConfig {
	clone := s.clone()
	clone.Discard = true
	clone.Assertions = nil
	clone.Awaiters = nil
	return clone
}
