// Package awaiter implements the Line Awaiter (C4): a one-shot, predicate
// driven promise over a line stream. The first line for which the predicate
// returns true is passed through a mapper and completes the awaiter; every
// later line is ignored.
package awaiter

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Awaiter is completed by the Stream Consumer as lines arrive (via Accept)
// and observed by test code via Await. T is the type the matched line is
// mapped into.
type Awaiter[T any] struct {
	description string
	predicate   func(string) bool
	mapper      func(string) (T, error)

	done  chan struct{} // closed exactly once, by Accept or Close
	value T
	err   error
	fired bool // guards against completing the promise twice; owned by the consumer goroutine
}

// New builds an Awaiter that completes with the first line for which
// predicate returns true, mapped through mapper. description is used in
// timeout and failure messages.
func New[T any](description string, predicate func(string) bool, mapper func(string) (T, error)) *Awaiter[T] {
	return &Awaiter[T]{
		description: description,
		predicate:   predicate,
		mapper:      mapper,
		done:        make(chan struct{}),
	}
}

// Matching builds a string Awaiter from a regular expression: predicate is
// "the pattern matches somewhere in the line" and, per the spec's
// pattern-with-groups convenience, the default mapper extracts the first
// capturing group when the pattern has one, or returns the line unchanged
// otherwise.
func Matching(pattern string) (*Awaiter[string], error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	mapper := func(line string) (string, error) {
		if re.NumSubexp() >= 1 {
			m := re.FindStringSubmatch(line)
			if len(m) > 1 {
				return m[1], nil
			}
		}
		return line, nil
	}
	return New("line matching /"+pattern+"/", func(s string) bool { return re.FindStringIndex(s) != nil }, mapper), nil
}

// Line builds an Awaiter completed by the first line equal to want.
func Line(want string) *Awaiter[string] {
	return New("line '"+want+"'", func(s string) bool { return s == want }, identity)
}

// LineContaining builds an Awaiter completed by the first line containing
// substr.
func LineContaining(substr string) *Awaiter[string] {
	return New("line containing '"+substr+"'", func(s string) bool { return strings.Contains(s, substr) }, identity)
}

// LineContainingIgnoringCase builds an Awaiter completed by the first line
// containing substr, compared case-insensitively.
func LineContainingIgnoringCase(substr string) *Awaiter[string] {
	want := strings.ToLower(substr)
	return New(
		"line containing case insensitive '"+substr+"'",
		func(s string) bool { return strings.Contains(strings.ToLower(s), want) },
		identity,
	)
}

// LineCount builds an Awaiter completed once n lines have been observed; the
// value it produces is the nth line itself.
func LineCount(n int) *Awaiter[string] {
	count := 0
	return New(fmt.Sprintf("line count %d", n), func(string) bool {
		count++
		return count >= n
	}, identity)
}

// LineSatisfying builds an Awaiter completed by the first line for which
// predicate returns true. description is used in timeout/failure messages.
func LineSatisfying(description string, predicate func(string) bool) *Awaiter[string] {
	return New(description, predicate, identity)
}

func identity(s string) (string, error) { return s, nil }

// Mapped is a read-only view derived from an Awaiter via Map: it does not
// observe lines on its own, it re-maps whatever the underlying Awaiter
// produces. The Stream Consumer only ever calls Accept/Close on the
// original Awaiter; Mapped exists purely for the caller side of Await.
type Mapped[U any] struct {
	await func(time.Duration) (U, error)
}

// Await blocks until the underlying Awaiter completes or timeout elapses.
func (m *Mapped[U]) Await(timeout time.Duration) (U, error) {
	return m.await(timeout)
}

// Map derives a Mapped[U] from an Awaiter[T]: once a's Await succeeds, fn is
// applied to the result. This lets callers compose, e.g.,
// Matching(...).pattern then Map(strconv.Atoi) to await a typed value.
func Map[T, U any](a *Awaiter[T], fn func(T) (U, error)) *Mapped[U] {
	return &Mapped[U]{await: func(timeout time.Duration) (U, error) {
		v, err := a.Await(timeout)
		if err != nil {
			var zero U
			return zero, err
		}
		return fn(v)
	}}
}

// Accept is called by the Stream Consumer once per line, in order. It is a
// no-op once the awaiter has already completed. A panic in the predicate or
// mapper completes the awaiter as failed. Accept and Close must only
// ever be called from the owning stream consumer's single goroutine.
func (a *Awaiter[T]) Accept(line string) {
	if a.fired {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			a.fired = true
			a.err = fmt.Errorf("panic: %v", r)
			close(a.done)
		}
	}()
	if !a.predicate(line) {
		return
	}
	a.fired = true
	a.value, a.err = a.mapper(line)
	close(a.done)
}

// Close is called by the Stream Consumer when the stream ends without a
// matching line; it ensures Await does not block forever.
func (a *Awaiter[T]) Close() {
	if a.fired {
		return
	}
	a.fired = true
	a.err = fmt.Errorf("stream ended before %s was observed", a.description)
	close(a.done)
}

// Await blocks until the awaiter completes or timeout elapses. It may be
// called any number of times, including concurrently, once the awaiter has
// completed.
func (a *Awaiter[T]) Await(timeout time.Duration) (T, error) {
	select {
	case <-a.done:
		if a.err != nil {
			var zero T
			return zero, fmt.Errorf("exception thrown when awaiting %s: %w", a.description, a.err)
		}
		return a.value, nil
	case <-time.After(timeout):
		var zero T
		return zero, fmt.Errorf("awaiting %s has not finished within %d ms", a.description, timeout.Milliseconds())
	}
}

// Description returns the human-readable description used in messages.
func (a *Awaiter[T]) Description() string { return a.description }
