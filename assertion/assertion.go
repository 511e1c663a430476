// Package assertion implements the Line Assertions (C3): stateful, per-line
// predicates attached to a stream. Each assertion observes every line as it
// streams by via Line, and is asked once, after the stream has been fully
// drained, to report any failure into the Failure Collector via Evaluate.
package assertion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/a2y-d5l/cmdassert/collector"
)

// Assertion is the contract every line-assertion variant implements.
type Assertion interface {
	// Line is called once per line, in the order lines were produced.
	Line(s string)
	// Evaluate is called once after the stream has been joined. It may add
	// zero or more failures to c, tagged with stream.
	Evaluate(c *collector.Collector, stream collector.Stream)
	// Clone returns a fresh, unobserved copy so the same Config can be
	// reused across multiple Start calls without sharing mutable state.
	Clone() Assertion
}

// highlight wraps the first occurrence of needle in line with >>needle<<, or
// wraps the whole line if needle is empty (used by the whole-line variant).
func highlight(line, needle string) string {
	if needle == "" {
		return ">>" + line + "<<"
	}
	idx := strings.Index(line, needle)
	if idx < 0 {
		return line
	}
	return line[:idx] + ">>" + needle + "<<" + line[idx+len(needle):]
}

// --- whole-line match --------------------------------------------------

type wholeLine struct {
	expected []string
	negate   bool
	seen     map[string][]string // expected literal -> matching lines observed
	allLines []string
}

// HasLines asserts that every literal in expected appears, in its entirety,
// as at least one line (in any order across lines).
func HasLines(expected ...string) Assertion {
	return &wholeLine{expected: append([]string(nil), expected...), seen: map[string][]string{}}
}

// DoesNotHaveLines asserts that no literal in expected ever appears as a
// whole line.
func DoesNotHaveLines(expected ...string) Assertion {
	return &wholeLine{expected: append([]string(nil), expected...), negate: true, seen: map[string][]string{}}
}

func (w *wholeLine) Line(s string) {
	w.allLines = append(w.allLines, s)
	for _, e := range w.expected {
		if s == e {
			w.seen[e] = append(w.seen[e], s)
		}
	}
}

func (w *wholeLine) Evaluate(c *collector.Collector, stream collector.Stream) {
	if w.negate {
		for _, e := range w.expected {
			for range w.seen[e] {
				c.AddFailure(stream, fmt.Sprintf("line %s was not expected to occur", highlight(e, "")))
			}
		}
		return
	}
	for _, e := range w.expected {
		if len(w.seen[e]) == 0 {
			c.AddFailure(stream, fmt.Sprintf("expected line %q to occur but it did not", e))
		}
	}
}

func (w *wholeLine) Clone() Assertion {
	return &wholeLine{expected: append([]string(nil), w.expected...), negate: w.negate, seen: map[string][]string{}}
}

// --- substring ----------------------------------------------------------

type substring struct {
	expected      []string
	negate        bool
	caseFold      bool
	matchingLines map[string][]string
}

// Containing asserts that every substring in expected appears somewhere
// within at least one line.
func Containing(expected ...string) Assertion {
	return &substring{expected: append([]string(nil), expected...), matchingLines: map[string][]string{}}
}

// DoesNotContain asserts that no substring in expected appears in any line.
func DoesNotContain(expected ...string) Assertion {
	return &substring{expected: append([]string(nil), expected...), negate: true, matchingLines: map[string][]string{}}
}

// ContainingIgnoringCase is the case-folded variant of Containing.
func ContainingIgnoringCase(expected ...string) Assertion {
	return &substring{expected: append([]string(nil), expected...), caseFold: true, matchingLines: map[string][]string{}}
}

func (s *substring) Line(line string) {
	haystack := line
	if s.caseFold {
		haystack = strings.ToLower(line)
	}
	for _, e := range s.expected {
		needle := e
		if s.caseFold {
			needle = strings.ToLower(e)
		}
		if strings.Contains(haystack, needle) {
			s.matchingLines[e] = append(s.matchingLines[e], line)
		}
	}
}

func (s *substring) Evaluate(c *collector.Collector, stream collector.Stream) {
	if s.negate {
		for _, e := range s.expected {
			for _, line := range s.matchingLines[e] {
				c.AddFailure(stream, fmt.Sprintf("line %s was not expected to contain %q", highlight(line, e), e))
			}
		}
		return
	}
	for _, e := range s.expected {
		if len(s.matchingLines[e]) == 0 {
			c.AddFailure(stream, fmt.Sprintf("expected a line containing %q but found none", e))
		}
	}
}

func (s *substring) Clone() Assertion {
	return &substring{
		expected:      append([]string(nil), s.expected...),
		negate:        s.negate,
		caseFold:      s.caseFold,
		matchingLines: map[string][]string{},
	}
}

// --- regex ----------------------------------------------------------------

type regexAssertion struct {
	patterns      []*regexp.Regexp
	sources       []string
	negate        bool
	matchingLines map[string][]string
}

// Matching asserts that every pattern in patterns matches (via Find,
// i.e. partial, unanchored match) at least one line.
func Matching(patterns ...string) (Assertion, error) {
	return compileRegexAssertion(patterns, false)
}

// DoesNotMatch asserts that no pattern in patterns matches any line.
func DoesNotMatch(patterns ...string) (Assertion, error) {
	return compileRegexAssertion(patterns, true)
}

func compileRegexAssertion(patterns []string, negate bool) (Assertion, error) {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", p, err)
		}
		compiled[i] = re
	}
	return &regexAssertion{patterns: compiled, sources: append([]string(nil), patterns...), negate: negate, matchingLines: map[string][]string{}}, nil
}

func (r *regexAssertion) Line(line string) {
	for i, re := range r.patterns {
		if re.FindStringIndex(line) != nil {
			r.matchingLines[r.sources[i]] = append(r.matchingLines[r.sources[i]], line)
		}
	}
}

func (r *regexAssertion) Evaluate(c *collector.Collector, stream collector.Stream) {
	for i, re := range r.patterns {
		src := r.sources[i]
		if r.negate {
			for _, line := range r.matchingLines[src] {
				loc := re.FindString(line)
				c.AddFailure(stream, fmt.Sprintf("line %s was not expected to match /%s/", highlight(line, loc), src))
			}
			continue
		}
		if len(r.matchingLines[src]) == 0 {
			c.AddFailure(stream, fmt.Sprintf("expected a line matching /%s/ but found none", src))
		}
	}
}

func (r *regexAssertion) Clone() Assertion {
	patterns := make([]*regexp.Regexp, len(r.patterns))
	copy(patterns, r.patterns)
	return &regexAssertion{
		patterns:      patterns,
		sources:       append([]string(nil), r.sources...),
		negate:        r.negate,
		matchingLines: map[string][]string{},
	}
}

// --- counts ---------------------------------------------------------------

type lineCount struct {
	want      int
	predicate func(int) bool
	template  string
	count     int
}

// HasLineCount asserts that exactly want lines were observed.
func HasLineCount(want int) Assertion {
	return &lineCount{want: want, predicate: func(n int) bool { return n == want }, template: fmt.Sprintf("expected %d lines but observed ${actual}", want)}
}

// LineCountSatisfies asserts that predicate holds for the observed count.
// template may use "${actual}".
func LineCountSatisfies(predicate func(int) bool, template string) Assertion {
	return &lineCount{predicate: predicate, template: template}
}

// IsEmpty asserts that zero lines were observed.
func IsEmpty() Assertion {
	return HasLineCount(0)
}

func (l *lineCount) Line(string) { l.count++ }

func (l *lineCount) Evaluate(c *collector.Collector, stream collector.Stream) {
	if l.predicate(l.count) {
		return
	}
	msg := strings.ReplaceAll(l.template, "${actual}", fmt.Sprint(l.count))
	c.AddFailure(stream, msg)
}

func (l *lineCount) Clone() Assertion {
	return &lineCount{want: l.want, predicate: l.predicate, template: l.template}
}

// --- byte count --------------------------------------------------------

// ByteCountAware is implemented by assertions that need the stream's total
// raw byte count recorded before Evaluate runs. The Stream Consumer checks
// for it once, after the stream has been fully drained, the same way it
// calls Line for every observed line.
type ByteCountAware interface {
	RecordByteCount(n int64)
}

type byteCount struct {
	predicate func(int64) bool
	template  string
	actual    int64
}

// HasByteCount asserts that the stream produced exactly want bytes.
func HasByteCount(want int64) Assertion {
	return &byteCount{
		predicate: func(n int64) bool { return n == want },
		template:  fmt.Sprintf("expected %d bytes but observed ${actual}", want),
	}
}

// ByteCountSatisfies asserts that predicate holds for the stream's observed
// byte count. template may use "${actual}".
func ByteCountSatisfies(predicate func(int64) bool, template string) Assertion {
	return &byteCount{predicate: predicate, template: template}
}

func (b *byteCount) Line(string) {}

func (b *byteCount) RecordByteCount(n int64) { b.actual = n }

func (b *byteCount) Evaluate(c *collector.Collector, stream collector.Stream) {
	if b.predicate(b.actual) {
		return
	}
	msg := strings.ReplaceAll(b.template, "${actual}", fmt.Sprint(b.actual))
	c.AddFailure(stream, msg)
}

func (b *byteCount) Clone() Assertion {
	return &byteCount{predicate: b.predicate, template: b.template}
}

// --- log (side-effect only) ------------------------------------------------

type logAssertion struct {
	fn func(string)
}

// Log runs fn for every line observed; it never fails.
func Log(fn func(string)) Assertion {
	return &logAssertion{fn: fn}
}

func (l *logAssertion) Line(s string) {
	if l.fn != nil {
		l.fn(s)
	}
}
func (l *logAssertion) Evaluate(*collector.Collector, collector.Stream) {}
func (l *logAssertion) Clone() Assertion                                { return &logAssertion{fn: l.fn} }

// --- user-supplied ----------------------------------------------------------

type custom struct {
	onLine     func(string)
	onEvaluate func(*collector.Collector, collector.Stream)
	newFn      func() (func(string), func(*collector.Collector, collector.Stream))
}

// Custom adapts an arbitrary user-supplied assertion. newState is invoked
// once per Clone to produce independent onLine/onEvaluate closures, so a
// Custom assertion can safely be reused across multiple Start calls.
func Custom(newState func() (onLine func(string), onEvaluate func(*collector.Collector, collector.Stream))) Assertion {
	onLine, onEvaluate := newState()
	return &custom{onLine: onLine, onEvaluate: onEvaluate, newFn: newState}
}

func (c *custom) Line(s string) { c.onLine(s) }
func (c *custom) Evaluate(col *collector.Collector, stream collector.Stream) {
	c.onEvaluate(col, stream)
}
func (c *custom) Clone() Assertion {
	onLine, onEvaluate := c.newFn()
	return &custom{onLine: onLine, onEvaluate: onEvaluate, newFn: c.newFn}
}
