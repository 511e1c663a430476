// Package exitcode implements the exit-code assertion (C7): a small state
// machine that records the child's exit code exactly once and then checks it
// against one of three configured predicates.
package exitcode

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/a2y-d5l/cmdassert/collector"
)

// kind distinguishes the three ways an exit code can be asserted.
type kind int

const (
	kindEquals kind = iota
	kindAnyOf
	kindPredicate
)

// Assertion enforces one of: exact equality, membership in a set, or an
// arbitrary predicate over the observed exit code.
type Assertion struct {
	kind      kind
	want      int
	anyOf     []int
	predicate func(int) bool
	template  string // used by kindPredicate; may contain ${actual}

	recorded  bool
	evaluated bool
	actual    int
}

// Is builds an assertion that the exit code equals want exactly.
func Is(want int) *Assertion {
	return &Assertion{kind: kindEquals, want: want}
}

// IsAnyOf builds an assertion that the exit code is one of codes.
func IsAnyOf(codes ...int) *Assertion {
	return &Assertion{kind: kindAnyOf, anyOf: append([]int(nil), codes...)}
}

// Satisfies builds an assertion from an arbitrary predicate. template may
// contain the placeholder "${actual}", which is expanded to the observed
// exit code when the predicate fails.
func Satisfies(predicate func(int) bool, template string) *Assertion {
	return &Assertion{kind: kindPredicate, predicate: predicate, template: template}
}

// Clone returns an independent copy carrying the same configured predicate
// but none of the recorded/evaluated state, so it is safe to reuse a Config
// across multiple Start calls.
func (a *Assertion) Clone() *Assertion {
	if a == nil {
		return Is(0)
	}
	clone := *a
	clone.anyOf = append([]int(nil), a.anyOf...)
	clone.recorded = false
	clone.evaluated = false
	return &clone
}

// Record stores the observed exit code. It must be called exactly once,
// before Evaluate.
func (a *Assertion) Record(code int) {
	a.actual = code
	a.recorded = true
}

// Evaluate checks the recorded exit code against the configured predicate
// and, on failure, adds a message to collector tagged collector.None.
func (a *Assertion) Evaluate(c *collector.Collector) {
	if a.evaluated {
		return
	}
	a.evaluated = true
	if !a.recorded {
		return
	}

	switch a.kind {
	case kindEquals:
		if a.actual != a.want {
			c.AddFailure(collector.None, fmt.Sprintf("expected exit code %d but was %d", a.want, a.actual))
		}
	case kindAnyOf:
		for _, want := range a.anyOf {
			if a.actual == want {
				return
			}
		}
		parts := make([]string, len(a.anyOf))
		for i, want := range a.anyOf {
			parts[i] = strconv.Itoa(want)
		}
		c.AddFailure(collector.None, fmt.Sprintf("expected any of exit codes %s but was %d", strings.Join(parts, ", "), a.actual))
	case kindPredicate:
		if a.predicate != nil && a.predicate(a.actual) {
			return
		}
		msg := strings.ReplaceAll(a.template, "${actual}", strconv.Itoa(a.actual))
		c.AddFailure(collector.None, msg)
	}
}
