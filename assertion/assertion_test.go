package assertion_test

import (
	"strings"
	"testing"

	"github.com/a2y-d5l/cmdassert/assertion"
	"github.com/a2y-d5l/cmdassert/collector"
)

func evaluate(t *testing.T, a assertion.Assertion, lines []string) string {
	t.Helper()
	for _, l := range lines {
		a.Line(l)
	}
	c := collector.New()
	a.Evaluate(c, collector.Stdout)
	err := collector.NewAggregatedError(c, "cmd")
	if err == nil {
		return ""
	}
	return err.Error()
}

func TestHasLines_Pass(t *testing.T) {
	a := assertion.HasLines("Hello Joe")
	if got := evaluate(t, a, []string{"Hello Joe"}); got != "" {
		t.Fatalf("expected pass, got %q", got)
	}
}

func TestHasLines_Fail(t *testing.T) {
	a := assertion.HasLines("Hello Joe")
	got := evaluate(t, a, []string{"Hello World"})
	if !strings.Contains(got, `expected line "Hello Joe" to occur but it did not`) {
		t.Fatalf("got %q", got)
	}
}

func TestDoesNotHaveLines_Fail_Highlight(t *testing.T) {
	a := assertion.DoesNotHaveLines("forbidden")
	got := evaluate(t, a, []string{"forbidden"})
	if !strings.Contains(got, ">>forbidden<<") {
		t.Fatalf("expected whole-line highlight, got %q", got)
	}
}

func TestContaining_Pass(t *testing.T) {
	a := assertion.Containing("lo Jo")
	if got := evaluate(t, a, []string{"Hello Joe"}); got != "" {
		t.Fatalf("expected pass, got %q", got)
	}
}

func TestDoesNotContain_Fail_Highlight(t *testing.T) {
	a := assertion.DoesNotContain("bad")
	got := evaluate(t, a, []string{"this is bad input"})
	if !strings.Contains(got, "this is >>bad<< input") {
		t.Fatalf("expected inline highlight, got %q", got)
	}
}

func TestContainingIgnoringCase(t *testing.T) {
	a := assertion.ContainingIgnoringCase("HELLO")
	if got := evaluate(t, a, []string{"hello world"}); got != "" {
		t.Fatalf("expected case-insensitive pass, got %q", got)
	}
}

func TestMatching_Pass(t *testing.T) {
	a, err := assertion.Matching(`\d+ ms`)
	if err != nil {
		t.Fatal(err)
	}
	if got := evaluate(t, a, []string{"slept for 500 ms"}); got != "" {
		t.Fatalf("expected pass, got %q", got)
	}
}

func TestMatching_Fail(t *testing.T) {
	a, err := assertion.Matching(`^exact$`)
	if err != nil {
		t.Fatal(err)
	}
	got := evaluate(t, a, []string{"not exact at all"})
	if !strings.Contains(got, "expected a line matching /^exact$/ but found none") {
		t.Fatalf("got %q", got)
	}
}

func TestHasLineCount(t *testing.T) {
	a := assertion.HasLineCount(2)
	if got := evaluate(t, a, []string{"a", "b"}); got != "" {
		t.Fatalf("expected pass, got %q", got)
	}
	a2 := assertion.HasLineCount(2)
	got := evaluate(t, a2, []string{"a"})
	if !strings.Contains(got, "expected 2 lines but observed 1") {
		t.Fatalf("got %q", got)
	}
}

func TestIsEmpty(t *testing.T) {
	a := assertion.IsEmpty()
	if got := evaluate(t, a, nil); got != "" {
		t.Fatalf("expected pass, got %q", got)
	}
}

func TestHasByteCount(t *testing.T) {
	pass := assertion.HasByteCount(5)
	pass.(assertion.ByteCountAware).RecordByteCount(5)
	if got := evaluate(t, pass, nil); got != "" {
		t.Fatalf("expected pass, got %q", got)
	}

	fail := assertion.HasByteCount(5)
	fail.(assertion.ByteCountAware).RecordByteCount(3)
	got := evaluate(t, fail, nil)
	if !strings.Contains(got, "expected 5 bytes but observed 3") {
		t.Fatalf("got %q", got)
	}
}

func TestByteCountSatisfies(t *testing.T) {
	a := assertion.ByteCountSatisfies(func(n int64) bool { return n > 0 }, "expected some bytes but observed ${actual}")
	a.(assertion.ByteCountAware).RecordByteCount(0)
	got := evaluate(t, a, nil)
	if !strings.Contains(got, "expected some bytes but observed 0") {
		t.Fatalf("got %q", got)
	}
}

func TestLog_NeverFails(t *testing.T) {
	var seen []string
	a := assertion.Log(func(s string) { seen = append(seen, s) })
	if got := evaluate(t, a, []string{"a", "b"}); got != "" {
		t.Fatalf("log assertion must never fail, got %q", got)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 lines observed, got %d", len(seen))
	}
}

func TestClone_IsIndependent(t *testing.T) {
	original := assertion.HasLines("x")
	original.Line("x") // satisfy the original

	clone := original.Clone()
	// The clone must not have inherited the "seen" observation.
	got := evaluate(t, clone, nil)
	if !strings.Contains(got, `expected line "x" to occur but it did not`) {
		t.Fatalf("expected clone to start unobserved, got %q", got)
	}
}
