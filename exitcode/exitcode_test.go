package exitcode_test

import (
	"strings"
	"testing"

	"github.com/a2y-d5l/cmdassert/collector"
	"github.com/a2y-d5l/cmdassert/exitcode"
)

func TestIs_Failure(t *testing.T) {
	a := exitcode.Is(0)
	a.Record(1)
	c := collector.New()
	a.Evaluate(c)
	err := collector.NewAggregatedError(c, "cmd")
	if err == nil || !strings.Contains(err.Error(), "expected exit code 0 but was 1") {
		t.Fatalf("got %v", err)
	}
}

func TestIsAnyOf_Success(t *testing.T) {
	a := exitcode.IsAnyOf(0, 2, 3)
	a.Record(2)
	c := collector.New()
	a.Evaluate(c)
	if err := collector.NewAggregatedError(c, "cmd"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestIsAnyOf_Failure(t *testing.T) {
	a := exitcode.IsAnyOf(0, 2, 3)
	a.Record(7)
	c := collector.New()
	a.Evaluate(c)
	err := collector.NewAggregatedError(c, "cmd")
	if err == nil || !strings.Contains(err.Error(), "expected any of exit codes 0, 2, 3 but was 7") {
		t.Fatalf("got %v", err)
	}
}

func TestSatisfies_TemplateInterpolation(t *testing.T) {
	a := exitcode.Satisfies(func(n int) bool { return n == 42 }, "expected 42 but got ${actual}")
	a.Record(1)
	c := collector.New()
	a.Evaluate(c)
	err := collector.NewAggregatedError(c, "cmd")
	if err == nil || !strings.HasSuffix(err.Error(), "Failure 1/1: expected 42 but got 1") {
		t.Fatalf("got %v", err)
	}
}

func TestEvaluate_IsIdempotent(t *testing.T) {
	a := exitcode.Is(0)
	a.Record(1)
	c := collector.New()
	a.Evaluate(c)
	a.Evaluate(c)
	_, failures := 0, 0
	msg := collector.NewAggregatedError(c, "cmd").Error()
	for _, line := range strings.Split(msg, "\n") {
		if strings.HasPrefix(line, "Failure") {
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("expected Evaluate to be a no-op on second call, got %d failure lines in %q", failures, msg)
	}
}

func TestClone_ResetsState(t *testing.T) {
	a := exitcode.Is(0)
	a.Record(1)
	c := collector.New()
	a.Evaluate(c)

	clone := a.Clone()
	clone.Record(0)
	c2 := collector.New()
	clone.Evaluate(c2)
	if err := collector.NewAggregatedError(c2, "cmd"); err != nil {
		t.Fatalf("clone should evaluate independently, got %v", err)
	}
}
