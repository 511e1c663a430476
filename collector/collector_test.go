package collector_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/a2y-d5l/cmdassert/collector"
)

func TestCollector_EmptyRendersNoError(t *testing.T) {
	c := collector.New()
	if err := collector.NewAggregatedError(c, "echo hi"); err != nil {
		t.Fatalf("expected nil error for empty collector, got %v", err)
	}
}

func TestCollector_OrderingAndCounts(t *testing.T) {
	c := collector.New()
	c.AddException(collector.Stdout, errors.New("boom"))
	c.AddFailure(collector.Stdout, "expected line Foo")
	c.AddFailure(collector.None, "expected exit code 0 but was 1")
	c.SetCapturePrinter(collector.Stdout, func() string { return "    line 1\n    line 2" })

	err := collector.NewAggregatedError(c, `echo "hi"`)
	if err == nil {
		t.Fatal("expected a non-nil aggregated error")
	}
	msg := err.Error()

	if !strings.HasPrefix(msg, "1 exception and 2 assertion failures occurred while executing") {
		t.Fatalf("unexpected header: %q", msg)
	}
	if !strings.Contains(msg, `echo "hi"`) {
		t.Fatalf("expected command string embedded, got %q", msg)
	}

	noneIdx := strings.Index(msg, "expected exit code 0")
	exceptionIdx := strings.Index(msg, "Exception 1/1: boom")
	failureIdx := strings.Index(msg, "Failure 2/2: expected line Foo")
	captureIdx := strings.Index(msg, "line 1")

	if noneIdx == -1 || exceptionIdx == -1 || failureIdx == -1 || captureIdx == -1 {
		t.Fatalf("missing expected fragment in %q", msg)
	}
	// none-bucket failure (exit code) must precede the stdout bucket.
	if !(noneIdx < exceptionIdx && exceptionIdx < failureIdx && failureIdx < captureIdx) {
		t.Fatalf("unexpected ordering in %q", msg)
	}
}

func TestStream_String(t *testing.T) {
	cases := map[collector.Stream]string{
		collector.None:   "",
		collector.Stdout: "stdout",
		collector.Stderr: "stderr",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("Stream(%d).String() = %q, want %q", s, got, want)
		}
	}
}
