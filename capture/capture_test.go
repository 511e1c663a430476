package capture_test

import (
	"strconv"
	"strings"
	"testing"

	"github.com/a2y-d5l/cmdassert/capture"
)

func TestCapture_NoOutput(t *testing.T) {
	c := capture.New(3, 3)
	got := c.Render("stdout")
	if got != "<no output>" {
		t.Fatalf("want <no output>, got %q", got)
	}
}

func TestCapture_NoneConfigured(t *testing.T) {
	c := capture.New(0, 0)
	c.Add("hello")
	got := c.Render("stdout")
	if got != "<no lines captured>" {
		t.Fatalf("want <no lines captured>, got %q", got)
	}
}

func TestCapture_UnboundedNeverOmits(t *testing.T) {
	c := capture.New(capture.Unbounded, capture.Unbounded)
	for i := 0; i < 50; i++ {
		c.Add("line")
	}
	if strings.Contains(c.Render("stdout"), "omitted") {
		t.Fatalf("unbounded capture must never emit an omitted marker")
	}
}

func TestCapture_HeadTailWithOmittedMarker(t *testing.T) {
	c := capture.New(3, 3)
	for i := 1; i <= 35; i++ {
		c.Add("line-" + strconv.Itoa(i))
	}
	got := c.Render("stdout")

	if !strings.Contains(got, "1") || !strings.Contains(got, "3") {
		t.Fatalf("expected head lines present, got %q", got)
	}
	if !strings.Contains(got, "29 lines omitted") {
		t.Fatalf("expected omitted-lines marker with count 29, got %q", got)
	}
	if !strings.Contains(got, "capure more lines") {
		t.Fatalf("expected the preserved capure typo in the hint, got %q", got)
	}
	if !strings.Contains(got, "33") || !strings.Contains(got, "35") {
		t.Fatalf("expected tail lines present, got %q", got)
	}

	// Head must precede the marker, which must precede the tail.
	headIdx := strings.Index(got, "1")
	markerIdx := strings.Index(got, "omitted")
	tailIdx := strings.LastIndex(got, "35")
	if !(headIdx < markerIdx && markerIdx < tailIdx) {
		t.Fatalf("expected head < marker < tail ordering, got %q", got)
	}
}
