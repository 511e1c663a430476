// Package capture implements the bounded head/tail ring buffer used to
// render a stream's output inside a failure report. It keeps the first N
// lines and the last M lines a stream produced and can render them back with
// a deterministic "omitted" marker in between.
package capture

import (
	"fmt"
	"strings"
)

// Unbounded is the sentinel MaxHead/MaxTail value meaning "keep everything".
const Unbounded = -1

// Capture accumulates the head and tail of a line stream for later
// rendering. It is not safe for concurrent use; each stream consumer owns
// exactly one Capture and writes to it from a single goroutine.
type Capture struct {
	maxHead int
	maxTail int

	head  []string
	tail  []string
	total int
}

// New returns a Capture configured to keep at most maxHead lines from the
// start of the stream and maxTail lines from the end. Either may be
// Unbounded (-1) to keep everything, or 0 to keep none.
func New(maxHead, maxTail int) *Capture {
	return &Capture{maxHead: maxHead, maxTail: maxTail}
}

// Add records one more line from the stream.
func (c *Capture) Add(line string) {
	c.total++

	if c.maxHead == Unbounded || len(c.head) < c.maxHead {
		c.head = append(c.head, line)
		return
	}

	if c.maxTail == Unbounded {
		c.tail = append(c.tail, line)
		return
	}
	if c.maxTail == 0 {
		return
	}
	c.tail = append(c.tail, line)
	if len(c.tail) > c.maxTail {
		c.tail = c.tail[1:]
	}
}

// TotalLines returns the number of lines ever passed to Add, independent of
// how many are actually retained.
func (c *Capture) TotalLines() int { return c.total }

// Render produces the deterministic capture block described by the spec: the
// retained head lines, an "omitted" marker if lines were dropped, and the
// retained tail lines. streamLabel is embedded in the omitted-lines hint
// ("stdout" or "stderr").
func (c *Capture) Render(streamLabel string) string {
	if c.total == 0 {
		return "<no output>"
	}
	if c.maxHead == 0 && c.maxTail == 0 {
		return "<no lines captured>"
	}

	var b strings.Builder
	for _, l := range c.head {
		b.WriteString("    ")
		b.WriteString(l)
		b.WriteByte('\n')
	}

	retained := len(c.head) + len(c.tail)
	if c.total > retained {
		omitted := c.total - retained
		fmt.Fprintf(&b, "    [%d lines omitted; set %s().capture(maxHeadLines, maxTailLines) or %s().captureAll() to capure more lines]\n",
			omitted, streamLabel, streamLabel)
	}

	for _, l := range c.tail {
		b.WriteString("    ")
		b.WriteString(l)
		b.WriteByte('\n')
	}

	return strings.TrimRight(b.String(), "\n")
}
