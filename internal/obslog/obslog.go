// Package obslog is the engine's single internal logging sink. It never
// carries assertion results — those flow through the Failure Collector —
// it only reports operational warnings the spec says MUST be logged rather
// than escalated: a failed descendant kill, a failed kill signal, a failed
// redirect write, a worker panic caught by the pool.
package obslog

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu     sync.RWMutex
	logger = logrus.New()
)

// SetOutput lets callers (notably tests) redirect the logger's output and
// level; it is intentionally package-global, mirroring the single process
// wide logger a host-agent style CLI tool would configure once at startup.
func SetOutput(l *logrus.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}

func current() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Warnf logs an operational warning with structured fields.
func Warnf(fields logrus.Fields, format string, args ...any) {
	current().WithFields(fields).Warnf(format, args...)
}
