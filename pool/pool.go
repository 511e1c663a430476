// Package pool provides the cached worker pool that backs the I/O goroutines
// used to stream a subprocess's stdout, stderr, and stdin. It mirrors, at the
// goroutine level, the kind of cached thread pool a JVM-based process runner
// would reach for: a process-wide pool created once and never torn down, plus
// disposable per-command pools for callers that want isolation between runs.
//
// Workers are named rather than anonymous. The name carries a package-level
// sequence number so that concurrent test runs can be told apart in the
// pool's log of recovered worker panics. Errors that workers report to the
// Failure Collector do not carry the name or the sequence number.
package pool

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/a2y-d5l/cmdassert/internal/obslog"
	"github.com/sirupsen/logrus"
)

// Handle is returned by Submit and lets the caller wait for the submitted
// task to finish.
type Handle interface {
	// Join blocks until the task has returned.
	Join()
}

// Pool submits named tasks for background execution. The standard
// implementation runs each task on its own goroutine; it never blocks the
// caller of Submit regardless of CoreSize/MaxSize, since Go goroutines are
// cheap enough that a true bounded thread pool (with a queue) is not the
// right trade-off here — CoreSize/MaxSize/KeepAlive are retained as
// configuration for API compatibility with the spec's worker-pool contract
// and to document intended capacity, not to gate scheduling.
type Pool interface {
	// Submit runs fn on a new named worker and returns a Handle that
	// completes when fn returns. name is used verbatim as the goroutine's
	// logical name for diagnostics (panics recovered by the pool are
	// reported with this name).
	Submit(name string, fn func()) Handle
}

var seq atomic.Uint64

// NextSeq returns a monotonically increasing, process-wide sequence number.
// It is used to build unique worker names such as
// "cli-assert-io-<index>-stdout" where <index> is the per-command start
// index, letting concurrent test failures be traced back to a specific
// command invocation.
func NextSeq() uint64 {
	return seq.Add(1)
}

// handle implements Handle with a sync.WaitGroup.
type handle struct {
	wg *sync.WaitGroup
}

func (h handle) Join() { h.wg.Wait() }

// cachedPool is the default Pool implementation: every Submit spawns a fresh
// goroutine. CoreSize/MaxSize/KeepAlive are stored for introspection only.
type cachedPool struct {
	coreSize  int
	maxSize   int
	keepAlive time.Duration
}

// New returns a Pool configured with the given parameters. maxSize <= 0 means
// unbounded, matching the "max=unbounded" default described for the
// process-wide pool.
func New(coreSize, maxSize int, keepAlive time.Duration) Pool {
	return &cachedPool{coreSize: coreSize, maxSize: maxSize, keepAlive: keepAlive}
}

func (p *cachedPool) Submit(name string, fn func()) Handle {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				// A panicking worker must never take down the caller.
				// Workers that need a panic reported as an exception in the
				// Failure Collector must recover it themselves before it
				// reaches here (see inputProducer.drive); this is the
				// last-resort backstop so the panic is at least logged
				// instead of vanishing.
				obslog.Warnf(logrus.Fields{"worker": name}, "pool: worker panicked: %v", r)
			}
		}()
		fn()
	}()
	return handle{wg: &wg}
}

var (
	processWide     Pool
	processWideOnce sync.Once
	configMu        sync.Mutex
	configured      bool
	cfgCoreSize     int
	cfgMaxSize      = -1
	cfgKeepAlive    = 60 * time.Second
)

// Configure sets the parameters used to lazily create the process-wide pool.
// It may only be called before the process-wide pool has actually been
// created (i.e. before the first call to Process()); calling it afterwards
// returns an error, matching the spec's "pool already created" contract.
func Configure(coreSize, maxSize int, keepAlive time.Duration) error {
	configMu.Lock()
	defer configMu.Unlock()
	if configured {
		return fmt.Errorf("pool already created")
	}
	cfgCoreSize, cfgMaxSize, cfgKeepAlive = coreSize, maxSize, keepAlive
	return nil
}

// Process returns the process-wide pool, creating it on first use with
// whatever parameters were last passed to Configure (or the defaults
// core=0, max=unbounded, keepAlive=60s). It is never shut down.
func Process() Pool {
	processWideOnce.Do(func() {
		configMu.Lock()
		configured = true
		core, max, keepAlive := cfgCoreSize, cfgMaxSize, cfgKeepAlive
		configMu.Unlock()
		processWide = New(core, max, keepAlive)
	})
	return processWide
}
