// Package command holds the immutable configuration record consumed by the
// Expectation Engine, and the thin, fluent builder surface test authors use
// to construct it. Every builder method returns a new Config; none of them
// mutate the receiver, and slices/maps are copied defensively on write so
// that two configs derived from a common ancestor never alias each other's
// mutable state.
package command

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/a2y-d5l/cmdassert/exitcode"
)

// EnvEntry is one name/value pair in the environment overlay. A slice (not a
// map) is used so that insertion order survives into command-string
// rendering, matching the spec's "environment entries appear in insertion
// order" requirement.
type EnvEntry struct {
	Name  string
	Value string
}

// Executable resolves to the program to run. Exactly one of Path or EnvVar
// should be set; EnvVar supports the "late-binding lookup of the host
// runtime" case (e.g. resolving an interpreter from $SHELL-equivalent
// environment variables) generalized to any environment variable name.
type Executable struct {
	Path   string
	EnvVar string
}

// Resolve returns the literal executable path, reading EnvVar if Path is
// empty. It fails with "executable not specified" if neither yields
// anything, matching the Process Supervisor's contract.
func (e Executable) Resolve() (string, error) {
	if e.Path != "" {
		return e.Path, nil
	}
	if e.EnvVar != "" {
		if v := os.Getenv(e.EnvVar); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("executable not specified")
}

// AutoClose describes the close policy applied when a ProcessHandle's
// Close method runs (typically via defer at scope exit).
type AutoClose struct {
	Forcibly        bool
	WithDescendants bool
	Timeout         *time.Duration
}

// PoolSpec configures a per-command local worker pool. A nil *PoolSpec on a
// Config means "use the process-wide pool" (see package pool).
type PoolSpec struct {
	CoreSize  int
	MaxSize   int
	KeepAlive time.Duration
}

// Config is the immutable command configuration consumed once by the
// Expectation Engine at Start. Build one with New and chain the builder
// methods below; each call returns an independent Config.
type Config struct {
	Exe   Executable
	Args  []string
	// EnvEntries holds the environment overlay; use the Env builder method
	// to append to it.
	EnvEntries []EnvEntry
	Dir        string
	Stdin      StdinSpec

	MergeStderrIntoStdout bool

	Stdout StreamConfig
	Stderr StreamConfig

	ExitCode *exitcode.Assertion

	AutoClose AutoClose
	Pool      *PoolSpec
}

// New returns a Config that runs exe with args, with default stream
// configuration (UTF-8, unbounded capture, no assertions) on both streams
// and an exit-code assertion that requires 0. Dir defaults to the caller's
// current working directory, resolved to an absolute, cleaned path, so the
// rendered command string always carries an explicit "cd" clause even when
// Cd is never called. AutoClose.WithDescendants defaults to true; call
// AutoCloseWithoutDescendants to opt out.
func New(exe string, args ...string) Config {
	return Config{
		Exe:       Executable{Path: exe},
		Args:      append([]string(nil), args...),
		Dir:       defaultDir(),
		Stdout:    newStreamConfig(streamStdout),
		Stderr:    newStreamConfig(streamStderr),
		ExitCode:  exitcode.Is(0),
		AutoClose: AutoClose{WithDescendants: true},
	}
}

// defaultDir resolves the current working directory the way New's "cd"
// default is specified: absolute and cleaned. If the lookup fails (a rare
// environment error), "." is used so the command string still renders a
// valid clause rather than an empty one.
func defaultDir() string {
	dir, err := filepath.Abs(".")
	if err != nil {
		return "."
	}
	return dir
}

// FromEnv returns a Config whose executable is resolved lazily from the
// named environment variable at Start time (the generalized form of a
// "$JAVA_HOME/bin/java"-style host-runtime shorthand).
func FromEnv(envVar string, args ...string) Config {
	cfg := New("", args...)
	cfg.Exe = Executable{EnvVar: envVar}
	return cfg
}

func (c Config) clone() Config {
	clone := c
	clone.Args = append([]string(nil), c.Args...)
	clone.EnvEntries = append([]EnvEntry(nil), c.EnvEntries...)
	if c.ExitCode != nil {
		clone.ExitCode = c.ExitCode.Clone()
	}
	return clone
}

// Arg appends one argument.
func (c Config) Arg(a string) Config {
	clone := c.clone()
	clone.Args = append(clone.Args, a)
	return clone
}

// WithArgs appends zero or more arguments.
func (c Config) WithArgs(args ...string) Config {
	clone := c.clone()
	clone.Args = append(clone.Args, args...)
	return clone
}

// Env merges one name=value pair into the environment overlay. Overlay
// entries win over the inherited host environment at spawn time. Repeating
// the same name appends another entry; the last one wins when the overlay
// is applied (matching typical "later wins" environment-merge semantics)
// while earlier entries are still rendered in the command string for
// transparency.
func (c Config) Env(name, value string) Config {
	clone := c.clone()
	clone.EnvEntries = append(clone.EnvEntries, EnvEntry{Name: name, Value: value})
	return clone
}

// EnvMap merges every entry of m into the environment overlay. Since map
// iteration order is random, callers that care about a specific insertion
// order should call Env repeatedly instead.
func (c Config) EnvMap(m map[string]string) Config {
	clone := c.clone()
	for k, v := range m {
		clone.EnvEntries = append(clone.EnvEntries, EnvEntry{Name: k, Value: v})
	}
	return clone
}

// Cd sets the working directory.
func (c Config) Cd(dir string) Config {
	clone := c.clone()
	clone.Dir = dir
	return clone
}

// StderrToStdout merges the child's stderr into its stdout pipe. It is a
// configuration-time error (surfaced at Start) to combine this with any
// stderr assertion, log consumer, or redirect.
func (c Config) StderrToStdout() Config {
	clone := c.clone()
	clone.MergeStderrIntoStdout = true
	return clone
}

// ExitCodeIs asserts the exit code equals code.
func (c Config) ExitCodeIs(code int) Config {
	clone := c.clone()
	clone.ExitCode = exitcode.Is(code)
	return clone
}

// ExitCodeIsAnyOf asserts the exit code is one of codes.
func (c Config) ExitCodeIsAnyOf(codes ...int) Config {
	clone := c.clone()
	clone.ExitCode = exitcode.IsAnyOf(codes...)
	return clone
}

// ExitCodeSatisfies asserts predicate(exitCode); template may use
// "${actual}".
func (c Config) ExitCodeSatisfies(predicate func(int) bool, template string) Config {
	clone := c.clone()
	clone.ExitCode = exitcode.Satisfies(predicate, template)
	return clone
}

// AutoCloseForcibly makes scope-exit Close use a forced (SIGKILL) destroy.
func (c Config) AutoCloseForcibly() Config {
	clone := c.clone()
	clone.AutoClose.Forcibly = true
	return clone
}

// AutoCloseWithoutDescendants makes scope-exit Close skip killing
// descendant processes.
func (c Config) AutoCloseWithoutDescendants() Config {
	clone := c.clone()
	clone.AutoClose.WithDescendants = false
	return clone
}

// AutoCloseTimeout bounds how long scope-exit Close waits for the process to
// exit after being killed.
func (c Config) AutoCloseTimeout(d time.Duration) Config {
	clone := c.clone()
	clone.AutoClose.Timeout = &d
	return clone
}

// WithPool attaches a per-command local worker pool spec, overriding the
// process-wide pool for this command only.
func (c Config) WithPool(spec PoolSpec) Config {
	clone := c.clone()
	clone.Pool = &spec
	return clone
}
