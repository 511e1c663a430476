package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/a2y-d5l/cmdassert/collector"
	"github.com/a2y-d5l/cmdassert/command"
	"github.com/a2y-d5l/cmdassert/exitcode"
	"github.com/a2y-d5l/cmdassert/internal/obslog"
	"github.com/a2y-d5l/cmdassert/pool"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// ErrUnsupported is returned by Pid when the child's process id could not
// be determined (the Process Supervisor recorded the sentinel -1).
var ErrUnsupported = errors.New("pid not supported on this host")

// pollInterval bounds how often WaitWithTimeout polls for completion.
const pollInterval = 100 * time.Millisecond

// Supervisor is the Process Supervisor (C8): it owns the spawned child, its
// stream consumers, its optional input producer, and the kill/close policy.
// Exactly one Supervisor exists per Start call; Kill is idempotent.
type Supervisor struct {
	cfg       command.Config
	cmdString string
	cmd       Command
	pool      pool.Pool

	col      *collector.Collector
	stdout   *streamConsumer
	stderr   *streamConsumer
	producer *inputProducer
	handles  []pool.Handle

	exitCode  *exitcode.Assertion
	startTime time.Time
	pid       int
	hookToken string

	mu     sync.Mutex
	closed bool
}

// Start resolves cfg, spawns the child via DefaultCommandFactory, wires its
// pipes to fresh stream consumers and, if configured, an input producer, and
// returns a handle to the running command.
func Start(ctx context.Context, cfg command.Config) (*Supervisor, error) {
	return StartWithFactory(ctx, cfg, DefaultCommandFactory)
}

// StartWithFactory is Start with an injectable CommandFactory, used by tests
// to run the Expectation Engine against a fake Command.
func StartWithFactory(ctx context.Context, cfg command.Config, factory CommandFactory) (*Supervisor, error) {
	if cfg.MergeStderrIntoStdout && hasStreamExpectations(cfg.Stderr) {
		return nil, fmt.Errorf("cannot set stderr expectations while redirecting stderr to stdout")
	}

	cmdString := cfg.String()
	cmd, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create command: %w", err)
	}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	var stderrPipe io.ReadCloser
	if !cfg.MergeStderrIntoStdout {
		stderrPipe, err = cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("stderr pipe: %w", err)
		}
	}

	var stdinPipe io.WriteCloser
	if cfg.Stdin.Kind != command.StdinNone {
		stdinPipe, err = cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("stdin pipe: %w", err)
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}

	col := collector.New()
	p := selectPool(cfg.Pool)
	idx := pool.NextSeq()

	sup := &Supervisor{
		cfg:       cfg,
		cmdString: cmdString,
		cmd:       cmd,
		pool:      p,
		col:       col,
		exitCode:  cfg.ExitCode.Clone(),
		startTime: time.Now(),
		pid:       -1,
	}

	sup.stdout = newStreamConsumer(collector.Stdout, stdoutPipe, cfg.Stdout, col)
	sup.handles = append(sup.handles, sup.stdout.Start(p, fmt.Sprintf("cli-assert-io-%d-stdout", idx)))

	if !cfg.MergeStderrIntoStdout {
		sup.stderr = newStreamConsumer(collector.Stderr, stderrPipe, cfg.Stderr, col)
		sup.handles = append(sup.handles, sup.stderr.Start(p, fmt.Sprintf("cli-assert-io-%d-stderr", idx)))
	}

	if stdinPipe != nil {
		sup.producer = newInputProducer(cfg.Stdin, stdinPipe, col)
		sup.handles = append(sup.handles, sup.producer.Start(p, fmt.Sprintf("cli-assert-io-%d-stdin", idx)))
	}

	if proc := cmd.Process(); proc != nil {
		sup.pid = proc.Pid()
	}

	sup.hookToken = uuid.NewString()
	registerShutdownHook(sup.hookToken, func() {
		sup.Kill(cfg.AutoClose.Forcibly, cfg.AutoClose.WithDescendants)
	})

	return sup, nil
}

func hasStreamExpectations(s command.StreamConfig) bool {
	return len(s.Assertions) > 0 || len(s.Awaiters) > 0 || s.LogFn != nil || s.RedirectPath != "" || s.RedirectWriter != nil
}

func selectPool(spec *command.PoolSpec) pool.Pool {
	if spec == nil {
		return pool.Process()
	}
	return pool.New(spec.CoreSize, spec.MaxSize, spec.KeepAlive)
}

// Pid returns the child's process id, or ErrUnsupported if it could not be
// determined at spawn time.
func (s *Supervisor) Pid() (int, error) {
	if s.pid < 0 {
		return -1, ErrUnsupported
	}
	return s.pid, nil
}

// Children returns the direct child PIDs of the supervised process.
func (s *Supervisor) Children() ([]int32, error) {
	pid, err := s.Pid()
	if err != nil {
		return nil, err
	}
	return children(pid)
}

// Descendants returns the full transitive closure of the supervised
// process's children.
func (s *Supervisor) Descendants() ([]int32, error) {
	pid, err := s.Pid()
	if err != nil {
		return nil, err
	}
	return descendants(pid)
}

// Wait blocks until the child exits, joins every worker, and evaluates the
// composed assertion into a CommandResult. The stream consumers are drained
// before the child is reaped, because reaping closes their pipes.
func (s *Supervisor) Wait() (*CommandResult, error) {
	s.joinConsumers()
	return s.finish(s.cmd.Wait())
}

func (s *Supervisor) joinConsumers() {
	s.stdout.Join()
	if s.stderr != nil {
		s.stderr.Join()
	}
}

// WaitWithTimeout is Wait bounded by d: on expiry it returns a result
// carrying a TimeoutErr without joining the still-running workers.
func (s *Supervisor) WaitWithTimeout(d time.Duration) (*CommandResult, error) {
	deadline := time.Now().Add(d)
	waitDone := make(chan error, 1)
	go func() {
		s.joinConsumers()
		waitDone <- s.cmd.Wait()
	}()

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return s.timeoutResult(d), nil
		}
		wait := remaining
		if wait > pollInterval {
			wait = pollInterval
		}
		select {
		case err := <-waitDone:
			return s.finish(err)
		case <-time.After(wait):
		}
	}
}

func (s *Supervisor) timeoutResult(d time.Duration) *CommandResult {
	return &CommandResult{
		CommandString: s.cmdString,
		ExitCode:      -1,
		Duration:      time.Since(s.startTime),
		TimeoutErr:    &collector.TimeoutError{Message: fmt.Sprintf("%s: did not complete within %s", s.cmdString, d)},
		col:           s.col,
	}
}

func (s *Supervisor) finish(waitErr error) (*CommandResult, error) {
	unregisterShutdownHook(s.hookToken)

	for _, h := range s.handles {
		h.Join()
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		s.col.AddException(collector.None, fmt.Errorf("wait: %w", waitErr))
	}

	exitCode := s.cmd.ExitCode()
	s.exitCode.Record(exitCode)
	s.exitCode.Evaluate(s.col)

	s.stdout.Evaluate()
	if s.stderr != nil {
		s.stderr.Evaluate()
	}

	result := &CommandResult{
		CommandString:   s.cmdString,
		ExitCode:        exitCode,
		Duration:        time.Since(s.startTime),
		ByteCountStdout: s.stdout.ByteCount(),
		col:             s.col,
	}
	if s.stderr != nil {
		result.ByteCountStderr = s.stderr.ByteCount()
	}
	return result, nil
}

// Kill destroys the supervised process. It cancels all workers first (stdout,
// stderr, stdin, in that order) so a stdin write in flight unblocks
// immediately, then signals the process: forcibly with SIGKILL, or
// gracefully with SIGTERM falling back to a process-group signal if the
// direct signal fails. If withDescendants is set, it also destroys every
// descendant process, best effort. Kill is idempotent.
func (s *Supervisor) Kill(forcibly, withDescendants bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	unregisterShutdownHook(s.hookToken)

	s.stdout.Cancel()
	if s.stderr != nil {
		s.stderr.Cancel()
	}
	if s.producer != nil {
		s.producer.Cancel()
	}

	proc := s.cmd.Process()
	if proc == nil {
		return
	}

	if withDescendants && s.pid >= 0 {
		killDescendants(s.pid, forcibly)
	}

	if forcibly {
		if err := proc.Kill(); err != nil {
			obslog.Warnf(logrus.Fields{"pid": s.pid}, "SIGKILL failed: %v", err)
		}
		return
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if s.pid >= 0 {
			if gerr := unix.Kill(-s.pid, syscall.SIGTERM); gerr != nil && gerr != unix.ESRCH {
				obslog.Warnf(logrus.Fields{"pid": s.pid}, "SIGTERM and process-group fallback both failed: %v / %v", err, gerr)
			}
		}
	}
}

// Close implements io.Closer: it applies the configured auto-close policy
// (Kill, then either Wait or a bounded WaitWithTimeout) at scope exit.
func (s *Supervisor) Close() error {
	s.Kill(s.cfg.AutoClose.Forcibly, s.cfg.AutoClose.WithDescendants)

	if s.cfg.AutoClose.Timeout != nil {
		_, err := s.WaitWithTimeout(*s.cfg.AutoClose.Timeout)
		return err
	}
	_, err := s.Wait()
	return err
}
