// Package expect is the library's batteries-included entry point: a thin
// orchestration layer over command.Config and the engine package's
// Expectation Engine, for callers who just want to spawn a command, wait for
// it, and assert on the result without touching *engine.Supervisor directly.
//
// Quick start:
//
//	cfg := command.New("echo", "Hello Joe")
//	cfg.Stdout = cfg.Stdout.HasLines("Hello Joe")
//	result, err := expect.Execute(cfg)
//	require.NoError(t, err)
//	require.NoError(t, result.AssertSuccess())
//
// For live interaction with a running process (awaiters, a long-lived
// server under test, manual Kill), use Start and drive the returned
// *engine.Supervisor directly.
package expect

import (
	"context"
	"time"

	"github.com/a2y-d5l/cmdassert/command"
	"github.com/a2y-d5l/cmdassert/engine"
)

// Start spawns cfg and returns immediately with a handle to the running
// command. It is engine.Start with context.Background(); use StartContext to
// bind the child's lifetime to a caller-supplied context.
func Start(cfg command.Config) (*engine.Supervisor, error) {
	return StartContext(context.Background(), cfg)
}

// StartContext is Start with an explicit context. Cancelling ctx causes the
// Process Supervisor's own context-bound spawn to be torn down the same way
// os/exec.CommandContext would; it does not itself invoke Kill — callers
// that need the stdin/stdout/stderr workers cancelled on ctx cancellation
// should still call Kill explicitly or rely on Close via defer.
func StartContext(ctx context.Context, cfg command.Config) (*engine.Supervisor, error) {
	return engine.Start(ctx, cfg)
}

// Execute runs cfg to completion and returns its CommandResult. It is
// equivalent to Start followed by Wait.
func Execute(cfg command.Config) (*engine.CommandResult, error) {
	sup, err := Start(cfg)
	if err != nil {
		return nil, err
	}
	return sup.Wait()
}

// ExecuteContext is Execute with an explicit context.
func ExecuteContext(ctx context.Context, cfg command.Config) (*engine.CommandResult, error) {
	sup, err := StartContext(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return sup.Wait()
}

// ExecuteWithTimeout runs cfg and bounds the wait by timeout. On expiry, the
// returned CommandResult carries a timeout error (see
// engine.CommandResult.AssertTimeout) rather than the process being implicitly
// killed; callers that want the child destroyed on timeout should follow up
// with sup.Kill via Start, or rely on AutoCloseTimeout plus a deferred Close.
func ExecuteWithTimeout(cfg command.Config, timeout time.Duration) (*engine.CommandResult, error) {
	sup, err := Start(cfg)
	if err != nil {
		return nil, err
	}
	return sup.WaitWithTimeout(timeout)
}
