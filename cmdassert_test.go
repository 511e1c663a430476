package cmdassert_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/a2y-d5l/cmdassert/command"
	"github.com/a2y-d5l/cmdassert/expect"
)

// These are the module's top-level, black-box integration tests: each one
// exercises the public expect/command surface against a real child process,
// the way a consumer of the library would. Package-level unit tests for
// individual components live alongside their packages.

func TestEcho_HasLinesAndLineCount(t *testing.T) {
	cfg := command.New("echo", "Hello Joe")
	cfg.Stdout = cfg.Stdout.HasLines("Hello Joe").HasLineCount(1)

	result, err := expect.Execute(cfg)
	require.NoError(t, err)
	require.NoError(t, result.AssertSuccess())
	require.Equal(t, 0, result.ExitCode)
	require.Contains(t, []int64{10, 11}, result.ByteCountStdout)
}

func TestWriteHelper_WritesFileViaArgsAndCd(t *testing.T) {
	tmp := t.TempDir()

	cfg := command.New("sh", "-c", `printf '%s' "$1" > "$2"`, "--", "Hello Dolly", "hello.txt").Cd(tmp)
	cfg.Stdout = cfg.Stdout.HasLineCount(0)
	cfg.Stderr = cfg.Stderr.HasLineCount(0)

	result, err := expect.Execute(cfg)
	require.NoError(t, err)
	require.NoError(t, result.AssertSuccess())

	contents, err := os.ReadFile(filepath.Join(tmp, "hello.txt"))
	require.NoError(t, err)
	require.Equal(t, "Hello Dolly", string(contents))
}

func TestSleeper_TimesOutUnderExecuteWithTimeout(t *testing.T) {
	cfg := command.New("sh", "-c", `echo "About to sleep for 500 ms"; sleep 0.5`)
	cfg.Stdout = cfg.Stdout.HasLines("About to sleep for 500 ms")

	start := time.Now()
	result, err := expect.ExecuteWithTimeout(cfg, 200*time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	require.NoError(t, result.AssertTimeout())
}

func TestExitCodeHelper_SatisfiesFailureMessage(t *testing.T) {
	cfg := command.New("sh", "-c", "exit $1", "--", "1")
	cfg = cfg.ExitCodeSatisfies(func(actual int) bool { return actual == 42 }, "expected 42 but got ${actual}")

	result, err := expect.Execute(cfg)
	require.NoError(t, err)

	err = result.AssertSuccess()
	require.Error(t, err)
	require.True(t, strings.HasSuffix(err.Error(), "Failure 1/1: expected 42 but got 1"))
}

func TestLineEmitter_CaptureOmitsMiddleLines(t *testing.T) {
	cfg := command.New("sh", "-c", `for i in $(seq 1 35); do echo "Foo $i"; done`)
	cfg.Stdout = cfg.Stdout.Capture(3, 3).HasLines("Bar")

	result, err := expect.Execute(cfg)
	require.NoError(t, err)

	err = result.AssertSuccess()
	require.Error(t, err)
	require.Contains(t, err.Error(), "Foo 1")
	require.Contains(t, err.Error(), "Foo 2")
	require.Contains(t, err.Error(), "Foo 3")
	require.Contains(t, err.Error(), "29 lines omitted")
	require.Contains(t, err.Error(), "Foo 33")
	require.Contains(t, err.Error(), "Foo 34")
	require.Contains(t, err.Error(), "Foo 35")
}

func TestEmptyStderr_RendersNoOutput(t *testing.T) {
	cfg := command.New("echo", "quiet")
	cfg.Stderr = cfg.Stderr.IsEmpty()

	result, err := expect.Execute(cfg)
	require.NoError(t, err)
	require.NoError(t, result.AssertSuccess())
	require.Equal(t, int64(0), result.ByteCountStderr)
}

func TestKill_StopsLongRunningProcess(t *testing.T) {
	cfg := command.New("sh", "-c", "sleep 30")

	sup, err := expect.Start(cfg)
	require.NoError(t, err)

	sup.Kill(true, true)

	done := make(chan struct{})
	go func() {
		_, _ = sup.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("process was not killed within 5s")
	}
}

func TestStderrToStdout_MergesStreams(t *testing.T) {
	cfg := command.New("sh", "-c", `echo out; echo err 1>&2`).StderrToStdout()
	cfg.Stdout = cfg.Stdout.HasLines("out", "err").HasLineCount(2)

	result, err := expect.Execute(cfg)
	require.NoError(t, err)
	require.NoError(t, result.AssertSuccess())
	require.Equal(t, int64(0), result.ByteCountStderr)
}
