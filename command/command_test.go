package command_test

import (
	"strings"
	"testing"
	"time"

	"github.com/a2y-d5l/cmdassert/command"
)

func TestString_QuotesWhitespace(t *testing.T) {
	cfg := command.New("echo", "Hello Joe").Cd("/tmp/has space").Env("NAME", "value with space")
	got := cfg.String()
	want := `cd "/tmp/has space" && NAME="value with space" echo "Hello Joe"`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestString_NoQuotingWhenNoWhitespace(t *testing.T) {
	cfg := command.New("echo", "hi").Cd("/tmp")
	got := cfg.String()
	if got != `cd /tmp && echo hi` {
		t.Fatalf("got %q", got)
	}
}

func TestString_EscapesEmbeddedQuotes(t *testing.T) {
	cfg := command.New("echo", `say "hi"`).Cd("/tmp")
	got := cfg.String()
	want := `cd /tmp && echo "say \"hi\""`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestString_DefaultsCdToWorkingDirectory(t *testing.T) {
	cfg := command.New("echo", "hi")
	got := cfg.String()
	if !strings.HasPrefix(got, "cd ") || !strings.HasSuffix(got, "&& echo hi") {
		t.Fatalf("expected an unconditional cd clause, got %q", got)
	}
}

func TestString_DeterministicRegardlessOfBuilderOrder(t *testing.T) {
	a := command.New("echo", "x").Cd("/tmp").Env("A", "1").Env("B", "2")
	b := command.New("echo").Env("A", "1").Cd("/tmp").Arg("x").Env("B", "2")
	if a.String() != b.String() {
		t.Fatalf("expected deterministic rendering independent of unrelated call order:\n%q\n%q", a.String(), b.String())
	}
}

func TestBuilder_DoesNotAliasBetweenInstances(t *testing.T) {
	base := command.New("echo", "base")
	withArg := base.Arg("extra")

	if len(base.Args) != 1 {
		t.Fatalf("expected base.Args unaffected by a later clone's Arg call, got %v", base.Args)
	}
	if len(withArg.Args) != 2 {
		t.Fatalf("expected withArg.Args to carry the extra argument, got %v", withArg.Args)
	}
}

func TestMergeStderrIntoStdout_RenderedAsRedirect(t *testing.T) {
	cfg := command.New("echo", "hi").Cd("/tmp").StderrToStdout()
	if got := cfg.String(); got != "cd /tmp && echo hi 2>&1" {
		t.Fatalf("got %q", got)
	}
}

func TestStdin_MutuallyExclusive(t *testing.T) {
	cfg := command.New("cat")
	cfg, err := cfg.WithStdinString("hello")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.WithStdinFile("/tmp/x"); err != command.ErrStdinAlreadyConfigured {
		t.Fatalf("expected ErrStdinAlreadyConfigured, got %v", err)
	}
}

func TestExecutable_Resolve(t *testing.T) {
	cfg := command.New("echo")
	exe, err := cfg.Exe.Resolve()
	if err != nil || exe != "echo" {
		t.Fatalf("got %q, %v", exe, err)
	}

	unset := command.FromEnv("CMDASSERT_TEST_NONEXISTENT_VAR")
	if _, err := unset.Exe.Resolve(); err == nil {
		t.Fatal("expected an error for an unresolved executable")
	}
}

func TestAutoCloseTimeout(t *testing.T) {
	cfg := command.New("echo").AutoCloseTimeout(2 * time.Second)
	if cfg.AutoClose.Timeout == nil || *cfg.AutoClose.Timeout != 2*time.Second {
		t.Fatalf("got %v", cfg.AutoClose.Timeout)
	}
}

func TestExitCodeIsAnyOf(t *testing.T) {
	cfg := command.New("echo").ExitCodeIsAnyOf(0, 2)
	cfg.ExitCode.Record(2)
	// Evaluate against a throwaway collector is exercised in package exitcode;
	// here we only check that the builder attached a non-nil assertion.
	if cfg.ExitCode == nil {
		t.Fatal("expected a non-nil exit-code assertion")
	}
}
