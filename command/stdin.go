package command

import (
	"fmt"
	"io"
)

// StdinKind distinguishes the three mutually exclusive ways stdin may be
// configured.
type StdinKind int

const (
	StdinNone StdinKind = iota
	StdinString
	StdinFile
	StdinCallback
)

// StdinSpec describes the command's standard-input source. Exactly one of
// String/FilePath/Callback is meaningful, selected by Kind.
type StdinSpec struct {
	Kind     StdinKind
	String   string
	FilePath string
	Callback func(io.WriteCloser) error
}

// ErrStdinAlreadyConfigured is returned when more than one of
// WithStdinString/WithStdinFile/WithStdinCallback is applied to the same
// Config.
var ErrStdinAlreadyConfigured = fmt.Errorf("stdin already configured")

func (c Config) setStdin(spec StdinSpec) (Config, error) {
	if c.Stdin.Kind != StdinNone {
		return c, ErrStdinAlreadyConfigured
	}
	clone := c.clone()
	clone.Stdin = spec
	return clone, nil
}

// WithStdinString configures the child's stdin to be the literal string s.
func (c Config) WithStdinString(s string) (Config, error) {
	return c.setStdin(StdinSpec{Kind: StdinString, String: s})
}

// WithStdinFile configures the child's stdin to stream the contents of the
// named file.
func (c Config) WithStdinFile(path string) (Config, error) {
	return c.setStdin(StdinSpec{Kind: StdinFile, FilePath: path})
}

// WithStdinCallback configures the child's stdin to be driven by fn, which
// receives a cancellable sink wrapping the child's stdin pipe. fn runs on a
// dedicated worker; any error it returns is collected as a failure tagged
// collector.None.
func (c Config) WithStdinCallback(fn func(io.WriteCloser) error) (Config, error) {
	return c.setStdin(StdinSpec{Kind: StdinCallback, Callback: fn})
}
