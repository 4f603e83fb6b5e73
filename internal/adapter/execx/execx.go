// Package execx runs external commands on behalf of the collaborator adapters.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Command describes one external invocation.
type Command struct {
	Name  string
	Args  []string
	Env   []string
	Dir   string
	Stdin io.Reader
}

// String renders the command line for logs and fakes.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result captures stdout/stderr emitted by a command run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// ExitError reports a command that ran and exited non-zero.
type ExitError struct {
	Command string
	Code    int
	Output  string
}

func (e *ExitError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.Code, e.Output)
	}
	return fmt.Sprintf("%s: exit status %d", e.Command, e.Code)
}

// IsExit reports whether err is a non-zero exit, as opposed to a failure to start.
func IsExit(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}

// Runner executes commands. Adapters depend on this interface so tests can script results.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// OSRunner runs commands with os/exec.
type OSRunner struct {
	// Stream, when set, receives a copy of stdout and stderr as the command runs.
	Stream io.Writer
	// Timeout bounds each command. Zero means no bound beyond ctx.
	Timeout time.Duration
}

var _ Runner = OSRunner{}

// Run executes cmd and collects its output.
func (r OSRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Env = append(os.Environ(), cmd.Env...)
	c.Dir = cmd.Dir
	c.Stdin = cmd.Stdin

	var stdoutBuf, stderrBuf bytes.Buffer
	if r.Stream != nil {
		c.Stdout = io.MultiWriter(r.Stream, &stdoutBuf)
		c.Stderr = io.MultiWriter(r.Stream, &stderrBuf)
	} else {
		c.Stdout = &stdoutBuf
		c.Stderr = &stderrBuf
	}

	err := c.Run()
	res := Result{
		Stdout: strings.TrimSpace(stdoutBuf.String()),
		Stderr: strings.TrimSpace(stderrBuf.String()),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &ExitError{Command: cmd.String(), Code: res.ExitCode, Output: PrimaryOutput(res)}
	}
	if err != nil {
		return res, fmt.Errorf("%s: %w", cmd.String(), err)
	}
	return res, nil
}

// PrimaryOutput returns stderr if present, otherwise stdout.
func PrimaryOutput(res Result) string {
	if res.Stderr != "" {
		return res.Stderr
	}
	return res.Stdout
}

// LookPath reports whether name resolves on PATH.
func LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
