// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package toolexec runs external tools with explicit argument lists (never
// through a shell) and returns their exit code, stdout and stderr.
package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Command describes one tool invocation.
type Command struct {
	// Name is the binary to run, resolved through PATH.
	Name string
	// Args are passed verbatim; no shell interpretation happens.
	Args []string
	// Stdin is optional.
	Stdin io.Reader
}

// String renders the command for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the structured outcome of a finished process.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// ExitError reports a process that ran but exited non-zero.
type ExitError struct {
	Command string
	Result  Result
}

func (e *ExitError) Error() string {
	stderr := strings.TrimSpace(string(e.Result.Stderr))
	if stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Command, e.Result.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.Result.ExitCode, stderr)
}

// executor abstracts process execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	// Run starts name with args and waits. exitCode is -1 when the process
	// could not be started.
	Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) (exitCode int, err error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// Runner invokes external tools.
type Runner struct {
	exec    executor
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout bounds every invocation. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithLogger sets the logger used for debug traces of each invocation.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// New creates a Runner backed by os/exec.
func New(opts ...Option) *Runner {
	return newRunner(&osExecutor{}, opts...)
}

func newRunner(exec executor, opts ...Option) *Runner {
	r := &Runner{exec: exec, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LookPath reports whether the named binary can be found on PATH.
func (r *Runner) LookPath(name string) (string, error) {
	p, err := r.exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH: %w", name, err)
	}
	return p, nil
}

// Run executes c and waits for it. A process that exits non-zero returns its
// Result together with an *ExitError. A process that cannot be started
// returns the start error and ExitCode -1.
func (r *Runner) Run(ctx context.Context, c Command) (Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.logger.Debug("running tool", "cmd", c.String())

	var stdout, stderr bytes.Buffer
	code, err := r.exec.Run(ctx, c.Name, c.Args, c.Stdin, &stdout, &stderr)
	res := Result{ExitCode: code, Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if ctxErr := ctx.Err(); ctxErr != nil && (err != nil || code != 0) {
		return res, fmt.Errorf("running %s: %w", c.Name, ctxErr)
	}
	if err != nil {
		return res, fmt.Errorf("running %s: %w", c.Name, err)
	}
	if code != 0 {
		return res, &ExitError{Command: c.String(), Result: res}
	}
	return res, nil
}
