// Package executil provides command execution utilities for external
// reviewers, linters, and test runners.
package executil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Executor runs external commands.
type Executor interface {
	// RunDir executes a command in dir and returns its combined output.
	// A non-zero exit is returned as an error wrapping *exec.ExitError, with
	// the output still populated.
	RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error)
}

// RealExecutor calls actual commands.
type RealExecutor struct{}

// RunDir executes a command in a specific directory (empty means inherit cwd).
func (e *RealExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	c := exec.CommandContext(ctx, cmd, args...)
	if dir != "" {
		c.Dir = dir
	}

	var buf bytes.Buffer
	c.Stdout = &buf
	c.Stderr = &buf

	if err := c.Run(); err != nil {
		return buf.Bytes(), fmt.Errorf("exec %s: %w", cmd, err)
	}
	return buf.Bytes(), nil
}

// RunShell runs cmd through `sh -c` in dir.
func RunShell(ctx context.Context, e Executor, dir, cmd string) ([]byte, error) {
	return e.RunDir(ctx, dir, "sh", "-c", cmd)
}

// ExitCode extracts the process exit code from an error returned by an
// Executor. It reports ok=false when the command never ran (not found,
// cancelled before start) so callers can tell a failing tool from a
// missing one.
func ExitCode(err error) (code int, ok bool) {
	if err == nil {
		return 0, true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), true
	}
	return -1, false
}

// Tail returns at most the last n bytes of out as a string.
func Tail(out []byte, n int) string {
	if len(out) <= n {
		return string(out)
	}
	return string(out[len(out)-n:])
}
