package ffmpeg

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// CommandRunner defines the interface for running external commands
// This allows mocking exec.Command in tests
type CommandRunner interface {
	// Start spawns the command and returns without waiting for it
	Start(ctx context.Context, name string, args ...string) (Waiter, error)
	// Output runs the command to completion and returns its stdout
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Waiter blocks until a started command exits
type Waiter interface {
	Wait() error
}

// ExecCommandRunner is the production implementation using os/exec
type ExecCommandRunner struct{}

// Start spawns the command with stderr captured for diagnostics
func (r *ExecCommandRunner) Start(ctx context.Context, name string, args ...string) (Waiter, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execWaiter{cmd: cmd, stderr: stderr}, nil
}

// Output executes a command and returns its output
func (r *ExecCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.Output()
}

type execWaiter struct {
	cmd    *exec.Cmd
	stderr *bytes.Buffer
}

func (w *execWaiter) Wait() error {
	return w.cmd.Wait()
}

// Stderr returns the tail of the captured stderr
func (w *execWaiter) Stderr() string {
	s := strings.TrimSpace(w.stderr.String())
	if len(s) > 2000 {
		s = s[len(s)-2000:]
	}
	return s
}
