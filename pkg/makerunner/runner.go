// Package makerunner runs Makefile targets as child processes.
package makerunner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// Runner executes targets with Command (make by default) in Dir
type Runner struct {
	Command string
	Dir     string
	Stdout  io.Writer
	Stderr  io.Writer
	Logger  *slog.Logger
}

// New returns a runner for make in the current directory wired to the
// process output streams.
func New(logger *slog.Logger) *Runner {
	return &Runner{Command: "make", Stdout: os.Stdout, Stderr: os.Stderr, Logger: logger}
}

// Run executes one target and returns an error when it exits non-zero
func (r *Runner) Run(ctx context.Context, target string) error {
	command := r.Command
	if command == "" {
		command = "make"
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.CommandContext(ctx, command, target)
	cmd.Dir = r.Dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	logger.Info("running make target", "command", command, "target", target)
	if err := cmd.Run(); err != nil {
		logger.Error("make target failed", "target", target, "error", err)
		return fmt.Errorf("error running Makefile target %q: %w", target, err)
	}
	return nil
}
