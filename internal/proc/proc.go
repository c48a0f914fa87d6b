// Package proc runs external commands on behalf of the pipeline. It exists so
// pool and manager code can swap in fakes for tests instead of spawning real
// processes.
package proc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Spec describes a single external command invocation.
type Spec struct {
	Binary string
	Args   []string
	// Env entries are appended to the daemon environment.
	Env []string
	Dir string
}

// Runner abstracts command execution for testability.
type Runner interface {
	// Run executes the command to completion. Combined output is folded
	// into the returned error on failure.
	Run(ctx context.Context, spec Spec) error
	// Capture executes the command and returns its stdout. Stderr is
	// folded into the returned error on failure.
	Capture(ctx context.Context, spec Spec) ([]byte, error)
	// Output executes the command and returns both streams regardless of
	// the exit status.
	Output(ctx context.Context, spec Spec) (stdout, stderr []byte, err error)
	// Pipe executes the command streaming stdout into w. Stderr is folded
	// into the returned error on failure.
	Pipe(ctx context.Context, spec Spec, w io.Writer) error
	// Start launches the command detached from the caller. The process is
	// reaped in the background and its exit status discarded.
	Start(spec Spec) error
}

// CommandRunner executes commands with os/exec.
type CommandRunner struct{}

func (CommandRunner) Run(ctx context.Context, spec Spec) error {
	cmd := exec.CommandContext(ctx, spec.Binary, spec.Args...) //nolint:gosec
	applySpec(cmd, spec)
	if output, err := cmd.CombinedOutput(); err != nil {
		return commandError(spec, err, output)
	}
	return nil
}

func (CommandRunner) Capture(ctx context.Context, spec Spec) ([]byte, error) {
	cmd := exec.CommandContext(ctx, spec.Binary, spec.Args...) //nolint:gosec
	applySpec(cmd, spec)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, commandError(spec, err, stderr.Bytes())
	}
	return stdout.Bytes(), nil
}

func (CommandRunner) Output(ctx context.Context, spec Spec) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, spec.Binary, spec.Args...) //nolint:gosec
	applySpec(cmd, spec)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

func (CommandRunner) Pipe(ctx context.Context, spec Spec, w io.Writer) error {
	cmd := exec.CommandContext(ctx, spec.Binary, spec.Args...) //nolint:gosec
	applySpec(cmd, spec)
	var stderr bytes.Buffer
	cmd.Stdout = w
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return commandError(spec, err, stderr.Bytes())
	}
	return nil
}

func (CommandRunner) Start(spec Spec) error {
	cmd := exec.Command(spec.Binary, spec.Args...) //nolint:gosec
	applySpec(cmd, spec)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", spec.Binary, err)
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

func applySpec(cmd *exec.Cmd, spec Spec) {
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
}

func commandError(spec Spec, err error, output []byte) error {
	detail := strings.TrimSpace(string(output))
	if len(detail) > 400 {
		detail = detail[len(detail)-400:]
	}
	if detail == "" {
		return fmt.Errorf("%s: %w", spec.Binary, err)
	}
	return fmt.Errorf("%s: %w: %s", spec.Binary, err, detail)
}
