package toolrun

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"subclip/internal/faults"
)

// Result captures the outcome of a completed tool invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner is the function type used to invoke external tools. Production
// code uses Run; tests substitute a stub.
type Runner func(ctx context.Context, tool string, args ...string) (Result, error)

// Run executes tool with the given argument vector and captures both
// output streams. A zero exit yields a nil error; a missing binary yields
// faults.ErrToolMissing; a non-zero exit yields a faults.ToolFailure
// carrying the exit code and stderr.
func Run(ctx context.Context, tool string, args ...string) (Result, error) {
	if tool == "" {
		return Result{}, faults.New(faults.ErrValidation, "tool name required")
	}

	cmd := exec.CommandContext(ctx, tool, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err == nil {
		return result, nil
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound) {
		return result, faults.Wrap(faults.ErrToolMissing, tool, nil)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("%s: %w", tool, ctxErr)
		}
		return result, &faults.ToolFailure{
			Tool:     tool,
			ExitCode: result.ExitCode,
			Stderr:   result.Stderr,
		}
	}

	return result, fmt.Errorf("run %s: %w", tool, err)
}

// RunWithTimeout executes the tool under an additional wall-clock cap.
// A non-positive timeout runs unbounded.
func RunWithTimeout(ctx context.Context, timeout time.Duration, tool string, args ...string) (Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return Run(ctx, tool, args...)
}

// Probe reports whether the tool responds to a one-shot invocation with
// the given probe arguments (typically -version or --help).
func Probe(ctx context.Context, tool string, args ...string) bool {
	_, err := Run(ctx, tool, args...)
	return err == nil
}
