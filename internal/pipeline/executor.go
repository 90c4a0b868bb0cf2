package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Command is one invocation of the external query tool
type Command struct {
	Binary  string
	Args    []string
	Dir     string
	Timeout time.Duration // 0 = wait for as long as the tool runs
}

// ExecResult is the captured outcome of a finished process
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Executor runs a command to completion. A non-zero exit is reported through
// ExecResult.ExitCode; the error is reserved for processes that could not be
// started or were killed.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (ExecResult, error)
}

// DirectExecutor runs commands on the host with os/exec
type DirectExecutor struct{}

// Execute runs cmd and captures stdout and stderr separately
func (DirectExecutor) Execute(ctx context.Context, cmd Command) (ExecResult, error) {
	result := ExecResult{ExitCode: -1}

	execCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	execCmd := exec.CommandContext(execCtx, cmd.Binary, cmd.Args...)
	execCmd.Dir = cmd.Dir
	// Bound the wait for output pipes held open by orphaned children after a kill
	execCmd.WaitDelay = 2 * time.Second

	var stdoutBuf, stderrBuf bytes.Buffer
	execCmd.Stdout = &stdoutBuf
	execCmd.Stderr = &stderrBuf

	start := time.Now()
	err := execCmd.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()

	if err == nil {
		result.ExitCode = 0
		return result, nil
	}

	// Killed by timeout or cancellation
	if ctxErr := execCtx.Err(); ctxErr != nil {
		return result, fmt.Errorf("%s killed: %w", cmd.Binary, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	return result, fmt.Errorf("failed to run %s: %w", cmd.Binary, err)
}
