package pipeline

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExecutor returns canned results keyed by query text
type fakeExecutor struct {
	results map[string]ExecResult
	errs    map[string]error
	calls   []Command
}

func (f *fakeExecutor) Execute(_ context.Context, cmd Command) (ExecResult, error) {
	f.calls = append(f.calls, cmd)
	query := cmd.Args[len(cmd.Args)-1]
	if err, ok := f.errs[query]; ok {
		return ExecResult{ExitCode: -1}, err
	}
	if res, ok := f.results[query]; ok {
		return res, nil
	}
	return ExecResult{ExitCode: 0, Stdout: "[]"}, nil
}

func TestRunner_Success(t *testing.T) {
	exec := &fakeExecutor{results: map[string]ExecResult{
		"SELECT 1": {Stdout: "> npm run\nlog line\n" + payloadLine + "\n"},
	}}
	var diag bytes.Buffer
	r := NewRunner(RunnerConfig{Command: "npm", Args: []string{"run", "snowflake", "--", "query"}, Dir: "/work"},
		WithExecutor(exec), WithProgress(NewProgress(&diag)))

	rs, err := r.Run(context.Background(), "SELECT 1", "Geography")
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Len())

	require.Len(t, exec.calls, 1)
	assert.Equal(t, "npm", exec.calls[0].Binary)
	assert.Equal(t, []string{"run", "snowflake", "--", "query", "SELECT 1"}, exec.calls[0].Args)
	assert.Equal(t, "/work", exec.calls[0].Dir)
	assert.Contains(t, diag.String(), "Executing: Geography")
}

func TestRunner_NonZeroExitIsAlwaysEmpty(t *testing.T) {
	exec := &fakeExecutor{results: map[string]ExecResult{
		"q": {ExitCode: 2, Stdout: payloadLine, Stderr: "auth expired\n"},
	}}
	r := NewRunner(RunnerConfig{Command: "tool"}, WithExecutor(exec))

	rs, err := r.Run(context.Background(), "q", "failing")
	assert.True(t, rs.Empty())

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Error(), "auth expired")
}

func TestRunner_NoPayload(t *testing.T) {
	exec := &fakeExecutor{results: map[string]ExecResult{
		"q": {Stdout: "connected\nquery finished\n"},
	}}
	r := NewRunner(RunnerConfig{Command: "tool"}, WithExecutor(exec))

	rs, err := r.Run(context.Background(), "q", "noisy")
	assert.True(t, rs.Empty())
	assert.ErrorIs(t, err, ErrNoPayload)
}

func TestRunner_SpawnError(t *testing.T) {
	spawnErr := errors.New("exec: \"tool\": executable file not found in $PATH")
	exec := &fakeExecutor{errs: map[string]error{"q": spawnErr}}
	r := NewRunner(RunnerConfig{Command: "tool"}, WithExecutor(exec))

	rs, err := r.Run(context.Background(), "q", "missing tool")
	assert.True(t, rs.Empty())
	assert.ErrorIs(t, err, spawnErr)
}

func TestRunner_EmptyArrayIsNotAnError(t *testing.T) {
	r := NewRunner(RunnerConfig{Command: "tool"}, WithExecutor(&fakeExecutor{}))
	rs, err := r.Run(context.Background(), "anything", "empty")
	require.NoError(t, err)
	assert.True(t, rs.Empty())
}

func TestRunner_UsesConfiguredExtractor(t *testing.T) {
	exec := &fakeExecutor{results: map[string]ExecResult{
		"q": {Stdout: "[\n  {\"a\": 1}\n]\n"},
	}}

	_, err := NewRunner(RunnerConfig{Command: "tool"}, WithExecutor(exec)).Run(context.Background(), "q", "line")
	assert.ErrorIs(t, err, ErrNoPayload)

	rs, err := NewRunner(RunnerConfig{Command: "tool"}, WithExecutor(exec), WithExtractor(BlockExtractor{})).
		Run(context.Background(), "q", "block")
	require.NoError(t, err)
	assert.Equal(t, 1, rs.Len())
}

func TestDirectExecutor(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	ctx := context.Background()
	exec := DirectExecutor{}

	res, err := exec.Execute(ctx, Command{Binary: "sh", Args: []string{"-c", "echo out; echo err 1>&2"}})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)

	res, err = exec.Execute(ctx, Command{Binary: "sh", Args: []string{"-c", "exit 3"}})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)

	_, err = exec.Execute(ctx, Command{Binary: "definitely-not-a-real-binary-xyz"})
	assert.Error(t, err)

	_, err = exec.Execute(ctx, Command{Binary: "sh", Args: []string{"-c", "exec sleep 5"}, Timeout: 50 * time.Millisecond})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDirectExecutor_RunsInDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()
	res, err := DirectExecutor{}.Execute(context.Background(), Command{Binary: "sh", Args: []string{"-c", "pwd -P"}, Dir: dir})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Stdout)
}
