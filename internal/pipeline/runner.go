package pipeline

import (
	"context"
	"errors"
	"fmt"
	"go-insight-pipeline/internal/model"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNoPayload means the tool exited cleanly but printed no decodable result
var ErrNoPayload = errors.New("no JSON array found in tool output")

// ExitError reports a tool run that ended with a non-zero exit status
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("query tool exited with status %d", e.Code)
	}
	return fmt.Sprintf("query tool exited with status %d: %s", e.Code, stderr)
}

// RunnerConfig describes how to invoke the external query tool.
// The query text is appended after Args.
type RunnerConfig struct {
	Command string
	Args    []string
	Dir     string
	Timeout time.Duration
}

// Runner executes queries through the external tool and extracts results
type Runner struct {
	cfg       RunnerConfig
	executor  Executor
	extractor Extractor
	logger    *zap.Logger
	progress  *Progress
}

// RunnerOption customizes a Runner
type RunnerOption func(*Runner)

// WithExecutor replaces the process executor
func WithExecutor(e Executor) RunnerOption {
	return func(r *Runner) { r.executor = e }
}

// WithExtractor replaces the output extractor
func WithExtractor(e Extractor) RunnerOption {
	return func(r *Runner) { r.extractor = e }
}

// WithLogger sets the structured logger
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithProgress sets the diagnostic progress writer
func WithProgress(p *Progress) RunnerOption {
	return func(r *Runner) {
		if p != nil {
			r.progress = p
		}
	}
}

// NewRunner creates a Runner for the given tool
func NewRunner(cfg RunnerConfig, opts ...RunnerOption) *Runner {
	r := &Runner{
		cfg:       cfg,
		executor:  DirectExecutor{},
		extractor: LineExtractor{},
		logger:    zap.NewNop(),
		progress:  NewProgress(nil),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes query and returns its rows.
// On any failure the returned ResultSet is empty and the error says why:
// *ExitError for a non-zero exit, ErrNoPayload for unparseable output, or a
// wrapped spawn error. A clean run that printed "[]" returns an empty set
// and a nil error.
func (r *Runner) Run(ctx context.Context, query, description string) (model.ResultSet, error) {
	r.progress.Banner("Executing: "+description, 60)

	args := append(append([]string{}, r.cfg.Args...), query)
	res, err := r.executor.Execute(ctx, Command{
		Binary:  r.cfg.Command,
		Args:    args,
		Dir:     r.cfg.Dir,
		Timeout: r.cfg.Timeout,
	})
	if err != nil {
		r.progress.Warn("Error: %v", err)
		r.logger.Warn("query tool could not run",
			zap.String("description", description),
			zap.Error(err))
		return model.ResultSet{}, err
	}

	if res.ExitCode != 0 {
		exitErr := &ExitError{Code: res.ExitCode, Stderr: res.Stderr}
		r.progress.Warn("Error executing query: %s", strings.TrimSpace(res.Stderr))
		r.logger.Warn("query failed",
			zap.String("description", description),
			zap.Int("exit_code", res.ExitCode),
			zap.Duration("duration", res.Duration))
		return model.ResultSet{}, exitErr
	}

	rs, ok := r.extractor.Extract(res.Stdout)
	if !ok {
		r.progress.Warn("No result payload in output for %s", description)
		r.logger.Warn("no payload in query output",
			zap.String("description", description),
			zap.Int("stdout_bytes", len(res.Stdout)))
		return model.ResultSet{}, ErrNoPayload
	}

	r.progress.Printf("Fetched %d rows in %s\n", rs.Len(), res.Duration.Round(time.Millisecond))
	r.logger.Debug("query completed",
		zap.String("description", description),
		zap.Int("rows", rs.Len()),
		zap.Duration("duration", res.Duration))
	return rs, nil
}
