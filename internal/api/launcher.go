package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-insight-pipeline/internal/api/handler"
	"go-insight-pipeline/internal/app"
	"go-insight-pipeline/internal/model"
	"go-insight-pipeline/internal/pipeline"
	"go-insight-pipeline/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BuildFunc resolves per-run overrides into a spec and pipeline options
type BuildFunc func(o app.Overrides) (model.RunSpec, pipeline.Options, error)

// Launcher runs one pipeline at a time in the background
type Launcher struct {
	ctx    context.Context
	build  BuildFunc
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	latest  *pipeline.RunTracker
	wg      sync.WaitGroup
}

// NewLauncher returns a launcher whose runs stop when ctx is cancelled
func NewLauncher(ctx context.Context, build BuildFunc, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{ctx: ctx, build: build, logger: logger}
}

// Start launches a run unless one is still executing
func (l *Launcher) Start(o app.Overrides) (model.RunSummary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return model.RunSummary{}, handler.ErrRunInProgress
	}

	spec, opts, err := l.build(o)
	if err != nil {
		return model.RunSummary{}, fmt.Errorf("%w: %v", handler.ErrInvalidSpec, err)
	}

	runID := uuid.New().String()
	date := time.Now().Format("2006-01-02")
	if store.Enabled() {
		if err := store.SaveRun(runID, date, spec); err != nil {
			return model.RunSummary{}, fmt.Errorf("failed to save run: %w", err)
		}
	}

	tracker := pipeline.NewRunTracker(runID, date, opts.Recorder, opts.Logger)
	opts.Tracker = tracker
	l.latest = tracker
	l.running = true

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		summary, err := pipeline.Run(l.ctx, opts)
		if err != nil {
			l.logger.Error("run failed", zap.String("run_id", runID), zap.Error(err))
			if store.Enabled() {
				store.SaveRunError(runID, err)
			}
		} else {
			l.logger.Info("run finished",
				zap.String("run_id", runID),
				zap.String("status", summary.Status),
				zap.Int("queries_ok", summary.SucceededQueries()))
		}

		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	l.logger.Info("run started", zap.String("run_id", runID), zap.String("variant", spec.Variant))
	return tracker.Snapshot(), nil
}

// Latest returns the most recently started run
func (l *Launcher) Latest() (model.RunSummary, bool) {
	l.mu.Lock()
	tracker := l.latest
	l.mu.Unlock()
	if tracker == nil {
		return model.RunSummary{}, false
	}
	return tracker.Snapshot(), true
}

// Wait blocks until the background run, if any, has returned
func (l *Launcher) Wait() {
	l.wg.Wait()
}
