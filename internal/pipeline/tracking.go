package pipeline

import (
	"errors"
	"go-insight-pipeline/internal/model"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Recorder persists run progress as it happens.
// Errors are logged by the tracker and never stop a run.
type Recorder interface {
	RunStarted(summary model.RunSummary) error
	QueryFinished(runID string, outcome model.QueryOutcome) error
	FileWritten(runID string, file model.FileResult) error
	RunFinished(summary model.RunSummary) error
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) RunStarted(model.RunSummary) error { return nil }
func (NopRecorder) QueryFinished(string, model.QueryOutcome) error { return nil }
func (NopRecorder) FileWritten(string, model.FileResult) error { return nil }
func (NopRecorder) RunFinished(model.RunSummary) error { return nil }

// ------------------- Run Tracker -------------------

// RunTracker accumulates the outcome of one run and forwards each step to
// the Recorder. Snapshot may be called from other goroutines while the run
// is in progress.
type RunTracker struct {
	mu       sync.RWMutex
	summary  model.RunSummary
	recorder Recorder
	logger   *zap.Logger
}

// NewRunTracker creates a tracker for runID in the pending state
func NewRunTracker(runID, date string, recorder Recorder, logger *zap.Logger) *RunTracker {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RunTracker{
		summary: model.RunSummary{
			RunID:  runID,
			Date:   date,
			Status: model.RunPending,
		},
		recorder: recorder,
		logger:   logger.With(zap.String("run_id", runID)),
	}
}

// Start marks the run as running
func (rt *RunTracker) Start() {
	rt.mu.Lock()
	rt.summary.Status = model.RunRunning
	rt.summary.StartTime = time.Now()
	snapshot := rt.copyLocked()
	rt.mu.Unlock()

	rt.check("run start", rt.recorder.RunStarted(snapshot))
}

// RecordQuery stores the outcome of one analysis query
func (rt *RunTracker) RecordQuery(outcome model.QueryOutcome) {
	rt.mu.Lock()
	rt.summary.Queries = append(rt.summary.Queries, outcome)
	runID := rt.summary.RunID
	rt.mu.Unlock()

	rt.check("query outcome", rt.recorder.QueryFinished(runID, outcome))
}

// RecordFiles stores the outcome of every written file
func (rt *RunTracker) RecordFiles(files []model.FileResult, reportPath string) {
	rt.mu.Lock()
	rt.summary.Files = append(rt.summary.Files, files...)
	if reportPath != "" {
		rt.summary.ReportPath = reportPath
	}
	runID := rt.summary.RunID
	rt.mu.Unlock()

	for _, f := range files {
		rt.check("file outcome", rt.recorder.FileWritten(runID, f))
	}
}

// RecordNarrative stores the generated insight and recommendation lines
func (rt *RunTracker) RecordNarrative(insights, recommendations []string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.summary.Insights = insights
	rt.summary.Recommendations = recommendations
}

// Complete marks the run as completed
func (rt *RunTracker) Complete() model.RunSummary {
	return rt.finish(model.RunCompleted, nil)
}

// Fail marks the run as failed because of err
func (rt *RunTracker) Fail(err error) model.RunSummary {
	return rt.finish(model.RunFailed, err)
}

func (rt *RunTracker) finish(status string, cause error) model.RunSummary {
	rt.mu.Lock()
	rt.summary.Status = status
	rt.summary.EndTime = time.Now()
	snapshot := rt.copyLocked()
	rt.mu.Unlock()

	if cause != nil {
		rt.logger.Error("run failed", zap.Error(cause))
	} else {
		rt.logger.Info("run completed",
			zap.Int("queries_ok", snapshot.SucceededQueries()),
			zap.Int("queries", len(snapshot.Queries)),
			zap.Int("files_failed", snapshot.FailedFiles()),
			zap.Duration("duration", snapshot.EndTime.Sub(snapshot.StartTime)))
	}
	rt.check("run finish", rt.recorder.RunFinished(snapshot))
	return snapshot
}

// Snapshot returns a copy of the current summary
func (rt *RunTracker) Snapshot() model.RunSummary {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.copyLocked()
}

func (rt *RunTracker) copyLocked() model.RunSummary {
	s := rt.summary
	s.Queries = append([]model.QueryOutcome(nil), rt.summary.Queries...)
	s.Files = append([]model.FileResult(nil), rt.summary.Files...)
	s.Insights = append([]string(nil), rt.summary.Insights...)
	s.Recommendations = append([]string(nil), rt.summary.Recommendations...)
	return s
}

func (rt *RunTracker) check(step string, err error) {
	if err != nil {
		rt.logger.Warn("run history not updated", zap.String("step", step), zap.Error(err))
	}
}

// ------------------- Outcome classification -------------------

// queryOutcome turns a runner result into a recorded outcome
func queryOutcome(a model.Analysis, rs model.ResultSet, err error, started time.Time) model.QueryOutcome {
	outcome := model.QueryOutcome{
		Name:        a.Name,
		Description: a.Description,
		Rows:        rs.Len(),
		StartedAt:   started,
		Duration:    time.Since(started),
	}

	var exitErr *ExitError
	switch {
	case err == nil && rs.Empty():
		outcome.Status = model.QueryEmpty
	case err == nil:
		outcome.Status = model.QueryOK
	case errors.Is(err, ErrNoPayload):
		outcome.Status = model.QueryNoPayload
		outcome.Error = err.Error()
	case errors.As(err, &exitErr):
		outcome.Status = model.QueryFailed
		outcome.ExitCode = exitErr.Code
		outcome.Error = err.Error()
	default:
		outcome.Status = model.QueryFailed
		outcome.ExitCode = -1
		outcome.Error = err.Error()
	}
	return outcome
}
