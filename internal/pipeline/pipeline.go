// Package pipeline runs the analysis queries of a report and turns their
// results into insights and output files.
package pipeline

import (
	"context"
	"fmt"
	"go-insight-pipeline/internal/insight"
	"go-insight-pipeline/internal/model"
	"go-insight-pipeline/internal/report"
	"go-insight-pipeline/pkg/utils"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QueryRunner executes one query and returns its rows
type QueryRunner interface {
	Run(ctx context.Context, query, description string) (model.ResultSet, error)
}

// Options configures a single pipeline run
type Options struct {
	RunID    string           // generated when empty
	Date     string           // YYYY-MM-DD; today when empty
	Analyses []model.Analysis // executed in order
	Runner   QueryRunner
	Policy   insight.Policy
	Report   report.Options // Date, Logger and Out are filled in by Run
	Recorder Recorder       // run history; nil disables it
	Tracker  *RunTracker    // optional pre-built tracker, e.g. for status polling
	Logger   *zap.Logger
	Progress *Progress
}

// ------------------- Pipeline Runner -------------------

// Run executes every analysis sequentially, generates insights over the
// collected results, and persists data files plus the narrative report.
// Query and file failures are recorded in the summary and never abort the
// run; an error is returned only when the run cannot start or is cancelled.
func Run(ctx context.Context, opts Options) (*model.RunSummary, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	progress := opts.Progress
	if progress == nil {
		progress = NewProgress(nil)
	}
	runID, date := opts.RunID, opts.Date
	tracker := opts.Tracker
	if tracker != nil {
		snap := tracker.Snapshot()
		runID, date = snap.RunID, snap.Date
	}
	if runID == "" {
		runID = uuid.New().String()
	}
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if tracker == nil {
		tracker = NewRunTracker(runID, date, opts.Recorder, logger)
	}
	logger = logger.With(zap.String("run_id", runID))
	tracker.Start()

	if opts.Runner == nil {
		err := fmt.Errorf("no query runner configured")
		summary := tracker.Fail(err)
		return &summary, err
	}

	reportOpts := opts.Report
	reportOpts.Date = date
	reportOpts.Logger = logger
	reportOpts.Out = progress.w
	writer, err := report.NewWriter(reportOpts)
	if err != nil {
		summary := tracker.Fail(err)
		return &summary, fmt.Errorf("invalid report options: %w", err)
	}
	if err := utils.NewOutputManager(reportOpts.Dir).EnsureOutputDirExists(); err != nil {
		summary := tracker.Fail(err)
		return &summary, err
	}

	logger.Info("run started", zap.Int("analyses", len(opts.Analyses)), zap.String("output_dir", reportOpts.Dir))
	progress.Banner("VISITOR-TO-REVENUE CONVERSION ANALYSIS", 80)

	// --- QUERY STAGE ---
	store := model.NewResultStore()
	for _, a := range opts.Analyses {
		if err := ctx.Err(); err != nil {
			summary := tracker.Fail(err)
			return &summary, fmt.Errorf("run cancelled: %w", err)
		}

		started := time.Now()
		rs, err := opts.Runner.Run(ctx, a.Query, a.Description)
		outcome := queryOutcome(a, rs, err, started)
		tracker.RecordQuery(outcome)

		if err != nil {
			logger.Warn("analysis produced no data",
				zap.String("analysis", a.Name),
				zap.String("status", outcome.Status),
				zap.Error(err))
			continue
		}
		if rs.Empty() {
			logger.Info("analysis returned no rows", zap.String("analysis", a.Name))
			continue
		}

		for _, problem := range ValidateResultSet(a, rs) {
			progress.Warn("⚠️  %s: %s", a.Name, problem)
			logger.Warn("result set does not match analysis", zap.String("analysis", a.Name), zap.String("problem", problem))
		}
		store.Put(a.Name, rs)
		progress.Table(rs, a.PreviewTitle, a.PreviewRows)
	}

	// --- INSIGHT STAGE ---
	engine := insight.New(opts.Policy)
	res := engine.Generate(store)
	tracker.RecordNarrative(res.Insights, res.Recommendations)
	printNarrative(progress, date, res)

	// --- EXPORT STAGE ---
	persisted := writer.Persist(store, res)
	tracker.RecordFiles(persisted.Files, persisted.ReportPath)
	if failed := persisted.Failed(); failed > 0 {
		logger.Warn("some output files were not written", zap.Int("failed", failed))
	}

	progress.Banner("ANALYSIS COMPLETE", 80)
	summary := tracker.Complete()
	return &summary, nil
}

// printNarrative shows the executive summary on the diagnostic stream
func printNarrative(p *Progress, date string, res insight.Result) {
	p.Banner("EXECUTIVE SUMMARY: VISITOR-TO-REVENUE ANALYSIS", 80)
	p.Printf("Analysis Date: %s\n", date)
	p.Printf("Analysis Period: Last 30-90 days\n")

	p.Printf("\n📊 KEY INSIGHTS:\n")
	for _, line := range res.Insights {
		p.Printf("%s\n", line)
	}

	p.Printf("\n🎯 RECOMMENDATIONS:\n")
	for _, line := range res.Recommendations {
		p.Printf("%s\n", line)
	}
}
