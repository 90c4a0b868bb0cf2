package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-insight-pipeline/internal/app"
	"go-insight-pipeline/internal/model"
	"go-insight-pipeline/internal/pipeline"
	"go-insight-pipeline/internal/store"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runFlags struct {
	variant      string
	output       string
	format       string
	threshold    string
	fixedPercent float64
	trends       bool
	analyses     []string
}

// runCmd executes one analysis run
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every analysis query and write the report",
	Long: `Executes the analysis queries of the selected variant one after another,
prints a preview of each result, generates insights and recommendations, and
writes one data file per non-empty result plus the markdown report.

Failed queries are reported and skipped; the command only fails when the run
cannot start.`,
	Args: cobra.NoArgs,
	RunE: runPipeline,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.variant, "variant", "", "Report variant: simple or full")
	f.StringVarP(&runFlags.output, "output", "o", "", "Output directory")
	f.StringVar(&runFlags.format, "format", "", "Data file format: csv or json")
	f.StringVar(&runFlags.threshold, "threshold", "", "High-conversion threshold: median or fixed")
	f.Float64Var(&runFlags.fixedPercent, "fixed-percent", 0, "Cutoff for the fixed threshold")
	f.BoolVar(&runFlags.trends, "trends", false, "Include the conversion trend")
	f.StringSliceVar(&runFlags.analyses, "analysis", nil, "Run only these analyses (repeatable)")
}

func runOverrides(cmd *cobra.Command) app.Overrides {
	o := app.Overrides{
		Variant:   runFlags.variant,
		OutputDir: runFlags.output,
		Format:    runFlags.format,
		Threshold: runFlags.threshold,
		Analyses:  runFlags.analyses,
	}
	if cmd.Flags().Changed("fixed-percent") {
		v := runFlags.fixedPercent
		o.FixedPercent = &v
	}
	if cmd.Flags().Changed("trends") {
		v := runFlags.trends
		o.IncludeTrends = &v
	}
	return o
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	spec, err := app.ResolveSpec(cfg, runOverrides(cmd))
	if err != nil {
		return err
	}

	closeHistory := app.OpenHistory(cfg, logger)
	defer closeHistory()

	runID := uuid.New().String()
	date := time.Now().Format("2006-01-02")
	if store.Enabled() {
		if err := store.SaveRun(runID, date, spec); err != nil {
			logger.Warn("run not registered in history", zap.Error(err))
		}
	}

	progress := pipeline.NewProgress(os.Stderr)
	opts, err := app.RunOptions(cfg, spec, logger, progress)
	if err != nil {
		return err
	}
	opts.RunID = runID
	opts.Date = date

	summary, err := pipeline.Run(ctx, opts)
	if err != nil {
		return err
	}
	printRunSummary(cmd, summary)
	return nil
}

func printRunSummary(cmd *cobra.Command, s *model.RunSummary) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s %s in %s\n", s.RunID, s.Status, s.EndTime.Sub(s.StartTime).Round(time.Millisecond))
	fmt.Fprintf(out, "Queries: %d of %d returned data\n", s.SucceededQueries(), len(s.Queries))
	for _, q := range s.Queries {
		if q.Error != "" {
			fmt.Fprintf(out, "  ❌ %s: %s\n", q.Name, q.Error)
		}
	}
	written := len(s.Files) - s.FailedFiles()
	fmt.Fprintf(out, "Files: %s written, %s failed\n", humanize.Comma(int64(written)), humanize.Comma(int64(s.FailedFiles())))
	if s.ReportPath != "" {
		fmt.Fprintf(out, "Report: %s\n", s.ReportPath)
	}
}
