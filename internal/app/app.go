// Package app assembles pipeline runs from configuration. It is shared by
// the CLI and the history API.
package app

import (
	"fmt"
	"strings"

	"go-insight-pipeline/internal/config"
	"go-insight-pipeline/internal/insight"
	"go-insight-pipeline/internal/model"
	"go-insight-pipeline/internal/pipeline"
	"go-insight-pipeline/internal/report"
	"go-insight-pipeline/internal/store"

	"go.uber.org/zap"
)

// Overrides are per-run changes on top of the configuration. Nil or empty
// fields keep the configured value.
type Overrides struct {
	Variant       string   `json:"variant,omitempty"`
	Analyses      []string `json:"analyses,omitempty"`
	OutputDir     string   `json:"output_dir,omitempty"`
	Format        string   `json:"format,omitempty"`
	Threshold     string   `json:"threshold,omitempty"`
	FixedPercent  *float64 `json:"fixed_percent,omitempty"`
	IncludeTrends *bool    `json:"include_trends,omitempty"`
}

// SpecFromConfig describes the run the configuration asks for
func SpecFromConfig(cfg *config.Config) model.RunSpec {
	return model.RunSpec{
		Variant:       cfg.Variant,
		Analyses:      append([]string(nil), cfg.Analyses...),
		OutputDir:     cfg.Report.OutputDir,
		Format:        cfg.Report.Format,
		Threshold:     cfg.Insights.Threshold,
		FixedPercent:  cfg.Insights.FixedPercent,
		IncludeTrends: cfg.Insights.IncludeTrends,
	}
}

// ResolveSpec applies overrides to the configured run. A different variant
// brings its own preset first; explicit overrides then win.
func ResolveSpec(cfg *config.Config, o Overrides) (model.RunSpec, error) {
	base := *cfg
	if o.Variant != "" && o.Variant != base.Variant {
		if err := base.ApplyVariant(strings.ToLower(o.Variant)); err != nil {
			return model.RunSpec{}, err
		}
	}
	spec := SpecFromConfig(&base)

	if len(o.Analyses) > 0 {
		spec.Analyses = append([]string(nil), o.Analyses...)
	}
	if o.OutputDir != "" {
		spec.OutputDir = o.OutputDir
	}
	if o.Format != "" {
		spec.Format = strings.ToLower(o.Format)
	}
	if o.Threshold != "" {
		spec.Threshold = strings.ToLower(o.Threshold)
	}
	if o.FixedPercent != nil {
		spec.FixedPercent = *o.FixedPercent
	}
	if o.IncludeTrends != nil {
		spec.IncludeTrends = *o.IncludeTrends
	}

	if err := checkSpec(spec); err != nil {
		return model.RunSpec{}, err
	}
	return spec, nil
}

func checkSpec(spec model.RunSpec) error {
	analyses, err := pipeline.Catalog(spec.Variant)
	if err != nil {
		return err
	}
	if _, err := pipeline.Select(analyses, spec.Analyses); err != nil {
		return err
	}
	if spec.OutputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	switch spec.Format {
	case report.FormatCSV, report.FormatJSON:
	default:
		return fmt.Errorf("unsupported format: %q", spec.Format)
	}
	if spec.FixedPercent < 0 {
		return fmt.Errorf("fixed percent must not be negative")
	}
	return policyFor(spec).Validate()
}

func policyFor(spec model.RunSpec) insight.Policy {
	return insight.Policy{
		Threshold:     spec.Threshold,
		FixedPercent:  spec.FixedPercent,
		IncludeTrends: spec.IncludeTrends,
	}
}

// RunOptions wires a resolved spec into pipeline options: the analysis
// catalog, the tool runner, the insight policy, the report writer, and the
// history recorder when a database is open.
func RunOptions(cfg *config.Config, spec model.RunSpec, logger *zap.Logger, progress *pipeline.Progress) (pipeline.Options, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := checkSpec(spec); err != nil {
		return pipeline.Options{}, err
	}

	catalog, err := pipeline.Catalog(spec.Variant)
	if err != nil {
		return pipeline.Options{}, err
	}
	analyses, err := pipeline.Select(catalog, spec.Analyses)
	if err != nil {
		return pipeline.Options{}, err
	}

	extractor, err := pipeline.NewExtractor(cfg.Tool.Extract)
	if err != nil {
		return pipeline.Options{}, err
	}
	runner := pipeline.NewRunner(pipeline.RunnerConfig{
		Command: cfg.Tool.Command,
		Args:    cfg.Tool.Args,
		Dir:     cfg.Tool.Dir,
		Timeout: cfg.ToolTimeout(),
	},
		pipeline.WithExtractor(extractor),
		pipeline.WithLogger(logger),
		pipeline.WithProgress(progress),
	)

	opts := pipeline.Options{
		Analyses: analyses,
		Runner:   runner,
		Policy:   policyFor(spec),
		Report: report.Options{
			Dir:          spec.OutputDir,
			Format:       spec.Format,
			Prefix:       cfg.Report.Prefix,
			Title:        cfg.Report.Title,
			Organization: cfg.Report.Organization,
		},
		Logger:   logger,
		Progress: progress,
	}
	if store.Enabled() {
		opts.Recorder = store.Recorder{}
	}
	return opts, nil
}

// OpenHistory opens the run history database when one is configured. The
// returned func closes it; a failure to open is logged and history stays off.
func OpenHistory(cfg *config.Config, logger *zap.Logger) func() {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.History.Database == "" {
		logger.Debug("run history disabled")
		return func() {}
	}
	if err := store.InitDB(cfg.History.Database); err != nil {
		logger.Warn("run history unavailable", zap.String("database", cfg.History.Database), zap.Error(err))
		return func() {}
	}
	if n, err := store.RecoverInterrupted(); err != nil {
		logger.Warn("could not recover interrupted runs", zap.Error(err))
	} else if n > 0 {
		logger.Info("marked interrupted runs as failed", zap.Int("runs", n))
	}
	logger.Debug("run history open", zap.String("database", cfg.History.Database))
	return func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing run history", zap.Error(err))
		}
	}
}
