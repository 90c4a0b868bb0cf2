package api

import (
	"context"

	"go-insight-pipeline/internal/app"
	"go-insight-pipeline/internal/config"
	"go-insight-pipeline/internal/model"
	"go-insight-pipeline/internal/pipeline"

	"go.uber.org/zap"
)

// Serve runs the history API on cfg.Server.Addr until ctx is cancelled,
// then waits for a run in flight to stop
func Serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	build := func(o app.Overrides) (model.RunSpec, pipeline.Options, error) {
		spec, err := app.ResolveSpec(cfg, o)
		if err != nil {
			return model.RunSpec{}, pipeline.Options{}, err
		}
		opts, err := app.RunOptions(cfg, spec, logger, pipeline.NewProgress(nil))
		return spec, opts, err
	}

	launcher := NewLauncher(ctx, build, logger)
	r := NewRouter(launcher, logger)
	for _, route := range r.Routes() {
		logger.Debug("route", zap.String("route", route))
	}

	err := r.Start(ctx, cfg.Server.Addr, cfg.ShutdownTimeout())
	launcher.Wait()
	return err
}
