package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-insight-pipeline/internal/api"
	"go-insight-pipeline/internal/app"
	"go-insight-pipeline/internal/config"
	"go-insight-pipeline/internal/logging"

	"github.com/spf13/cobra"
)

func main() {
	var configPath, addr string
	var verbose bool

	cmd := &cobra.Command{
		Use:          "pipeline-api",
		Short:        "Serve the run history API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			logger, err := logging.New(logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Verbose: verbose})
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			closeHistory := app.OpenHistory(cfg, logger)
			defer closeHistory()

			return api.Serve(ctx, cfg, logger)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "pipeline.yaml", "Config file (missing file = defaults)")
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
