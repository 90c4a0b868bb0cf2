package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go-insight-pipeline/internal/api"
	"go-insight-pipeline/internal/app"

	"github.com/spf13/cobra"
)

var serveAddr string

// serveCmd starts the run history API
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run history API",
	Long: `Starts the HTTP API for launching runs and browsing run history:

  POST /api/v1/runs                    start a run in the background
  GET  /api/v1/runs                    list runs
  GET  /api/v1/runs/{id}               run status
  GET  /api/v1/runs/{id}/queries       query outcomes
  GET  /api/v1/runs/{id}/insights      insights and recommendations
  GET  /api/v1/runs/{id}/files         written files
  GET  /api/v1/download/{id}/{file}    download a written file`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		closeHistory := app.OpenHistory(cfg, logger)
		defer closeHistory()

		return api.Serve(ctx, cfg, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
}
