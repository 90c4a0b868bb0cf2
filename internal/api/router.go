// Package api exposes the run history over HTTP.
package api

import (
	"go-insight-pipeline/internal/api/handler"
	"go-insight-pipeline/pkg/router"

	"go.uber.org/zap"
)

// RegisterRoutes mounts the run history routes
func RegisterRoutes(r *router.Router, h *handler.RunHandler) {
	r.POST("/api/v1/runs", h.CreateRun)
	r.GET("/api/v1/runs", h.ListRuns)
	r.GET("/api/v1/runs/{id}", h.GetRun)
	r.GET("/api/v1/runs/{id}/queries", h.GetRunQueries)
	r.GET("/api/v1/runs/{id}/insights", h.GetRunInsights)
	r.GET("/api/v1/runs/{id}/files", h.GetRunFiles)
	r.GET("/api/v1/download/{id}/{file}", h.DownloadFile)
}

// NewRouter returns a router serving the history API for launcher
func NewRouter(launcher handler.RunLauncher, logger *zap.Logger) *router.Router {
	r := router.New(logger)
	RegisterRoutes(r, handler.NewRunHandler(launcher))
	return r
}
