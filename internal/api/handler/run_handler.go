package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"go-insight-pipeline/internal/app"
	"go-insight-pipeline/internal/model"
	"go-insight-pipeline/internal/store"
	"go-insight-pipeline/pkg/router"
	"go-insight-pipeline/pkg/utils"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	// ErrRunInProgress rejects a start while another run is executing
	ErrRunInProgress = errors.New("a run is already in progress")
	// ErrInvalidSpec rejects a start whose overrides cannot be resolved
	ErrInvalidSpec = errors.New("invalid run request")
)

// RunLauncher starts runs in the background and exposes the latest one
type RunLauncher interface {
	Start(o app.Overrides) (model.RunSummary, error)
	// Latest returns the most recently started run, if any
	Latest() (model.RunSummary, bool)
}

// RunHandler serves the run history API
type RunHandler struct {
	launcher RunLauncher
}

// NewRunHandler returns handlers backed by launcher and the history store
func NewRunHandler(launcher RunLauncher) *RunHandler {
	return &RunHandler{launcher: launcher}
}

// ------------------- Runs -------------------

// CreateRun starts a new pipeline run
func (h *RunHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var o app.Overrides
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
			http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
			return
		}
	}

	summary, err := h.launcher.Start(o)
	switch {
	case errors.Is(err, ErrRunInProgress):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, ErrInvalidSpec):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, "Failed to start run", http.StatusInternalServerError)
		return
	}

	resp := map[string]interface{}{
		"message":    "Run started",
		"run_id":     summary.RunID,
		"date":       summary.Date,
		"status":     summary.Status,
		"created_at": time.Now().UTC(),
	}
	writeJSON(w, http.StatusAccepted, resp)
}

// ListRuns returns the run history, newest first
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if !requireHistory(w) {
		return
	}
	runs, err := store.ListRuns()
	if err != nil {
		http.Error(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []store.RunRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns one run. A run still executing also reports live progress.
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := router.Param(r, "id")

	resp := map[string]interface{}{"run_id": runID}
	found := false

	if live, ok := h.live(runID); ok {
		resp["progress"] = live
		found = true
	}
	if store.Enabled() {
		run, err := store.GetRun(runID)
		switch {
		case err == nil:
			resp["run"] = run
			found = true
			errs, err := store.GetRunErrors(runID)
			if err != nil {
				http.Error(w, "Failed to load run errors", http.StatusInternalServerError)
				return
			}
			resp["errors"] = errs
		case !errors.Is(err, store.ErrNotFound):
			http.Error(w, "Failed to load run", http.StatusInternalServerError)
			return
		}
	}
	if !found {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRunQueries returns the query outcomes of a run
func (h *RunHandler) GetRunQueries(w http.ResponseWriter, r *http.Request) {
	runID := router.Param(r, "id")
	if live, ok := h.live(runID); ok && !store.Enabled() {
		writeJSON(w, http.StatusOK, map[string]interface{}{"run_id": runID, "queries": live.Queries, "count": len(live.Queries)})
		return
	}
	if !requireRun(w, runID) {
		return
	}
	queries, err := store.GetRunQueries(runID)
	if err != nil {
		http.Error(w, "Failed to load queries", http.StatusInternalServerError)
		return
	}
	if queries == nil {
		queries = []model.QueryOutcome{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":    runID,
		"queries":   queries,
		"count":     len(queries),
		"succeeded": countSucceeded(queries),
	})
}

// GetRunInsights returns the narrative lines of a run
func (h *RunHandler) GetRunInsights(w http.ResponseWriter, r *http.Request) {
	runID := router.Param(r, "id")
	if live, ok := h.live(runID); ok && !store.Enabled() {
		writeJSON(w, http.StatusOK, map[string]interface{}{"run_id": runID, "insights": live.Insights, "recommendations": live.Recommendations})
		return
	}
	if !requireRun(w, runID) {
		return
	}
	insights, err := store.GetRunLines(runID, store.LineInsight)
	if err != nil {
		http.Error(w, "Failed to load insights", http.StatusInternalServerError)
		return
	}
	recs, err := store.GetRunLines(runID, store.LineRecommendation)
	if err != nil {
		http.Error(w, "Failed to load recommendations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id":          runID,
		"insights":        insights,
		"recommendations": recs,
	})
}

// ------------------- Files -------------------

type fileInfo struct {
	model.FileResult
	Size      int64  `json:"size,omitempty"`
	SizeHuman string `json:"size_human,omitempty"`
	Type      string `json:"type"`
	Download  string `json:"download,omitempty"`
}

// GetRunFiles lists the files a run attempted to write
func (h *RunHandler) GetRunFiles(w http.ResponseWriter, r *http.Request) {
	runID := router.Param(r, "id")
	if !requireRun(w, runID) {
		return
	}
	files, err := store.GetRunFiles(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve files", http.StatusInternalServerError)
		return
	}

	out := make([]fileInfo, 0, len(files))
	for _, f := range files {
		om := utils.NewOutputManager(filepath.Dir(f.Path))
		info := fileInfo{FileResult: f, Type: om.GetFileType(f.Path)}
		if f.Success {
			if size, err := om.GetFileSize(f.Path); err == nil {
				info.Size = size
				info.SizeHuman = humanize.Bytes(uint64(size))
			}
			info.Download = fmt.Sprintf("/api/v1/download/%s/%s", runID, filepath.Base(f.Path))
		}
		out = append(out, info)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"files":  out,
		"count":  len(out),
	})
}

// DownloadFile serves an output file that the run recorded as written
func (h *RunHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	runID := router.Param(r, "id")
	fileName := router.Param(r, "file")
	if !requireRun(w, runID) {
		return
	}

	files, err := store.GetRunFiles(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve files", http.StatusInternalServerError)
		return
	}
	filePath := ""
	for _, f := range files {
		if !f.Success || filepath.Base(f.Path) != fileName {
			continue
		}
		om := utils.NewOutputManager(filepath.Dir(f.Path))
		if resolved, err := om.ResolveFile(fileName); err == nil {
			if _, err := om.GetFileSize(resolved); err == nil {
				filePath = resolved
			}
		}
		break
	}
	if filePath == "" {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}

	// Set appropriate headers for file download
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", fileName))
	w.Header().Set("Content-Type", "application/octet-stream")
	http.ServeFile(w, r, filePath)
}

// ------------------- Helpers -------------------

func (h *RunHandler) live(runID string) (model.RunSummary, bool) {
	if h.launcher == nil {
		return model.RunSummary{}, false
	}
	latest, ok := h.launcher.Latest()
	if !ok || latest.RunID != runID {
		return model.RunSummary{}, false
	}
	return latest, true
}

func requireHistory(w http.ResponseWriter) bool {
	if !store.Enabled() {
		http.Error(w, "Run history is disabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func requireRun(w http.ResponseWriter, runID string) bool {
	if !requireHistory(w) {
		return false
	}
	if _, err := store.GetRun(runID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to load run", http.StatusInternalServerError)
		}
		return false
	}
	return true
}

func countSucceeded(queries []model.QueryOutcome) int {
	n := 0
	for _, q := range queries {
		if q.Status == model.QueryOK || q.Status == model.QueryEmpty {
			n++
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
