package store

import (
	"errors"
	"go-insight-pipeline/internal/model"
)

// Recorder writes pipeline progress into the run history tables
type Recorder struct{}

// RunStarted registers the run (if needed) and marks it running
func (Recorder) RunStarted(s model.RunSummary) error {
	return MarkRunStarted(s.RunID, s.Date, s.StartTime)
}

// QueryFinished stores one query outcome
func (Recorder) QueryFinished(runID string, q model.QueryOutcome) error {
	return SaveQueryOutcome(runID, q)
}

// FileWritten stores one output file outcome
func (Recorder) FileWritten(runID string, f model.FileResult) error {
	return SaveOutputFile(runID, f)
}

// RunFinished stores the narrative and the final status
func (Recorder) RunFinished(s model.RunSummary) error {
	var errs []error
	if err := SaveNarrative(s.RunID, s.Insights, s.Recommendations); err != nil {
		errs = append(errs, err)
	}
	for _, q := range s.Queries {
		if q.Error != "" {
			if err := SaveRunError(s.RunID, errors.New(q.Name+": "+q.Error)); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := MarkRunFinished(s.RunID, s.Status, s.ReportPath, s.EndTime); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
