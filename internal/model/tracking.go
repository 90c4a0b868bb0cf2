package model

import "time"

// QueryOutcome records how one analysis query went
type QueryOutcome struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      string        `json:"status"` // ok, empty, no_payload, failed
	Rows        int           `json:"rows"`
	ExitCode    int           `json:"exit_code"`
	Error       string        `json:"error,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// RunSummary is what a finished pipeline run reports back
type RunSummary struct {
	RunID           string         `json:"run_id"`
	Date            string         `json:"date"`
	Status          string         `json:"status"`
	StartTime       time.Time      `json:"start_time"`
	EndTime         time.Time      `json:"end_time"`
	Queries         []QueryOutcome `json:"queries"`
	Files           []FileResult   `json:"files"`
	Insights        []string       `json:"insights"`
	Recommendations []string       `json:"recommendations"`
	ReportPath      string         `json:"report_path,omitempty"`
}

// SucceededQueries counts queries that produced usable data
func (s *RunSummary) SucceededQueries() int {
	n := 0
	for _, q := range s.Queries {
		if q.Status == QueryOK {
			n++
		}
	}
	return n
}

// FailedFiles counts output files that could not be written
func (s *RunSummary) FailedFiles() int {
	n := 0
	for _, f := range s.Files {
		if !f.Success {
			n++
		}
	}
	return n
}
