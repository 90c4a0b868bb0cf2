// Package store keeps the history of pipeline runs in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"go-insight-pipeline/internal/model"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var db *sql.DB

// ErrNotFound is returned when a run id is unknown
var ErrNotFound = errors.New("run not found")

// Kinds of narrative lines kept per run
const (
	LineInsight        = "insight"
	LineRecommendation = "recommendation"
)

// RunRecord is one row of the runs table
type RunRecord struct {
	ID         string        `json:"id"`
	Date       string        `json:"date"`
	Status     string        `json:"status"`
	Spec       model.RunSpec `json:"spec"`
	ReportPath string        `json:"report_path,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	StartedAt  *time.Time    `json:"started_at,omitempty"`
	EndedAt    *time.Time    `json:"ended_at,omitempty"`
}

// Initialize DB connection
func InitDB(dbPath string) error {
	if dbPath == "" {
		return fmt.Errorf("database path is required")
	}
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		dsn += "?_busy_timeout=5000"
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return err
	}
	// One writer at a time; runs and API reads share this handle.
	conn.SetMaxOpenConns(1)

	// Create tables if not exists
	tables := []string{`
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		spec TEXT,
		date TEXT,
		status TEXT,
		report_path TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		started_at DATETIME,
		ended_at DATETIME
	);`, `
	CREATE TABLE IF NOT EXISTS run_queries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		name TEXT,
		description TEXT,
		status TEXT,
		row_count INTEGER,
		exit_code INTEGER,
		error_message TEXT,
		started_at DATETIME,
		duration_ms INTEGER
	);`, `
	CREATE TABLE IF NOT EXISTS run_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		name TEXT,
		format TEXT,
		path TEXT,
		row_count INTEGER,
		success BOOLEAN,
		error_message TEXT,
		written_at DATETIME
	);`, `
	CREATE TABLE IF NOT EXISTS run_lines (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		kind TEXT,
		position INTEGER,
		line TEXT
	);`, `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);`,
	}

	for _, stmt := range tables {
		if _, err := conn.Exec(stmt); err != nil {
			conn.Close()
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	db = conn
	return nil
}

// Close releases the database handle
func Close() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// Enabled reports whether InitDB has been called successfully
func Enabled() bool { return db != nil }

// ------------------- Runs -------------------

// SaveRun stores a new pending run
func SaveRun(runID, date string, spec model.RunSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = db.Exec(`INSERT INTO runs (id, spec, date, status, report_path, created_at, updated_at) VALUES (?, ?, ?, ?, '', ?, ?)`,
		runID, string(specJSON), date, model.RunPending, now, now)
	return err
}

// UpdateRunStatus updates run status
func UpdateRunStatus(runID string, status string) error {
	now := time.Now().UTC()
	res, err := db.Exec(`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// RecoverInterrupted marks runs left pending or running by a previous
// process as failed and returns how many were updated
func RecoverInterrupted() (int, error) {
	runs, err := ListRuns()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, run := range runs {
		if run.Status != model.RunPending && run.Status != model.RunRunning {
			continue
		}
		if err := UpdateRunStatus(run.ID, model.RunFailed); err != nil {
			return n, err
		}
		if err := SaveRunError(run.ID, errors.New("run interrupted before completion")); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// MarkRunStarted records the start of a run, creating the row when the run
// was not registered beforehand
func MarkRunStarted(runID, date string, startedAt time.Time) error {
	now := time.Now().UTC()
	_, err := db.Exec(`
	INSERT INTO runs (id, spec, date, status, report_path, created_at, updated_at, started_at)
	VALUES (?, '{}', ?, ?, '', ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at, started_at = excluded.started_at`,
		runID, date, model.RunRunning, now, now, startedAt.UTC())
	return err
}

// MarkRunFinished records the final status and report location of a run
func MarkRunFinished(runID, status, reportPath string, endedAt time.Time) error {
	now := time.Now().UTC()
	res, err := db.Exec(`UPDATE runs SET status = ?, report_path = ?, updated_at = ?, ended_at = ? WHERE id = ?`,
		status, reportPath, now, endedAt.UTC(), runID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// SaveRunError records an error for a run
func SaveRunError(runID string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, err.Error(), now)
	return e
}

// GetRunErrors returns the recorded errors of a run, oldest first
func GetRunErrors(runID string) ([]string, error) {
	rows, err := db.Query(`SELECT error_message FROM run_errors WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// ListRuns returns all runs, newest first
func ListRuns() ([]RunRecord, error) {
	rows, err := db.Query(`SELECT id, spec, date, status, report_path, created_at, updated_at, started_at, ended_at FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches a single run
func GetRun(runID string) (RunRecord, error) {
	row := db.QueryRow(`SELECT id, spec, date, status, report_path, created_at, updated_at, started_at, ended_at FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunRecord{}, ErrNotFound
	}
	return run, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (RunRecord, error) {
	var (
		run       RunRecord
		specJSON  string
		startedAt sql.NullTime
		endedAt   sql.NullTime
	)
	if err := s.Scan(&run.ID, &specJSON, &run.Date, &run.Status, &run.ReportPath,
		&run.CreatedAt, &run.UpdatedAt, &startedAt, &endedAt); err != nil {
		return RunRecord{}, err
	}
	if specJSON != "" {
		if err := json.Unmarshal([]byte(specJSON), &run.Spec); err != nil {
			return RunRecord{}, fmt.Errorf("corrupt spec for run %s: %w", run.ID, err)
		}
	}
	if startedAt.Valid {
		t := startedAt.Time
		run.StartedAt = &t
	}
	if endedAt.Valid {
		t := endedAt.Time
		run.EndedAt = &t
	}
	return run, nil
}

// ------------------- Queries and files -------------------

// SaveQueryOutcome records how one analysis query went
func SaveQueryOutcome(runID string, q model.QueryOutcome) error {
	_, err := db.Exec(`INSERT INTO run_queries (run_id, name, description, status, row_count, exit_code, error_message, started_at, duration_ms) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, q.Name, q.Description, q.Status, q.Rows, q.ExitCode, q.Error, q.StartedAt.UTC(), q.Duration.Milliseconds())
	return err
}

// GetRunQueries returns the query outcomes of a run in execution order
func GetRunQueries(runID string) ([]model.QueryOutcome, error) {
	rows, err := db.Query(`SELECT name, description, status, row_count, exit_code, error_message, started_at, duration_ms FROM run_queries WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.QueryOutcome
	for rows.Next() {
		var q model.QueryOutcome
		var durationMS int64
		if err := rows.Scan(&q.Name, &q.Description, &q.Status, &q.Rows, &q.ExitCode, &q.Error, &q.StartedAt, &durationMS); err != nil {
			return nil, err
		}
		q.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, q)
	}
	return out, rows.Err()
}

// SaveOutputFile records the outcome of one written file
func SaveOutputFile(runID string, f model.FileResult) error {
	_, err := db.Exec(`INSERT INTO run_files (run_id, name, format, path, row_count, success, error_message, written_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, f.Name, f.Format, f.Path, f.Rows, f.Success, f.Error, f.WrittenAt.UTC())
	return err
}

// GetRunFiles returns the files a run attempted to write
func GetRunFiles(runID string) ([]model.FileResult, error) {
	rows, err := db.Query(`SELECT name, format, path, row_count, success, error_message, written_at FROM run_files WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FileResult
	for rows.Next() {
		var f model.FileResult
		if err := rows.Scan(&f.Name, &f.Format, &f.Path, &f.Rows, &f.Success, &f.Error, &f.WrittenAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ------------------- Narrative -------------------

// SaveNarrative replaces the insight and recommendation lines of a run
func SaveNarrative(runID string, insights, recommendations []string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM run_lines WHERE run_id = ?`, runID); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO run_lines (run_id, kind, position, line) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for kind, lines := range map[string][]string{LineInsight: insights, LineRecommendation: recommendations} {
		for i, line := range lines {
			if _, err := stmt.Exec(runID, kind, i, line); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// GetRunLines returns the narrative lines of the given kind in order
func GetRunLines(runID, kind string) ([]string, error) {
	rows, err := db.Query(`SELECT line FROM run_lines WHERE run_id = ? AND kind = ? ORDER BY position`, runID, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
