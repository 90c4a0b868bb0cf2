// Package report persists result sets and the narrative report of a run.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"go-insight-pipeline/internal/insight"
	"go-insight-pipeline/internal/model"
	"go-insight-pipeline/pkg/utils"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"go.uber.org/zap"
)

// Data file formats
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// DefaultPrefix names the narrative file: <prefix>_<date>.md
const DefaultPrefix = "visitor_revenue_report"

// DefaultTitle heads the narrative
const DefaultTitle = "Visitor-to-Revenue Analysis"

// Options configures a Writer
type Options struct {
	Dir          string      // output directory, created if absent
	Format       string      // csv or json
	Prefix       string      // narrative file prefix
	Date         string      // YYYY-MM-DD stamp used in every file name
	Title        string      // narrative heading
	Organization string      // optional name mentioned in the heading and summary
	Logger       *zap.Logger // nil disables logging
	Out          io.Writer   // progress lines; nil discards
}

// Summary lists every file a Persist call attempted
type Summary struct {
	Files      []model.FileResult `json:"files"`
	ReportPath string             `json:"report_path,omitempty"`
}

// Failed counts files that could not be written
func (s Summary) Failed() int {
	n := 0
	for _, f := range s.Files {
		if !f.Success {
			n++
		}
	}
	return n
}

// Writer writes data files and the narrative report
type Writer struct {
	opts   Options
	output *utils.OutputManager
	logger *zap.Logger
	out    io.Writer
}

// NewWriter validates opts and fills defaults
func NewWriter(opts Options) (*Writer, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	opts.Format = strings.ToLower(opts.Format)
	if opts.Format == "" {
		opts.Format = FormatCSV
	}
	if opts.Format != FormatCSV && opts.Format != FormatJSON {
		return nil, fmt.Errorf("unsupported data format %q", opts.Format)
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Title == "" {
		opts.Title = DefaultTitle
	}
	if opts.Date == "" {
		opts.Date = time.Now().Format("2006-01-02")
	}

	w := &Writer{
		opts:   opts,
		output: utils.NewOutputManager(opts.Dir),
		logger: opts.Logger,
		out:    opts.Out,
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	if w.out == nil {
		w.out = io.Discard
	}
	return w, nil
}

// Persist writes one data file per stored result set, then the narrative.
// A failed file is recorded in the summary and the remaining files are
// still attempted.
func (w *Writer) Persist(store *model.ResultStore, res insight.Result) Summary {
	var summary Summary

	if err := w.output.EnsureOutputDirExists(); err != nil {
		w.logger.Error("output directory unavailable", zap.String("dir", w.opts.Dir), zap.Error(err))
	}

	for _, name := range store.Names() {
		rs, _ := store.Get(name)
		if rs.Empty() {
			continue
		}
		summary.Files = append(summary.Files, w.writeData(name, rs))
	}

	narrative := w.writeNarrative(res)
	summary.Files = append(summary.Files, narrative)
	if narrative.Success {
		summary.ReportPath = narrative.Path
	}
	return summary
}

// ------------------- Data files -------------------

func (w *Writer) writeData(name string, rs model.ResultSet) model.FileResult {
	path := w.output.DatedFilePath(name, w.opts.Date, w.opts.Format)

	var (
		content []byte
		err     error
	)
	switch w.opts.Format {
	case FormatJSON:
		content, err = encodeJSON(rs)
	default:
		content, err = encodeCSV(rs)
	}
	if err == nil {
		err = writeAtomic(path, content)
	}

	result := model.FileResult{
		Name:      name,
		Format:    w.opts.Format,
		Path:      path,
		Rows:      rs.Len(),
		Success:   err == nil,
		WrittenAt: time.Now(),
	}
	if err != nil {
		result.Error = err.Error()
		w.logger.Error("data file not written", zap.String("name", name), zap.String("path", path), zap.Error(err))
		fmt.Fprintf(w.out, "❌ Failed to save %s: %v\n", name, err)
		return result
	}

	w.logger.Debug("data file written", zap.String("name", name), zap.String("path", path), zap.Int("rows", rs.Len()))
	fmt.Fprintf(w.out, "Saved %s to %s\n", name, path)
	return result
}

// encodeCSV writes the columns as header, then one line per record
func encodeCSV(rs model.ResultSet) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(rs.Columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	row := make([]string, len(rs.Columns))
	for _, rec := range rs.Rows {
		for i, col := range rs.Columns {
			row[i] = utils.Text(rec[col], "")
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// encodeJSON renders the records as an indented array
func encodeJSON(rs model.ResultSet) ([]byte, error) {
	rows := rs.Rows
	if rows == nil {
		rows = []model.Record{}
	}
	content, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(content, '\n'), nil
}

// ------------------- Narrative -------------------

var narrativeTemplate = template.Must(template.New("narrative").Parse(`# {{.Heading}} Report
Date: {{.Date}}

## Executive Summary

This analysis examines visitor-to-revenue conversion patterns across geographic regions, marketing channels, and customer segments{{if .Organization}} for {{.Organization}}{{end}}.

## Key Insights

{{range .Insights}}{{.}}
{{end}}
## Recommendations

{{range .Recommendations}}{{.}}
{{end}}
## Data Tables

See accompanying {{.FormatLabel}} files for detailed data.
`))

type narrativeData struct {
	Heading         string
	Date            string
	Organization    string
	Insights        []string
	Recommendations []string
	FormatLabel     string
}

// Narrative renders the markdown report for res
func (w *Writer) Narrative(res insight.Result) (string, error) {
	heading := w.opts.Title
	if w.opts.Organization != "" {
		heading = w.opts.Organization + " " + heading
	}
	var buf bytes.Buffer
	err := narrativeTemplate.Execute(&buf, narrativeData{
		Heading:         heading,
		Date:            w.opts.Date,
		Organization:    w.opts.Organization,
		Insights:        res.Insights,
		Recommendations: res.Recommendations,
		FormatLabel:     strings.ToUpper(w.opts.Format),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render narrative: %w", err)
	}
	return buf.String(), nil
}

func (w *Writer) writeNarrative(res insight.Result) model.FileResult {
	path := w.output.DatedFilePath(w.opts.Prefix, w.opts.Date, "md")
	result := model.FileResult{
		Name:      "report",
		Format:    "markdown",
		Path:      path,
		Rows:      len(res.Insights),
		WrittenAt: time.Now(),
	}

	content, err := w.Narrative(res)
	if err == nil {
		err = writeAtomic(path, []byte(content))
	}
	if err != nil {
		result.Error = err.Error()
		w.logger.Error("report not written", zap.String("path", path), zap.Error(err))
		fmt.Fprintf(w.out, "❌ Failed to save report: %v\n", err)
		return result
	}

	result.Success = true
	fmt.Fprintf(w.out, "\nReport saved to %s\n", path)
	return result
}

// writeAtomic writes content to a temp file in the target directory and
// renames it into place, so readers never observe a partial file.
func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}
