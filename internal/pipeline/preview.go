package pipeline

import (
	"fmt"
	"go-insight-pipeline/internal/model"
	"go-insight-pipeline/pkg/utils"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	previewColumns   = 6
	previewCellWidth = 15
)

var (
	bannerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Progress writes human-oriented progress output to the diagnostic stream
type Progress struct {
	w io.Writer
}

// NewProgress returns a Progress writing to w; nil discards everything
func NewProgress(w io.Writer) *Progress {
	if w == nil {
		w = io.Discard
	}
	return &Progress{w: w}
}

// Banner prints a title between two rules of the given width
func (p *Progress) Banner(title string, width int) {
	rule := strings.Repeat("=", width)
	fmt.Fprintf(p.w, "\n%s\n%s\n%s\n", rule, bannerStyle.Render(title), rule)
}

// Printf writes a free-form progress line
func (p *Progress) Printf(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format, args...)
}

// Warn writes a highlighted diagnostic line
func (p *Progress) Warn(format string, args ...interface{}) {
	fmt.Fprintln(p.w, warningStyle.Render(fmt.Sprintf(format, args...)))
}

// Table previews the first rows of a result set, at most six columns wide
func (p *Progress) Table(rs model.ResultSet, title string, limit int) {
	if rs.Empty() {
		fmt.Fprintf(p.w, "No data available for %s\n", title)
		return
	}

	fmt.Fprintf(p.w, "\n%s:\n%s\n", titleStyle.Render(title), strings.Repeat("-", 80))

	headers := rs.Columns
	if len(headers) > previewColumns {
		headers = headers[:previewColumns]
	}

	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = cell(h)
	}
	headerLine := strings.Join(cells, " | ")
	fmt.Fprintln(p.w, headerStyle.Render(headerLine))
	fmt.Fprintln(p.w, strings.Repeat("-", len(headerLine)))

	for _, row := range rs.Head(limit) {
		for i, h := range headers {
			cells[i] = cell(utils.Text(row[h], ""))
		}
		fmt.Fprintln(p.w, strings.Join(cells, " | "))
	}
}

// cell truncates and pads s to the preview cell width
func cell(s string) string {
	r := []rune(s)
	if len(r) > previewCellWidth {
		r = r[:previewCellWidth]
	}
	return string(r) + strings.Repeat(" ", previewCellWidth-len(r))
}
