package model

import (
	"sort"
	"time"
)

// Record is one row of a query result: column name -> value.
// Numbers keep their JSON text as json.Number; strings, bools and nil pass through.
type Record map[string]interface{}

// ResultSet is the tabular output of a single query
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    []Record `json:"rows"`
}

// NewResultSet builds a ResultSet from rows, deriving the column list from
// the union of record keys (sorted, since map order is not stable).
func NewResultSet(rows []Record) ResultSet {
	seen := make(map[string]bool)
	var columns []string
	for _, row := range rows {
		for key := range row {
			if !seen[key] {
				seen[key] = true
				columns = append(columns, key)
			}
		}
	}
	sort.Strings(columns)
	return ResultSet{Columns: columns, Rows: rows}
}

// Len returns the number of rows
func (rs ResultSet) Len() int { return len(rs.Rows) }

// Empty reports whether the result set carries no rows
func (rs ResultSet) Empty() bool { return len(rs.Rows) == 0 }

// Head returns at most n leading rows
func (rs ResultSet) Head(n int) []Record {
	if n < 0 || n >= len(rs.Rows) {
		return rs.Rows
	}
	return rs.Rows[:n]
}

// FileResult represents the outcome of writing one output file
type FileResult struct {
	Name      string    `json:"name"`   // result-set name or "report"
	Format    string    `json:"format"` // "csv", "json", "markdown"
	Path      string    `json:"path"`
	Rows      int       `json:"rows"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	WrittenAt time.Time `json:"written_at"`
}
