package pipeline

import (
	"encoding/json"
	"fmt"
	"go-insight-pipeline/internal/model"
)

// ValidateResultSet checks a result set against the columns its analysis
// expects. Problems are reported, never fatal: the insight heuristics treat
// missing or non-numeric values as zero.
func ValidateResultSet(a model.Analysis, rs model.ResultSet) []string {
	if rs.Empty() {
		return nil
	}

	var problems []string
	present := make(map[string]bool, len(rs.Columns))
	for _, c := range rs.Columns {
		present[c] = true
	}

	// Check required columns
	for _, col := range a.Required {
		if !present[col] {
			problems = append(problems, fmt.Sprintf("missing required column: %s", col))
		}
	}

	// Check numeric columns
	for _, col := range a.Numeric {
		if !present[col] {
			continue
		}
		bad := 0
		for _, rec := range rs.Rows {
			if !isNumeric(rec[col]) {
				bad++
			}
		}
		if bad > 0 {
			problems = append(problems, fmt.Sprintf("column %s has %d non-numeric values", col, bad))
		}
	}
	return problems
}

// isNumeric reports whether v is a number or SQL NULL
func isNumeric(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return true
	case json.Number:
		_, err := val.Float64()
		return err == nil
	case float64, float32, int, int64:
		return true
	default:
		return false
	}
}
