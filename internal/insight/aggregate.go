package insight

import (
	"go-insight-pipeline/internal/model"
	"go-insight-pipeline/pkg/utils"
	"sort"
)

// group is one bucket of a group-by: the key plus summed metrics
type group struct {
	Key  string
	Sums map[string]float64
}

// groupSums sums the given metrics per distinct value of groupBy.
// Groups come back in first-seen order; missing keys group under "Unknown".
func groupSums(rows []model.Record, groupBy string, metrics ...string) []*group {
	index := make(map[string]*group)
	var order []*group
	for _, rec := range rows {
		key := utils.Text(rec[groupBy], "Unknown")
		g, exists := index[key]
		if !exists {
			g = &group{Key: key, Sums: make(map[string]float64, len(metrics))}
			index[key] = g
			order = append(order, g)
		}
		for _, m := range metrics {
			g.Sums[m] += utils.Numeric(rec[m])
		}
	}
	return order
}

// maxRecord returns the row with the largest value of field; the earliest wins ties
func maxRecord(rows []model.Record, field string) model.Record {
	var best model.Record
	bestVal := 0.0
	for i, rec := range rows {
		v := utils.Numeric(rec[field])
		if i == 0 || v > bestVal {
			best, bestVal = rec, v
		}
	}
	return best
}

// sum adds field across rows
func sum(rows []model.Record, field string) float64 {
	total := 0.0
	for _, rec := range rows {
		total += utils.Numeric(rec[field])
	}
	return total
}

// mean averages field across rows; ok is false for no rows
func mean(rows []model.Record, field string) (float64, bool) {
	if len(rows) == 0 {
		return 0, false
	}
	return sum(rows, field) / float64(len(rows)), true
}

// median of field across rows, averaging the middle pair for even counts
func median(rows []model.Record, field string) float64 {
	if len(rows) == 0 {
		return 0
	}
	values := make([]float64, len(rows))
	for i, rec := range rows {
		values[i] = utils.Numeric(rec[field])
	}
	sort.Float64s(values)
	mid := len(values) / 2
	if len(values)%2 == 1 {
		return values[mid]
	}
	return (values[mid-1] + values[mid]) / 2
}

// above returns rows whose field is strictly greater than threshold,
// ranked by that field descending; equal values keep their original order.
func above(rows []model.Record, field string, threshold float64) []model.Record {
	var out []model.Record
	for _, rec := range rows {
		if utils.Numeric(rec[field]) > threshold {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return utils.Numeric(out[i][field]) > utils.Numeric(out[j][field])
	})
	return out
}
