// Package insight turns the result sets of a run into summary statements.
package insight

import (
	"fmt"
	"go-insight-pipeline/internal/model"
	"strconv"
)

// Threshold policies for "high converting" selections
const (
	ThresholdMedian = "median"
	ThresholdFixed  = "fixed"
)

// Policy selects between the heuristics that differ across report variants
type Policy struct {
	Threshold     string  // median or fixed
	FixedPercent  float64 // cutoff used by the fixed policy
	IncludeTrends bool    // emit the conversion trend line
}

// DefaultFixedPercent is the cutoff of the fixed threshold policy
const DefaultFixedPercent = 5.0

// Validate checks the policy names a known threshold
func (p Policy) Validate() error {
	switch p.Threshold {
	case ThresholdMedian, ThresholdFixed:
		return nil
	default:
		return fmt.Errorf("unknown threshold policy: %q", p.Threshold)
	}
}

// Result holds the generated statements in analysis order
type Result struct {
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
}

// Engine applies the heuristics of a Policy
type Engine struct {
	policy Policy
}

// New returns an engine for policy. A fixed policy without a cutoff uses 5%.
func New(policy Policy) *Engine {
	if policy.Threshold == "" {
		policy.Threshold = ThresholdFixed
	}
	if policy.Threshold == ThresholdFixed && policy.FixedPercent <= 0 {
		policy.FixedPercent = DefaultFixedPercent
	}
	return &Engine{policy: policy}
}

// Policy returns the effective policy
func (e *Engine) Policy() Policy { return e.policy }

// Generate runs geography, channel, revenue and conversion analysis over the
// store, skipping any kind whose result set is absent or empty.
// Recommendations are only produced when at least one insight was.
func (e *Engine) Generate(store *model.ResultStore) Result {
	var res Result

	if rs, ok := store.Get(model.GeographyVisitors); ok && !rs.Empty() {
		res.Insights = append(res.Insights, e.geography(rs.Rows)...)
	}
	if rs, ok := store.Get(model.ChannelVisitors); ok && !rs.Empty() {
		res.Insights = append(res.Insights, e.channel(rs.Rows)...)
	}
	if rs, ok := store.Get(model.RevenueSegments); ok && !rs.Empty() {
		res.Insights = append(res.Insights, e.revenue(rs.Rows)...)
	}
	if rs, ok := store.Get(model.SignupConversion); ok && !rs.Empty() {
		res.Insights = append(res.Insights, e.conversion(rs.Rows)...)
	}

	if len(res.Insights) > 0 {
		res.Recommendations = Recommendations()
	}
	return res
}

// threshold returns the cutoff for field and the phrase describing it
func (e *Engine) threshold(rows []model.Record, field string) (float64, string) {
	if e.policy.Threshold == ThresholdMedian {
		return median(rows, field), "above-median"
	}
	return e.policy.FixedPercent, ">" + strconv.FormatFloat(e.policy.FixedPercent, 'f', -1, 64) + "%"
}
