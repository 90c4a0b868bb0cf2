package insight

import (
	"fmt"
	"go-insight-pipeline/internal/model"
	"go-insight-pipeline/pkg/utils"
	"math"
	"sort"

	"github.com/dustin/go-humanize"
)

const (
	topSelections  = 3
	recentWeeks    = 4
	topSegments    = 2
	notAvailable   = "N/A"
	rateField      = "pre_signup_rate"
	visitorsField  = "unique_visitors"
	preSignupField = "pre_signup_visitors"
	mrrField       = "total_mrr"
)

// whole formats v rounded to an integer with thousands separators
func whole(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}

// ------------------- Geography -------------------

func (e *Engine) geography(rows []model.Record) []string {
	top := maxRecord(rows, visitorsField)
	lines := []string{
		fmt.Sprintf("• Top visitor region: %s with %s visitors",
			utils.Text(top["region"], notAvailable), whole(utils.Numeric(top[visitorsField]))),
	}

	cutoff, phrase := e.threshold(rows, rateField)
	high := above(rows, rateField, cutoff)
	lines = append(lines, fmt.Sprintf("• %d regions show %s pre-signup conversion rates", len(high), phrase))
	lines = append(lines, selectionLines(high, "region")...)
	return lines
}

// ------------------- Channel -------------------

func (e *Engine) channel(rows []model.Record) []string {
	top := maxRecord(rows, visitorsField)
	lines := []string{
		fmt.Sprintf("• Top traffic channel: %s with %s visitors",
			utils.Text(top["channel"], notAvailable), whole(utils.Numeric(top[visitorsField]))),
	}

	cutoff, phrase := e.threshold(rows, rateField)
	high := above(rows, rateField, cutoff)
	lines = append(lines, fmt.Sprintf("• %d channels show %s conversion rates", len(high), phrase))
	lines = append(lines, selectionLines(high, "channel")...)

	if category, efficiency, ok := mostEfficientCategory(rows); ok {
		lines = append(lines, fmt.Sprintf("• Most efficient channel category: %s (%.1f%% conversion)", category, efficiency*100))
	}
	return lines
}

// mostEfficientCategory finds the channel category with the highest share of
// pre-signup visitors. Groups without visitors or with a share outside [0,1]
// are skipped.
func mostEfficientCategory(rows []model.Record) (string, float64, bool) {
	var (
		bestKey string
		bestEff float64
		found   bool
	)
	for _, g := range groupSums(rows, "channel_category", visitorsField, preSignupField) {
		visitors := g.Sums[visitorsField]
		if visitors <= 0 {
			continue
		}
		eff := g.Sums[preSignupField] / visitors
		if eff < 0 || eff > 1 {
			continue
		}
		if !found || eff > bestEff {
			bestKey, bestEff, found = g.Key, eff, true
		}
	}
	return bestKey, bestEff, found
}

// selectionLines renders up to three ranked selections as sub-bullets
func selectionLines(ranked []model.Record, labelField string) []string {
	if len(ranked) > topSelections {
		ranked = ranked[:topSelections]
	}
	lines := make([]string, 0, len(ranked))
	for _, rec := range ranked {
		lines = append(lines, fmt.Sprintf("  - %s: %s%% conversion rate",
			utils.Text(rec[labelField], notAvailable), utils.Text(rec[rateField], "0")))
	}
	return lines
}

// ------------------- Revenue -------------------

func (e *Engine) revenue(rows []model.Record) []string {
	total := sum(rows, mrrField)
	top := maxRecord(rows, mrrField)
	lines := []string{
		fmt.Sprintf("• Total MRR across analyzed segments: $%s", whole(total)),
		fmt.Sprintf("• Top revenue segment: %s - %s ($%s MRR)",
			utils.Text(top["segment"], notAvailable), utils.Text(top["plan_tier"], notAvailable),
			whole(utils.Numeric(top[mrrField]))),
	}

	if share, ok := concentration(rows, topSegments); ok {
		lines = append(lines, fmt.Sprintf("• Revenue concentration: Top %d segments = %.1f%% of MRR", topSegments, share*100))
	}
	return lines
}

// concentration is the fraction of total MRR held by the n largest segments.
// It is skipped when total MRR is not positive.
func concentration(rows []model.Record, n int) (float64, bool) {
	groups := groupSums(rows, "segment", mrrField)
	total := 0.0
	for _, g := range groups {
		total += g.Sums[mrrField]
	}
	if total <= 0 {
		return 0, false
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Sums[mrrField] > groups[j].Sums[mrrField]
	})
	if len(groups) > n {
		groups = groups[:n]
	}
	topTotal := 0.0
	for _, g := range groups {
		topTotal += g.Sums[mrrField]
	}

	share := topTotal / total
	if share < 0 || share > 1 {
		return 0, false
	}
	return share, true
}

// ------------------- Conversion Funnel -------------------

func (e *Engine) conversion(rows []model.Record) []string {
	recent := rows
	if len(recent) > recentWeeks {
		recent = recent[:recentWeeks]
	}

	avgConversion, _ := mean(recent, "conversion_rate")
	avgMRR, _ := mean(recent, "avg_mrr_per_conversion")
	lines := []string{
		fmt.Sprintf("• Recent %d-week avg signup→paid conversion: %.2f%%", len(recent), avgConversion),
		fmt.Sprintf("• Average MRR per new subscription: $%.2f", avgMRR),
	}

	if e.policy.IncludeTrends && len(rows) >= recentWeeks {
		direction, delta := trend(rows)
		lines = append(lines, fmt.Sprintf("• Conversion trend: %s (%+.2f%% points)", direction, delta))
	}
	return lines
}

// trend compares the two most recent weeks with the two before them.
// A zero or positive change counts as improving.
func trend(rows []model.Record) (string, float64) {
	latest, _ := mean(rows[0:2], "conversion_rate")
	prior, _ := mean(rows[2:4], "conversion_rate")
	delta := latest - prior
	if delta >= 0 {
		return "improving", delta
	}
	return "declining", delta
}
