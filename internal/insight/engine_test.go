package insight

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"go-insight-pipeline/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(s string) json.Number { return json.Number(s) }

func storeWith(name string, rows ...model.Record) *model.ResultStore {
	s := model.NewResultStore()
	s.Put(name, model.NewResultSet(rows))
	return s
}

func fixedPolicy() Policy { return Policy{Threshold: ThresholdFixed, FixedPercent: 5} }

func TestGeography_FixedThreshold(t *testing.T) {
	store := storeWith(model.GeographyVisitors,
		model.Record{"region": "NA", "unique_visitors": num("5000"), "pre_signup_rate": num("8.0")},
		model.Record{"region": "EU", "unique_visitors": num("3000"), "pre_signup_rate": num("3.0")},
	)

	res := New(fixedPolicy()).Generate(store)

	require.Equal(t, []string{
		"• Top visitor region: NA with 5,000 visitors",
		"• 1 regions show >5% pre-signup conversion rates",
		"  - NA: 8.0% conversion rate",
	}, res.Insights)
	assert.NotEmpty(t, res.Recommendations)
}

func TestGeography_TopRegionUsesMaxNotPosition(t *testing.T) {
	store := storeWith(model.GeographyVisitors,
		model.Record{"region": "APAC", "unique_visitors": num("100"), "pre_signup_rate": num("1")},
		model.Record{"region": "NA", "unique_visitors": num("900"), "pre_signup_rate": num("2")},
		model.Record{"region": "EU", "unique_visitors": num("900"), "pre_signup_rate": num("3")},
	)
	res := New(fixedPolicy()).Generate(store)
	assert.Equal(t, "• Top visitor region: NA with 900 visitors", res.Insights[0])
}

func TestGeography_MedianThresholdRanksTopThree(t *testing.T) {
	store := storeWith(model.GeographyVisitors,
		model.Record{"region": "A", "unique_visitors": num("600"), "pre_signup_rate": num("1")},
		model.Record{"region": "B", "unique_visitors": num("500"), "pre_signup_rate": num("9")},
		model.Record{"region": "C", "unique_visitors": num("400"), "pre_signup_rate": num("4")},
		model.Record{"region": "D", "unique_visitors": num("300"), "pre_signup_rate": num("7")},
		model.Record{"region": "E", "unique_visitors": num("200"), "pre_signup_rate": num("6")},
		model.Record{"region": "F", "unique_visitors": num("100"), "pre_signup_rate": num("2")},
	)
	// median of 1,2,4,6,7,9 = 5
	res := New(Policy{Threshold: ThresholdMedian}).Generate(store)
	require.Equal(t, []string{
		"• Top visitor region: A with 600 visitors",
		"• 3 regions show above-median pre-signup conversion rates",
		"  - B: 9% conversion rate",
		"  - D: 7% conversion rate",
		"  - E: 6% conversion rate",
	}, res.Insights)
}

func TestChannel_EfficiencyByCategory(t *testing.T) {
	store := storeWith(model.ChannelVisitors,
		model.Record{"channel_category": "Paid", "channel": "Search", "unique_visitors": num("1000"), "pre_signup_visitors": num("50"), "pre_signup_rate": num("5.0")},
		model.Record{"channel_category": "Organic", "channel": "Direct", "unique_visitors": num("800"), "pre_signup_visitors": num("120"), "pre_signup_rate": num("15.0")},
		model.Record{"channel_category": "Paid", "channel": "Social", "unique_visitors": num("200"), "pre_signup_visitors": num("30"), "pre_signup_rate": num("15.0")},
		model.Record{"channel_category": "Empty", "channel": "Nothing", "unique_visitors": num("0"), "pre_signup_visitors": num("0")},
	)

	res := New(fixedPolicy()).Generate(store)
	require.Equal(t, []string{
		"• Top traffic channel: Search with 1,000 visitors",
		"• 2 channels show >5% conversion rates",
		"  - Direct: 15.0% conversion rate",
		"  - Social: 15.0% conversion rate",
		"• Most efficient channel category: Organic (15.0% conversion)",
	}, res.Insights)
}

func TestMostEfficientCategory_SkipsInconsistentGroups(t *testing.T) {
	rows := []model.Record{
		{"channel_category": "Broken", "unique_visitors": num("10"), "pre_signup_visitors": num("50")},
		{"channel_category": "Zero", "unique_visitors": num("0"), "pre_signup_visitors": num("5")},
		{"channel_category": "Fine", "unique_visitors": num("10"), "pre_signup_visitors": num("1")},
	}
	cat, eff, ok := mostEfficientCategory(rows)
	require.True(t, ok)
	assert.Equal(t, "Fine", cat)
	assert.InDelta(t, 0.1, eff, 1e-9)

	_, _, ok = mostEfficientCategory(rows[:2])
	assert.False(t, ok)
}

func TestRevenue_TotalsAndConcentration(t *testing.T) {
	store := storeWith(model.RevenueSegments,
		model.Record{"segment": "Enterprise", "plan_tier": "Business", "total_mrr": num("100")},
		model.Record{"segment": "SMB", "plan_tier": "Basic", "total_mrr": num("50")},
	)

	res := New(fixedPolicy()).Generate(store)
	require.Equal(t, []string{
		"• Total MRR across analyzed segments: $150",
		"• Top revenue segment: Enterprise - Business ($100 MRR)",
		"• Revenue concentration: Top 2 segments = 100.0% of MRR",
	}, res.Insights)
}

func TestRevenue_ConcentrationGroupsBySegment(t *testing.T) {
	rows := []model.Record{
		{"segment": "A", "plan_tier": "x", "total_mrr": num("40")},
		{"segment": "B", "plan_tier": "x", "total_mrr": num("30")},
		{"segment": "A", "plan_tier": "y", "total_mrr": num("20")},
		{"segment": "C", "plan_tier": "x", "total_mrr": num("10")},
	}
	share, ok := concentration(rows, 2)
	require.True(t, ok)
	assert.InDelta(t, 0.9, share, 1e-9)
}

func TestRevenue_MissingMRRIsSafe(t *testing.T) {
	store := storeWith(model.RevenueSegments,
		model.Record{"segment": "A"},
		model.Record{"segment": "B", "total_mrr": "n/a"},
	)
	res := New(fixedPolicy()).Generate(store)
	require.Equal(t, []string{
		"• Total MRR across analyzed segments: $0",
		"• Top revenue segment: A - N/A ($0 MRR)",
	}, res.Insights)
}

func TestConversion_FourWeekMeanAndTrend(t *testing.T) {
	store := storeWith(model.SignupConversion,
		model.Record{"week": "2025-10-06", "conversion_rate": num("10"), "avg_mrr_per_conversion": num("20")},
		model.Record{"week": "2025-09-29", "conversion_rate": num("12"), "avg_mrr_per_conversion": num("30")},
		model.Record{"week": "2025-09-22", "conversion_rate": num("8"), "avg_mrr_per_conversion": num("40")},
		model.Record{"week": "2025-09-15", "conversion_rate": num("6"), "avg_mrr_per_conversion": num("50")},
		model.Record{"week": "2025-09-08", "conversion_rate": num("99"), "avg_mrr_per_conversion": num("99")},
	)

	res := New(Policy{Threshold: ThresholdMedian, IncludeTrends: true}).Generate(store)
	require.Equal(t, []string{
		"• Recent 4-week avg signup→paid conversion: 9.00%",
		"• Average MRR per new subscription: $35.00",
		"• Conversion trend: improving (+4.00% points)",
	}, res.Insights)
}

func TestConversion_TrendPolicyAndShortHistory(t *testing.T) {
	rows := []model.Record{
		{"conversion_rate": num("5")},
		{"conversion_rate": num("5")},
		{"conversion_rate": num("7")},
		{"conversion_rate": num("7")},
	}

	withoutTrend := New(fixedPolicy()).Generate(storeWith(model.SignupConversion, rows...))
	assert.Len(t, withoutTrend.Insights, 2)

	declining := New(Policy{Threshold: ThresholdFixed, IncludeTrends: true}).Generate(storeWith(model.SignupConversion, rows...))
	assert.Equal(t, "• Conversion trend: declining (-2.00% points)", declining.Insights[2])

	short := New(Policy{Threshold: ThresholdFixed, IncludeTrends: true}).Generate(storeWith(model.SignupConversion, rows[:3]...))
	require.Len(t, short.Insights, 2)
	assert.Equal(t, "• Recent 3-week avg signup→paid conversion: 5.67%", short.Insights[0])
}

func TestTrend_ZeroDeltaIsImproving(t *testing.T) {
	rows := []model.Record{{"conversion_rate": num("4")}, {"conversion_rate": num("4")}, {"conversion_rate": num("4")}, {"conversion_rate": num("4")}}
	dir, delta := trend(rows)
	assert.Equal(t, "improving", dir)
	assert.Zero(t, delta)
}

func TestGenerate_AbsentGeographyProducesNothing(t *testing.T) {
	res := New(fixedPolicy()).Generate(model.NewResultStore())
	assert.Empty(t, res.Insights)
	assert.Empty(t, res.Recommendations)

	store := storeWith(model.RevenueSegments, model.Record{"segment": "A", "plan_tier": "b", "total_mrr": num("1")})
	res = New(fixedPolicy()).Generate(store)
	for _, line := range res.Insights {
		assert.NotContains(t, line, "region")
	}
	assert.Equal(t, Recommendations(), res.Recommendations)
}

func TestGenerate_EmptyResultSetIsSkipped(t *testing.T) {
	store := model.NewResultStore()
	store.Put(model.GeographyVisitors, model.ResultSet{})
	res := New(fixedPolicy()).Generate(store)
	assert.Empty(t, res.Insights)
}

func TestGenerate_NoNaNOrInf(t *testing.T) {
	store := model.NewResultStore()
	store.Put(model.GeographyVisitors, model.NewResultSet([]model.Record{
		{"region": nil, "unique_visitors": num("0"), "pre_signup_rate": nil},
	}))
	store.Put(model.ChannelVisitors, model.NewResultSet([]model.Record{
		{"channel": "x", "channel_category": "c", "unique_visitors": num("0"), "pre_signup_visitors": num("0")},
	}))
	store.Put(model.RevenueSegments, model.NewResultSet([]model.Record{
		{"segment": "s", "plan_tier": "t", "total_mrr": math.NaN()},
	}))
	store.Put(model.SignupConversion, model.NewResultSet([]model.Record{
		{"conversion_rate": math.Inf(1)},
	}))

	for _, policy := range []Policy{fixedPolicy(), {Threshold: ThresholdMedian, IncludeTrends: true}} {
		res := New(policy).Generate(store)
		require.NotEmpty(t, res.Insights)
		for _, line := range res.Insights {
			assert.NotContains(t, strings.ToLower(line), "nan")
			assert.NotContains(t, strings.ToLower(line), "inf")
		}
	}
}

func TestRecommendations_FiveHeadings(t *testing.T) {
	recs := Recommendations()
	var headings []string
	for _, r := range recs {
		if strings.HasSuffix(r, ":") {
			headings = append(headings, r)
		}
	}
	assert.Equal(t, []string{
		"1. GEOGRAPHIC EXPANSION:",
		"2. CHANNEL OPTIMIZATION:",
		"3. SEGMENT TARGETING:",
		"4. CONVERSION FUNNEL:",
		"5. MONITORING METRICS:",
	}, headings)
}

func TestNew_Defaults(t *testing.T) {
	assert.Equal(t, Policy{Threshold: ThresholdFixed, FixedPercent: DefaultFixedPercent}, New(Policy{}).Policy())
	assert.NoError(t, Policy{Threshold: ThresholdMedian}.Validate())
	assert.Error(t, Policy{Threshold: "mean"}.Validate())
}
