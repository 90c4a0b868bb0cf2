package insight

import "strconv"

// recommendationSections are the fixed guidance headings and their bullets
var recommendationSections = []struct {
	Heading string
	Items   []string
}{
	{"GEOGRAPHIC EXPANSION", []string{
		"Focus marketing investment on high-converting regions identified above",
		"Test localized campaigns in underperforming but high-volume regions",
	}},
	{"CHANNEL OPTIMIZATION", []string{
		"Reallocate budget toward high-efficiency channels",
		"Investigate why certain channels have low conversion despite high traffic",
	}},
	{"SEGMENT TARGETING", []string{
		"Develop targeted campaigns for high-value segments",
		"Create segment-specific onboarding to improve conversion rates",
	}},
	{"CONVERSION FUNNEL", []string{
		"A/B test signup flow improvements in low-converting segments",
		"Implement progressive profiling to reduce signup friction",
	}},
	{"MONITORING METRICS", []string{
		"Track visitor→signup→paid conversion by cohort weekly",
		"Monitor MRR per visitor as a north star efficiency metric",
		"Set up alerts for conversion rate changes >10%",
	}},
}

// Recommendations returns the static guidance lines, numbered by heading
func Recommendations() []string {
	var out []string
	for i, section := range recommendationSections {
		if i > 0 {
			out = append(out, "")
		}
		out = append(out, strconv.Itoa(i+1)+". "+section.Heading+":")
		for _, item := range section.Items {
			out = append(out, "   • "+item)
		}
	}
	return out
}
