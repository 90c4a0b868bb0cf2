package pipeline

import (
	"fmt"
	"go-insight-pipeline/internal/model"
)

// Report variants
const (
	VariantSimple = "simple"
	VariantFull   = "full"
)

// ------------------- Analysis Catalog -------------------

const geographyQuery = `
WITH date_range AS (
    SELECT
        DATEADD(day, -30, CURRENT_DATE()) AS start_date,
        CURRENT_DATE() AS end_date
),
visitor_metrics AS (
    SELECT
        COALESCE(v.CUSTOM_REGION, 'Unknown') AS region,
        COUNT(DISTINCT v.ID_VISITOR) AS unique_visitors,
        COUNT(DISTINCT CASE WHEN v.IS_NEW_VISITOR THEN v.ID_VISITOR END) AS new_visitors,
        COUNT(DISTINCT CASE WHEN v.IS_PRE_SIGNUP_VISITOR THEN v.ID_VISITOR END) AS pre_signup_visitors
    FROM analytics.webflow.DAILY_MARKETING_VISITOR_DETAILS v
    CROSS JOIN date_range dr
    WHERE v.DATE_DAY BETWEEN dr.start_date AND dr.end_date
    GROUP BY 1
)
SELECT
    region,
    unique_visitors,
    new_visitors,
    pre_signup_visitors,
    ROUND(100.0 * pre_signup_visitors / NULLIF(unique_visitors, 0), 2) AS pre_signup_rate,
    ROUND(100.0 * new_visitors / NULLIF(unique_visitors, 0), 2) AS new_visitor_rate
FROM visitor_metrics
WHERE unique_visitors > 100
ORDER BY unique_visitors DESC
LIMIT 25`

const channelQuery = `
WITH date_range AS (
    SELECT
        DATEADD(day, -30, CURRENT_DATE()) AS start_date,
        CURRENT_DATE() AS end_date
),
channel_metrics AS (
    SELECT
        COALESCE(v.DIM_CHANNEL_CATEGORY, 'Unknown') AS channel_category,
        COALESCE(v.DIM_CHANNEL, 'Unknown') AS channel,
        COUNT(DISTINCT v.ID_VISITOR) AS unique_visitors,
        COUNT(DISTINCT CASE WHEN v.IS_NEW_VISITOR THEN v.ID_VISITOR END) AS new_visitors,
        COUNT(DISTINCT CASE WHEN v.IS_PRE_SIGNUP_VISITOR THEN v.ID_VISITOR END) AS pre_signup_visitors
    FROM analytics.webflow.DAILY_MARKETING_VISITOR_DETAILS v
    CROSS JOIN date_range dr
    WHERE v.DATE_DAY BETWEEN dr.start_date AND dr.end_date
    GROUP BY 1, 2
)
SELECT
    channel_category,
    channel,
    unique_visitors,
    new_visitors,
    pre_signup_visitors,
    ROUND(100.0 * pre_signup_visitors / NULLIF(unique_visitors, 0), 2) AS pre_signup_rate,
    ROUND(100.0 * new_visitors / NULLIF(unique_visitors, 0), 2) AS new_visitor_rate
FROM channel_metrics
WHERE unique_visitors > 100
ORDER BY unique_visitors DESC
LIMIT 30`

const revenueQuery = `
WITH current_revenue AS (
    SELECT
        COALESCE(BUSINESS_CATEGORY, 'Unknown') AS segment,
        COALESCE(PLAN_OBJECT_TIER, 'Unknown') AS plan_tier,
        COUNT(DISTINCT WF_CUSTOMER_ID) AS customer_count,
        SUM(MRR) AS total_mrr,
        AVG(MRR) AS avg_mrr,
        SUM(CASE WHEN IS_NEW_BUSINESS_MRR THEN MRR ELSE 0 END) AS new_business_mrr,
        SUM(EXPANSION_MRR) AS expansion_mrr,
        SUM(CONTRACTION_MRR) AS contraction_mrr,
        SUM(CHURNED_MRR) AS churned_mrr
    FROM analytics.webflow.TOOL_PLAN_OBJECT_DAILY_CURRENT
    WHERE MRR > 0
    GROUP BY 1, 2
)
SELECT
    segment,
    plan_tier,
    customer_count,
    ROUND(total_mrr, 0) AS total_mrr,
    ROUND(avg_mrr, 2) AS avg_mrr,
    ROUND(new_business_mrr, 0) AS new_business_mrr,
    ROUND(expansion_mrr, 0) AS expansion_mrr,
    ROUND(contraction_mrr, 0) AS contraction_mrr,
    ROUND(churned_mrr, 0) AS churned_mrr
FROM current_revenue
WHERE customer_count >= 10
ORDER BY total_mrr DESC
LIMIT 20`

const conversionQuery = `
WITH date_range AS (
    SELECT
        DATEADD(day, -90, CURRENT_DATE()) AS start_date,
        DATEADD(day, -1, CURRENT_DATE()) AS end_date
),
daily_signups AS (
    SELECT
        DATE_TRUNC('day', TIMESTAMP) AS signup_date,
        COUNT(DISTINCT USER_ID) AS signups
    FROM analytics.webflow.FCT_USER_CREATED
    CROSS JOIN date_range dr
    WHERE DATE_TRUNC('day', TIMESTAMP) BETWEEN dr.start_date AND dr.end_date
    GROUP BY 1
),
new_subscriptions AS (
    SELECT
        DATE_TRUNC('day', CREATED_AT) AS subscription_date,
        COUNT(DISTINCT USER_ID) AS new_subscriptions,
        SUM(MRR) AS new_mrr
    FROM analytics.webflow.REPORT__GOOGLE_NEW_FIRST_SUBSCRIPTION_EVENT
    CROSS JOIN date_range dr
    WHERE DATE_TRUNC('day', CREATED_AT) BETWEEN dr.start_date AND dr.end_date
    GROUP BY 1
),
daily_metrics AS (
    SELECT
        COALESCE(s.signup_date, n.subscription_date) AS date,
        COALESCE(s.signups, 0) AS signups,
        COALESCE(n.new_subscriptions, 0) AS new_subscriptions,
        COALESCE(n.new_mrr, 0) AS new_mrr
    FROM daily_signups s
    FULL OUTER JOIN new_subscriptions n ON s.signup_date = n.subscription_date
)
SELECT
    DATE_TRUNC('week', date) AS week,
    SUM(signups) AS total_signups,
    SUM(new_subscriptions) AS total_new_subscriptions,
    ROUND(SUM(new_mrr), 0) AS total_new_mrr,
    ROUND(100.0 * SUM(new_subscriptions) / NULLIF(SUM(signups), 0), 2) AS conversion_rate,
    ROUND(SUM(new_mrr) / NULLIF(SUM(new_subscriptions), 0), 2) AS avg_mrr_per_conversion
FROM daily_metrics
GROUP BY 1
ORDER BY 1 DESC
LIMIT 13`

const geoChannelQuery = `
WITH date_range AS (
    SELECT
        DATEADD(day, -30, CURRENT_DATE()) AS start_date,
        CURRENT_DATE() AS end_date
),
geo_channel_metrics AS (
    SELECT
        COALESCE(v.CUSTOM_REGION, 'Unknown') AS region,
        COALESCE(v.DIM_CHANNEL_CATEGORY, 'Unknown') AS channel_category,
        COUNT(DISTINCT v.ID_VISITOR) AS unique_visitors,
        COUNT(DISTINCT CASE WHEN v.IS_PRE_SIGNUP_VISITOR THEN v.ID_VISITOR END) AS pre_signup_visitors
    FROM analytics.webflow.DAILY_MARKETING_VISITOR_DETAILS v
    CROSS JOIN date_range dr
    WHERE v.DATE_DAY BETWEEN dr.start_date AND dr.end_date
    GROUP BY 1, 2
    HAVING unique_visitors >= 100
)
SELECT
    region,
    channel_category,
    unique_visitors,
    pre_signup_visitors,
    ROUND(100.0 * pre_signup_visitors / NULLIF(unique_visitors, 0), 2) AS pre_signup_rate
FROM geo_channel_metrics
WHERE region IN (
    SELECT region
    FROM geo_channel_metrics
    GROUP BY region
    HAVING SUM(unique_visitors) >= 1000
)
ORDER BY unique_visitors DESC
LIMIT 50`

const visitorTrendsQuery = `
WITH date_range AS (
    SELECT
        DATEADD(day, -30, CURRENT_DATE()) AS start_date,
        CURRENT_DATE() AS end_date
),
daily_visitor_metrics AS (
    SELECT
        v.DATE_DAY AS date,
        COUNT(DISTINCT v.ID_VISITOR) AS unique_visitors,
        COUNT(DISTINCT CASE WHEN v.IS_NEW_VISITOR THEN v.ID_VISITOR END) AS new_visitors,
        COUNT(DISTINCT CASE WHEN v.IS_PRE_SIGNUP_VISITOR THEN v.ID_VISITOR END) AS pre_signup_visitors
    FROM analytics.webflow.DAILY_MARKETING_VISITOR_DETAILS v
    CROSS JOIN date_range dr
    WHERE v.DATE_DAY BETWEEN dr.start_date AND dr.end_date
    GROUP BY 1
)
SELECT
    date,
    unique_visitors,
    new_visitors,
    pre_signup_visitors,
    ROUND(100.0 * pre_signup_visitors / NULLIF(unique_visitors, 0), 2) AS pre_signup_rate,
    ROUND(100.0 * new_visitors / NULLIF(unique_visitors, 0), 2) AS new_visitor_rate,
    AVG(unique_visitors) OVER (ORDER BY date ROWS BETWEEN 6 PRECEDING AND CURRENT ROW) AS visitors_7d_avg,
    AVG(pre_signup_visitors) OVER (ORDER BY date ROWS BETWEEN 6 PRECEDING AND CURRENT ROW) AS pre_signups_7d_avg
FROM daily_visitor_metrics
ORDER BY date DESC`

var catalog = []model.Analysis{
	{
		Name:         model.GeographyVisitors,
		Description:  "Visitor Metrics by Geography (Last 30 Days)",
		Query:        geographyQuery,
		PreviewTitle: "Top Geographic Regions by Visitor Volume",
		PreviewRows:  10,
		Required:     []string{"region", "unique_visitors", "pre_signup_rate"},
		Numeric:      []string{"unique_visitors", "new_visitors", "pre_signup_visitors", "pre_signup_rate", "new_visitor_rate"},
	},
	{
		Name:         model.ChannelVisitors,
		Description:  "Visitor Metrics by Marketing Channel (Last 30 Days)",
		Query:        channelQuery,
		PreviewTitle: "Top Marketing Channels by Visitor Volume",
		PreviewRows:  10,
		Required:     []string{"channel_category", "channel", "unique_visitors", "pre_signup_visitors", "pre_signup_rate"},
		Numeric:      []string{"unique_visitors", "new_visitors", "pre_signup_visitors", "pre_signup_rate", "new_visitor_rate"},
	},
	{
		Name:         model.RevenueSegments,
		Description:  "Current Revenue by Customer Segment",
		Query:        revenueQuery,
		PreviewTitle: "Revenue by Customer Segment",
		PreviewRows:  10,
		Required:     []string{"segment", "plan_tier", "total_mrr"},
		Numeric:      []string{"customer_count", "total_mrr", "avg_mrr"},
	},
	{
		Name:         model.SignupConversion,
		Description:  "Signup to Subscription Conversion (Last 90 Days)",
		Query:        conversionQuery,
		PreviewTitle: "Weekly Signup to Revenue Conversion",
		PreviewRows:  10,
		Required:     []string{"week", "conversion_rate", "avg_mrr_per_conversion"},
		Numeric:      []string{"total_signups", "total_new_subscriptions", "conversion_rate", "avg_mrr_per_conversion"},
	},
	{
		Name:         model.GeoChannelMatrix,
		Description:  "Geography x Channel Performance Matrix",
		Query:        geoChannelQuery,
		PreviewTitle: "Top Geography-Channel Combinations",
		PreviewRows:  15,
		Required:     []string{"region", "channel_category", "unique_visitors"},
		Numeric:      []string{"unique_visitors", "pre_signup_visitors", "pre_signup_rate"},
	},
	{
		Name:         model.VisitorTrends,
		Description:  "Daily Visitor Trends (Last 30 Days)",
		Query:        visitorTrendsQuery,
		PreviewTitle: "Recent Visitor Trend Summary",
		PreviewRows:  7,
		Required:     []string{"date", "unique_visitors"},
		Numeric:      []string{"unique_visitors", "new_visitors", "pre_signup_visitors", "pre_signup_rate"},
	},
}

// Catalog returns the analyses a variant runs, in execution order.
// Only the full variant includes the daily visitor trends.
func Catalog(variant string) ([]model.Analysis, error) {
	switch variant {
	case VariantFull:
		return append([]model.Analysis(nil), catalog...), nil
	case VariantSimple, "":
		out := make([]model.Analysis, 0, len(catalog))
		for _, a := range catalog {
			if a.Name != model.VisitorTrends {
				out = append(out, a)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown variant %q", variant)
	}
}

// Select narrows analyses to the named subset, keeping catalog order.
// An empty name list keeps everything; an unknown name is an error.
func Select(analyses []model.Analysis, names []string) ([]model.Analysis, error) {
	if len(names) == 0 {
		return analyses, nil
	}
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	var out []model.Analysis
	for _, a := range analyses {
		if wanted[a.Name] {
			out = append(out, a)
			delete(wanted, a.Name)
		}
	}
	for n := range wanted {
		return nil, fmt.Errorf("analysis %q is not available in this variant", n)
	}
	return out, nil
}
