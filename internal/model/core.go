package model

// Analysis is one named query the pipeline runs
type Analysis struct {
	Name         string `json:"name" yaml:"name"`                   // result-set name, e.g. geography_visitors
	Description  string `json:"description" yaml:"description"`     // shown in progress output
	Query        string `json:"query" yaml:"query"`                 // SQL text handed to the tool
	PreviewTitle string `json:"preview_title" yaml:"preview_title"` // heading of the console preview
	PreviewRows  int    `json:"preview_rows" yaml:"preview_rows"`   // rows shown in the preview

	Required []string `json:"required,omitempty" yaml:"required,omitempty"` // columns the insights read
	Numeric  []string `json:"numeric,omitempty" yaml:"numeric,omitempty"`   // columns expected to hold numbers
}

// Run statuses
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Query outcome statuses
const (
	QueryOK        = "ok"
	QueryEmpty     = "empty"
	QueryFailed    = "failed"
	QueryNoPayload = "no_payload"
)

// RunSpec describes what a pipeline run should do
type RunSpec struct {
	Variant       string   `json:"variant"`        // "simple" or "full"
	Analyses      []string `json:"analyses"`       // subset of analysis names; empty = all for the variant
	OutputDir     string   `json:"output_dir"`     // destination for data files and the report
	Format        string   `json:"format"`         // "csv" or "json"
	Threshold     string   `json:"threshold"`      // "median" or "fixed"
	FixedPercent  float64  `json:"fixed_percent"`  // cutoff for the fixed threshold policy
	IncludeTrends bool     `json:"include_trends"` // conversion trend + visitor_trends query
}
