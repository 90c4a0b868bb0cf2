package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, VariantFull, cfg.Variant)
	assert.Equal(t, "npm", cfg.Tool.Command)
	assert.Equal(t, []string{"run", "snowflake", "--", "query"}, cfg.Tool.Args)
	assert.Equal(t, "median", cfg.Insights.Threshold)
	assert.True(t, cfg.Insights.IncludeTrends)
	assert.Equal(t, "csv", cfg.Report.Format)
	assert.Equal(t, time.Duration(0), cfg.ToolTimeout())
	assert.Equal(t, 60*time.Second, cfg.ProbeTimeout())
}

func TestApplyVariant(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyVariant(VariantSimple))
	assert.Equal(t, VariantSimple, cfg.Variant)
	assert.Equal(t, "fixed", cfg.Insights.Threshold)
	assert.Equal(t, 5.0, cfg.Insights.FixedPercent)
	assert.False(t, cfg.Insights.IncludeTrends)
	assert.Equal(t, "json", cfg.Report.Format)

	err := cfg.ApplyVariant("weekly")
	assert.Error(t, err)
	assert.Equal(t, VariantSimple, cfg.Variant, "unknown variant leaves config untouched")
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_FileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	data := `
variant: simple
tool:
  command: ./bin/query
  args: ["--json"]
  timeout: 90s
insights:
  threshold: fixed
  fixed_percent: 2.5
report:
  output_dir: /tmp/reports
  format: json
  organization: Acme
history:
  database: ""
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, VariantSimple, cfg.Variant)
	assert.Equal(t, "./bin/query", cfg.Tool.Command)
	assert.Equal(t, []string{"--json"}, cfg.Tool.Args)
	assert.Equal(t, 90*time.Second, cfg.ToolTimeout())
	assert.Equal(t, 2.5, cfg.Insights.FixedPercent)
	assert.Equal(t, "Acme", cfg.Report.Organization)
	assert.Empty(t, cfg.History.Database)
	// Untouched sections keep their defaults
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestLoad_VariantPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte("variant: simple\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "fixed", cfg.Insights.Threshold)
	assert.False(t, cfg.Insights.IncludeTrends)
	assert.Equal(t, "json", cfg.Report.Format)

	require.NoError(t, os.WriteFile(path, []byte("variant: simple\nreport:\n  format: csv\n"), 0644))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.Report.Format, "explicit fields win over the preset")
	assert.Equal(t, "fixed", cfg.Insights.Threshold)

	require.NoError(t, os.WriteFile(path, []byte("variant: weekly\n"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tool: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("INSIGHTS_TOOL_COMMAND", "snowsql -q")
	t.Setenv("INSIGHTS_TOOL_DIR", "/srv/tool")
	t.Setenv("INSIGHTS_OUTPUT_DIR", "/srv/out")
	t.Setenv("INSIGHTS_DB", "")
	t.Setenv("INSIGHTS_ADDR", ":9090")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "snowsql", cfg.Tool.Command)
	assert.Equal(t, []string{"-q"}, cfg.Tool.Args)
	assert.Equal(t, "/srv/tool", cfg.Tool.Dir)
	assert.Equal(t, "/srv/out", cfg.Report.OutputDir)
	assert.Empty(t, cfg.History.Database, "an empty INSIGHTS_DB disables history")
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pipeline.yaml")
	cfg := DefaultConfig()
	cfg.Report.Organization = "Acme"
	cfg.Analyses = []string{"geography_visitors"}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown variant", func(c *Config) { c.Variant = "weekly" }},
		{"missing command", func(c *Config) { c.Tool.Command = "" }},
		{"bad timeout", func(c *Config) { c.Tool.Timeout = "soon" }},
		{"negative timeout", func(c *Config) { c.Tool.Timeout = "-1s" }},
		{"bad extract mode", func(c *Config) { c.Tool.Extract = "regex" }},
		{"bad threshold", func(c *Config) { c.Insights.Threshold = "mean" }},
		{"negative percent", func(c *Config) { c.Insights.FixedPercent = -1 }},
		{"missing output dir", func(c *Config) { c.Report.OutputDir = "" }},
		{"bad format", func(c *Config) { c.Report.Format = "xml" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "logfmt" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
