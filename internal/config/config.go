// Package config loads the pipeline configuration from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-insight-pipeline/pkg/utils"

	"gopkg.in/yaml.v3"
)

// Variant presets mirror the two report flavours
const (
	VariantSimple = "simple"
	VariantFull   = "full"
)

// Config holds all pipeline configuration
type Config struct {
	Variant string `yaml:"variant"` // simple, full

	Tool     ToolConfig     `yaml:"tool"`
	Insights InsightsConfig `yaml:"insights"`
	Report   ReportConfig   `yaml:"report"`
	History  HistoryConfig  `yaml:"history"`
	Server   ServerConfig   `yaml:"server"`
	Probe    ProbeConfig    `yaml:"probe"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Analyses restricts a run to these analysis names; empty = all of the variant
	Analyses []string `yaml:"analyses,omitempty"`
}

// ToolConfig describes the external query command
type ToolConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`    // the query text is appended after these
	Dir     string   `yaml:"dir"`     // working directory of the command
	Timeout string   `yaml:"timeout"` // empty or "0" = no timeout
	Extract string   `yaml:"extract"` // line, block
}

// InsightsConfig configures the heuristic policy
type InsightsConfig struct {
	Threshold     string  `yaml:"threshold"`     // median, fixed
	FixedPercent  float64 `yaml:"fixed_percent"` // cutoff for the fixed policy
	IncludeTrends bool    `yaml:"include_trends"`
}

// ReportConfig configures the written output
type ReportConfig struct {
	OutputDir    string `yaml:"output_dir"`
	Format       string `yaml:"format"` // csv, json
	Prefix       string `yaml:"prefix"`
	Title        string `yaml:"title"`
	Organization string `yaml:"organization"`
}

// HistoryConfig configures the run history database
type HistoryConfig struct {
	Database string `yaml:"database"` // empty disables history
}

// ServerConfig configures the history API
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// ProbeConfig describes the MCP server used by the connectivity probe
type ProbeConfig struct {
	Command   string            `yaml:"command"`
	Args      []string          `yaml:"args"`
	Env       map[string]string `yaml:"env,omitempty"`
	QueryTool string            `yaml:"query_tool"`
	Query     string            `yaml:"query"`
	Timeout   string            `yaml:"timeout"`
}

// LoggingConfig configures the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// DefaultConfig returns the full-variant configuration for the npm query tool
func DefaultConfig() *Config {
	cfg := &Config{
		Tool: ToolConfig{
			Command: "npm",
			Args:    []string{"run", "snowflake", "--", "query"},
			Dir:     ".",
			Extract: "line",
		},
		Report: ReportConfig{
			OutputDir: "visitor_revenue_output",
			Prefix:    "visitor_revenue_report",
			Title:     "Visitor-to-Revenue Analysis",
		},
		History: HistoryConfig{
			Database: "pipeline.db",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: "10s",
		},
		Probe: ProbeConfig{
			Command:   "uv",
			Args:      []string{"run", "mcp-server-snowflake", "snowflake-mcp/test-config.yaml"},
			QueryTool: "query_run_query",
			Query:     "SELECT CURRENT_VERSION() as VERSION, CURRENT_USER() as USER, CURRENT_WAREHOUSE() as WAREHOUSE",
			Timeout:   "60s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
	cfg.ApplyVariant(VariantFull)
	return cfg
}

// ApplyVariant sets the insight policy and data format of a preset.
// simple: fixed 5% threshold, no trends, JSON files.
// full: median threshold, trends, CSV files.
func (c *Config) ApplyVariant(variant string) error {
	switch variant {
	case VariantSimple:
		c.Insights = InsightsConfig{Threshold: "fixed", FixedPercent: 5.0, IncludeTrends: false}
		c.Report.Format = "json"
	case VariantFull:
		c.Insights = InsightsConfig{Threshold: "median", FixedPercent: 5.0, IncludeTrends: true}
		c.Report.Format = "csv"
	default:
		return fmt.Errorf("unknown variant %q (valid: %s, %s)", variant, VariantSimple, VariantFull)
	}
	c.Variant = variant
	return nil
}

// Load reads configuration from path. A missing file yields the defaults.
// Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			// The variant preset goes first so explicit fields override it
			var head struct {
				Variant string `yaml:"variant"`
			}
			if err := yaml.Unmarshal(data, &head); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
			if head.Variant != "" && head.Variant != cfg.Variant {
				if err := cfg.ApplyVariant(head.Variant); err != nil {
					return nil, err
				}
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
			// Defaults
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("INSIGHTS_TOOL_COMMAND"); v != "" {
		fields := strings.Fields(v)
		c.Tool.Command = fields[0]
		if len(fields) > 1 {
			c.Tool.Args = fields[1:]
		}
	}
	if v := os.Getenv("INSIGHTS_TOOL_DIR"); v != "" {
		c.Tool.Dir = v
	}
	if v := os.Getenv("INSIGHTS_OUTPUT_DIR"); v != "" {
		c.Report.OutputDir = v
	}
	if v, ok := os.LookupEnv("INSIGHTS_DB"); ok {
		c.History.Database = v
	}
	if v := os.Getenv("INSIGHTS_ADDR"); v != "" {
		c.Server.Addr = v
	}
}

// ToolTimeout returns the query timeout; 0 means none
func (c *Config) ToolTimeout() time.Duration {
	return utils.ParseDuration(c.Tool.Timeout, 0)
}

// ProbeTimeout returns the probe timeout
func (c *Config) ProbeTimeout() time.Duration {
	return utils.ParseDuration(c.Probe.Timeout, 60*time.Second)
}

// ShutdownTimeout returns how long the API waits for in-flight requests
func (c *Config) ShutdownTimeout() time.Duration {
	return utils.ParseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// Validate checks the configuration for values the pipeline cannot use
func (c *Config) Validate() error {
	if c.Variant != VariantSimple && c.Variant != VariantFull {
		return fmt.Errorf("invalid variant: %q (valid: %s, %s)", c.Variant, VariantSimple, VariantFull)
	}
	if c.Tool.Command == "" {
		return fmt.Errorf("tool.command is required")
	}
	if c.Tool.Timeout != "" {
		d, err := time.ParseDuration(c.Tool.Timeout)
		if err != nil {
			return fmt.Errorf("invalid tool.timeout %q: %w", c.Tool.Timeout, err)
		}
		if d < 0 {
			return fmt.Errorf("tool.timeout must not be negative")
		}
	}
	switch c.Tool.Extract {
	case "", "line", "block":
	default:
		return fmt.Errorf("invalid tool.extract: %q (valid: line, block)", c.Tool.Extract)
	}
	switch c.Insights.Threshold {
	case "median", "fixed":
	default:
		return fmt.Errorf("invalid insights.threshold: %q (valid: median, fixed)", c.Insights.Threshold)
	}
	if c.Insights.FixedPercent < 0 {
		return fmt.Errorf("insights.fixed_percent must not be negative")
	}
	if c.Report.OutputDir == "" {
		return fmt.Errorf("report.output_dir is required")
	}
	switch c.Report.Format {
	case "csv", "json":
	default:
		return fmt.Errorf("invalid report.format: %q (valid: csv, json)", c.Report.Format)
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("invalid logging.format: %q (valid: console, json)", c.Logging.Format)
	}
	return nil
}
