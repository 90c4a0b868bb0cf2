package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"go-insight-pipeline/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, mutate func(*config.Config)) string {
	t.Helper()
	dir := t.TempDir()
	c := config.DefaultConfig()
	c.Report.OutputDir = filepath.Join(dir, "out")
	c.History.Database = filepath.Join(dir, "history.db")
	if mutate != nil {
		mutate(c)
	}
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, c.Save(path))
	return path
}

func TestConfigCommand(t *testing.T) {
	path := writeConfig(t, func(c *config.Config) { c.Report.Organization = "Acme" })

	out, err := execute(t, "--config", path, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "organization: Acme")

	saved := filepath.Join(t.TempDir(), "copy.yaml")
	_, err = execute(t, "--config", path, "config", saved)
	require.NoError(t, err)
	loaded, err := config.Load(saved)
	require.NoError(t, err)
	assert.Equal(t, "Acme", loaded.Report.Organization)
}

func TestInvalidConfigFails(t *testing.T) {
	path := writeConfig(t, func(c *config.Config) { c.Report.Format = "xml" })
	_, err := execute(t, "--config", path, "config")
	assert.Error(t, err)
}

func TestShowCommand_Raw(t *testing.T) {
	path := writeConfig(t, nil)
	loaded, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(loaded.Report.OutputDir, 0755))
	report := filepath.Join(loaded.Report.OutputDir, "visitor_revenue_report_2025-10-15.md")
	require.NoError(t, os.WriteFile(report, []byte("# Visitor-to-Revenue Analysis Report\n"), 0644))

	out, err := execute(t, "--config", path, "show", "--raw")
	require.NoError(t, err)
	assert.Equal(t, "# Visitor-to-Revenue Analysis Report\n", out)
}

func TestShowCommand_NoReports(t *testing.T) {
	path := writeConfig(t, nil)
	_, err := execute(t, "--config", path, "show", "--raw")
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh as the query tool")
	}
	script := `echo "connecting"; echo '[{"region":"NA","unique_visitors":5000,"pre_signup_rate":8.0}]'`
	path := writeConfig(t, func(c *config.Config) {
		c.Tool.Command = "/bin/sh"
		c.Tool.Args = []string{"-c", script}
		c.Tool.Dir = ""
	})

	out, err := execute(t, "--config", path, "run", "--variant", "simple", "--analysis", "geography_visitors")
	require.NoError(t, err)
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "Queries: 1 of 1 returned data")
	assert.Contains(t, out, "Report: ")

	loaded, err := config.Load(path)
	require.NoError(t, err)
	matches, err := filepath.Glob(filepath.Join(loaded.Report.OutputDir, "geography_visitors_*.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1, "the simple variant writes JSON files")
}
