package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-insight-pipeline/internal/probe"

	"github.com/spf13/cobra"
)

// probeCmd checks the warehouse MCP server
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check connectivity to the warehouse MCP server",
	Long: `Starts the configured MCP server over stdio, lists its tools, and runs a
version query when the query tool is available. Exits non-zero on failure.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "🔧 Starting MCP probe...\n\n")

		res, err := probe.Run(ctx, probe.Options{
			Command:   cfg.Probe.Command,
			Args:      cfg.Probe.Args,
			Env:       cfg.Probe.Env,
			QueryTool: cfg.Probe.QueryTool,
			Query:     cfg.Probe.Query,
			Timeout:   cfg.ProbeTimeout(),
			Logger:    logger,
		})
		if res.Server != "" || len(res.Tools) > 0 {
			fmt.Fprintf(out, "✓ Connected to %s\n\n", res.Server)
			fmt.Fprintf(out, "📋 Available tools (%d):\n", len(res.Tools))
			for _, t := range res.Tools {
				fmt.Fprintf(out, "  • %s\n", t.Name)
				if t.Description != "" {
					fmt.Fprintf(out, "    %s\n", truncate(t.Description, 80))
				}
			}
			fmt.Fprintln(out)
		}
		if res.QueryCalled {
			fmt.Fprintf(out, "🔍 Query result: %s\n\n", truncate(res.Output, 200))
		}
		if err != nil {
			fmt.Fprintf(out, "❌ Probe failed: %v\n", err)
			return err
		}
		fmt.Fprintf(out, "✅ All checks passed!\n")
		return nil
	},
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
