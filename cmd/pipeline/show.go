package main

import (
	"fmt"
	"os"

	"go-insight-pipeline/pkg/utils"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var showRaw bool

// showCmd renders a markdown report in the terminal
var showCmd = &cobra.Command{
	Use:   "show [report.md]",
	Short: "Render a report (default: the latest one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			latest, err := utils.NewOutputManager(cfg.Report.OutputDir).LatestFile(cfg.Report.Prefix, ".md")
			if err != nil {
				return fmt.Errorf("no reports in %s: %w", cfg.Report.OutputDir, err)
			}
			if latest == "" {
				return fmt.Errorf("no reports in %s", cfg.Report.OutputDir)
			}
			path = latest
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if showRaw {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}

		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err != nil {
			return err
		}
		rendered, err := renderer.Render(string(data))
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), rendered)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print the markdown without rendering")
}
