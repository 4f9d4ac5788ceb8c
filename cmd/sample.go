package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cmdouglas/adoreport/internal/analyze"
	"github.com/cmdouglas/adoreport/internal/logging"
	"github.com/cmdouglas/adoreport/internal/report"
	"github.com/cmdouglas/adoreport/internal/sample"
)

// NewSampleCommand creates the sample command, which runs the full report
// pipeline on a synthetic dataset without touching the API.
func NewSampleCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate reports from a synthetic dataset",
		Long: `Generate a synthetic organization dataset and run the full analysis and
report pipeline on it. Useful for demos and for inspecting report layouts
without Azure DevOps access.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flagPath, _ := cmd.Flags().GetString("config")
			users, _ := cmd.Flags().GetInt("users")
			groups, _ := cmd.Flags().GetInt("groups")
			seed, _ := cmd.Flags().GetInt64("seed")
			outputDir, _ := cmd.Flags().GetString("output-dir")
			formats, _ := cmd.Flags().GetStringSlice("format")

			cfg, err := loadConfig(flagPath)
			if err != nil {
				return err
			}
			if outputDir == "" {
				outputDir = cfg.Output.Directory
			}
			if len(formats) == 0 {
				formats = cfg.Output.Formats
			}

			logger := logging.New(cfg.Logging, verbose)

			ds := sample.NewGenerator(seed, logger).Generate(users, groups, 3)

			analyzer := analyze.New(analyze.DefaultOptions(), logger)
			analyzer.SetData(ds.Users, ds.Groups, ds.Entitlements, ds.Memberships)

			rep, err := analyzer.Report("sample-org")
			if err != nil {
				return err
			}

			writer, err := report.NewWriter(outputDir, cfg.Output.IncludeTimestamp, logger)
			if err != nil {
				return err
			}
			writer.GenerateAll(rep, formats)

			fmt.Fprintf(cmd.OutOrStdout(), "Sample reports for %d users and %d groups written to %s\n",
				rep.TotalUsers, rep.TotalGroups, outputDir)
			return nil
		},
	}

	cmd.Flags().Int("users", 50, "number of synthetic users")
	cmd.Flags().Int("groups", 15, "number of synthetic groups")
	cmd.Flags().Int64("seed", 42, "random seed for reproducible data")
	cmd.Flags().String("output-dir", "", "report output directory (overrides config)")
	cmd.Flags().StringSlice("format", nil, "report format: csv, json or excel (repeatable)")

	return cmd
}
