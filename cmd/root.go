// Package cmd wires the adoreport CLI: the root report run plus the
// validate, init, sample and version subcommands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cmdouglas/adoreport/internal/config"
)

var verbose bool

// reportFlags holds the command-line flags for a report run.
type reportFlags struct {
	configPath    string
	organizations []string
	outputDir     string
	formats       []string
	dryRun        bool
	noCache       bool
}

// newRootCommand creates the root cobra command with the given RunE
// function. All flag registration is centralized here.
func newRootCommand(runFn func(*cobra.Command, []string) error) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adoreport",
		Short: "Generate Azure DevOps entitlement and chargeback reports",
		Long: `Generate entitlement and chargeback reports for Azure DevOps organizations.

For every configured organization, adoreport retrieves users, groups,
entitlements and group memberships, resolves each user's effective access
level and license cost, and writes CSV, JSON and Excel reports. When more
than one organization is processed, consolidated cross-organization reports
are generated as well.

Authentication uses a personal access token from the AZDO_PAT environment
variable (a .env file is honored).

Examples:
  # Run with the configured organizations and formats
  adoreport

  # Report on one organization, CSV only
  adoreport --organization contoso --format csv

  # Show what would be done without calling the API
  adoreport --dry-run`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runFn,
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().StringP("config", "c", "", "path to config file (default ~/.adoreport/config.yaml)")
	cmd.Flags().StringSliceP("organization", "o", nil, "organization to process (repeatable, overrides config)")
	cmd.Flags().String("output-dir", "", "report output directory (overrides config)")
	cmd.Flags().StringSlice("format", nil, "report format: csv, json or excel (repeatable, overrides config)")
	cmd.Flags().Bool("dry-run", false, "show what would be done without calling the API")
	cmd.Flags().Bool("no-cache", false, "ignore cached organization snapshots")

	return cmd
}

var rootCmd = newRootCommand(runReportProduction)

func init() {
	rootCmd.AddCommand(
		NewValidateCommand(),
		NewInitCommand(),
		NewSampleCommand(),
		NewVersionCommand(),
	)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if !verbose {
			fmt.Fprintln(os.Stderr, "Hint: re-run with --verbose for more details")
		}
		os.Exit(1)
	}
}

// parseReportFlags collects the report flags from a command invocation.
func parseReportFlags(cmd *cobra.Command) *reportFlags {
	flags := &reportFlags{}
	flags.configPath, _ = cmd.Flags().GetString("config")
	flags.organizations, _ = cmd.Flags().GetStringSlice("organization")
	flags.outputDir, _ = cmd.Flags().GetString("output-dir")
	flags.formats, _ = cmd.Flags().GetStringSlice("format")
	flags.dryRun, _ = cmd.Flags().GetBool("dry-run")
	flags.noCache, _ = cmd.Flags().GetBool("no-cache")
	return flags
}

// loadConfig resolves the config path (flag, then env, then default) and
// loads it.
func loadConfig(flagPath string) (*config.Config, error) {
	path := flagPath
	if path == "" {
		var err error
		path, err = config.ConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to determine config path: %w", err)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// runReportProduction is the production RunE for the root command.
func runReportProduction(cmd *cobra.Command, args []string) error {
	flags := parseReportFlags(cmd)

	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}

	return runReportWithDeps(cmd, flags, cfg, liveSnapshotFetcher(cfg, flags.noCache))
}

// NewRootCommandWithDeps creates a root command with an injected snapshot
// fetcher and config, for tests.
func NewRootCommandWithDeps(cfg *config.Config, fetch snapshotFetcher) *cobra.Command {
	cmd := newRootCommand(func(cmd *cobra.Command, args []string) error {
		return runReportWithDeps(cmd, parseReportFlags(cmd), cfg, fetch)
	})
	cmd.AddCommand(
		NewValidateCommand(),
		NewInitCommand(),
		NewSampleCommand(),
		NewVersionCommand(),
	)
	return cmd
}
