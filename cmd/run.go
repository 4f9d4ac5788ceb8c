package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmdouglas/adoreport/internal/analyze"
	"github.com/cmdouglas/adoreport/internal/azdo"
	"github.com/cmdouglas/adoreport/internal/cache"
	"github.com/cmdouglas/adoreport/internal/config"
	"github.com/cmdouglas/adoreport/internal/logging"
	"github.com/cmdouglas/adoreport/internal/model"
	"github.com/cmdouglas/adoreport/internal/report"
)

// snapshotFetcher retrieves one organization's dataset.
type snapshotFetcher func(ctx context.Context, organization string) (*model.Snapshot, error)

// snapshotTTL is how long a cached organization snapshot stays fresh.
const snapshotTTL = 4 * time.Hour

// liveSnapshotFetcher builds the production fetcher: cache lookup first,
// then the Azure DevOps API, storing the result back in the cache.
func liveSnapshotFetcher(cfg *config.Config, noCache bool) snapshotFetcher {
	return func(ctx context.Context, organization string) (*model.Snapshot, error) {
		logger := logging.New(cfg.Logging, verbose)

		var store *cache.Store
		if dir, err := cache.Dir(); err == nil {
			store = cache.NewStore(dir, snapshotTTL)
		}

		if store != nil && !noCache {
			if snap, ok := cache.GetSnapshot(store, organization); ok {
				logger.Info("using cached snapshot", "organization", organization)
				return snap, nil
			}
		}

		creds, err := azdo.CredentialsFromEnvironment(organization)
		if err != nil {
			return nil, err
		}

		client := azdo.NewClient(creds, cfg.API, logger)
		if err := client.ValidateToken(ctx); err != nil {
			return nil, err
		}

		snap, err := client.FetchSnapshot(ctx)
		if err != nil {
			return nil, err
		}

		if store != nil {
			if err := cache.SetSnapshot(store, snap); err != nil {
				logger.Warn("failed to cache snapshot", "organization", organization, "error", err)
			}
		}
		return snap, nil
	}
}

// runReportWithDeps runs the full pipeline: fetch each organization's
// snapshot, analyze it, write the per-organization reports, and finish with
// the consolidated reports when more than one organization was processed.
func runReportWithDeps(cmd *cobra.Command, flags *reportFlags, cfg *config.Config, fetch snapshotFetcher) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.New(cfg.Logging, verbose)

	organizations := flags.organizations
	if len(organizations) == 0 {
		organizations = cfg.Organizations
	}
	if len(organizations) == 0 {
		return fmt.Errorf("no organizations configured, set organizations in the config file or pass --organization")
	}

	formats := flags.formats
	if len(formats) == 0 {
		formats = cfg.Output.Formats
	}

	outputDir := flags.outputDir
	if outputDir == "" {
		outputDir = cfg.Output.Directory
	}

	if flags.dryRun {
		fmt.Fprintf(cmd.OutOrStdout(), "Would process %d organization(s): %s\n",
			len(organizations), strings.Join(organizations, ", "))
		fmt.Fprintf(cmd.OutOrStdout(), "Would write %s reports to %s\n",
			strings.Join(formats, ", "), outputDir)
		return nil
	}

	writer, err := report.NewWriter(outputDir, cfg.Output.IncludeTimestamp, logger)
	if err != nil {
		return err
	}

	opts := analyze.Options{
		ExcludeBuiltInUsers:  cfg.Reports.ExcludeBuiltInUsers,
		ExcludeBuiltInGroups: cfg.Reports.ExcludeBuiltInGroups,
	}

	var reports []*model.OrganizationReport
	for _, organization := range organizations {
		rep, err := runOrganization(ctx, organization, opts, fetch, writer, formats, logger)
		if err != nil {
			logger.Error("failed to process organization", "organization", organization, "error", err)
			fmt.Fprintf(cmd.OutOrStdout(), "Failed to process %s: %v\n", organization, err)
			continue
		}
		reports = append(reports, rep)

		fmt.Fprintf(cmd.OutOrStdout(), "Processed %s: %d users, %d groups, %d entitlements\n",
			organization, rep.TotalUsers, rep.TotalGroups, rep.TotalEntitlements)
	}

	if len(reports) == 0 {
		return fmt.Errorf("no organizations were processed successfully")
	}

	if len(reports) > 1 {
		if _, err := writer.GenerateConsolidatedUserReport(reports); err != nil {
			logger.Error("failed to generate consolidated user report", "error", err)
		}
		if _, err := writer.GenerateConsolidatedChargebackReport(reports); err != nil {
			logger.Error("failed to generate consolidated chargeback report", "error", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Generated consolidated reports for %d organizations\n", len(reports))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Reports written to %s\n", outputDir)
	return nil
}

// runOrganization processes one organization end to end.
func runOrganization(
	ctx context.Context,
	organization string,
	opts analyze.Options,
	fetch snapshotFetcher,
	writer *report.Writer,
	formats []string,
	logger *slog.Logger,
) (*model.OrganizationReport, error) {
	snap, err := fetch(ctx, organization)
	if err != nil {
		return nil, err
	}

	analyzer := analyze.New(opts, logger)
	analyzer.SetData(snap.Users, snap.Groups, snap.Entitlements, snap.Memberships)

	rep, err := analyzer.Report(organization)
	if err != nil {
		return nil, err
	}

	writer.GenerateAll(rep, formats)
	return rep, nil
}
