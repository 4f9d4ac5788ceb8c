package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		Long:  "Load the configuration, check that organizations are set and the output directory is writable.",
		RunE: func(cmd *cobra.Command, args []string) error {
			flagPath, _ := cmd.Flags().GetString("config")

			cfg, err := loadConfig(flagPath)
			if err != nil {
				return err
			}

			if len(cfg.Organizations) == 0 {
				return fmt.Errorf("no organizations configured")
			}

			if err := checkWritable(cfg.Output.Directory); err != nil {
				return fmt.Errorf("output directory is not writable: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration OK: %d organization(s), output to %s (%v)\n",
				len(cfg.Organizations), cfg.Output.Directory, cfg.Output.Formats)
			return nil
		},
	}
}

// checkWritable verifies the directory exists (creating it if needed) and
// accepts a file write.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".adoreport_probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}
