package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stacklok/photofeed/internal/status"
)

func newStatusCmd() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the outcome of the last background refreshes",
		Long: `Show the refresh status recorded by "photofeed watch" and "photofeed serve"
for every collection.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
	statusCmd.Flags().StringP("output", "o", outputTable, "Output format (table or json)")
	return statusCmd
}

func runStatus(cmd *cobra.Command, _ []string) error {
	format, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	if err := validateOutput(format); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	persistence := status.NewFileStatusPersistence(cfg.GetFeed().GetStatusDir())
	statuses, err := persistence.LoadAllStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load refresh status: %w", err)
	}
	if len(statuses) == 0 && format == outputTable {
		fmt.Fprintln(cmd.OutOrStdout(), "No refresh has run yet")
		return nil
	}
	return renderStatuses(cmd.OutOrStdout(), statuses, format)
}
