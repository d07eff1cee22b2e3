package cli

import (
	"fmt"

	"github.com/harun/chronicle/pkg/maintenance"
	"github.com/spf13/cobra"
)

var (
	pruneDays   int
	pruneDryRun bool
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete idle unpinned sessions",
	Long: `Delete unpinned sessions that have not been updated for the retention period.
The period defaults to storage.retention_days. Pinned sessions are always kept.`,
	Args: cobra.NoArgs,
	RunE: runPrune,
}

func init() {
	pruneCmd.Flags().IntVar(&pruneDays, "older-than-days", 0, "retention period in days, overrides storage.retention_days")
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "list the sessions that would be deleted")
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	days := state.cfg.Storage.RetentionDays
	if cmd.Flags().Changed("older-than-days") {
		days = pruneDays
	}
	if days <= 0 {
		return fmt.Errorf("no retention period: set storage.retention_days or --older-than-days")
	}

	m, err := manager(cmd.Context())
	if err != nil {
		return err
	}

	retention, err := maintenance.NewRetention(m.Engine(), maintenance.RetentionDays(days))
	if err != nil {
		return err
	}
	retention.SetLogger(state.log.Component("retention"))

	out := cmd.OutOrStdout()
	if pruneDryRun {
		candidates := retention.Candidates(cmd.Context())
		if len(candidates) == 0 {
			fmt.Fprintln(out, "Nothing to prune")
			return nil
		}
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%d session(s) would be deleted", len(candidates))))
		return writeSummaries(out, candidates)
	}

	report, err := retention.Prune(cmd.Context())
	fmt.Fprintf(out, "Pruned %d session(s)\n", report.Deleted)
	return err
}
