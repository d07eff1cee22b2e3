package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Rebuild the session index from the store",
	Long: `Rebuild the in-memory session index from the durable store.
Records that cannot be parsed are skipped and reported.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manager(cmd.Context())
		if err != nil {
			return err
		}

		report, err := m.Reload(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Loaded %d session(s), skipped %d\n", report.Loaded, report.Skipped)
		if len(report.SkippedIDs) > 0 {
			fmt.Fprintln(out, mutedStyle.Render("Skipped: "+strings.Join(report.SkippedIDs, ", ")))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reloadCmd)
}
