package cli

import (
	"fmt"
	"time"

	"github.com/harun/chronicle/pkg/history"
	"github.com/spf13/cobra"
)

var (
	statsSince string
	statsUntil string
	statsJSON  bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics and cost",
	Long: `Show session counts, message totals and cost per project and tag.
With --since or --until the cost of sessions created in that period is shown as well.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsSince, "since", "", "cost period start (YYYY-MM-DD or RFC 3339)")
	statsCmd.Flags().StringVar(&statsUntil, "until", "", "cost period end (YYYY-MM-DD or RFC 3339)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	start, err := parseTimeFlag("since", statsSince, false)
	if err != nil {
		return err
	}
	end, err := parseTimeFlag("until", statsUntil, true)
	if err != nil {
		return err
	}

	m, err := manager(cmd.Context())
	if err != nil {
		return err
	}

	stats := m.GetStatistics(cmd.Context())

	var periodCost *float64
	if start != nil || end != nil {
		from, to := time.Time{}, time.Now().UTC()
		if start != nil {
			from = *start
		}
		if end != nil {
			to = *end
		}
		cost := m.GetCostForPeriod(cmd.Context(), from, to)
		periodCost = &cost
	}

	out := cmd.OutOrStdout()
	if statsJSON {
		return writeJSON(out, struct {
			Statistics    history.Statistics `json:"statistics"`
			PeriodCostUSD *float64           `json:"period_cost_usd,omitempty"`
		}{stats, periodCost})
	}

	fmt.Fprintln(out, headerStyle.Render("Sessions"))
	fmt.Fprintf(out, "  Total:    %d\n", stats.TotalSessions)
	fmt.Fprintf(out, "  Pinned:   %d\n", stats.PinnedSessions)
	fmt.Fprintf(out, "  Messages: %d\n", stats.TotalMessages)
	fmt.Fprintf(out, "  Cost:     %s\n", formatCost(stats.TotalCostUSD))
	if periodCost != nil {
		fmt.Fprintf(out, "  Period:   %s\n", formatCost(*periodCost))
	}

	if len(stats.CostByProject) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, headerStyle.Render("Cost by project"))
		for _, project := range sortedKeys(stats.CostByProject) {
			name := project
			if name == "" {
				name = mutedStyle.Render("(no project)")
			}
			fmt.Fprintf(out, "  %s  %s\n", formatCost(stats.CostByProject[project]), name)
		}
	}

	if len(stats.TagCounts) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, headerStyle.Render("Tags"))
		for _, tag := range sortedKeys(stats.TagCounts) {
			fmt.Fprintf(out, "  %4d  %s\n", stats.TagCounts[tag], tag)
		}
	}

	return nil
}
