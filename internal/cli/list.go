package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/harun/chronicle/pkg/model"
	"github.com/spf13/cobra"
)

var (
	listQuery   string
	listPinned  bool
	listTag     string
	listProject string
	listSince   string
	listUntil   string
	listLimit   int
	listJSON    bool
	listGrouped bool
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored sessions",
	Long: `List stored sessions, most recently updated first.
Filters combine: a session must match every filter given.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVarP(&listQuery, "query", "q", "", "match title or tag text (case-insensitive)")
	listCmd.Flags().BoolVar(&listPinned, "pinned", false, "only pinned sessions")
	listCmd.Flags().StringVar(&listTag, "tag", "", "only sessions carrying this tag")
	listCmd.Flags().StringVar(&listProject, "project", "", "only sessions of this project path")
	listCmd.Flags().StringVar(&listSince, "since", "", "created at or after (YYYY-MM-DD or RFC 3339)")
	listCmd.Flags().StringVar(&listUntil, "until", "", "created at or before (YYYY-MM-DD or RFC 3339)")
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "maximum number of sessions (0 for all)")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print summaries as JSON")
	listCmd.Flags().BoolVar(&listGrouped, "by-project", false, "group sessions by project path")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	if listLimit < 0 {
		return fmt.Errorf("--limit must not be negative")
	}
	start, err := parseTimeFlag("since", listSince, false)
	if err != nil {
		return err
	}
	end, err := parseTimeFlag("until", listUntil, true)
	if err != nil {
		return err
	}

	m, err := manager(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if listGrouped {
		groups := m.GetSessionsByProject(cmd.Context())
		if listJSON {
			return writeJSON(out, groups)
		}
		for _, project := range sortedKeys(groups) {
			name := project
			if name == "" {
				name = "(no project)"
			}
			fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%s (%d)", name, len(groups[project]))))
			if err := writeSummaries(out, groups[project]); err != nil {
				return err
			}
			fmt.Fprintln(out)
		}
		return nil
	}

	summaries := m.GetAllSummaries(cmd.Context(), model.SearchOptions{
		Query:       listQuery,
		PinnedOnly:  listPinned,
		StartDate:   start,
		EndDate:     end,
		Tag:         listTag,
		ProjectPath: listProject,
		Limit:       listLimit,
	})

	if listJSON {
		return writeJSON(out, summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(out, "No sessions found")
		return nil
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%d session(s)", len(summaries))))
	return writeSummaries(out, summaries)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
