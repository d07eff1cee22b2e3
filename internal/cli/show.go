package cli

import (
	"fmt"

	"github.com/harun/chronicle/pkg/export"
	"github.com/spf13/cobra"
)

var (
	showJSON   bool
	showRender bool
	showWidth  int
)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show a stored session transcript",
	Long: `Show a stored session with its metadata and full transcript.
Use --render to format the markdown transcript for the terminal.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "print the stored record as JSON")
	showCmd.Flags().BoolVar(&showRender, "render", false, "render the transcript as formatted markdown")
	showCmd.Flags().IntVar(&showWidth, "width", defaultRenderWidth, "word wrap width for --render")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	if showJSON && showRender {
		return fmt.Errorf("--json and --render cannot be combined")
	}

	m, err := manager(cmd.Context())
	if err != nil {
		return err
	}

	session, err := m.GetSession(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("session %q not found", args[0])
	}

	out := cmd.OutOrStdout()
	switch {
	case showJSON:
		content, err := export.JSON(*session)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, content)
	case showRender:
		fmt.Fprintln(out, renderMarkdown(export.Markdown(*session), showWidth))
	default:
		fmt.Fprint(out, export.Text(*session))
	}
	return nil
}
