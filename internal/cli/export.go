package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/harun/chronicle/pkg/history"
	"github.com/harun/chronicle/pkg/model"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
	exportStdout bool
	exportAll    bool
)

var exportCmd = &cobra.Command{
	Use:   "export [session-id...]",
	Short: "Export sessions as markdown, JSON or text",
	Long: `Export one or more sessions to a file in the output directory.
Several sessions are combined into a single document. Unknown ids are skipped.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "export format: markdown, json, text (default from config)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", ".", "directory to write the export to")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "print the export instead of writing a file")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export every stored session")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportAll == (len(args) > 0) {
		return fmt.Errorf("give session ids or --all, not both or neither")
	}

	name := exportFormat
	if name == "" {
		name = state.cfg.Export.DefaultFormat
	}
	format, err := model.ParseExportFormat(name)
	if err != nil {
		return err
	}

	m, err := manager(cmd.Context())
	if err != nil {
		return err
	}

	ids := args
	if exportAll {
		for _, s := range m.GetAllSummaries(cmd.Context(), model.SearchOptions{}) {
			ids = append(ids, s.ID)
		}
	}

	var result *history.ExportResult
	if len(ids) == 1 {
		result, err = m.ExportSession(cmd.Context(), ids[0], format)
	} else {
		result, err = m.ExportMultipleSessions(cmd.Context(), ids, format)
	}
	if err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("nothing to export: no matching sessions")
	}

	out := cmd.OutOrStdout()
	if exportStdout {
		fmt.Fprintln(out, result.Content)
		return nil
	}

	if err := os.MkdirAll(exportOutput, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(exportOutput, result.Filename)
	if err := os.WriteFile(path, []byte(result.Content), 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	fmt.Fprintf(out, "Exported to %s\n", path)
	return nil
}
