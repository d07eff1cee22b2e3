package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/harun/chronicle/pkg/model"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file...>",
	Short: "Save sessions from JSON files",
	Long: `Save sessions handed over by the runtime as JSON, one session object or an
array of them per file. Use "-" to read from standard input.
Saving an id that already exists keeps its title, pins, tags and creation time.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	var sessions []model.Session
	for _, path := range args {
		data, err := readInput(cmd, path)
		if err != nil {
			return err
		}
		parsed, err := decodeSessions(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		sessions = append(sessions, parsed...)
	}

	m, err := manager(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, s := range sessions {
		saved, err := m.SaveSession(cmd.Context(), s)
		if err != nil {
			return fmt.Errorf("failed to save session %q: %w", s.ID, err)
		}
		fmt.Fprintf(out, "Saved %s: %s\n", saved.ID, displayTitle(saved.Title))
	}
	return nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func decodeSessions(data []byte) ([]model.Session, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	if trimmed[0] == '[' {
		var sessions []model.Session
		if err := json.Unmarshal(trimmed, &sessions); err != nil {
			return nil, fmt.Errorf("invalid session array: %w", err)
		}
		return sessions, nil
	}

	var session model.Session
	if err := json.Unmarshal(trimmed, &session); err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}
	return []model.Session{session}, nil
}
