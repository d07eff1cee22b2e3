package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var renameCmd = &cobra.Command{
	Use:   "rename <session-id> <title...>",
	Short: "Change the title of a session",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manager(cmd.Context())
		if err != nil {
			return err
		}

		title := strings.Join(args[1:], " ")
		found, err := m.UpdateTitle(cmd.Context(), args[0], title)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("session %q not found", args[0])
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s\n", args[0])
		return nil
	},
}

var pinCmd = &cobra.Command{
	Use:   "pin <session-id>",
	Short: "Toggle the pinned flag of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manager(cmd.Context())
		if err != nil {
			return err
		}

		pinned, found, err := m.TogglePin(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("session %q not found", args[0])
		}

		if pinned {
			fmt.Fprintf(cmd.OutOrStdout(), "Pinned %s\n", args[0])
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Unpinned %s\n", args[0])
		}
		return nil
	},
}

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:     "delete <session-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a stored session",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manager(cmd.Context())
		if err != nil {
			return err
		}

		found, err := m.DeleteSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !found && !deleteForce {
			return fmt.Errorf("session %q not found", args[0])
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "succeed even if the session does not exist")

	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(pinCmd)
	rootCmd.AddCommand(deleteCmd)
}
