package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage session tags",
}

var tagAddCmd = &cobra.Command{
	Use:   "add <session-id> <tag>",
	Short: "Add a tag to a session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manager(cmd.Context())
		if err != nil {
			return err
		}

		found, err := m.AddTag(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("session %q not found", args[0])
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Tagged %s\n", args[0])
		return nil
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:     "rm <session-id> <tag>",
	Aliases: []string{"remove"},
	Short:   "Remove a tag from a session",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manager(cmd.Context())
		if err != nil {
			return err
		}

		found, err := m.RemoveTag(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("session %q not found", args[0])
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Untagged %s\n", args[0])
		return nil
	},
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tag in use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := manager(cmd.Context())
		if err != nil {
			return err
		}

		tags := m.GetAllTags(cmd.Context())
		if len(tags) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tags")
			return nil
		}
		for _, tag := range tags {
			fmt.Fprintln(cmd.OutOrStdout(), tag)
		}
		return nil
	},
}

func init() {
	tagCmd.AddCommand(tagAddCmd)
	tagCmd.AddCommand(tagRemoveCmd)
	tagCmd.AddCommand(tagListCmd)
	rootCmd.AddCommand(tagCmd)
}
