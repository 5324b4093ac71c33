package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newMarkReadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-read <folder> <id>...",
		Short: "Mark messages as read",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			result, err := m.MarkRead(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func newMarkUnreadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-unread <folder> <id>...",
		Short: "Mark messages as unread",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			result, err := m.MarkUnread(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func newDeleteCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <folder> <id>...",
		Short: "Delete messages from a folder",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			folder, ids := args[0], args[1:]
			if !yes && !confirm(fmt.Sprintf("Delete %d message(s) from %s?", len(ids), folder)) {
				fmt.Fprintln(os.Stderr, "Aborted.")
				return nil
			}

			m, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			result, err := m.Delete(cmd.Context(), folder, ids)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newMoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <from-folder> <to-folder> <id>...",
		Short: "Move messages to another folder",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			result, err := m.Move(cmd.Context(), args[0], args[1], args[2:])
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

// confirm asks on stderr and reads the answer from stdin. Anything but an
// explicit yes declines.
func confirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
