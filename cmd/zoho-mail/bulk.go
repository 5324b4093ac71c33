package main

import (
	"github.com/spf13/cobra"

	"github.com/brandon/zoho-mail/internal/mailbox"
	"github.com/brandon/zoho-mail/pkg/types"
)

func printBulk(result *types.BulkResult) error {
	if result.Preview != nil {
		return printJSON(result.Preview)
	}
	return printJSON(result.Applied)
}

func newBulkActionCommand(a *app) *cobra.Command {
	var folder, query, action string
	var limit, days int
	var execute bool

	cmd := &cobra.Command{
		Use:   "bulk-action",
		Short: "Search a folder and apply an action to every match",
		Long: `Search a folder and apply an action (mark-read, mark-unread, delete) to
every matching message. Dry-run by default: pass --execute to commit.

  bulk-action --folder INBOX --search 'FROM "noreply@example.com"' --action delete
  bulk-action --folder INBOX --search 'FROM "noreply@example.com"' --action delete --execute`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			result, err := m.Bulk(cmd.Context(), &mailbox.BulkRequest{
				Folder:      folder,
				Query:       query,
				Action:      action,
				Limit:       limit,
				RecencyDays: days,
				DryRun:      !execute,
			})
			if err != nil {
				return err
			}
			return printBulk(result)
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "INBOX", "folder to operate on")
	cmd.Flags().StringVar(&query, "search", "ALL", "search query selecting the messages")
	cmd.Flags().StringVar(&action, "action", "", "action to apply: mark-read, mark-unread, delete")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum messages to process")
	cmd.Flags().IntVar(&days, "days", 0, "restrict to the last N days (0 = configured default, -1 = unbounded)")
	cmd.Flags().BoolVar(&execute, "execute", false, "apply the action instead of previewing")
	cobra.CheckErr(cmd.MarkFlagRequired("action"))
	return cmd
}

func newEmptyFolderCommand(a *app, use, folder, short string) *cobra.Command {
	var execute bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			result, err := m.EmptyFolder(cmd.Context(), folder, execute)
			if err != nil {
				return err
			}
			return printBulk(result)
		},
	}
	cmd.Flags().BoolVar(&execute, "execute", false, "delete instead of previewing")
	return cmd
}

func newEmptySpamCommand(a *app) *cobra.Command {
	return newEmptyFolderCommand(a, "empty-spam", "Spam", "Delete everything in the Spam folder (dry-run by default)")
}

func newEmptyTrashCommand(a *app) *cobra.Command {
	return newEmptyFolderCommand(a, "empty-trash", "Trash", "Delete everything in the Trash folder (dry-run by default)")
}
