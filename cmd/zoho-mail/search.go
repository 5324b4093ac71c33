package main

import (
	"github.com/spf13/cobra"

	"github.com/brandon/zoho-mail/pkg/types"
)

type searchOutput struct {
	Folder     string                 `json:"folder"`
	Query      string                 `json:"query"`
	TotalFound int                    `json:"total_found"`
	Returned   int                    `json:"returned"`
	APIUsed    string                 `json:"api_used"`
	Messages   []types.MessageSummary `json:"messages"`
}

func runSearch(a *app, cmd *cobra.Command, query, folder string, limit, days int) error {
	m, err := a.session(cmd.Context())
	if err != nil {
		return err
	}

	messages, total, err := m.Search(cmd.Context(), folder, query, limit, days)
	if err != nil {
		return err
	}

	return printJSON(&searchOutput{
		Folder:     folder,
		Query:      query,
		TotalFound: total,
		Returned:   len(messages),
		APIUsed:    m.ActiveTransport(),
		Messages:   messages,
	})
}

func newSearchCommand(a *app) *cobra.Command {
	var folder string
	var limit, days int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a folder for messages",
		Long: `Search a folder using IMAP-style queries, for example:
  search 'SUBJECT "invoice"'
  search 'FROM "billing@example.com"' --folder INBOX --limit 25
  search ALL --folder Newsletters`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(a, cmd, args[0], folder, limit, days)
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "INBOX", "folder to search")
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum messages to return")
	cmd.Flags().IntVar(&days, "days", 0, "restrict to the last N days (0 = configured default)")
	return cmd
}

func newSearchSentCommand(a *app) *cobra.Command {
	var limit, days int

	cmd := &cobra.Command{
		Use:   "search-sent <query>",
		Short: "Search the Sent folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(a, cmd, args[0], "Sent", limit, days)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum messages to return")
	cmd.Flags().IntVar(&days, "days", 0, "restrict to the last N days (0 = configured default)")
	return cmd
}

func newUnreadCommand(a *app) *cobra.Command {
	var folder string

	cmd := &cobra.Command{
		Use:   "unread",
		Short: "Count unread messages in a folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			count, err := m.UnreadCount(cmd.Context(), folder)
			if err != nil {
				return err
			}
			return printJSON(map[string]interface{}{
				"folder":       folder,
				"unread_count": count,
			})
		},
	}
	cmd.Flags().StringVar(&folder, "folder", "INBOX", "folder to check")
	return cmd
}

func newGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <folder> <id>",
		Short: "Fetch a full message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			detail, err := m.FetchDetail(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(detail)
		},
	}
}

func newHistoryCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently cached search results without connecting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := a.cacheStore()
			if store == nil {
				return printJSON([]types.CachedMessage{})
			}
			recent, err := store.Recent(limit)
			if err != nil {
				return err
			}
			if recent == nil {
				recent = []types.CachedMessage{}
			}
			return printJSON(recent)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries to show")
	return cmd
}

func newFoldersCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "folders",
		Short: "List the account's folders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			folders, err := m.ListFolders(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(folders)
		},
	}
}
