package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/jaytaylor/html2text"
	"github.com/spf13/cobra"

	"github.com/brandon/zoho-mail/internal/transport"
	"github.com/brandon/zoho-mail/pkg/types"
)

func newSendCommand(a *app) *cobra.Command {
	var cc, bcc, attachments []string

	cmd := &cobra.Command{
		Use:   "send <to> <subject> <body>",
		Short: "Send a plain text message",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			result, err := m.Send(cmd.Context(), &transport.Outgoing{
				To:          []string{args[0]},
				Cc:          cc,
				Bcc:         bcc,
				Subject:     args[1],
				Text:        args[2],
				Attachments: attachments,
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringArrayVar(&cc, "cc", nil, "CC recipient (repeatable)")
	cmd.Flags().StringArrayVar(&bcc, "bcc", nil, "BCC recipient (repeatable)")
	cmd.Flags().StringArrayVar(&attachments, "attach", nil, "file to attach (repeatable)")
	return cmd
}

func newSendHTMLCommand(a *app) *cobra.Command {
	var cc, bcc []string
	var text string

	cmd := &cobra.Command{
		Use:   "send-html <to> <subject> <html>",
		Short: "Send an HTML message with a plain text fallback",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			html := args[2]
			if text == "" {
				var err error
				text, err = html2text.FromString(html, html2text.Options{TextOnly: true})
				if err != nil {
					return fmt.Errorf("failed to derive plain text fallback: %w", err)
				}
				a.logger.Debug("Generated plain text fallback from HTML")
			}

			m, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			result, err := m.Send(cmd.Context(), &transport.Outgoing{
				To:      []string{args[0]},
				Cc:      cc,
				Bcc:     bcc,
				Subject: args[1],
				Text:    text,
				HTML:    html,
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().StringArrayVar(&cc, "cc", nil, "CC recipient (repeatable)")
	cmd.Flags().StringArrayVar(&bcc, "bcc", nil, "BCC recipient (repeatable)")
	cmd.Flags().StringVar(&text, "text", "", "explicit plain text fallback")
	return cmd
}

func newPreviewHTMLCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "preview-html <file>",
		Short: "Render an HTML file as the plain text a recipient would see",
		Long:  "Works offline and needs no credentials.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			text, err := html2text.FromString(string(data), html2text.Options{PrettyTables: true})
			if err != nil {
				return fmt.Errorf("failed to render HTML: %w", err)
			}
			fmt.Fprintln(os.Stdout, text)
			return nil
		},
	}
}

func newListAttachmentsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list-attachments <folder> <id>",
		Short: "List a message's attachments",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			infos, err := m.ListAttachments(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if infos == nil {
				infos = []types.AttachmentInfo{}
			}
			return printJSON(infos)
		},
	}
}

func newDownloadAttachmentCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download-attachment <folder> <id> <index> [output]",
		Short: "Save a message attachment to disk",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid attachment index %q", args[2])
			}
			output := ""
			if len(args) == 4 {
				output = args[3]
			}

			m, err := a.session(cmd.Context())
			if err != nil {
				return err
			}
			result, err := m.DownloadAttachment(cmd.Context(), args[0], args[1], index, output)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	return cmd
}
