package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/brandon/zoho-mail/internal/cache"
	"github.com/brandon/zoho-mail/internal/config"
	"github.com/brandon/zoho-mail/internal/mailbox"
)

// app carries the resolved configuration and global flags across commands.
type app struct {
	logger *logrus.Logger
	cfg    *config.Config

	verbose   bool
	auth      string
	tokenFile string
	apiMode   string

	closers []func() error
}

func newRootCommand(logger *logrus.Logger) *cobra.Command {
	a := &app{logger: logger}

	root := &cobra.Command{
		Use:           "zoho-mail",
		Short:         "Zoho Mail from the command line",
		Long:          "Search, read, send and manage Zoho Mail over IMAP/SMTP or the REST API.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			a.cfg = cfg

			if a.verbose {
				a.logger.SetLevel(logrus.DebugLevel)
			} else if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
				a.logger.SetLevel(level)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			for _, close := range a.closers {
				if err := close(); err != nil {
					a.logger.WithError(err).Warn("Cleanup failed")
				}
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().StringVar(&a.auth, "auth", "auto", "authentication method: auto, password, oauth2")
	root.PersistentFlags().StringVar(&a.tokenFile, "token-file", "", "path to the OAuth2 token file")
	root.PersistentFlags().StringVar(&a.apiMode, "api-mode", "auto", "transport: auto, imap, rest")

	root.AddCommand(
		newSearchCommand(a),
		newSearchSentCommand(a),
		newUnreadCommand(a),
		newGetCommand(a),
		newHistoryCommand(a),
		newFoldersCommand(a),
		newSendCommand(a),
		newSendHTMLCommand(a),
		newPreviewHTMLCommand(a),
		newListAttachmentsCommand(a),
		newDownloadAttachmentCommand(a),
		newMarkReadCommand(a),
		newMarkUnreadCommand(a),
		newDeleteCommand(a),
		newMoveCommand(a),
		newBulkActionCommand(a),
		newEmptySpamCommand(a),
		newEmptyTrashCommand(a),
		newOAuthStatusCommand(a),
		newOAuthLoginCommand(a),
		newOAuthRevokeCommand(a),
		newDoctorCommand(a),
	)
	return root
}

// session builds the mailbox for commands that talk to the account.
func (a *app) session(ctx context.Context) (*mailbox.Mailbox, error) {
	return mailbox.NewSession(ctx, a.cfg, mailbox.Options{
		Auth:      mailbox.AuthMethod(a.auth),
		Mode:      mailbox.APIMode(a.apiMode),
		TokenPath: a.tokenFile,
	}, a.cacheStore(), a.logger)
}

// cacheStore opens the local result cache. Cache failures are logged, never
// fatal: mail operations work without it.
func (a *app) cacheStore() *cache.Store {
	c, err := cache.NewCache(a.cfg.CachePath, a.logger)
	if err != nil {
		a.logger.WithError(err).Warn("Cache unavailable")
		return nil
	}
	a.closers = append(a.closers, c.Close)
	return cache.NewStore(c, a.logger)
}

// tokenPath resolves the token file, honoring the --token-file override.
func (a *app) tokenPath() string {
	if a.tokenFile != "" {
		return a.tokenFile
	}
	return a.cfg.TokenPath
}

// printJSON writes the command result to stdout.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
