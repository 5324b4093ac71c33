package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/brandon/zoho-mail/internal/oauth"
	"github.com/brandon/zoho-mail/pkg/types"
)

func newOAuthStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "oauth-status",
		Short: "Show the state of the stored OAuth2 tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.tokenPath()
			creds, err := oauth.Load(path)
			if err != nil {
				if errors.Is(err, oauth.ErrTokenNotFound) {
					return printJSON(&types.TokenStatus{
						AuthMethod: "password",
						Status:     "no_token_file",
						TokenFile:  path,
					})
				}
				return err
			}

			status := "valid"
			if creds.Expired(time.Now()) {
				status = "expired_or_expiring"
			}
			return printJSON(&types.TokenStatus{
				AuthMethod:       "oauth2",
				Status:           status,
				TokenFile:        path,
				Email:            creds.Email,
				CreatedAt:        creds.CreatedAt,
				ExpiresAt:        creds.ExpiresAt(),
				ExpiresInSeconds: creds.ExpiresAt() - time.Now().Unix(),
			})
		},
	}
}

func newOAuthLoginCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "oauth-login",
		Short: "Refresh the stored access token now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.tokenPath()
			refresher := oauth.NewRefresher(a.cfg.TokenURL, a.logger)
			guard, err := oauth.NewGuard(path, refresher, a.logger)
			if err != nil {
				return err
			}
			if err := guard.ForceRefresh(cmd.Context()); err != nil {
				return err
			}

			email, _, expiresAt, expiresIn := guard.Status()
			return printJSON(&types.TokenStatus{
				AuthMethod:       "oauth2",
				Status:           "refreshed",
				TokenFile:        path,
				Email:            email,
				ExpiresAt:        expiresAt,
				ExpiresInSeconds: expiresIn,
			})
		},
	}
}

func newOAuthRevokeCommand(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "oauth-revoke",
		Short: "Delete the stored OAuth2 tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.tokenPath()
			if !yes && !confirm(fmt.Sprintf("Delete token file %s?", path)) {
				return nil
			}
			if err := oauth.Remove(path); err != nil {
				return err
			}
			return printJSON(map[string]string{
				"status":     "revoked",
				"token_file": path,
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}
