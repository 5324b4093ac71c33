package oauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// AuthError is a token refresh rejected by the authorization server. The
// response body is kept because Zoho puts the actual failure reason there.
type AuthError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *AuthError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Refresher exchanges a refresh token for a new access token at the Zoho
// token endpoint.
type Refresher struct {
	tokenURL string
	logger   *logrus.Logger
	now      func() time.Time
}

// NewRefresher creates a Refresher against the given token endpoint.
func NewRefresher(tokenURL string, logger *logrus.Logger) *Refresher {
	return &Refresher{
		tokenURL: tokenURL,
		logger:   logger,
		now:      time.Now,
	}
}

// Refresh performs the refresh-token grant and returns an updated copy of
// creds. Zoho may omit the refresh token from the response; the old one is
// kept in that case.
func (r *Refresher) Refresh(ctx context.Context, creds *Credentials) (*Credentials, error) {
	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  r.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	r.logger.WithField("token_url", r.tokenURL).Debug("Refreshing access token")

	src := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: creds.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, &AuthError{
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       string(retrieveErr.Body),
				Err:        err,
			}
		}
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	updated := *creds
	updated.AccessToken = tok.AccessToken
	updated.CreatedAt = r.now().Unix()
	if tok.RefreshToken != "" {
		updated.RefreshToken = tok.RefreshToken
	}
	if tok.TokenType != "" {
		updated.TokenType = tok.TokenType
	}
	if !tok.Expiry.IsZero() {
		// The oauth2 library computes Expiry against the wall clock, so
		// the lifetime must be measured against that same clock.
		updated.ExpiresIn = int64(time.Until(tok.Expiry).Seconds())
	} else {
		updated.ExpiresIn = 3600
	}

	r.logger.WithField("expires_in", updated.ExpiresIn).Debug("Access token refreshed")
	return &updated, nil
}
