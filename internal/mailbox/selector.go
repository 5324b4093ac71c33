package mailbox

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/brandon/zoho-mail/internal/cache"
	"github.com/brandon/zoho-mail/internal/config"
	"github.com/brandon/zoho-mail/internal/oauth"
	"github.com/brandon/zoho-mail/internal/transport"
)

// AuthMethod selects how to authenticate.
type AuthMethod string

const (
	AuthAuto     AuthMethod = "auto"
	AuthPassword AuthMethod = "password"
	AuthOAuth2   AuthMethod = "oauth2"
)

// APIMode selects which transport to use.
type APIMode string

const (
	ModeAuto APIMode = "auto"
	ModeIMAP APIMode = "imap"
	ModeREST APIMode = "rest"
)

// Options are the per-invocation overrides for session construction.
type Options struct {
	Auth      AuthMethod
	Mode      APIMode
	TokenPath string
}

// NewSession resolves credentials and transport once and returns a ready
// Mailbox. Auth auto prefers OAuth2 when a token file exists; transport auto
// prefers REST when OAuth2 is active and the API is configured. A REST
// client that fails to construct under auto mode downgrades to IMAP for the
// whole session.
func NewSession(ctx context.Context, cfg *config.Config, opts Options, store *cache.Store, logger *logrus.Logger) (*Mailbox, error) {
	tokenPath := opts.TokenPath
	if tokenPath == "" {
		tokenPath = cfg.TokenPath
	}

	auth, guard, err := resolveAuth(cfg, opts.Auth, tokenPath, logger)
	if err != nil {
		return nil, err
	}

	mode := opts.Mode
	if mode == "" {
		mode = ModeAuto
	}
	switch mode {
	case ModeREST:
		if auth != AuthOAuth2 {
			return nil, fmt.Errorf("%w: REST API requires oauth2 authentication", transport.ErrUnsupportedCombination)
		}
		if !cfg.RESTAvailable() {
			return nil, fmt.Errorf("%w: REST API base URL is not configured", transport.ErrMissingDependency)
		}
	case ModeAuto, ModeIMAP:
	default:
		return nil, fmt.Errorf("%w: unknown api mode %q", transport.ErrValidation, mode)
	}

	email := cfg.Email
	if guard != nil && guard.Email() != "" {
		email = guard.Email()
	}

	imapCfg := transport.IMAPConfig{
		IMAPHost: cfg.IMAPHost,
		IMAPPort: cfg.IMAPPort,
		SMTPHost: cfg.SMTPHost,
		SMTPPort: cfg.SMTPPort,
		Email:    email,
		Timeout:  cfg.Timeout,
	}
	if auth == AuthOAuth2 {
		imapCfg.Tokens = guard
	} else {
		imapCfg.Password = cfg.Password
	}
	imapClient := transport.NewIMAPClient(imapCfg, logger)

	m := &Mailbox{
		active:     imapClient,
		imap:       imapClient,
		guard:      guard,
		store:      store,
		logger:     logger,
		authMethod: auth,
		searchDays: cfg.SearchDays,
	}

	wantREST := mode == ModeREST ||
		(mode == ModeAuto && auth == AuthOAuth2 && cfg.RESTAvailable())
	if wantREST {
		restClient, err := transport.NewRESTClient(ctx, transport.RESTConfig{
			BaseURL:    cfg.APIBaseURL,
			Tokens:     guard,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			RateDelay:  cfg.RateDelay,
		}, logger)
		switch {
		case err == nil:
			m.active = restClient
		case mode == ModeREST:
			return nil, fmt.Errorf("failed to initialize REST API client: %w", err)
		default:
			logger.WithError(err).Warn("REST API unavailable, using IMAP for this session")
		}
	}

	logger.WithFields(logrus.Fields{
		"auth":      string(auth),
		"transport": string(m.active.Kind()),
	}).Debug("Session ready")
	return m, nil
}

// resolveAuth picks the auth method and builds the token guard when OAuth2
// is selected.
func resolveAuth(cfg *config.Config, auth AuthMethod, tokenPath string, logger *logrus.Logger) (AuthMethod, *oauth.Guard, error) {
	if auth == "" {
		auth = AuthAuto
	}

	if auth == AuthAuto {
		if _, err := os.Stat(tokenPath); err == nil {
			auth = AuthOAuth2
		} else if cfg.HasPasswordCredentials() {
			auth = AuthPassword
		} else {
			return "", nil, transport.ErrNoCredentials
		}
	}

	switch auth {
	case AuthOAuth2:
		refresher := oauth.NewRefresher(cfg.TokenURL, logger)
		guard, err := oauth.NewGuard(tokenPath, refresher, logger)
		if err != nil {
			return "", nil, err
		}
		return AuthOAuth2, guard, nil
	case AuthPassword:
		if !cfg.HasPasswordCredentials() {
			return "", nil, transport.ErrNoCredentials
		}
		return AuthPassword, nil, nil
	default:
		return "", nil, fmt.Errorf("%w: unknown auth method %q", transport.ErrValidation, auth)
	}
}
