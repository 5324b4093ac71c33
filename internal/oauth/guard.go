package oauth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// tokenRefresher is the refresh-token grant. Satisfied by *Refresher;
// narrowed to an interface so guard tests can fake it.
type tokenRefresher interface {
	Refresh(ctx context.Context, creds *Credentials) (*Credentials, error)
}

// Guard hands out access tokens, refreshing and persisting them only when
// the stored token is expired or expiring. Safe for concurrent use.
type Guard struct {
	path      string
	refresher tokenRefresher
	logger    *logrus.Logger
	now       func() time.Time

	mu    sync.Mutex
	creds *Credentials
}

// NewGuard loads the credential record at path and wraps it in a Guard.
func NewGuard(path string, refresher *Refresher, logger *logrus.Logger) (*Guard, error) {
	creds, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Guard{
		path:      path,
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
		creds:     creds,
	}, nil
}

// AccessToken returns a valid access token, refreshing first only if the
// stored one is expired or within the expiry margin.
func (g *Guard) AccessToken(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.creds.Expired(g.now()) {
		if err := g.refreshLocked(ctx); err != nil {
			return "", err
		}
	}
	return g.creds.AccessToken, nil
}

// ForceRefresh refreshes unconditionally, regardless of expiry. Used when a
// server rejects a token the local clock still considers valid.
func (g *Guard) ForceRefresh(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.refreshLocked(ctx)
}

func (g *Guard) refreshLocked(ctx context.Context) error {
	updated, err := g.refresher.Refresh(ctx, g.creds)
	if err != nil {
		return err
	}
	if err := Save(updated, g.path); err != nil {
		return fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}
	g.creds = updated
	g.logger.WithField("token_file", g.path).Debug("Persisted refreshed tokens")
	return nil
}

// Email returns the account address stored with the tokens, if any.
func (g *Guard) Email() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.creds.Email
}

// Status reports the current token state without refreshing anything.
func (g *Guard) Status() (email string, createdAt, expiresAt, expiresIn int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	expiresAt = g.creds.ExpiresAt()
	return g.creds.Email, g.creds.CreatedAt, expiresAt, expiresAt - g.now().Unix()
}

// Revoke deletes the token file. The in-memory credentials are kept so an
// already-built client finishes its session, but nothing will load them again.
func (g *Guard) Revoke() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Remove(g.path)
}
