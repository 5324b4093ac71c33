package oauth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRefresher struct {
	calls  int
	result *Credentials
	err    error
}

func (f *fakeRefresher) Refresh(_ context.Context, _ *Credentials) (*Credentials, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestGuard(t *testing.T, creds *Credentials, refresher tokenRefresher, now int64) *Guard {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, Save(creds, path))
	return &Guard{
		path:      path,
		refresher: refresher,
		logger:    testLogger(),
		now:       func() time.Time { return time.Unix(now, 0) },
		creds:     creds,
	}
}

func TestAccessTokenFreshSkipsRefresh(t *testing.T) {
	creds := validCreds()
	creds.CreatedAt = 1700000000
	creds.ExpiresIn = 3600
	fake := &fakeRefresher{}
	g := newTestGuard(t, creds, fake, 1700000000)

	tok, err := g.AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "access", tok)
	require.Zero(t, fake.calls)
}

func TestAccessTokenExpiredRefreshesAndPersists(t *testing.T) {
	creds := validCreds()
	creds.CreatedAt = 1700000000
	creds.ExpiresIn = 3600

	updated := *creds
	updated.AccessToken = "new-access"
	updated.CreatedAt = 1700003600
	fake := &fakeRefresher{result: &updated}

	g := newTestGuard(t, creds, fake, 1700003600)

	tok, err := g.AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "new-access", tok)
	require.Equal(t, 1, fake.calls)

	// Refreshed record must be on disk.
	onDisk, err := Load(g.path)
	require.NoError(t, err)
	require.Equal(t, "new-access", onDisk.AccessToken)

	// A second call inside the new window must not refresh again.
	tok, err = g.AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "new-access", tok)
	require.Equal(t, 1, fake.calls)
}

func TestAccessTokenRefreshFailure(t *testing.T) {
	creds := validCreds()
	creds.CreatedAt = 1000
	creds.ExpiresIn = 10
	fake := &fakeRefresher{err: &AuthError{StatusCode: 400, Body: "invalid_grant"}}
	g := newTestGuard(t, creds, fake, 99999999)

	_, err := g.AccessToken(context.Background())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
}

func TestForceRefreshIgnoresExpiry(t *testing.T) {
	creds := validCreds()
	creds.CreatedAt = 1700000000
	creds.ExpiresIn = 3600

	updated := *creds
	updated.AccessToken = "forced"
	fake := &fakeRefresher{result: &updated}
	g := newTestGuard(t, creds, fake, 1700000000)

	require.NoError(t, g.ForceRefresh(context.Background()))
	require.Equal(t, 1, fake.calls)

	tok, err := g.AccessToken(context.Background())
	require.NoError(t, err)
	require.Equal(t, "forced", tok)
}

func TestRevokeRemovesFile(t *testing.T) {
	g := newTestGuard(t, validCreds(), &fakeRefresher{}, 1700000000)
	require.NoError(t, g.Revoke())

	_, err := Load(g.path)
	require.ErrorIs(t, err, ErrTokenNotFound)

	// Revoking twice is not an error.
	require.NoError(t, g.Revoke())
}

func TestNewGuardMissingFile(t *testing.T) {
	_, err := NewGuard(filepath.Join(t.TempDir(), "missing.json"), nil, testLogger())
	require.ErrorIs(t, err, ErrTokenNotFound)
	require.True(t, errors.Is(err, ErrTokenNotFound))
}
