package oauth

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validCreds() *Credentials {
	return &Credentials{
		ClientID:     "cid",
		ClientSecret: "secret",
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    3600,
		CreatedAt:    1700000000,
		TokenType:    "Bearer",
		Email:        "user@example.com",
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tokens.json")
	want := validCreds()

	require.NoError(t, Save(want, path))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSavePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, Save(validCreds(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.ErrorIs(t, err, ErrTokenNotFound)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrTokenCorrupt)
}

func TestLoadMissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty object", `{}`},
		{"no refresh token", `{"client_id":"a","client_secret":"b","access_token":"c"}`},
		{"no client secret", `{"client_id":"a","access_token":"c","refresh_token":"d"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tokens.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o600))

			_, err := Load(path)
			require.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestExpired(t *testing.T) {
	creds := &Credentials{CreatedAt: 1000, ExpiresIn: 3600}

	tests := []struct {
		name string
		now  int64
		want bool
	}{
		{"fresh", 1000, false},
		{"just inside margin", 1000 + 3600 - 301, false},
		{"at margin", 1000 + 3600 - 300, true},
		{"past expiry", 1000 + 3600 + 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, creds.Expired(time.Unix(tt.now, 0)))
		})
	}
}
