package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Token store errors.
var (
	ErrTokenNotFound = errors.New("token file not found")
	ErrTokenCorrupt  = errors.New("token file is not valid JSON")
	ErrTokenInvalid  = errors.New("token file is missing required fields")
)

// expiryMargin is how long before actual expiry a token is treated as
// needing refresh.
const expiryMargin = 300

// Credentials is the persisted OAuth2 credential record.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	CreatedAt    int64  `json:"created_at"`
	TokenType    string `json:"token_type,omitempty"`
	Email        string `json:"email,omitempty"`
}

// Expired reports whether the access token is expired or expiring within
// the safety margin.
func (c *Credentials) Expired(now time.Time) bool {
	return now.Unix() >= c.CreatedAt+c.ExpiresIn-expiryMargin
}

// ExpiresAt returns the epoch second the access token actually expires.
func (c *Credentials) ExpiresAt() int64 {
	return c.CreatedAt + c.ExpiresIn
}

// Load reads a credential record from path.
func Load(path string) (*Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, path)
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTokenCorrupt, err)
	}

	var missing []string
	for field, value := range map[string]string{
		"access_token":  creds.AccessToken,
		"refresh_token": creds.RefreshToken,
		"client_id":     creds.ClientID,
		"client_secret": creds.ClientSecret,
	} {
		if value == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, missing)
	}

	return &creds, nil
}

// Save writes a credential record to path with owner-only permissions.
// The write goes through a temp file and rename so a crash never leaves a
// half-written token file behind.
func Save(creds *Credentials, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tokens-*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write tokens: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// Remove deletes the token file. A missing file is not an error, and a
// corrupt file can still be removed.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
