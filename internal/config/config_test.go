package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"ZOHO_EMAIL", "ZOHO_PASSWORD", "ZOHO_IMAP", "ZOHO_IMAP_PORT",
		"ZOHO_SMTP", "ZOHO_SMTP_PORT", "ZOHO_TOKEN_URL",
		"ZOHO_TOKEN_FILE", "ZOHO_CACHE_PATH", "ZOHO_TIMEOUT",
		"ZOHO_SEARCH_DAYS", "ZOHO_MAX_RETRIES", "ZOHO_API_RATE_DELAY_MS",
	} {
		t.Setenv(key, "")
	}
	// Set-but-empty disables REST; the default needs the variable absent.
	t.Setenv("ZOHO_API_BASE_URL", "placeholder")
	os.Unsetenv("ZOHO_API_BASE_URL")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "imap.zoho.com", cfg.IMAPHost)
	require.Equal(t, 993, cfg.IMAPPort)
	require.Equal(t, "smtp.zoho.com", cfg.SMTPHost)
	require.Equal(t, 465, cfg.SMTPPort)
	require.Equal(t, "https://mail.zoho.com/api", cfg.APIBaseURL)
	require.Equal(t, 30*time.Second, cfg.Timeout)
	require.Equal(t, 30, cfg.SearchDays)
	require.Equal(t, 3, cfg.MaxRetries)
	require.Equal(t, 500*time.Millisecond, cfg.RateDelay)
	require.NotEmpty(t, cfg.TokenPath)
	require.NotEmpty(t, cfg.CachePath)
	require.False(t, cfg.HasPasswordCredentials())
	require.True(t, cfg.RESTAvailable())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("ZOHO_EMAIL", "user@example.com")
	t.Setenv("ZOHO_PASSWORD", "app-password")
	t.Setenv("ZOHO_IMAP_PORT", "1993")
	t.Setenv("ZOHO_API_BASE_URL", "")
	t.Setenv("ZOHO_TOKEN_FILE", "/tmp/tokens.json")
	t.Setenv("ZOHO_SEARCH_DAYS", "7")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 1993, cfg.IMAPPort)
	require.Equal(t, "/tmp/tokens.json", cfg.TokenPath)
	require.Equal(t, 7, cfg.SearchDays)
	require.True(t, cfg.HasPasswordCredentials())
	require.False(t, cfg.RESTAvailable())
}

func TestValidateRejectsBadPorts(t *testing.T) {
	cfg := &Config{IMAPHost: "h", SMTPHost: "h", IMAPPort: 0, SMTPPort: 465, MaxRetries: 3}
	require.Error(t, cfg.Validate())

	cfg.IMAPPort = 993
	cfg.SMTPPort = 99999
	require.Error(t, cfg.Validate())
}
