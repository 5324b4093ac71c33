package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds the application configuration. It is built once at program
// entry and passed by reference; nothing reads the environment after Load.
type Config struct {
	// Account
	Email    string
	Password string

	// IMAP/SMTP settings
	IMAPHost string
	IMAPPort int
	SMTPHost string
	SMTPPort int

	// REST API settings. An empty APIBaseURL disables the REST transport.
	APIBaseURL string
	TokenURL   string

	// OAuth2 token file and local result cache
	TokenPath string
	CachePath string

	// Timeouts and limits
	Timeout    time.Duration
	SearchDays int
	MaxRetries int
	RateDelay  time.Duration

	LogLevel string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Email:      getEnv("ZOHO_EMAIL", ""),
		Password:   getEnv("ZOHO_PASSWORD", ""),
		IMAPHost:   getEnv("ZOHO_IMAP", "imap.zoho.com"),
		IMAPPort:   getEnvInt("ZOHO_IMAP_PORT", 993),
		SMTPHost:   getEnv("ZOHO_SMTP", "smtp.zoho.com"),
		SMTPPort:   getEnvInt("ZOHO_SMTP_PORT", 465),
		APIBaseURL: getEnvAllowEmpty("ZOHO_API_BASE_URL", "https://mail.zoho.com/api"),
		TokenURL:   getEnv("ZOHO_TOKEN_URL", "https://accounts.zoho.com/oauth/v2/token"),
		TokenPath:  getEnv("ZOHO_TOKEN_FILE", ""),
		CachePath:  getEnv("ZOHO_CACHE_PATH", ""),
		Timeout:    getEnvSeconds("ZOHO_TIMEOUT", 30),
		SearchDays: getEnvInt("ZOHO_SEARCH_DAYS", 30),
		MaxRetries: getEnvInt("ZOHO_MAX_RETRIES", 3),
		RateDelay:  getEnvMillis("ZOHO_API_RATE_DELAY_MS", 500),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
	}

	if cfg.TokenPath == "" {
		cfg.TokenPath = defaultUserPath("tokens.json")
	}
	if cfg.CachePath == "" {
		cfg.CachePath = defaultUserPath("cache.db")
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.IMAPHost == "" {
		return fmt.Errorf("ZOHO_IMAP is required")
	}
	if c.SMTPHost == "" {
		return fmt.Errorf("ZOHO_SMTP is required")
	}
	if c.IMAPPort < 1 || c.IMAPPort > 65535 {
		return fmt.Errorf("invalid ZOHO_IMAP_PORT")
	}
	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		return fmt.Errorf("invalid ZOHO_SMTP_PORT")
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("ZOHO_MAX_RETRIES must be at least 1")
	}
	return nil
}

// HasPasswordCredentials reports whether app-password authentication is
// possible from the environment alone.
func (c *Config) HasPasswordCredentials() bool {
	return c.Email != "" && c.Password != ""
}

// RESTAvailable reports whether the REST transport is configured.
func (c *Config) RESTAvailable() bool {
	return c.APIBaseURL != ""
}

// defaultUserPath returns a path under the per-user config directory.
func defaultUserPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".zoho-mail", name)
	}
	return filepath.Join(home, ".config", "zoho-mail", name)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty distinguishes unset from set-but-empty, so the REST API
// can be disabled by exporting ZOHO_API_BASE_URL="".
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as an integer or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Second
}

func getEnvMillis(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Millisecond
}
