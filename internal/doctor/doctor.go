// Package doctor produces a connectivity and configuration report. It must
// never require working credentials: every probe is best-effort and failures
// become report fields, not errors.
package doctor

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/zoho-mail/internal/config"
	"github.com/brandon/zoho-mail/internal/oauth"
	"github.com/brandon/zoho-mail/pkg/types"
)

const (
	dialTimeout = 5 * time.Second
	httpTimeout = 8 * time.Second
)

// Run collects the diagnostics report.
func Run(ctx context.Context, cfg *config.Config, tokenPath string, logger *logrus.Logger) *types.DoctorReport {
	if tokenPath == "" {
		tokenPath = cfg.TokenPath
	}

	report := &types.DoctorReport{
		EmailEnvSet:    cfg.Email != "",
		PasswordEnvSet: cfg.Password != "",
		TokenFile:      tokenPath,
		RESTConfigured: cfg.RESTAvailable(),
		RESTBaseURL:    cfg.APIBaseURL,
		IMAPServer:     cfg.IMAPHost,
		IMAPPort:       cfg.IMAPPort,
		SMTPServer:     cfg.SMTPHost,
		SMTPPort:       cfg.SMTPPort,
	}

	checkTokenFile(report, tokenPath)
	report.IMAPReachable = tcpReachable(cfg.IMAPHost, cfg.IMAPPort, logger)
	report.SMTPReachable = tcpReachable(cfg.SMTPHost, cfg.SMTPPort, logger)
	if cfg.RESTAvailable() {
		report.RESTReachable = httpReachable(ctx, cfg.APIBaseURL, logger)
	}

	return report
}

func checkTokenFile(report *types.DoctorReport, path string) {
	if _, err := os.Stat(path); err != nil {
		report.TokenFileExists = false
		return
	}
	report.TokenFileExists = true

	creds, err := oauth.Load(path)
	if err != nil {
		report.TokenFileReadable = false
		report.TokenFileError = err.Error()
		return
	}
	report.TokenFileReadable = true
	report.HasRefreshToken = creds.RefreshToken != ""
	report.HasAccessToken = creds.AccessToken != ""
	expiring := creds.Expired(time.Now())
	report.TokenExpiring = &expiring
}

func tcpReachable(host string, port int, logger *logrus.Logger) bool {
	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		logger.WithError(err).WithField("addr", addr).Debug("TCP probe failed")
		return false
	}
	conn.Close()
	return true
}

func httpReachable(ctx context.Context, baseURL string, logger *logrus.Logger) bool {
	client := &http.Client{Timeout: httpTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.WithError(err).WithField("url", baseURL).Debug("HTTP probe failed")
		return false
	}
	resp.Body.Close()
	// Any HTTP response proves reachability; an unauthenticated request is
	// expected to be rejected.
	return true
}
