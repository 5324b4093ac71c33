package oauth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func refreshContext(srv *httptest.Server) context.Context {
	return context.WithValue(context.Background(), oauth2.HTTPClient, srv.Client())
}

func TestRefreshSuccess(t *testing.T) {
	var gotGrant, gotRefresh, gotClientID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotGrant = r.FormValue("grant_type")
		gotRefresh = r.FormValue("refresh_token")
		gotClientID = r.FormValue("client_id")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	r := NewRefresher(srv.URL, testLogger())
	r.now = func() time.Time { return time.Unix(1700000000, 0) }

	creds := validCreds()
	updated, err := r.Refresh(refreshContext(srv), creds)
	require.NoError(t, err)

	require.Equal(t, "refresh_token", gotGrant)
	require.Equal(t, "refresh", gotRefresh)
	require.Equal(t, "cid", gotClientID)

	require.Equal(t, "new-access", updated.AccessToken)
	require.Equal(t, int64(1700000000), updated.CreatedAt)
	require.InDelta(t, 3600, updated.ExpiresIn, 15)
	// Zoho does not rotate refresh tokens; the old one must survive.
	require.Equal(t, "refresh", updated.RefreshToken)
	// Input record untouched.
	require.Equal(t, "access", creds.AccessToken)
}

func TestRefreshKeepsRotatedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"new-access","refresh_token":"rotated","expires_in":3600}`))
	}))
	defer srv.Close()

	r := NewRefresher(srv.URL, testLogger())
	updated, err := r.Refresh(refreshContext(srv), validCreds())
	require.NoError(t, err)
	require.Equal(t, "rotated", updated.RefreshToken)
}

func TestRefreshRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	r := NewRefresher(srv.URL, testLogger())
	_, err := r.Refresh(refreshContext(srv), validCreds())
	require.Error(t, err)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	require.Equal(t, http.StatusBadRequest, authErr.StatusCode)
	require.Contains(t, authErr.Body, "invalid_grant")
}
