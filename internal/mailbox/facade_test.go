package mailbox

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brandon/zoho-mail/internal/oauth"
	"github.com/brandon/zoho-mail/internal/transport"
	"github.com/brandon/zoho-mail/pkg/types"
)

func TestSearchRESTFallsBackToIMAP(t *testing.T) {
	rest := &fakeClient{kind: transport.KindREST, searchErr: errors.New("connection reset")}
	imap := &fakeClient{
		kind:          transport.KindIMAP,
		searchResults: []types.MessageSummary{{ID: "7"}},
		searchTotal:   1,
	}
	m := newFakeMailbox(rest, imap)

	summaries, total, err := m.Search(context.Background(), "INBOX", `SUBJECT "x"`, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "7", summaries[0].ID)
	require.Equal(t, 1, rest.searchCalls)
	require.Equal(t, 1, imap.searchCalls)
}

func TestSearchIMAPFailurePropagates(t *testing.T) {
	imap := &fakeClient{kind: transport.KindIMAP, searchErr: errors.New("login failed")}
	m := newFakeMailbox(imap, imap)

	_, _, err := m.Search(context.Background(), "INBOX", "ALL", 10, 0)
	require.Error(t, err)
	// Exactly one attempt: IMAP has nothing to fall back to.
	require.Equal(t, 1, imap.searchCalls)
}

func TestFallbackFailureNamesBothTransports(t *testing.T) {
	rest := &fakeClient{kind: transport.KindREST, searchErr: errors.New("rest down")}
	imap := &fakeClient{kind: transport.KindIMAP, searchErr: errors.New("imap down")}
	m := newFakeMailbox(rest, imap)

	_, _, err := m.Search(context.Background(), "INBOX", "ALL", 10, 0)
	var terr *transport.TransportError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, []transport.Kind{transport.KindREST, transport.KindIMAP}, terr.Transports)
}

func TestNoFallbackOnNotFound(t *testing.T) {
	rest := &fakeClient{
		kind:      transport.KindREST,
		detailErr: fmt.Errorf("%w: message 9", transport.ErrNotFound),
	}
	imap := &fakeClient{kind: transport.KindIMAP}
	m := newFakeMailbox(rest, imap)

	_, err := m.FetchDetail(context.Background(), "INBOX", "9")
	require.ErrorIs(t, err, transport.ErrNotFound)
	require.Zero(t, imap.searchCalls)
}

func TestNoFallbackOnAuthError(t *testing.T) {
	rest := &fakeClient{
		kind:      transport.KindREST,
		searchErr: &oauth.AuthError{StatusCode: 400, Body: "invalid_grant"},
	}
	imap := &fakeClient{kind: transport.KindIMAP}
	m := newFakeMailbox(rest, imap)

	_, _, err := m.Search(context.Background(), "INBOX", "ALL", 10, 0)
	var authErr *oauth.AuthError
	require.ErrorAs(t, err, &authErr)
	require.Zero(t, imap.searchCalls)
}

func TestActionEmptyIDsRejected(t *testing.T) {
	rest := &fakeClient{kind: transport.KindREST}
	m := newFakeMailbox(rest, &fakeClient{kind: transport.KindIMAP})

	for _, op := range []func() (*types.ActionResult, error){
		func() (*types.ActionResult, error) { return m.MarkRead(context.Background(), "INBOX", nil) },
		func() (*types.ActionResult, error) { return m.MarkUnread(context.Background(), "INBOX", nil) },
		func() (*types.ActionResult, error) { return m.Delete(context.Background(), "INBOX", nil) },
		func() (*types.ActionResult, error) {
			return m.Move(context.Background(), "INBOX", "Archive", nil)
		},
	} {
		_, err := op()
		require.ErrorIs(t, err, transport.ErrValidation)
	}
	require.Zero(t, rest.actionCalls)
}

func TestSearchDefaultRecency(t *testing.T) {
	imap := &fakeClient{kind: transport.KindIMAP}
	m := newFakeMailbox(imap, imap)

	_, _, err := m.Search(context.Background(), "INBOX", `SUBJECT "x"`, 10, 0)
	require.NoError(t, err)
	require.Equal(t, 30, imap.lastRecency)

	// Explicit recency wins over the default.
	_, _, err = m.Search(context.Background(), "INBOX", `SUBJECT "x"`, 10, 7)
	require.NoError(t, err)
	require.Equal(t, 7, imap.lastRecency)

	// Plain listings are unbounded.
	_, _, err = m.Search(context.Background(), "INBOX", "ALL", 10, 0)
	require.NoError(t, err)
	require.Equal(t, 0, imap.lastRecency)
}

func TestSendWithAttachmentsGoesToIMAP(t *testing.T) {
	rest := &fakeClient{kind: transport.KindREST}
	imap := &fakeClient{kind: transport.KindIMAP}
	m := newFakeMailbox(rest, imap)

	result, err := m.Send(context.Background(), &transport.Outgoing{
		To:          []string{"to@example.com"},
		Subject:     "files",
		Text:        "see attached",
		Attachments: []string{"/tmp/report.pdf"},
	})
	require.NoError(t, err)
	require.Zero(t, rest.sendCalls)
	require.Equal(t, 1, imap.sendCalls)
	require.Equal(t, 1, result.Attachments)
	require.Equal(t, "sent", result.Status)
	require.Equal(t, "imap", result.APIUsed)
}

func TestSendReportsTransport(t *testing.T) {
	rest := &fakeClient{kind: transport.KindREST}
	imap := &fakeClient{kind: transport.KindIMAP}
	m := newFakeMailbox(rest, imap)

	result, err := m.Send(context.Background(), &transport.Outgoing{
		To:      []string{"to@example.com"},
		Subject: "hi",
		Text:    "hello",
	})
	require.NoError(t, err)
	require.Equal(t, "rest", result.APIUsed)
}

func TestSendFallsBack(t *testing.T) {
	rest := &fakeClient{kind: transport.KindREST, sendErr: errors.New("api down")}
	imap := &fakeClient{kind: transport.KindIMAP}
	m := newFakeMailbox(rest, imap)

	result, err := m.Send(context.Background(), &transport.Outgoing{
		To:      []string{"to@example.com"},
		Subject: "hi",
		Text:    "hello",
	})
	require.NoError(t, err)
	require.Equal(t, 1, rest.sendCalls)
	require.Equal(t, 1, imap.sendCalls)
	require.Equal(t, "to@example.com", result.To)
	// The result names the transport that actually delivered.
	require.Equal(t, "imap", result.APIUsed)
}
