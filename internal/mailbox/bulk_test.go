package mailbox

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brandon/zoho-mail/internal/transport"
	"github.com/brandon/zoho-mail/pkg/types"
)

func summaries(n int) []types.MessageSummary {
	out := make([]types.MessageSummary, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, types.MessageSummary{
			ID:      strconv.Itoa(1000 + i),
			Subject: fmt.Sprintf("message %d", i),
			From:    "sender@example.com",
			Date:    "Mon, 01 Jan 2026 10:00:00 +0000",
			Snippet: "body text",
		})
	}
	return out
}

func TestBulkDryRunDoesNotMutate(t *testing.T) {
	imap := &fakeClient{
		kind:          transport.KindIMAP,
		searchResults: summaries(50),
		searchTotal:   120,
	}
	m := newFakeMailbox(imap, imap)

	result, err := m.Bulk(context.Background(), &BulkRequest{
		Folder: "INBOX",
		Query:  `FROM "sender@example.com"`,
		Action: "delete",
		Limit:  50,
		DryRun: true,
	})
	require.NoError(t, err)
	require.Zero(t, imap.actionCalls)

	require.NotNil(t, result.Preview)
	require.Nil(t, result.Applied)
	require.True(t, result.Preview.DryRun)
	require.Equal(t, 120, result.Preview.TotalFound)
	require.Equal(t, 50, result.Preview.ToProcess)
	require.Equal(t, "delete", result.Preview.Action)
	require.Equal(t, "imap", result.Preview.APIUsed)
	require.Len(t, result.Preview.Preview, 10)
	// Preview entries carry identification fields only.
	require.Empty(t, result.Preview.Preview[0].Snippet)
	require.Equal(t, "1000", result.Preview.Preview[0].ID)
}

func TestBulkExecutePartitionsEveryID(t *testing.T) {
	imap := &fakeClient{
		kind:          transport.KindIMAP,
		searchResults: summaries(4),
		searchTotal:   4,
		actionResult: &types.ActionResult{
			Success: []string{"1000", "1001", "1003"},
			Failed:  []string{"1002"},
		},
	}
	m := newFakeMailbox(imap, imap)

	result, err := m.Bulk(context.Background(), &BulkRequest{
		Folder: "INBOX",
		Query:  "ALL",
		Action: "mark-read",
		Limit:  10,
	})
	require.NoError(t, err)
	require.Nil(t, result.Preview)
	require.Equal(t, []string{"1000", "1001", "1002", "1003"}, imap.lastIDs)
	require.Len(t, result.Applied.Success, 3)
	require.Len(t, result.Applied.Failed, 1)
}

func TestBulkEmptyMatchSkipsAction(t *testing.T) {
	imap := &fakeClient{kind: transport.KindIMAP}
	m := newFakeMailbox(imap, imap)

	result, err := m.Bulk(context.Background(), &BulkRequest{
		Folder: "INBOX",
		Query:  `SUBJECT "nothing matches this"`,
		Action: "delete",
		Limit:  10,
	})
	require.NoError(t, err)
	require.Zero(t, imap.actionCalls)
	require.NotNil(t, result.Applied)
	require.Empty(t, result.Applied.Success)
	require.Empty(t, result.Applied.Failed)
}

func TestBulkRejectsUnknownAction(t *testing.T) {
	imap := &fakeClient{kind: transport.KindIMAP}
	m := newFakeMailbox(imap, imap)

	_, err := m.Bulk(context.Background(), &BulkRequest{
		Folder: "INBOX",
		Query:  "ALL",
		Action: "shred",
		Limit:  10,
	})
	require.ErrorIs(t, err, transport.ErrValidation)
	require.Zero(t, imap.searchCalls)
}

func TestBulkFallbackRerunsSearchOnIMAP(t *testing.T) {
	// REST finds messages but the action fails: the whole chain must rerun
	// on IMAP, ids from the REST search must never reach the IMAP client.
	rest := &fakeClient{
		kind:          transport.KindREST,
		searchResults: []types.MessageSummary{{ID: "999888777"}},
		searchTotal:   1,
		actionErr:     errors.New("api down"),
	}
	imap := &fakeClient{
		kind:          transport.KindIMAP,
		searchResults: []types.MessageSummary{{ID: "42"}},
		searchTotal:   1,
	}
	m := newFakeMailbox(rest, imap)

	result, err := m.Bulk(context.Background(), &BulkRequest{
		Folder: "INBOX",
		Query:  `FROM "spam@example.com"`,
		Action: "delete",
		Limit:  10,
	})
	require.NoError(t, err)
	require.Equal(t, 1, imap.searchCalls)
	require.Equal(t, []string{"42"}, imap.lastIDs)
	require.Equal(t, []string{"42"}, result.Applied.Success)
}

func TestBulkIMAPFailureDoesNotLoop(t *testing.T) {
	imap := &fakeClient{kind: transport.KindIMAP, searchErr: errors.New("imap down")}
	m := newFakeMailbox(imap, imap)

	_, err := m.Bulk(context.Background(), &BulkRequest{
		Folder: "INBOX",
		Query:  "ALL",
		Action: "delete",
		Limit:  10,
	})
	require.Error(t, err)
	require.Equal(t, 1, imap.searchCalls)
}

func TestEmptyFolderDefaultsToDryRun(t *testing.T) {
	imap := &fakeClient{
		kind:          transport.KindIMAP,
		searchResults: summaries(3),
		searchTotal:   3,
	}
	m := newFakeMailbox(imap, imap)

	result, err := m.EmptyFolder(context.Background(), "Spam", false)
	require.NoError(t, err)
	require.NotNil(t, result.Preview)
	require.Zero(t, imap.actionCalls)
	// Emptying ignores the recency window.
	require.Equal(t, 0, imap.lastRecency)
	require.Equal(t, "ALL", imap.lastQuery)

	_, err = m.EmptyFolder(context.Background(), "Spam", true)
	require.NoError(t, err)
	require.Equal(t, 1, imap.actionCalls)
}
