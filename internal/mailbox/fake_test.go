package mailbox

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/brandon/zoho-mail/internal/transport"
	"github.com/brandon/zoho-mail/pkg/types"
)

// fakeClient is a scriptable transport used by facade and bulk tests.
type fakeClient struct {
	kind transport.Kind

	searchResults []types.MessageSummary
	searchTotal   int
	searchErr     error
	searchCalls   int
	lastQuery     string
	lastLimit     int
	lastRecency   int

	actionResult *types.ActionResult
	actionErr    error
	actionCalls  int
	lastIDs      []string

	detail    *types.MessageDetail
	detailErr error

	sendErr   error
	sendCalls int

	unread    int
	unreadErr error

	folders    []types.Folder
	foldersErr error
}

func (f *fakeClient) Kind() transport.Kind { return f.kind }

func (f *fakeClient) Search(_ context.Context, folder, query string, limit, recencyDays int) ([]types.MessageSummary, int, error) {
	f.searchCalls++
	f.lastQuery = query
	f.lastLimit = limit
	f.lastRecency = recencyDays
	if f.searchErr != nil {
		return nil, 0, f.searchErr
	}
	return f.searchResults, f.searchTotal, nil
}

func (f *fakeClient) FetchDetail(_ context.Context, folder, id string) (*types.MessageDetail, error) {
	return f.detail, f.detailErr
}

func (f *fakeClient) Send(_ context.Context, _ *transport.Outgoing) error {
	f.sendCalls++
	return f.sendErr
}

func (f *fakeClient) act(ids []string) (*types.ActionResult, error) {
	f.actionCalls++
	f.lastIDs = ids
	if f.actionErr != nil {
		return nil, f.actionErr
	}
	if f.actionResult != nil {
		return f.actionResult, nil
	}
	return &types.ActionResult{Success: ids, Failed: []string{}}, nil
}

func (f *fakeClient) MarkRead(_ context.Context, _ string, ids []string) (*types.ActionResult, error) {
	return f.act(ids)
}

func (f *fakeClient) MarkUnread(_ context.Context, _ string, ids []string) (*types.ActionResult, error) {
	return f.act(ids)
}

func (f *fakeClient) Delete(_ context.Context, _ string, ids []string) (*types.ActionResult, error) {
	return f.act(ids)
}

func (f *fakeClient) Move(_ context.Context, _, _ string, ids []string) (*types.ActionResult, error) {
	return f.act(ids)
}

func (f *fakeClient) UnreadCount(_ context.Context, _ string) (int, error) {
	return f.unread, f.unreadErr
}

func (f *fakeClient) ListFolders(_ context.Context) ([]types.Folder, error) {
	return f.folders, f.foldersErr
}

func (f *fakeClient) ListAttachments(_ context.Context, _, _ string) ([]types.AttachmentInfo, error) {
	return nil, nil
}

func (f *fakeClient) DownloadAttachment(_ context.Context, _, _ string, _ int, _ string) (*types.AttachmentDownload, error) {
	return nil, nil
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newFakeMailbox wires a mailbox with a scripted active transport and a
// scripted IMAP fallback.
func newFakeMailbox(active transport.Client, fallback *fakeClient) *Mailbox {
	return &Mailbox{
		active:     active,
		imap:       fallback,
		logger:     quietLogger(),
		authMethod: AuthOAuth2,
		searchDays: 30,
	}
}
