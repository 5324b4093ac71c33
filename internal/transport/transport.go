package transport

import (
	"context"

	"github.com/brandon/zoho-mail/pkg/types"
)

// Kind identifies a transport. Message ids are only meaningful on the
// transport that produced them.
type Kind string

const (
	KindIMAP Kind = "imap"
	KindREST Kind = "rest"
)

// Outgoing is a message to send.
type Outgoing struct {
	To          []string
	Cc          []string
	Bcc         []string
	Subject     string
	Text        string
	HTML        string
	Attachments []string
}

// Client is the capability surface both transports implement. Search returns
// the capped result page plus the total match count before capping.
type Client interface {
	Kind() Kind

	Search(ctx context.Context, folder, query string, limit, recencyDays int) ([]types.MessageSummary, int, error)
	FetchDetail(ctx context.Context, folder, id string) (*types.MessageDetail, error)
	Send(ctx context.Context, msg *Outgoing) error

	MarkRead(ctx context.Context, folder string, ids []string) (*types.ActionResult, error)
	MarkUnread(ctx context.Context, folder string, ids []string) (*types.ActionResult, error)
	Delete(ctx context.Context, folder string, ids []string) (*types.ActionResult, error)
	Move(ctx context.Context, fromFolder, toFolder string, ids []string) (*types.ActionResult, error)

	UnreadCount(ctx context.Context, folder string) (int, error)
	ListFolders(ctx context.Context) ([]types.Folder, error)
}
