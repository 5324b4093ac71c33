package mailbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brandon/zoho-mail/internal/cache"
	"github.com/brandon/zoho-mail/internal/oauth"
	"github.com/brandon/zoho-mail/internal/transport"
	"github.com/brandon/zoho-mail/pkg/types"
	"github.com/sirupsen/logrus"
)

// imapTransport is the fallback surface: the common client operations plus
// the MIME-level attachment access only IMAP can provide.
type imapTransport interface {
	transport.Client
	ListAttachments(ctx context.Context, folder, id string) ([]types.AttachmentInfo, error)
	DownloadAttachment(ctx context.Context, folder, id string, index int, outputPath string) (*types.AttachmentDownload, error)
}

// Mailbox is the transport-agnostic mail surface. Operations run on the
// active transport; a failed REST call is retried once over IMAP. IMAP
// failures propagate, there is nothing further to fall back to.
type Mailbox struct {
	active     transport.Client
	imap       imapTransport
	guard      *oauth.Guard
	store      *cache.Store
	logger     *logrus.Logger
	authMethod AuthMethod
	searchDays int
}

// AuthMethod returns the resolved authentication method.
func (m *Mailbox) AuthMethod() string { return string(m.authMethod) }

// ActiveTransport returns the transport selected for this session.
func (m *Mailbox) ActiveTransport() string { return string(m.active.Kind()) }

// Guard returns the OAuth2 token guard, nil under password auth.
func (m *Mailbox) Guard() *oauth.Guard { return m.guard }

// retryable reports whether an error justifies the IMAP fallback. Errors
// that would fail identically on any transport do not.
func retryable(err error) bool {
	var authErr *oauth.AuthError
	switch {
	case errors.Is(err, transport.ErrNotFound),
		errors.Is(err, transport.ErrValidation),
		errors.As(err, &authErr):
		return false
	}
	return true
}

// run executes op on the active transport with the single-step fallback.
// The closure must be safe to run a second time against a different client:
// ids from one transport are never replayed on the other.
func (m *Mailbox) run(op string, fn func(transport.Client) error) error {
	err := fn(m.active)
	if err == nil {
		return nil
	}
	if m.active.Kind() != transport.KindREST || !retryable(err) {
		return err
	}

	m.logger.WithError(err).WithField("op", op).Warn("REST API failed, retrying via IMAP")
	if imapErr := fn(m.imap); imapErr != nil {
		return &transport.TransportError{
			Op:         op,
			Transports: []transport.Kind{transport.KindREST, transport.KindIMAP},
			Err:        imapErr,
		}
	}
	return nil
}

// Search searches a folder. recencyDays <= 0 uses the configured default.
func (m *Mailbox) Search(ctx context.Context, folder, query string, limit, recencyDays int) ([]types.MessageSummary, int, error) {
	// Plain "show everything" listings are not recency-bounded; targeted
	// queries default to the configured window.
	if recencyDays <= 0 {
		if strings.EqualFold(strings.TrimSpace(query), "ALL") || query == "" {
			recencyDays = 0
		} else {
			recencyDays = m.searchDays
		}
	}

	var summaries []types.MessageSummary
	var total int
	err := m.run("search", func(c transport.Client) error {
		var err error
		summaries, total, err = c.Search(ctx, folder, query, limit, recencyDays)
		if err == nil {
			m.cacheResults(c.Kind(), folder, summaries)
		}
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

func (m *Mailbox) cacheResults(kind transport.Kind, folder string, summaries []types.MessageSummary) {
	if m.store == nil {
		return
	}
	if err := m.store.UpsertResults(string(kind), folder, summaries); err != nil {
		m.logger.WithError(err).Warn("Failed to cache search results")
	}
}

// FetchDetail fetches one full message.
func (m *Mailbox) FetchDetail(ctx context.Context, folder, id string) (*types.MessageDetail, error) {
	var detail *types.MessageDetail
	err := m.run("get", func(c transport.Client) error {
		var err error
		detail, err = c.FetchDetail(ctx, folder, id)
		return err
	})
	return detail, err
}

// Send submits a message. Attachments always go over SMTP, the REST send
// endpoint has no attachment support.
func (m *Mailbox) Send(ctx context.Context, msg *transport.Outgoing) (*types.SendResult, error) {
	var sent transport.Kind
	var err error
	if len(msg.Attachments) > 0 {
		sent = transport.KindIMAP
		err = m.imap.Send(ctx, msg)
	} else {
		err = m.run("send", func(c transport.Client) error {
			sent = c.Kind()
			return c.Send(ctx, msg)
		})
	}
	if err != nil {
		return nil, err
	}

	to := ""
	if len(msg.To) > 0 {
		to = msg.To[0]
	}
	return &types.SendResult{
		Status:      "sent",
		To:          to,
		Subject:     msg.Subject,
		HTML:        msg.HTML != "",
		Attachments: len(msg.Attachments),
		AuthMethod:  string(m.authMethod),
		APIUsed:     string(sent),
	}, nil
}

// MarkRead marks messages read.
func (m *Mailbox) MarkRead(ctx context.Context, folder string, ids []string) (*types.ActionResult, error) {
	return m.action(ctx, "mark-read", folder, ids, func(c transport.Client) actionFunc {
		return func() (*types.ActionResult, error) { return c.MarkRead(ctx, folder, ids) }
	})
}

// MarkUnread marks messages unread.
func (m *Mailbox) MarkUnread(ctx context.Context, folder string, ids []string) (*types.ActionResult, error) {
	return m.action(ctx, "mark-unread", folder, ids, func(c transport.Client) actionFunc {
		return func() (*types.ActionResult, error) { return c.MarkUnread(ctx, folder, ids) }
	})
}

// Delete deletes messages from a folder.
func (m *Mailbox) Delete(ctx context.Context, folder string, ids []string) (*types.ActionResult, error) {
	return m.action(ctx, "delete", folder, ids, func(c transport.Client) actionFunc {
		return func() (*types.ActionResult, error) { return c.Delete(ctx, folder, ids) }
	})
}

// Move moves messages between folders.
func (m *Mailbox) Move(ctx context.Context, fromFolder, toFolder string, ids []string) (*types.ActionResult, error) {
	return m.action(ctx, "move", fromFolder, ids, func(c transport.Client) actionFunc {
		return func() (*types.ActionResult, error) { return c.Move(ctx, fromFolder, toFolder, ids) }
	})
}

type actionFunc func() (*types.ActionResult, error)

func (m *Mailbox) action(_ context.Context, op, folder string, ids []string, bind func(transport.Client) actionFunc) (*types.ActionResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: id list cannot be empty", transport.ErrValidation)
	}

	var result *types.ActionResult
	err := m.run(op, func(c transport.Client) error {
		var err error
		result, err = bind(c)()
		return err
	})
	return result, err
}

// UnreadCount counts unread messages in a folder.
func (m *Mailbox) UnreadCount(ctx context.Context, folder string) (int, error) {
	var count int
	err := m.run("unread", func(c transport.Client) error {
		var err error
		count, err = c.UnreadCount(ctx, folder)
		return err
	})
	return count, err
}

// ListFolders lists the account's folders.
func (m *Mailbox) ListFolders(ctx context.Context) ([]types.Folder, error) {
	var folders []types.Folder
	err := m.run("list-folders", func(c transport.Client) error {
		var err error
		folders, err = c.ListFolders(ctx)
		return err
	})
	return folders, err
}

// ListAttachments lists a message's attachments. Attachment access needs the
// raw MIME structure, so this is IMAP-only regardless of the active
// transport.
func (m *Mailbox) ListAttachments(ctx context.Context, folder, id string) ([]types.AttachmentInfo, error) {
	return m.imap.ListAttachments(ctx, folder, id)
}

// DownloadAttachment saves one attachment to disk. IMAP-only, like
// ListAttachments.
func (m *Mailbox) DownloadAttachment(ctx context.Context, folder, id string, index int, outputPath string) (*types.AttachmentDownload, error) {
	return m.imap.DownloadAttachment(ctx, folder, id, index, outputPath)
}

// History returns recently cached search results without touching the
// network.
func (m *Mailbox) History(limit int) ([]types.CachedMessage, error) {
	if m.store == nil {
		return nil, fmt.Errorf("cache is not configured")
	}
	return m.store.Recent(limit)
}
