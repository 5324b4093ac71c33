package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/jhillyerd/enmime"
	"github.com/sirupsen/logrus"

	"github.com/brandon/zoho-mail/pkg/types"
)

const snippetLength = 500

// TokenSource supplies a valid OAuth2 access token. Implemented by the
// oauth guard; nil means app-password authentication.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// IMAPClient talks to Zoho over IMAP for reading and SMTP for sending.
// Connections are per-call: every operation dials, authenticates, runs one
// logical operation and logs out.
type IMAPClient struct {
	imapHost string
	imapPort int
	smtpHost string
	smtpPort int
	email    string
	password string
	tokens   TokenSource
	timeout  time.Duration
	logger   *logrus.Logger
}

// IMAPConfig carries the connection settings for NewIMAPClient. Exactly one
// of Password and Tokens must be set.
type IMAPConfig struct {
	IMAPHost string
	IMAPPort int
	SMTPHost string
	SMTPPort int
	Email    string
	Password string
	Tokens   TokenSource
	Timeout  time.Duration
}

// NewIMAPClient creates an IMAP/SMTP transport client.
func NewIMAPClient(cfg IMAPConfig, logger *logrus.Logger) *IMAPClient {
	return &IMAPClient{
		imapHost: cfg.IMAPHost,
		imapPort: cfg.IMAPPort,
		smtpHost: cfg.SMTPHost,
		smtpPort: cfg.SMTPPort,
		email:    cfg.Email,
		password: cfg.Password,
		tokens:   cfg.Tokens,
		timeout:  cfg.Timeout,
		logger:   logger,
	}
}

// Kind implements Client.
func (c *IMAPClient) Kind() Kind { return KindIMAP }

// connect dials the IMAP server over TLS and authenticates.
func (c *IMAPClient) connect(ctx context.Context) (*client.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.imapHost, c.imapPort)
	dialer := &net.Dialer{Timeout: c.timeout}

	conn, err := client.DialWithDialerTLS(dialer, addr, &tls.Config{
		ServerName: c.imapHost,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server %s: %w", addr, err)
	}
	conn.Timeout = c.timeout

	if c.tokens != nil {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			conn.Logout()
			return nil, err
		}
		if err := conn.Authenticate(NewXOAuth2Client(c.email, token)); err != nil {
			conn.Logout()
			return nil, fmt.Errorf("failed to authenticate via XOAUTH2: %w", err)
		}
	} else {
		if err := conn.Login(c.email, c.password); err != nil {
			conn.Logout()
			return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
		}
	}

	c.logger.WithField("server", addr).Debug("Connected to IMAP server")
	return conn, nil
}

// selectFolder selects a mailbox, mapping the server's "no such mailbox"
// rejection to ErrNotFound. Other failures (a dropped connection, a protocol
// error) stay plain transport errors.
func (c *IMAPClient) selectFolder(conn *client.Client, folder string, readOnly bool) error {
	_, err := conn.Select(folder, readOnly)
	if err == nil {
		return nil
	}
	if isMissingMailbox(err) {
		return fmt.Errorf("%w: folder %s", ErrNotFound, folder)
	}
	return fmt.Errorf("failed to select folder %s: %w", folder, err)
}

// isMissingMailbox matches the NO text servers send for a nonexistent
// mailbox. The protocol carries no machine-readable code for this; the info
// string is all the client library surfaces.
func isMissingMailbox(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"exist",
		"no such",
		"not found",
		"unknown mailbox",
		"invalid mailbox",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// Search implements Client. The returned total is the full match count; the
// page is the newest `limit` matches, newest first.
func (c *IMAPClient) Search(ctx context.Context, folder, query string, limit, recencyDays int) ([]types.MessageSummary, int, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer conn.Logout()

	if err := c.selectFolder(conn, folder, true); err != nil {
		return nil, 0, err
	}

	criteria := ParseIMAPQuery(query, recencyDays, time.Now())
	uids, err := conn.UidSearch(criteria)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search folder %s: %w", folder, err)
	}

	total := len(uids)
	page := tailUIDs(uids, limit)
	if len(page) == 0 {
		return []types.MessageSummary{}, total, nil
	}

	summaries, err := c.fetchSummaries(conn, page)
	if err != nil {
		return nil, 0, err
	}
	return summaries, total, nil
}

// fetchSummaries fetches envelope and body for the given UIDs and returns
// summaries newest first.
func (c *IMAPClient) fetchSummaries(conn *client.Client, uids []uint32) ([]types.MessageSummary, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- conn.UidFetch(seqset, items, messages)
	}()

	var summaries []types.MessageSummary
	for msg := range messages {
		summary := types.MessageSummary{
			ID:      strconv.FormatUint(uint64(msg.Uid), 10),
			Subject: msg.Envelope.Subject,
			From:    formatAddresses(msg.Envelope.From),
			To:      formatAddresses(msg.Envelope.To),
			Date:    msg.Envelope.Date.Format(time.RFC1123Z),
		}
		if body := msg.GetBody(section); body != nil {
			if env, err := enmime.ReadEnvelope(body); err == nil {
				summary.Snippet = truncateSnippet(env.Text, snippetLength)
			} else {
				c.logger.WithError(err).WithField("uid", msg.Uid).Warn("Failed to parse message body")
			}
		}
		summaries = append(summaries, summary)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	// UIDs come back ascending; callers want newest first.
	for i, j := 0, len(summaries)-1; i < j; i, j = i+1, j-1 {
		summaries[i], summaries[j] = summaries[j], summaries[i]
	}
	return summaries, nil
}

// FetchDetail implements Client.
func (c *IMAPClient) FetchDetail(ctx context.Context, folder, id string) (*types.MessageDetail, error) {
	uid, err := parseUID(id)
	if err != nil {
		return nil, err
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Logout()

	if err := c.selectFolder(conn, folder, true); err != nil {
		return nil, err
	}

	msg, env, err := c.fetchOne(conn, uid)
	if err != nil {
		return nil, err
	}

	return &types.MessageDetail{
		ID:      id,
		Folder:  folder,
		Subject: msg.Envelope.Subject,
		From:    formatAddresses(msg.Envelope.From),
		To:      formatAddresses(msg.Envelope.To),
		Date:    msg.Envelope.Date.Format(time.RFC1123Z),
		Body:    env.Text,
	}, nil
}

// fetchOne fetches a single message with its parsed MIME envelope.
func (c *IMAPClient) fetchOne(conn *client.Client, uid uint32) (*imap.Message, *enmime.Envelope, error) {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- conn.UidFetch(seqset, items, messages)
	}()

	msg := <-messages
	if err := <-done; err != nil {
		return nil, nil, fmt.Errorf("failed to fetch message: %w", err)
	}
	if msg == nil {
		return nil, nil, fmt.Errorf("%w: message %d", ErrNotFound, uid)
	}

	body := msg.GetBody(section)
	if body == nil {
		return nil, nil, fmt.Errorf("%w: message %d has no body", ErrNotFound, uid)
	}
	env, err := enmime.ReadEnvelope(body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return msg, env, nil
}

// MarkRead implements Client.
func (c *IMAPClient) MarkRead(ctx context.Context, folder string, ids []string) (*types.ActionResult, error) {
	return c.storeFlags(ctx, folder, ids, imap.AddFlags, imap.SeenFlag)
}

// MarkUnread implements Client.
func (c *IMAPClient) MarkUnread(ctx context.Context, folder string, ids []string) (*types.ActionResult, error) {
	return c.storeFlags(ctx, folder, ids, imap.RemoveFlags, imap.SeenFlag)
}

func (c *IMAPClient) storeFlags(ctx context.Context, folder string, ids []string, op imap.FlagsOp, flag string) (*types.ActionResult, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Logout()

	if err := c.selectFolder(conn, folder, false); err != nil {
		return nil, err
	}

	item := imap.FormatFlagsOp(op, true)
	result := types.NewActionResult()
	for _, id := range ids {
		uid, err := parseUID(id)
		if err != nil {
			result.Failed = append(result.Failed, id)
			continue
		}
		seqset := new(imap.SeqSet)
		seqset.AddNum(uid)
		if err := conn.UidStore(seqset, item, []interface{}{flag}, nil); err != nil {
			c.logger.WithError(err).WithField("uid", uid).Warn("Failed to update flags")
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Success = append(result.Success, id)
	}
	return result, nil
}

// Delete implements Client. Messages are flagged \Deleted one by one, then a
// single Expunge removes them all.
func (c *IMAPClient) Delete(ctx context.Context, folder string, ids []string) (*types.ActionResult, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Logout()

	if err := c.selectFolder(conn, folder, false); err != nil {
		return nil, err
	}

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	result := types.NewActionResult()
	for _, id := range ids {
		uid, err := parseUID(id)
		if err != nil {
			result.Failed = append(result.Failed, id)
			continue
		}
		seqset := new(imap.SeqSet)
		seqset.AddNum(uid)
		if err := conn.UidStore(seqset, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
			c.logger.WithError(err).WithField("uid", uid).Warn("Failed to flag message deleted")
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Success = append(result.Success, id)
	}

	if len(result.Success) > 0 {
		if err := conn.Expunge(nil); err != nil {
			return nil, fmt.Errorf("failed to expunge folder %s: %w", folder, err)
		}
	}
	return result, nil
}

// Move implements Client. Copy to the destination, flag the source copy
// \Deleted, expunge once at the end.
func (c *IMAPClient) Move(ctx context.Context, fromFolder, toFolder string, ids []string) (*types.ActionResult, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Logout()

	if err := c.selectFolder(conn, fromFolder, false); err != nil {
		return nil, err
	}

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	result := types.NewActionResult()
	for _, id := range ids {
		uid, err := parseUID(id)
		if err != nil {
			result.Failed = append(result.Failed, id)
			continue
		}
		seqset := new(imap.SeqSet)
		seqset.AddNum(uid)
		if err := conn.UidCopy(seqset, toFolder); err != nil {
			c.logger.WithError(err).WithField("uid", uid).Warn("Failed to copy message")
			result.Failed = append(result.Failed, id)
			continue
		}
		if err := conn.UidStore(seqset, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
			c.logger.WithError(err).WithField("uid", uid).Warn("Failed to flag moved message")
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Success = append(result.Success, id)
	}

	if len(result.Success) > 0 {
		if err := conn.Expunge(nil); err != nil {
			return nil, fmt.Errorf("failed to expunge folder %s: %w", fromFolder, err)
		}
	}
	return result, nil
}

// UnreadCount implements Client.
func (c *IMAPClient) UnreadCount(ctx context.Context, folder string) (int, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Logout()

	if err := c.selectFolder(conn, folder, true); err != nil {
		return 0, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := conn.UidSearch(criteria)
	if err != nil {
		return 0, fmt.Errorf("failed to search for unread messages: %w", err)
	}
	return len(uids), nil
}

// ListFolders implements Client.
func (c *IMAPClient) ListFolders(ctx context.Context) ([]types.Folder, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Logout()

	mailboxes := make(chan *imap.MailboxInfo, 32)
	done := make(chan error, 1)
	go func() {
		done <- conn.List("", "*", mailboxes)
	}()

	var folders []types.Folder
	for m := range mailboxes {
		folders = append(folders, types.Folder{Name: m.Name})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return folders, nil
}

// ListAttachments returns the attachments of a message. Inline text parts
// are not attachments.
func (c *IMAPClient) ListAttachments(ctx context.Context, folder, id string) ([]types.AttachmentInfo, error) {
	uid, err := parseUID(id)
	if err != nil {
		return nil, err
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Logout()

	if err := c.selectFolder(conn, folder, true); err != nil {
		return nil, err
	}

	_, env, err := c.fetchOne(conn, uid)
	if err != nil {
		return nil, err
	}

	infos := make([]types.AttachmentInfo, 0, len(env.Attachments))
	for i, part := range env.Attachments {
		infos = append(infos, types.AttachmentInfo{
			Index:       i,
			Filename:    part.FileName,
			ContentType: part.ContentType,
			Size:        len(part.Content),
		})
	}
	return infos, nil
}

// DownloadAttachment saves one attachment to outputPath. An empty outputPath
// saves under the attachment's own filename in the working directory.
func (c *IMAPClient) DownloadAttachment(ctx context.Context, folder, id string, index int, outputPath string) (*types.AttachmentDownload, error) {
	uid, err := parseUID(id)
	if err != nil {
		return nil, err
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Logout()

	if err := c.selectFolder(conn, folder, true); err != nil {
		return nil, err
	}

	_, env, err := c.fetchOne(conn, uid)
	if err != nil {
		return nil, err
	}

	if index < 0 || index >= len(env.Attachments) {
		return nil, fmt.Errorf("%w: attachment index %d (message has %d)", ErrNotFound, index, len(env.Attachments))
	}
	part := env.Attachments[index]

	if outputPath == "" {
		outputPath = part.FileName
	}
	if err := os.MkdirAll(filepath.Dir(filepath.Clean(outputPath)), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(outputPath, part.Content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write attachment: %w", err)
	}

	return &types.AttachmentDownload{
		Filename:    part.FileName,
		OutputPath:  outputPath,
		Size:        len(part.Content),
		ContentType: part.ContentType,
	}, nil
}

func parseUID(id string) (uint32, error) {
	uid, err := strconv.ParseUint(strings.TrimSpace(id), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a message uid", ErrValidation, id)
	}
	return uint32(uid), nil
}

// tailUIDs returns the last n elements, which for UID order are the newest
// messages. n <= 0 means no cap.
func tailUIDs(uids []uint32, n int) []uint32 {
	if n <= 0 || len(uids) <= n {
		return uids
	}
	return uids[len(uids)-n:]
}

func formatAddresses(addrs []*imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s@%s>", a.PersonalName, a.MailboxName, a.HostName))
		} else {
			parts = append(parts, fmt.Sprintf("%s@%s", a.MailboxName, a.HostName))
		}
	}
	return strings.Join(parts, ", ")
}

func truncateSnippet(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
