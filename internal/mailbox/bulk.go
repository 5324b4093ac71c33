package mailbox

import (
	"context"
	"fmt"

	"github.com/brandon/zoho-mail/internal/transport"
	"github.com/brandon/zoho-mail/pkg/types"
)

const previewSize = 10

// BulkRequest describes a search-then-act operation.
type BulkRequest struct {
	Folder      string
	Query       string
	Action      string
	Limit       int
	RecencyDays int
	DryRun      bool
}

// Bulk searches a folder and applies an action to every match. The search
// and the action are pinned to one transport: message ids never cross the
// transport boundary. If the REST chain fails, the whole request reruns on
// IMAP, starting with a fresh search.
func (m *Mailbox) Bulk(ctx context.Context, req *BulkRequest) (*types.BulkResult, error) {
	switch req.Action {
	case "mark-read", "mark-unread", "delete":
	default:
		return nil, fmt.Errorf("%w: unknown bulk action %q", transport.ErrValidation, req.Action)
	}
	if req.Limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", transport.ErrValidation)
	}
	// RecencyDays 0 means the configured default; negative means unbounded.
	if req.RecencyDays == 0 {
		req.RecencyDays = m.searchDays
	} else if req.RecencyDays < 0 {
		req.RecencyDays = 0
	}

	result, err := m.bulkOn(ctx, m.active, req)
	if err == nil {
		return result, nil
	}
	if m.active.Kind() != transport.KindREST || !retryable(err) {
		return nil, err
	}

	m.logger.WithError(err).Warn("Bulk operation failed on REST API, rerunning via IMAP")
	result, imapErr := m.bulkOn(ctx, m.imap, req)
	if imapErr != nil {
		return nil, &transport.TransportError{
			Op:         "bulk-" + req.Action,
			Transports: []transport.Kind{transport.KindREST, transport.KindIMAP},
			Err:        imapErr,
		}
	}
	return result, nil
}

// bulkOn runs the full search-then-act chain against a single client.
func (m *Mailbox) bulkOn(ctx context.Context, client transport.Client, req *BulkRequest) (*types.BulkResult, error) {
	summaries, total, err := client.Search(ctx, req.Folder, req.Query, req.Limit, req.RecencyDays)
	if err != nil {
		return nil, err
	}

	if req.DryRun {
		preview := make([]types.MessageSummary, 0, previewSize)
		for _, s := range summaries {
			if len(preview) == previewSize {
				break
			}
			preview = append(preview, types.MessageSummary{
				ID:      s.ID,
				Subject: s.Subject,
				From:    s.From,
				Date:    s.Date,
			})
		}
		return &types.BulkResult{Preview: &types.BulkPreview{
			DryRun:     true,
			TotalFound: total,
			ToProcess:  len(summaries),
			Action:     req.Action,
			Preview:    preview,
			APIUsed:    string(client.Kind()),
		}}, nil
	}

	if len(summaries) == 0 {
		return &types.BulkResult{Applied: types.NewActionResult()}, nil
	}

	ids := make([]string, 0, len(summaries))
	for _, s := range summaries {
		ids = append(ids, s.ID)
	}

	var applied *types.ActionResult
	switch req.Action {
	case "mark-read":
		applied, err = client.MarkRead(ctx, req.Folder, ids)
	case "mark-unread":
		applied, err = client.MarkUnread(ctx, req.Folder, ids)
	case "delete":
		applied, err = client.Delete(ctx, req.Folder, ids)
	}
	if err != nil {
		return nil, err
	}

	m.logger.WithField("action", req.Action).
		WithField("success", len(applied.Success)).
		WithField("failed", len(applied.Failed)).
		Info("Bulk action applied")
	return &types.BulkResult{Applied: applied}, nil
}

// EmptyFolder deletes everything in a folder, any age. Dry-run unless
// execute is set.
func (m *Mailbox) EmptyFolder(ctx context.Context, folder string, execute bool) (*types.BulkResult, error) {
	return m.Bulk(ctx, &BulkRequest{
		Folder:      folder,
		Query:       "ALL",
		Action:      "delete",
		Limit:       500,
		RecencyDays: -1,
		DryRun:      !execute,
	})
}
