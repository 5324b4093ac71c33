package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brandon/zoho-mail/pkg/types"
)

// RefreshingTokenSource is a TokenSource that can also be forced to refresh
// when the server rejects a token the local clock still trusts.
type RefreshingTokenSource interface {
	TokenSource
	ForceRefresh(ctx context.Context) error
	Email() string
}

// RESTClient talks to the Zoho Mail REST API.
type RESTClient struct {
	baseURL    string
	httpc      *http.Client
	tokens     RefreshingTokenSource
	logger     *logrus.Logger
	maxRetries int
	rateDelay  time.Duration
	sleep      func(time.Duration)

	accountID string
}

// RESTConfig carries the settings for NewRESTClient.
type RESTConfig struct {
	BaseURL    string
	Tokens     RefreshingTokenSource
	Timeout    time.Duration
	MaxRetries int
	RateDelay  time.Duration
}

// NewRESTClient creates a REST transport client and resolves the account id
// up front, so a misconfigured API surfaces at construction time.
func NewRESTClient(ctx context.Context, cfg RESTConfig, logger *logrus.Logger) (*RESTClient, error) {
	c := &RESTClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpc:      &http.Client{Timeout: cfg.Timeout},
		tokens:     cfg.Tokens,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		rateDelay:  cfg.RateDelay,
		sleep:      time.Sleep,
	}
	if c.maxRetries < 1 {
		c.maxRetries = 1
	}
	if err := c.resolveAccountID(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Kind implements Client.
func (c *RESTClient) Kind() Kind { return KindREST }

// envelope is the Zoho response wrapper. Data is kept raw because its shape
// varies per endpoint.
type envelope struct {
	Status struct {
		Code        int    `json:"code"`
		Description string `json:"description"`
	} `json:"status"`
	Data json.RawMessage `json:"data"`
}

// doRequest performs one API call with retries: 429 waits out the
// Retry-After, 401 forces a token refresh, everything else is final. A fixed
// rate delay follows every successful call.
func (c *RESTClient) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		c.logger.WithFields(logrus.Fields{"method": method, "url": reqURL, "attempt": attempt + 1}).Debug("API request")

		resp, err := c.httpc.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			c.logger.WithError(err).Warn("API request failed")
			c.sleep(c.rateDelay * time.Duration(attempt+1))
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %w", err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			delay := c.rateDelay * time.Duration(attempt+1)
			if ra := resp.Header.Get("Retry-After"); ra != "" {
				if secs, err := strconv.Atoi(ra); err == nil {
					delay = time.Duration(secs) * time.Second
				}
			}
			c.logger.WithField("delay", delay).Warn("Rate limited by API")
			c.sleep(delay)
			lastErr = fmt.Errorf("rate limited")
			continue

		case resp.StatusCode == http.StatusUnauthorized:
			c.logger.Warn("API rejected token, refreshing")
			if err := c.tokens.ForceRefresh(ctx); err != nil {
				return nil, err
			}
			lastErr = fmt.Errorf("unauthorized")
			continue

		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, method, path)

		case resp.StatusCode == http.StatusBadRequest:
			return nil, fmt.Errorf("%w: %s", ErrValidation, strings.TrimSpace(string(respBody)))

		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}

		var env envelope
		if len(respBody) > 0 {
			if err := json.Unmarshal(respBody, &env); err != nil {
				return nil, fmt.Errorf("failed to decode API response: %w", err)
			}
			if env.Status.Code != 0 && env.Status.Code != 200 {
				return nil, fmt.Errorf("API error %d: %s", env.Status.Code, env.Status.Description)
			}
		}

		c.sleep(c.rateDelay)
		return env.Data, nil
	}

	return nil, fmt.Errorf("API request failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *RESTClient) resolveAccountID(ctx context.Context) error {
	data, err := c.doRequest(ctx, http.MethodGet, "/accounts", nil, nil)
	if err != nil {
		return fmt.Errorf("failed to fetch accounts: %w", err)
	}

	var accounts []struct {
		AccountID json.Number `json:"accountId"`
	}
	if err := json.Unmarshal(data, &accounts); err != nil {
		return fmt.Errorf("failed to decode accounts: %w", err)
	}
	if len(accounts) == 0 {
		return fmt.Errorf("no mail accounts available")
	}

	c.accountID = accounts[0].AccountID.String()
	c.logger.WithField("account_id", c.accountID).Debug("Resolved account ID")
	return nil
}

// restMessage is the listing/search entry shape.
type restMessage struct {
	MessageID   json.Number `json:"messageId"`
	Subject     string      `json:"subject"`
	FromAddress string      `json:"fromAddress"`
	ToAddress   string      `json:"toAddress"`
	Received    string      `json:"receivedTime"`
	Summary     string      `json:"summary"`
}

func (m *restMessage) toSummary() types.MessageSummary {
	return types.MessageSummary{
		ID:      m.MessageID.String(),
		Subject: m.Subject,
		From:    m.FromAddress,
		To:      m.ToAddress,
		Date:    m.Received,
		Snippet: truncateSnippet(m.Summary, snippetLength),
	}
}

// Search implements Client. A query that translates to an empty search key
// uses the plain listing endpoint. The recency bound is not supported by the
// search endpoint and is ignored here; limit caps the result server-side, so
// total equals the returned count.
func (c *RESTClient) Search(ctx context.Context, folder, query string, limit, recencyDays int) ([]types.MessageSummary, int, error) {
	messages, err := c.listMessages(ctx, TranslateREST(query), limit, "")
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]types.MessageSummary, 0, len(messages))
	for i := range messages {
		summaries = append(summaries, messages[i].toSummary())
	}
	return summaries, len(summaries), nil
}

func (c *RESTClient) listMessages(ctx context.Context, searchKey string, limit int, status string) ([]restMessage, error) {
	var path string
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))

	if searchKey != "" {
		path = fmt.Sprintf("/accounts/%s/messages/search", c.accountID)
		params.Set("searchKey", searchKey)
		params.Set("start", "1")
	} else {
		path = fmt.Sprintf("/accounts/%s/messages/view", c.accountID)
		params.Set("sortBy", "date")
		params.Set("sortorder", "false")
		if status != "" {
			params.Set("status", status)
		}
	}

	data, err := c.doRequest(ctx, http.MethodGet, path, params, nil)
	if err != nil {
		return nil, err
	}

	var messages []restMessage
	if len(data) > 0 {
		if err := json.Unmarshal(data, &messages); err != nil {
			return nil, fmt.Errorf("failed to decode message list: %w", err)
		}
	}
	return messages, nil
}

// FetchDetail implements Client.
func (c *RESTClient) FetchDetail(ctx context.Context, folder, id string) (*types.MessageDetail, error) {
	path := fmt.Sprintf("/accounts/%s/messages/%s", c.accountID, url.PathEscape(id))
	data, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var msg struct {
		restMessage
		Content string `json:"content"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}

	body := msg.Content
	if body == "" {
		body = msg.Summary
	}
	return &types.MessageDetail{
		ID:      id,
		Folder:  folder,
		Subject: msg.Subject,
		From:    msg.FromAddress,
		To:      msg.ToAddress,
		Date:    msg.Received,
		Body:    body,
	}, nil
}

// Send implements Client. Attachments are not supported by this endpoint;
// the facade routes attachment sends over SMTP.
func (c *RESTClient) Send(ctx context.Context, msg *Outgoing) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("%w: no recipients", ErrValidation)
	}
	if len(msg.Attachments) > 0 {
		return fmt.Errorf("%w: attachments require the SMTP transport", ErrValidation)
	}

	payload := map[string]interface{}{
		"fromAddress": c.tokens.Email(),
		"toAddress":   strings.Join(msg.To, ","),
		"subject":     msg.Subject,
	}
	if msg.HTML != "" {
		payload["content"] = msg.HTML
		payload["mailFormat"] = "html"
	} else {
		payload["content"] = msg.Text
		payload["mailFormat"] = "plaintext"
	}
	if len(msg.Cc) > 0 {
		payload["ccAddress"] = strings.Join(msg.Cc, ",")
	}
	if len(msg.Bcc) > 0 {
		payload["bccAddress"] = strings.Join(msg.Bcc, ",")
	}

	path := fmt.Sprintf("/accounts/%s/messages", c.accountID)
	if _, err := c.doRequest(ctx, http.MethodPost, path, nil, payload); err != nil {
		return err
	}

	c.logger.WithField("to", msg.To).Info("Message sent via REST API")
	return nil
}

// MarkRead implements Client. The update endpoint is all-or-nothing for the
// whole batch.
func (c *RESTClient) MarkRead(ctx context.Context, folder string, ids []string) (*types.ActionResult, error) {
	return c.updateMessages(ctx, "markAsRead", ids, nil)
}

// MarkUnread implements Client.
func (c *RESTClient) MarkUnread(ctx context.Context, folder string, ids []string) (*types.ActionResult, error) {
	return c.updateMessages(ctx, "markAsUnread", ids, nil)
}

func (c *RESTClient) updateMessages(ctx context.Context, mode string, ids []string, extra map[string]interface{}) (*types.ActionResult, error) {
	result := types.NewActionResult()
	if len(ids) == 0 {
		return result, nil
	}

	numericIDs, bad := toMessageIDs(ids)
	result.Failed = append(result.Failed, bad...)
	if len(numericIDs) == 0 {
		return result, nil
	}

	payload := map[string]interface{}{
		"mode":      mode,
		"messageId": numericIDs,
	}
	for k, v := range extra {
		payload[k] = v
	}

	path := fmt.Sprintf("/accounts/%s/updatemessage", c.accountID)
	if _, err := c.doRequest(ctx, http.MethodPut, path, nil, payload); err != nil {
		return nil, err
	}

	for _, id := range ids {
		if !contains(bad, id) {
			result.Success = append(result.Success, id)
		}
	}
	return result, nil
}

// Delete implements Client. Deletion is per-message against the folder's
// message resource, so partial success is possible.
func (c *RESTClient) Delete(ctx context.Context, folder string, ids []string) (*types.ActionResult, error) {
	result := types.NewActionResult()
	if len(ids) == 0 {
		return result, nil
	}

	folderID, err := c.folderID(ctx, folder)
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		path := fmt.Sprintf("/accounts/%s/folders/%s/messages/%s", c.accountID, folderID, url.PathEscape(id))
		if _, err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
			c.logger.WithError(err).WithField("message_id", id).Warn("Failed to delete message")
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Success = append(result.Success, id)
	}
	return result, nil
}

// Move implements Client. Ids move as one batch to the destination folder.
func (c *RESTClient) Move(ctx context.Context, fromFolder, toFolder string, ids []string) (*types.ActionResult, error) {
	if len(ids) == 0 {
		return types.NewActionResult(), nil
	}

	folderID, err := c.folderID(ctx, toFolder)
	if err != nil {
		return nil, err
	}
	destID, err := strconv.ParseInt(folderID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: folder id %q is not numeric", ErrValidation, folderID)
	}

	return c.updateMessages(ctx, "moveMessage", ids, map[string]interface{}{
		"destfolderId": destID,
	})
}

// UnreadCount implements Client, counting the unread listing.
func (c *RESTClient) UnreadCount(ctx context.Context, folder string) (int, error) {
	messages, err := c.listMessages(ctx, "", 1000, "unread")
	if err != nil {
		return 0, err
	}
	return len(messages), nil
}

// ListFolders implements Client.
func (c *RESTClient) ListFolders(ctx context.Context) ([]types.Folder, error) {
	path := fmt.Sprintf("/accounts/%s/folders", c.accountID)
	data, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		FolderID   json.Number `json:"folderId"`
		FolderName string      `json:"folderName"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode folders: %w", err)
	}

	folders := make([]types.Folder, 0, len(raw))
	for _, f := range raw {
		folders = append(folders, types.Folder{ID: f.FolderID.String(), Name: f.FolderName})
	}
	return folders, nil
}

// folderID resolves a folder name to its id, case-insensitively.
func (c *RESTClient) folderID(ctx context.Context, name string) (string, error) {
	folders, err := c.ListFolders(ctx)
	if err != nil {
		return "", err
	}
	for _, f := range folders {
		if strings.EqualFold(f.Name, name) {
			return f.ID, nil
		}
	}
	return "", fmt.Errorf("%w: folder %s", ErrNotFound, name)
}

// toMessageIDs converts string ids to the integers the update endpoint
// requires. Ids that do not parse go straight to the failed partition.
func toMessageIDs(ids []string) (numeric []int64, bad []string) {
	for _, id := range ids {
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			bad = append(bad, id)
			continue
		}
		numeric = append(numeric, n)
	}
	return numeric, bad
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
