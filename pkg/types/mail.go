package types

// MessageSummary is a search result entry. The ID is opaque and only valid
// on the transport that produced it: IMAP UIDs and REST message identifiers
// live in different id spaces.
type MessageSummary struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	To      string `json:"to,omitempty"`
	Date    string `json:"date"`
	Snippet string `json:"body,omitempty"`
}

// MessageDetail is a full message fetch.
type MessageDetail struct {
	ID      string `json:"id,omitempty"`
	Folder  string `json:"folder,omitempty"`
	Subject string `json:"subject"`
	From    string `json:"from"`
	To      string `json:"to"`
	Date    string `json:"date"`
	Body    string `json:"body"`
}

// Folder is a mailbox folder. ID is set only for the REST transport.
type Folder struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// SendResult reports a completed send.
type SendResult struct {
	Status      string `json:"status"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	MessageID   string `json:"message_id,omitempty"`
	HTML        bool   `json:"html,omitempty"`
	Attachments int    `json:"attachments,omitempty"`
	AuthMethod  string `json:"auth_method,omitempty"`
	APIUsed     string `json:"api_used,omitempty"`
}

// ActionResult partitions the ids an action was applied to. Every requested
// id lands in exactly one of the two slices.
type ActionResult struct {
	Success []string `json:"success"`
	Failed  []string `json:"failed"`
}

// NewActionResult returns an empty, non-nil partition.
func NewActionResult() *ActionResult {
	return &ActionResult{Success: []string{}, Failed: []string{}}
}

// BulkPreview is the dry-run shape of a bulk action: what would be touched,
// without touching it.
type BulkPreview struct {
	DryRun     bool             `json:"dry_run"`
	TotalFound int              `json:"total_found"`
	ToProcess  int              `json:"to_process"`
	Action     string           `json:"action"`
	Preview    []MessageSummary `json:"preview"`
	APIUsed    string           `json:"api_used"`
}

// BulkResult is either a dry-run preview or an applied action result,
// never both.
type BulkResult struct {
	Preview *BulkPreview  `json:"preview,omitempty"`
	Applied *ActionResult `json:"applied,omitempty"`
}

// AttachmentInfo describes one attachment of a stored message.
type AttachmentInfo struct {
	Index       int    `json:"index"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// AttachmentDownload reports a saved attachment.
type AttachmentDownload struct {
	Filename    string `json:"filename"`
	OutputPath  string `json:"output_path"`
	Size        int    `json:"size"`
	ContentType string `json:"content_type"`
}

// TokenStatus is the oauth-status report.
type TokenStatus struct {
	AuthMethod       string `json:"auth_method"`
	Status           string `json:"status"`
	TokenFile        string `json:"token_file,omitempty"`
	Email            string `json:"email,omitempty"`
	CreatedAt        int64  `json:"created_at,omitempty"`
	ExpiresAt        int64  `json:"expires_at,omitempty"`
	ExpiresInSeconds int64  `json:"expires_in_seconds"`
}

// DoctorReport is the credential-free diagnostics summary.
type DoctorReport struct {
	EmailEnvSet       bool   `json:"zoho_email_env_set"`
	PasswordEnvSet    bool   `json:"zoho_password_env_set"`
	TokenFile         string `json:"token_file"`
	TokenFileExists   bool   `json:"token_file_exists"`
	TokenFileReadable bool   `json:"token_file_readable,omitempty"`
	TokenFileError    string `json:"token_file_error,omitempty"`
	HasRefreshToken   bool   `json:"oauth_has_refresh_token,omitempty"`
	HasAccessToken    bool   `json:"oauth_access_token_present,omitempty"`
	TokenExpiring     *bool  `json:"oauth_token_expired_or_expiring,omitempty"`
	RESTConfigured    bool   `json:"rest_configured"`
	RESTBaseURL       string `json:"rest_base_url"`
	RESTReachable     bool   `json:"rest_reachable"`
	IMAPServer        string `json:"imap_server"`
	IMAPPort          int    `json:"imap_port"`
	IMAPReachable     bool   `json:"imap_reachable"`
	SMTPServer        string `json:"smtp_server"`
	SMTPPort          int    `json:"smtp_port"`
	SMTPReachable     bool   `json:"smtp_reachable"`
}

// CachedMessage is a search result persisted to the local cache.
type CachedMessage struct {
	Transport string `json:"transport"`
	Folder    string `json:"folder"`
	MessageSummary
	CachedAt string `json:"cached_at"`
}
