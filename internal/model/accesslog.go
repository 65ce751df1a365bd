package model

import "time"

// Audit actions recorded in access_logs.
const (
	ActionView        = "view"
	ActionDownload    = "download"
	ActionOtpRequest  = "otp_request"
	ActionOtpVerify   = "otp_verify"
	ActionShareCreate = "share_create"
	ActionShareRevoke = "share_revoke"
	ActionShareDelete = "share_delete"
	ActionDocDelete   = "document_delete"
)

// AccessLogEntry is an append-only audit record. Rows are never mutated after
// insert and are never consulted by access decisions.
type AccessLogEntry struct {
	ID           string    `json:"id"`
	ShareID      string    `json:"share_id,omitempty"`
	DocumentID   string    `json:"document_id"`
	ViewerUserID string    `json:"viewer_user_id,omitempty"`
	Action       string    `json:"action"`
	Meta         string    `json:"meta,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
