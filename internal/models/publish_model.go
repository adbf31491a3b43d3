package models

// NormalizedMedia is the result of running raw image bytes through the
// normalizer. It lives only for the duration of one publish request.
type NormalizedMedia struct {
	Data     []byte
	MimeType string // image/jpeg or image/png
	Ext      string
	Size     int64
}

// PublishOutcome is the per-account result of one publish request.
type PublishOutcome struct {
	AccountID      int64  `json:"account_id"`
	AccountName    string `json:"account_name"`
	Platform       string `json:"platform"`
	Success        bool   `json:"success"`
	PostID         int64  `json:"post_id,omitempty"`
	PlatformPostID string `json:"platform_post_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Delivery states of the ERP's per (post, account) live delivery record.
const (
	DeliveryStateReady  = "ready"
	DeliveryStateFailed = "failed"
	DeliveryStatePosted = "posted"
)
