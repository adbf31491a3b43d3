package transfer

import "github.com/ristomat/socialcast/internal/models"

// PublishCreation is the inbound publish request body.
type PublishCreation struct {
	Caption       string   `json:"caption"`
	Hashtags      []string `json:"hashtags"`
	CTA           string   `json:"cta"`
	ImageURL      string   `json:"image_url,omitempty"`
	VideoURL      string   `json:"video_url,omitempty"`
	AccountIDs    []int64  `json:"account_ids,omitempty"`
	ScheduledDate string   `json:"scheduled_date,omitempty"`
}

// PublishResult is the aggregate response: one outcome per dispatched
// account plus a single success flag. Success is true iff at least one
// account succeeded.
type PublishResult struct {
	Success  bool                    `json:"success"`
	Message  string                  `json:"message"`
	PostIDs  []int64                 `json:"post_ids"`
	Accounts []string                `json:"accounts"`
	Outcomes []models.PublishOutcome `json:"outcomes"`
}
