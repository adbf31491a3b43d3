package models

import "time"

type PostingHistory struct {
	ID             int64     `db:"id" json:"id"`
	AccountID      int64     `db:"account_id" json:"account_id"`
	AccountName    string    `db:"account_name" json:"account_name"`
	Platform       string    `db:"platform" json:"platform"`
	Success        bool      `db:"success" json:"success"`
	PostID         int64     `db:"post_id" json:"post_id"`
	PlatformPostID string    `db:"platform_post_id" json:"platform_post_id"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
