package erp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/ristomat/socialcast/internal/models"
)

// PostGateway is the typed adapter over the ERP's generic call gateway,
// one method per operation the publisher actually uses.
type PostGateway interface {
	CreateAttachment(ctx context.Context, name, mimetype string, data []byte) (int64, error)
	CreatePost(ctx context.Context, spec PostSpec) (int64, error)
	TriggerPost(ctx context.Context, postID int64) error
	ReadDeliveryState(ctx context.Context, postID, accountID int64) (*DeliveryState, error)
	ResetDeliveryState(ctx context.Context, postID, accountID int64) error
	InstagramCredentials(ctx context.Context, accountID int64) (*InstagramCredentials, error)
}

// PostSpec describes one ERP social post for a single account.
type PostSpec struct {
	AccountID    int64
	Message      string
	ScheduledAt  *time.Time
	AttachmentID int64
}

// DeliveryState mirrors the ERP's live delivery sub-record for one
// (post, account) pair.
type DeliveryState struct {
	ID             int64
	State          string
	PlatformPostID string
	FailureReason  string
}

type InstagramCredentials struct {
	AccountID   string
	AccessToken string
}

type postGateway struct {
	client *Client
}

func NewPostGateway(client *Client) PostGateway {
	return &postGateway{client: client}
}

func (g *postGateway) CreateAttachment(ctx context.Context, name, mimetype string, data []byte) (int64, error) {
	token, err := gonanoid.New()
	if err != nil {
		return 0, fmt.Errorf("erp create attachment: generate access token: %w", err)
	}

	values := map[string]any{
		"name":         name,
		"type":         "binary",
		"datas":        base64.StdEncoding.EncodeToString(data),
		"mimetype":     mimetype,
		"public":       true,
		"access_token": token,
	}

	raw, err := g.client.Call(ctx, "ir.attachment", "create", []any{values}, nil)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, fmt.Errorf("erp create attachment: parse id: %w", err)
	}
	return id, nil
}

func (g *postGateway) CreatePost(ctx context.Context, spec PostSpec) (int64, error) {
	values := map[string]any{
		"message":     spec.Message,
		"account_ids": []any{[]any{6, 0, []int64{spec.AccountID}}},
		"post_method": "now",
	}
	if spec.ScheduledAt != nil {
		values["post_method"] = "scheduled"
		values["scheduled_date"] = spec.ScheduledAt.Format("2006-01-02 15:04:05")
	}
	if spec.AttachmentID != 0 {
		values["image_ids"] = []any{[]any{6, 0, []int64{spec.AttachmentID}}}
	}

	raw, err := g.client.Call(ctx, "social.post", "create", []any{values}, nil)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, fmt.Errorf("erp create post: parse id: %w", err)
	}
	return id, nil
}

// TriggerPost asks the ERP to push the post to its platform. Safe to call
// more than once; the ERP skips live records that already posted.
func (g *postGateway) TriggerPost(ctx context.Context, postID int64) error {
	_, err := g.client.Call(ctx, "social.post", "action_post", []any{[]int64{postID}}, nil)
	return err
}

func (g *postGateway) ReadDeliveryState(ctx context.Context, postID, accountID int64) (*DeliveryState, error) {
	domain := []any{
		[]any{"post_id", "=", postID},
		[]any{"account_id", "=", accountID},
	}
	kwargs := map[string]any{
		"fields": []string{"state", "live_post_id", "failure_reason"},
		"limit":  1,
	}

	raw, err := g.client.Call(ctx, "social.live.post", "search_read", []any{domain}, kwargs)
	if err != nil {
		return nil, err
	}

	var records []struct {
		ID            int64       `json:"id"`
		State         falsyString `json:"state"`
		LivePostID    falsyString `json:"live_post_id"`
		FailureReason falsyString `json:"failure_reason"`
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("erp read delivery state: parse records: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}

	rec := records[0]
	return &DeliveryState{
		ID:             rec.ID,
		State:          string(rec.State),
		PlatformPostID: string(rec.LivePostID),
		FailureReason:  string(rec.FailureReason),
	}, nil
}

// ResetDeliveryState transitions a failed delivery record back to ready so
// the next trigger can re-attempt it. Records that are not in the failed
// state are left untouched.
func (g *postGateway) ResetDeliveryState(ctx context.Context, postID, accountID int64) error {
	state, err := g.ReadDeliveryState(ctx, postID, accountID)
	if err != nil {
		return err
	}
	if state.State != models.DeliveryStateFailed {
		return nil
	}

	values := map[string]any{
		"state":          models.DeliveryStateReady,
		"failure_reason": false,
	}
	_, err = g.client.Call(ctx, "social.live.post", "write", []any{[]int64{state.ID}, values}, nil)
	return err
}

func (g *postGateway) InstagramCredentials(ctx context.Context, accountID int64) (*InstagramCredentials, error) {
	kwargs := map[string]any{
		"fields": []string{"instagram_account_id", "instagram_access_token"},
	}

	raw, err := g.client.Call(ctx, "social.account", "read", []any{[]int64{accountID}}, kwargs)
	if err != nil {
		return nil, err
	}

	var records []struct {
		InstagramAccountID   falsyString `json:"instagram_account_id"`
		InstagramAccessToken falsyString `json:"instagram_access_token"`
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("erp instagram credentials: parse records: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrNotFound
	}

	creds := &InstagramCredentials{
		AccountID:   string(records[0].InstagramAccountID),
		AccessToken: string(records[0].InstagramAccessToken),
	}
	if creds.AccountID == "" || creds.AccessToken == "" {
		return nil, fmt.Errorf("erp account %d has no instagram credentials", accountID)
	}
	return creds, nil
}

// falsyString decodes ERP string fields, which come back as JSON false when
// the field is unset.
type falsyString string

func (s *falsyString) UnmarshalJSON(data []byte) error {
	if string(data) == "false" || string(data) == "null" {
		*s = ""
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = falsyString(v)
	return nil
}
