package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	config "github.com/ristomat/socialcast/configs"
	"github.com/ristomat/socialcast/internal/erp"
	"github.com/ristomat/socialcast/internal/models"
	"github.com/ristomat/socialcast/internal/repository"
	"github.com/ristomat/socialcast/internal/transfer"
)

var (
	ErrMissingCaption     = errors.New("caption cannot be empty")
	ErrNoAccounts         = errors.New("no matching social accounts")
	ErrAllPlatformsFailed = errors.New("publishing failed on every account")
)

// ScheduledTimeLayout is the wire format of scheduled_date.
const ScheduledTimeLayout = "2006-01-02T15:04"

const maxTriggerAttempts = 3

// PublishService fans one marketing post out to the requested accounts.
// Accounts are processed sequentially in a fixed platform order; a failure
// on one account never aborts the rest. The caller gets one PublishOutcome
// per dispatched account.
type PublishService interface {
	Publish(ctx context.Context, pc *transfer.PublishCreation) (*transfer.PublishResult, error)
}

// PublicMediaPublisher puts media somewhere platforms can fetch it from.
// R2Service is the production implementation.
type PublicMediaPublisher interface {
	UploadPublic(ctx context.Context, key string, file []byte, contentType string) (string, error)
}

type publishService struct {
	gw       erp.PostGateway
	ig       InstagramService
	media    PublicMediaPublisher
	ph       repository.PostingHistoryRepository
	accounts []models.AccountTarget

	promoLink string
	http      *http.Client

	// Timing knobs; tests shrink these to milliseconds.
	settleDelay           time.Duration
	instagramSettleDelay  time.Duration
	retryBackoff          time.Duration
	instagramRetryBackoff time.Duration
	platformPause         time.Duration
}

func NewPublishService(
	cfg config.Config,
	accounts []models.AccountTarget,
	gw erp.PostGateway,
	ig InstagramService,
	media PublicMediaPublisher,
	ph repository.PostingHistoryRepository) PublishService {
	return &publishService{
		gw:        gw,
		ig:        ig,
		media:     media,
		ph:        ph,
		accounts:  accounts,
		promoLink: cfg.PromoLink,
		http:      &http.Client{Timeout: 30 * time.Second},

		settleDelay:           5 * time.Second,
		instagramSettleDelay:  30 * time.Second,
		retryBackoff:          5 * time.Second,
		instagramRetryBackoff: 10 * time.Second,
		platformPause:         2 * time.Second,
	}
}

func (s *publishService) Publish(ctx context.Context, pc *transfer.PublishCreation) (*transfer.PublishResult, error) {
	if pc == nil || strings.TrimSpace(pc.Caption) == "" {
		return nil, ErrMissingCaption
	}

	targets := s.resolveTargets(pc.AccountIDs)
	if len(targets) == 0 {
		return nil, ErrNoAccounts
	}

	var scheduledAt *time.Time
	if pc.ScheduledDate != "" {
		t, err := time.Parse(ScheduledTimeLayout, pc.ScheduledDate)
		if err != nil {
			return nil, fmt.Errorf("invalid scheduled date format: %w", err)
		}
		scheduledAt = &t
	}

	attachmentID, publicURL := s.prepareMedia(ctx, pc.ImageURL, targets)

	outcomes := make([]models.PublishOutcome, 0, len(targets))
	for i, target := range targets {
		if i > 0 {
			if err := s.pause(ctx, s.platformPause); err != nil {
				return nil, err
			}
		}

		outcome, err := s.publishToAccount(ctx, target, pc, scheduledAt, attachmentID, publicURL)
		if err != nil {
			// Session/auth loss or cancellation poisons every remaining
			// account; only per-account delivery faults stay isolated.
			return nil, err
		}
		outcomes = append(outcomes, outcome)
		s.recordHistory(ctx, outcome)
	}

	result := buildResult(outcomes)
	if !result.Success {
		return result, ErrAllPlatformsFailed
	}
	return result, nil
}

// resolveTargets maps the requested account ids onto the known account
// table, drops duplicates and unknown ids, and fixes the dispatch order.
func (s *publishService) resolveTargets(ids []int64) []models.AccountTarget {
	byID := make(map[int64]models.AccountTarget, len(s.accounts))
	for _, acc := range s.accounts {
		byID[acc.ID] = acc
	}

	if len(ids) == 0 {
		for _, acc := range s.accounts {
			ids = append(ids, acc.ID)
		}
	}

	var targets []models.AccountTarget
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		acc, ok := byID[id]
		if !ok {
			slog.Info("skipping unknown account id", "account_id", id)
			continue
		}
		targets = append(targets, acc)
	}

	sort.SliceStable(targets, func(i, j int) bool {
		ri, rj := models.PlatformRank(targets[i].Platform), models.PlatformRank(targets[j].Platform)
		if ri != rj {
			return ri < rj
		}
		return targets[i].ID < targets[j].ID
	})
	return targets
}

// prepareMedia fetches and normalizes the source image, creates the shared
// ERP attachment, and uploads a public copy when an Instagram account is in
// the target set. Every step is best-effort: media delivery degrades, text
// delivery goes on.
func (s *publishService) prepareMedia(ctx context.Context, imageURL string, targets []models.AccountTarget) (int64, string) {
	if imageURL == "" {
		return 0, ""
	}

	raw, err := s.fetchImage(ctx, imageURL)
	if err != nil {
		slog.Info("image fetch failed, publishing without media", "error", err)
		return 0, ""
	}

	media := NormalizeImage(raw)

	var attachmentID int64
	name := fmt.Sprintf("social-post-%d%s", time.Now().Unix(), media.Ext)
	attachmentID, err = s.gw.CreateAttachment(ctx, name, media.MimeType, media.Data)
	if err != nil {
		slog.Info("attachment upload failed, publishing without media", "error", err)
		attachmentID = 0
	}

	var publicURL string
	if hasPlatform(targets, models.PlatformInstagram) {
		key, keyErr := gonanoid.New()
		if keyErr != nil {
			slog.Info("key generation failed, instagram falls back to the gateway", "error", keyErr)
			return attachmentID, ""
		}

		publicURL, err = s.media.UploadPublic(ctx, key+media.Ext, media.Data, media.MimeType)
		if err != nil {
			slog.Info("public media upload failed, instagram falls back to the gateway", "error", err)
			publicURL = ""
		}
	}

	return attachmentID, publicURL
}

func (s *publishService) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code fetching image: %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (s *publishService) publishToAccount(ctx context.Context, target models.AccountTarget, pc *transfer.PublishCreation, scheduledAt *time.Time, attachmentID int64, publicURL string) (models.PublishOutcome, error) {
	outcome := models.PublishOutcome{
		AccountID:   target.ID,
		AccountName: target.Name,
		Platform:    target.Platform,
	}

	message := FullMessage(pc.Caption, pc.Hashtags, pc.CTA)
	if target.Platform == models.PlatformTwitter {
		message = TwitterMessage(pc.Caption, pc.Hashtags, pc.CTA, s.promoLink)
	}

	// Direct Graph API path; the degraded fallback without a public media
	// URL (or for scheduled posts) goes through the ERP like everyone else.
	if target.Platform == models.PlatformInstagram && publicURL != "" && scheduledAt == nil {
		creds, err := s.gw.InstagramCredentials(ctx, target.ID)
		if err != nil {
			return outcome, recordFailure(ctx, &outcome, err)
		}

		platformPostID, err := s.ig.PublishImage(ctx, creds, publicURL, message)
		if err != nil {
			return outcome, recordFailure(ctx, &outcome, err)
		}

		outcome.PlatformPostID = platformPostID
		outcome.Success = true
		return outcome, nil
	}

	postID, err := s.gw.CreatePost(ctx, erp.PostSpec{
		AccountID:    target.ID,
		Message:      message,
		ScheduledAt:  scheduledAt,
		AttachmentID: attachmentID,
	})
	if err != nil {
		return outcome, recordFailure(ctx, &outcome, err)
	}
	outcome.PostID = postID

	if scheduledAt != nil {
		// The ERP fires scheduled posts itself; creating the post is the
		// whole job here.
		outcome.Success = true
		return outcome, nil
	}

	if err := s.triggerWithRetry(ctx, target, postID); err != nil {
		return outcome, recordFailure(ctx, &outcome, err)
	}
	outcome.Success = true

	if target.Platform == models.PlatformInstagram {
		if state, err := s.gw.ReadDeliveryState(ctx, postID, target.ID); err == nil {
			outcome.PlatformPostID = state.PlatformPostID
		}
	}
	return outcome, nil
}

// recordFailure folds a delivery error into the outcome. Auth loss and a
// dead request context come back as errors instead; those are request-level,
// not per-account. The request context is checked directly because per-call
// HTTP client timeouts also wear context.DeadlineExceeded.
func recordFailure(ctx context.Context, outcome *models.PublishOutcome, err error) error {
	if errors.Is(err, erp.ErrUnauthorized) || ctx.Err() != nil {
		return err
	}
	outcome.Error = err.Error()
	return nil
}

// triggerWithRetry triggers delivery and verifies it, up to three attempts.
// Non-Instagram platforms count a returned trigger as delivered. Instagram
// is verified by reading the delivery record back, and a failed record must
// be reset before the next trigger or the ERP refuses to re-attempt it.
func (s *publishService) triggerWithRetry(ctx context.Context, target models.AccountTarget, postID int64) error {
	isInstagram := target.Platform == models.PlatformInstagram

	settle := s.settleDelay
	if isInstagram {
		settle = s.instagramSettleDelay
	}

	var lastErr error
	for attempt := 1; attempt <= maxTriggerAttempts; attempt++ {
		if attempt > 1 {
			backoff := s.retryBackoff
			if isInstagram {
				backoff = time.Duration(attempt-1) * s.instagramRetryBackoff
				if err := s.gw.ResetDeliveryState(ctx, postID, target.ID); err != nil {
					slog.Info("delivery state reset failed", "post_id", postID, "error", err)
				}
			}
			if err := s.pause(ctx, backoff); err != nil {
				return err
			}
		}

		if err := s.gw.TriggerPost(ctx, postID); err != nil {
			lastErr = err
			continue
		}

		if err := s.pause(ctx, settle); err != nil {
			return err
		}

		if !isInstagram {
			return nil
		}

		state, err := s.gw.ReadDeliveryState(ctx, postID, target.ID)
		if err != nil {
			lastErr = err
			continue
		}
		if state.State == models.DeliveryStatePosted && state.PlatformPostID != "" {
			return nil
		}
		lastErr = fmt.Errorf("delivery state %q: %s", state.State, state.FailureReason)
	}

	return fmt.Errorf("gave up after %d attempts: %w", maxTriggerAttempts, lastErr)
}

func (s *publishService) recordHistory(ctx context.Context, outcome models.PublishOutcome) {
	if s.ph == nil {
		return
	}

	history := models.PostingHistory{
		AccountID:      outcome.AccountID,
		AccountName:    outcome.AccountName,
		Platform:       outcome.Platform,
		Success:        outcome.Success,
		PostID:         outcome.PostID,
		PlatformPostID: outcome.PlatformPostID,
		ErrorMessage:   outcome.Error,
	}
	if _, err := s.ph.Create(ctx, &history); err != nil {
		slog.Info("error saving posting history", "account_id", outcome.AccountID, "error", err)
	}
}

func (s *publishService) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func buildResult(outcomes []models.PublishOutcome) *transfer.PublishResult {
	result := &transfer.PublishResult{
		PostIDs:  make([]int64, 0, len(outcomes)),
		Accounts: make([]string, 0, len(outcomes)),
		Outcomes: outcomes,
	}

	succeeded := 0
	for _, o := range outcomes {
		result.Accounts = append(result.Accounts, o.AccountName)
		if o.PostID != 0 {
			result.PostIDs = append(result.PostIDs, o.PostID)
		}
		if o.Success {
			succeeded++
		}
	}

	result.Success = succeeded > 0
	result.Message = fmt.Sprintf("published to %d of %d accounts", succeeded, len(outcomes))
	return result
}

func hasPlatform(targets []models.AccountTarget, platform string) bool {
	for _, t := range targets {
		if t.Platform == platform {
			return true
		}
	}
	return false
}
