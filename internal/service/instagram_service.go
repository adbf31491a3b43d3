package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	config "github.com/ristomat/socialcast/configs"
	"github.com/ristomat/socialcast/internal/erp"
)

var (
	// ErrContainerFailed means Instagram reported ERROR for the media
	// container; retrying the same container is pointless.
	ErrContainerFailed = errors.New("instagram: media container processing failed")

	// ErrContainerTimeout means the container never reached FINISHED within
	// the polling ceiling.
	ErrContainerTimeout = errors.New("instagram: timed out waiting for media container")
)

const (
	containerStatusInProgress = "IN_PROGRESS"
	containerStatusFinished   = "FINISHED"
	containerStatusError      = "ERROR"

	defaultPollInterval    = 3 * time.Second
	defaultMaxPollAttempts = 20 // with the default interval, roughly a minute
)

// InstagramService publishes a single image post straight against the Graph
// API. It exists because the ERP host is not publicly reachable, so the ERP
// cannot serve Instagram its media. Credentials come from the ERP account
// record; that read is the only point where the two systems touch.
type InstagramService interface {
	PublishImage(ctx context.Context, creds *erp.InstagramCredentials, imageURL, caption string) (string, error)
}

type instagramService struct {
	baseURL         string
	http            *http.Client
	pollInterval    time.Duration
	maxPollAttempts int
}

func NewInstagramService(cfg config.Config) InstagramService {
	return &instagramService{
		baseURL:         cfg.InstagramGraphURL,
		http:            &http.Client{Timeout: 30 * time.Second},
		pollInterval:    defaultPollInterval,
		maxPollAttempts: defaultMaxPollAttempts,
	}
}

// PublishImage runs the three-step protocol: create a media container, poll
// until the container is ready, publish it. Returns the platform post id.
func (s *instagramService) PublishImage(ctx context.Context, creds *erp.InstagramCredentials, imageURL, caption string) (string, error) {
	containerID, err := s.createContainer(ctx, creds, imageURL, caption)
	if err != nil {
		return "", err
	}

	if err := s.waitForContainer(ctx, containerID, creds.AccessToken); err != nil {
		return "", err
	}

	return s.publish(ctx, creds, containerID)
}

func (s *instagramService) createContainer(ctx context.Context, creds *erp.InstagramCredentials, imageURL, caption string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/media", s.baseURL, creds.AccountID)
	payload := map[string]any{
		"image_url":    imageURL,
		"caption":      caption,
		"access_token": creds.AccessToken,
	}

	id, err := s.postJSON(ctx, endpoint, payload)
	if err != nil {
		return "", fmt.Errorf("create media container: %w", err)
	}
	slog.Info("instagram container created", "container_id", id)
	return id, nil
}

// waitForContainer polls status_code at a fixed interval. FINISHED proceeds,
// ERROR fails immediately, and a bounded attempt count caps the wait.
func (s *instagramService) waitForContainer(ctx context.Context, containerID, accessToken string) error {
	for attempt := 1; attempt <= s.maxPollAttempts; attempt++ {
		status, err := s.containerStatus(ctx, containerID, accessToken)
		if err != nil {
			return err
		}

		switch status {
		case containerStatusFinished:
			return nil
		case containerStatusError:
			return fmt.Errorf("container %s: %w", containerID, ErrContainerFailed)
		default:
			slog.Info("instagram container not ready", "container_id", containerID, "status", status, "attempt", attempt)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.pollInterval):
		}
	}
	return fmt.Errorf("container %s: %w", containerID, ErrContainerTimeout)
}

func (s *instagramService) containerStatus(ctx context.Context, containerID, accessToken string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s?fields=status_code&access_token=%s",
		s.baseURL, containerID, url.QueryEscape(accessToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	var result struct {
		StatusCode string `json:"status_code"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if result.StatusCode == "" {
		return "", fmt.Errorf("no status_code returned from Instagram: %s", respBody)
	}

	return result.StatusCode, nil
}

func (s *instagramService) publish(ctx context.Context, creds *erp.InstagramCredentials, containerID string) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/media_publish", s.baseURL, creds.AccountID)
	payload := map[string]any{
		"creation_id":  containerID,
		"access_token": creds.AccessToken,
	}

	id, err := s.postJSON(ctx, endpoint, payload)
	if err != nil {
		return "", fmt.Errorf("publish container %s: %w", containerID, err)
	}
	slog.Info("instagram post published", "post_id", id)
	return id, nil
}

func (s *instagramService) postJSON(ctx context.Context, endpoint string, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("error marshalling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code from Instagram: %d (%s)", resp.StatusCode, respBody)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("error parsing response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("no media ID returned from Instagram")
	}

	return result.ID, nil
}
