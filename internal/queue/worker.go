package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/ristomat/socialcast/internal/service"
)

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	// The fire time has arrived; from here on this is an immediate publish.
	payload.Request.ScheduledDate = ""

	result, err := q.ps.Publish(ctx, &payload.Request)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAllPlatformsFailed):
			log.Printf("Scheduled publish failed on every account: %s", result.Message)
			return nil
		case errors.Is(err, service.ErrMissingCaption), errors.Is(err, service.ErrNoAccounts):
			// Retrying an invalid request can never succeed.
			return fmt.Errorf("invalid scheduled publish: %v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	log.Printf("Scheduled publish done: %s", result.Message)
	return nil
}
