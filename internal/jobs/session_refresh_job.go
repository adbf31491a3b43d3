package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/ristomat/socialcast/internal/erp"
)

// SessionRefreshJob re-authenticates against the ERP on a schedule so the
// shared session cookie never expires mid-publish.
type SessionRefreshJob struct {
	client *erp.Client
}

func NewSessionRefreshJob(client *erp.Client) *SessionRefreshJob {
	return &SessionRefreshJob{client: client}
}

func (j *SessionRefreshJob) RefreshSession() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := j.client.Authenticate(ctx); err != nil {
		slog.Info("Unable to refresh ERP session", "error", err)
	}
}
