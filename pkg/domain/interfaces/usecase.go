package interfaces

import (
	"context"

	"github.com/smartreview-app/smartreview/pkg/domain/model"
)

// WebhookUseCase classifies webhook events and schedules review runs.
type WebhookUseCase interface {
	// HandleEvent classifies the event and, when actionable, schedules
	// a review run. Reports whether a run was scheduled. Returns
	// immediately; the run itself executes in the background.
	HandleEvent(ctx context.Context, event *model.WebhookEvent) (bool, error)
}

// ReviewUseCase executes the four-stage review pipeline for one run.
type ReviewUseCase interface {
	// Run executes fetch, analyze, format and publish for the given
	// pull request using run-scoped credentials.
	Run(ctx context.Context, run *model.ReviewRun, creds model.RunCredentials) error
}

// Notifier reports operational events (skipped or failed runs) to an
// operator channel. Callers always hold a non-nil implementation; a
// no-op one stands in when no channel is configured.
type Notifier interface {
	ReviewSkipped(ctx context.Context, event *model.WebhookEvent, reason string) error
	ReviewFailed(ctx context.Context, event *model.WebhookEvent, runErr error) error
}
