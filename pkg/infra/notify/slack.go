package notify

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"

	"github.com/smartreview-app/smartreview/pkg/domain/model"
)

// Slack posts operational notices to an incoming webhook. This is an
// operator channel, not a user-facing surface: the webhook caller
// (GitHub) still gets a 200 for skipped events.
type Slack struct {
	webhookURL string
}

// NewSlack creates a notifier for the given incoming webhook URL.
func NewSlack(webhookURL string) *Slack {
	return &Slack{webhookURL: webhookURL}
}

func (s *Slack) post(ctx context.Context, text string) error {
	err := slack.PostWebhookContext(ctx, s.webhookURL, &slack.WebhookMessage{
		Text: text,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to post Slack notification")
	}
	return nil
}

// ReviewSkipped reports a run that was dropped before the pipeline
// started (e.g. the actor has no stored credential).
func (s *Slack) ReviewSkipped(ctx context.Context, event *model.WebhookEvent, reason string) error {
	return s.post(ctx, fmt.Sprintf(
		":fast_forward: review skipped for %s/%s#%d (actor %s): %s",
		event.RepoOwner, event.RepoName, event.Number, event.SenderLogin, reason,
	))
}

// ReviewFailed reports a pipeline run that started but did not publish.
func (s *Slack) ReviewFailed(ctx context.Context, event *model.WebhookEvent, runErr error) error {
	return s.post(ctx, fmt.Sprintf(
		":rotating_light: review failed for %s/%s#%d: %v",
		event.RepoOwner, event.RepoName, event.Number, runErr,
	))
}

// Noop is a Notifier that does nothing, used when no webhook URL is
// configured.
type Noop struct{}

func (Noop) ReviewSkipped(ctx context.Context, event *model.WebhookEvent, reason string) error {
	return nil
}

func (Noop) ReviewFailed(ctx context.Context, event *model.WebhookEvent, runErr error) error {
	return nil
}
