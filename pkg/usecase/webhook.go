package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/smartreview-app/smartreview/pkg/domain/interfaces"
	"github.com/smartreview-app/smartreview/pkg/domain/model"
	"github.com/smartreview-app/smartreview/pkg/domain/types"
	"github.com/smartreview-app/smartreview/pkg/utils/async"
)

// Webhook classifies inbound events and schedules review runs on the
// worker pool. Scheduling never blocks: the HTTP handler acknowledges
// the delivery before the pipeline runs.
type Webhook struct {
	pool       *async.Pool
	vault      interfaces.Vault
	tokens     interfaces.TokenSource
	review     interfaces.ReviewUseCase
	notifier   interfaces.Notifier
	runTimeout time.Duration
}

// WebhookOption configures the webhook use case.
type WebhookOption func(*Webhook)

// WithRunTimeout bounds a single review run, covering all its network
// calls. Default is 5 minutes.
func WithRunTimeout(d time.Duration) WebhookOption {
	return func(w *Webhook) {
		w.runTimeout = d
	}
}

// NewWebhook creates the webhook use case.
func NewWebhook(
	pool *async.Pool,
	vault interfaces.Vault,
	tokens interfaces.TokenSource,
	review interfaces.ReviewUseCase,
	notifier interfaces.Notifier,
	opts ...WebhookOption,
) *Webhook {
	w := &Webhook{
		pool:       pool,
		vault:      vault,
		tokens:     tokens,
		review:     review,
		notifier:   notifier,
		runTimeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleEvent classifies the event and schedules a review run when it
// is actionable. Reports whether a run was scheduled.
func (w *Webhook) HandleEvent(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	logger := ctxlog.From(ctx)

	logger.Info("received webhook event",
		"delivery_id", event.DeliveryID,
		"type", event.Type,
		"action", event.Action,
		"repo", event.RepoOwner+"/"+event.RepoName,
		"number", event.Number,
		"sender", event.SenderLogin,
	)

	if !event.IsActionable() {
		logger.Debug("event not actionable, acknowledged and dropped",
			"type", event.Type,
			"action", event.Action,
		)
		return false, nil
	}

	if !w.pool.Dispatch(ctx, func(ctx context.Context) error {
		return w.process(ctx, event)
	}) {
		logger.Warn("worker queue full, dropping event",
			"delivery_id", event.DeliveryID,
		)
		return false, nil
	}

	return true, nil
}

// process is the scheduled unit of work. All failures stay inside it:
// the pool logs returned errors and the process keeps serving.
func (w *Webhook) process(ctx context.Context, event *model.WebhookEvent) error {
	ctx, cancel := context.WithTimeout(ctx, w.runTimeout)
	defer cancel()

	logger := ctxlog.From(ctx)

	apiKey, err := w.vault.Retrieve(ctx, event.SenderID)
	if err != nil {
		if errors.Is(err, types.ErrCredentialNotFound) {
			logger.Info("skipping review, actor has no stored credential",
				"delivery_id", event.DeliveryID,
				"sender", event.SenderLogin,
			)
			if nerr := w.notifier.ReviewSkipped(ctx, event, "actor has no stored credential"); nerr != nil {
				logger.Warn("skip notification failed", "error", nerr)
			}
			return nil
		}
		return goerr.Wrap(err, "failed to resolve actor credential",
			goerr.V("delivery_id", event.DeliveryID))
	}

	token, err := w.tokens.Token(ctx, event.InstallationID)
	if err != nil {
		return goerr.Wrap(err, "failed to obtain installation token",
			goerr.V("delivery_id", event.DeliveryID),
			goerr.V("installation_id", event.InstallationID))
	}

	run := &model.ReviewRun{
		RunID:     uuid.NewString(),
		RepoOwner: event.RepoOwner,
		RepoName:  event.RepoName,
		Number:    event.Number,
	}

	if err := w.review.Run(ctx, run, model.RunCredentials{
		InstallationToken: token,
		AnalysisAPIKey:    apiKey,
	}); err != nil {
		if nerr := w.notifier.ReviewFailed(ctx, event, err); nerr != nil {
			logger.Warn("failure notification failed", "error", nerr)
		}
		return goerr.Wrap(err, "review run failed",
			goerr.V("delivery_id", event.DeliveryID),
			goerr.V("run_id", run.RunID))
	}

	logger.Info("review run completed",
		"delivery_id", event.DeliveryID,
		"run_id", run.RunID,
	)
	return nil
}
