package model

import "time"

// WebhookEventType represents the type of webhook event received
type WebhookEventType string

const (
	EventTypePullRequest WebhookEventType = "pull_request"
	EventTypeUnknown     WebhookEventType = "unknown"
)

// Pull request actions that trigger a review run. GitHub reports a new
// push to an open PR as "synchronize".
const (
	ActionOpened      = "opened"
	ActionSynchronize = "synchronize"
	ActionReopened    = "reopened"
)

// WebhookEvent represents a webhook event received from GitHub.
// Immutable once built by the webhook handler.
type WebhookEvent struct {
	DeliveryID     string           // X-GitHub-Delivery header
	Type           WebhookEventType // X-GitHub-Event header
	Action         string           // Event action (e.g. opened, synchronize)
	RepoOwner      string           // Repository owner login
	RepoName       string           // Repository name
	Number         int              // Pull request number
	InstallationID int64            // GitHub App installation ID
	SenderID       int64            // Numeric ID of the acting user
	SenderLogin    string           // Login of the acting user
	ReceivedAt     time.Time        // Time when the event was received
}

// IsActionable reports whether the event should start a review run.
func (e *WebhookEvent) IsActionable() bool {
	if e.Type != EventTypePullRequest {
		return false
	}
	switch e.Action {
	case ActionOpened, ActionSynchronize, ActionReopened:
		return true
	default:
		return false
	}
}
