package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/smartreview-app/smartreview/pkg/domain/interfaces"
	"github.com/smartreview-app/smartreview/pkg/domain/model"
	"github.com/smartreview-app/smartreview/pkg/domain/types"
)

// WebhookHandler receives GitHub webhook deliveries, authenticates
// them against the shared secret, and hands actionable events to the
// webhook use case.
type WebhookHandler struct {
	secret    string
	webhookUC interfaces.WebhookUseCase
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(secret string, webhookUC interfaces.WebhookUseCase) *WebhookHandler {
	return &WebhookHandler{
		secret:    secret,
		webhookUC: webhookUC,
	}
}

// Handle processes webhook requests
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("Failed to read request body", "error", err)
		writeError(w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	signature := r.Header.Get("X-Hub-Signature-256")
	if !h.verifySignature(body, signature) {
		logger.Warn("Invalid webhook signature")
		writeError(w, goerr.New("invalid signature"), http.StatusForbidden)
		return
	}

	event := &model.WebhookEvent{
		DeliveryID: r.Header.Get("X-GitHub-Delivery"),
		Type:       model.EventTypeUnknown,
		ReceivedAt: time.Now(),
	}

	// Only pull_request payloads are parsed. Other event types,
	// including ones go-github does not know, are acknowledged and
	// dropped by the classifier.
	eventType := r.Header.Get("X-GitHub-Event")
	if eventType == "pull_request" {
		payload, err := github.ParseWebHook(eventType, body)
		if err != nil {
			logger.Error("Failed to parse webhook payload", "error", err)
			writeError(w, goerr.Wrap(err, "invalid JSON payload"), http.StatusBadRequest)
			return
		}

		prEvent, ok := payload.(*github.PullRequestEvent)
		if !ok {
			writeError(w, goerr.Wrap(types.ErrInvalidPayload, "unexpected payload type"), http.StatusBadRequest)
			return
		}

		event.Type = model.EventTypePullRequest
		if err := fillFromPullRequest(event, prEvent); err != nil {
			logger.Error("Webhook payload is missing required fields", "error", err)
			writeError(w, err, http.StatusBadRequest)
			return
		}
	}

	scheduled, err := h.webhookUC.HandleEvent(ctx, event)
	if err != nil {
		logger.Error("Failed to process webhook event", "error", err)
		writeError(w, err, http.StatusInternalServerError)
		return
	}

	if scheduled {
		writeStatus(w, "analysis scheduled")
	} else {
		writeStatus(w, "event ignored")
	}
}

// fillFromPullRequest extracts the fields a review run needs. A
// missing field is a payload error, never a silent skip.
func fillFromPullRequest(event *model.WebhookEvent, e *github.PullRequestEvent) error {
	event.Action = e.GetAction()
	event.RepoOwner = e.GetRepo().GetOwner().GetLogin()
	event.RepoName = e.GetRepo().GetName()
	event.Number = e.GetPullRequest().GetNumber()
	event.InstallationID = e.GetInstallation().GetID()
	event.SenderID = e.GetSender().GetID()
	event.SenderLogin = e.GetSender().GetLogin()

	switch {
	case event.RepoOwner == "" || event.RepoName == "":
		return goerr.Wrap(types.ErrInvalidPayload, "missing repository identifier")
	case event.Number == 0:
		return goerr.Wrap(types.ErrInvalidPayload, "missing pull request number")
	case event.InstallationID == 0:
		return goerr.Wrap(types.ErrInvalidPayload, "missing installation ID")
	case event.SenderID == 0:
		return goerr.Wrap(types.ErrInvalidPayload, "missing sender")
	}

	return nil
}

// verifySignature checks the X-Hub-Signature-256 HMAC over the raw
// body. An empty configured secret disables verification; NewServer
// warns loudly about that mode at start-up.
func (h *WebhookHandler) verifySignature(payload []byte, signature string) bool {
	if h.secret == "" {
		return true
	}
	if signature == "" {
		return false
	}

	signature = strings.TrimPrefix(signature, "sha256=")

	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(payload)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedMAC))
}
