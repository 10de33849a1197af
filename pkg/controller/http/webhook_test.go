package http_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	controller "github.com/smartreview-app/smartreview/pkg/controller/http"
	"github.com/smartreview-app/smartreview/pkg/domain/model"
)

// webhookUCMock records the events the handler passes downstream.
type webhookUCMock struct {
	events    []*model.WebhookEvent
	scheduled bool
	err       error
}

func (m *webhookUCMock) HandleEvent(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	m.events = append(m.events, event)
	return m.scheduled, m.err
}

// generateSignature generates HMAC-SHA256 signature for testing
func generateSignature(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func pullRequestPayload() map[string]interface{} {
	return map[string]interface{}{
		"action": "opened",
		"pull_request": map[string]interface{}{
			"number": 12,
		},
		"repository": map[string]interface{}{
			"name": "widgets",
			"owner": map[string]interface{}{
				"login": "acme",
			},
		},
		"installation": map[string]interface{}{
			"id": 777,
		},
		"sender": map[string]interface{}{
			"id":    42,
			"login": "octocat",
		},
	}
}

func TestWebhookHandler_SignatureVerification(t *testing.T) {
	secret := "test-secret"

	payloadBytes, _ := json.Marshal(pullRequestPayload())

	tests := []struct {
		name           string
		signature      string
		wantStatusCode int
	}{
		{
			name:           "Valid signature",
			signature:      generateSignature(secret, payloadBytes),
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "Invalid signature",
			signature:      "sha256=" + hex.EncodeToString(make([]byte, 32)),
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "Missing signature",
			signature:      "",
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "Signature over different body",
			signature:      generateSignature(secret, []byte(`{"action":"opened"}`)),
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "Signature with wrong secret",
			signature:      generateSignature("other-secret", payloadBytes),
			wantStatusCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &webhookUCMock{scheduled: true}
			handler := controller.NewWebhookHandler(secret, uc)

			req := httptest.NewRequest(http.MethodPost, "/hooks/github/app", bytes.NewReader(payloadBytes))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-GitHub-Event", "pull_request")
			req.Header.Set("X-GitHub-Delivery", "test-delivery")
			if tt.signature != "" {
				req.Header.Set("X-Hub-Signature-256", tt.signature)
			}

			w := httptest.NewRecorder()
			handler.Handle(w, req)

			if w.Code != tt.wantStatusCode {
				t.Errorf("Handle() status = %v, want %v", w.Code, tt.wantStatusCode)
			}

			// A rejected delivery must never reach the use case.
			if tt.wantStatusCode == http.StatusForbidden && len(uc.events) != 0 {
				t.Errorf("rejected delivery reached the use case: %d events", len(uc.events))
			}
		})
	}
}

func TestWebhookHandler_SignatureBitFlip(t *testing.T) {
	secret := "test-secret"
	payloadBytes, _ := json.Marshal(pullRequestPayload())
	signature := generateSignature(secret, payloadBytes)

	// Flip one bit in the payload after signing.
	mutated := bytes.Clone(payloadBytes)
	mutated[len(mutated)/2] ^= 0x01

	uc := &webhookUCMock{scheduled: true}
	handler := controller.NewWebhookHandler(secret, uc)

	req := httptest.NewRequest(http.MethodPost, "/hooks/github/app", bytes.NewReader(mutated))
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-Hub-Signature-256", signature)

	w := httptest.NewRecorder()
	handler.Handle(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Handle() status = %v, want %v", w.Code, http.StatusForbidden)
	}
}

func TestWebhookHandler_EventExtraction(t *testing.T) {
	secret := "test-secret"
	uc := &webhookUCMock{scheduled: true}
	handler := controller.NewWebhookHandler(secret, uc)

	payloadBytes, _ := json.Marshal(pullRequestPayload())

	req := httptest.NewRequest(http.MethodPost, "/hooks/github/app", bytes.NewReader(payloadBytes))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-GitHub-Delivery", "delivery-123")
	req.Header.Set("X-Hub-Signature-256", generateSignature(secret, payloadBytes))

	w := httptest.NewRecorder()
	handler.Handle(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Handle() status = %v, body = %s", w.Code, w.Body.String())
	}
	if len(uc.events) != 1 {
		t.Fatalf("HandleEvent calls = %d, want 1", len(uc.events))
	}

	event := uc.events[0]
	if event.DeliveryID != "delivery-123" {
		t.Errorf("DeliveryID = %q", event.DeliveryID)
	}
	if event.Type != model.EventTypePullRequest {
		t.Errorf("Type = %q", event.Type)
	}
	if event.Action != "opened" {
		t.Errorf("Action = %q", event.Action)
	}
	if event.RepoOwner != "acme" || event.RepoName != "widgets" {
		t.Errorf("repo = %s/%s", event.RepoOwner, event.RepoName)
	}
	if event.Number != 12 {
		t.Errorf("Number = %d", event.Number)
	}
	if event.InstallationID != 777 {
		t.Errorf("InstallationID = %d", event.InstallationID)
	}
	if event.SenderID != 42 || event.SenderLogin != "octocat" {
		t.Errorf("sender = %d/%s", event.SenderID, event.SenderLogin)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["status"] != "analysis scheduled" {
		t.Errorf("Response status = %q, want %q", response["status"], "analysis scheduled")
	}
}

func TestWebhookHandler_IgnoredEventAcknowledged(t *testing.T) {
	secret := "test-secret"
	uc := &webhookUCMock{scheduled: false}
	handler := controller.NewWebhookHandler(secret, uc)

	payload := pullRequestPayload()
	payload["action"] = "closed"
	payloadBytes, _ := json.Marshal(payload)

	req := httptest.NewRequest(http.MethodPost, "/hooks/github/app", bytes.NewReader(payloadBytes))
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-Hub-Signature-256", generateSignature(secret, payloadBytes))

	w := httptest.NewRecorder()
	handler.Handle(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Handle() status = %v, want %v", w.Code, http.StatusOK)
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["status"] != "event ignored" {
		t.Errorf("Response status = %q, want %q", response["status"], "event ignored")
	}
}

func TestWebhookHandler_MissingFields(t *testing.T) {
	secret := "test-secret"

	tests := []struct {
		name   string
		mutate func(payload map[string]interface{})
	}{
		{
			name:   "Missing installation",
			mutate: func(p map[string]interface{}) { delete(p, "installation") },
		},
		{
			name:   "Missing sender",
			mutate: func(p map[string]interface{}) { delete(p, "sender") },
		},
		{
			name:   "Missing repository",
			mutate: func(p map[string]interface{}) { delete(p, "repository") },
		},
		{
			name:   "Missing pull request number",
			mutate: func(p map[string]interface{}) { delete(p, "pull_request") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &webhookUCMock{scheduled: true}
			handler := controller.NewWebhookHandler(secret, uc)

			payload := pullRequestPayload()
			tt.mutate(payload)
			payloadBytes, _ := json.Marshal(payload)

			req := httptest.NewRequest(http.MethodPost, "/hooks/github/app", bytes.NewReader(payloadBytes))
			req.Header.Set("X-GitHub-Event", "pull_request")
			req.Header.Set("X-Hub-Signature-256", generateSignature(secret, payloadBytes))

			w := httptest.NewRecorder()
			handler.Handle(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("Handle() status = %v, want %v", w.Code, http.StatusBadRequest)
			}
			if len(uc.events) != 0 {
				t.Errorf("malformed payload reached the use case")
			}
		})
	}
}

func TestWebhookHandler_UnknownEventTypeAcknowledged(t *testing.T) {
	secret := "test-secret"

	tests := []struct {
		name      string
		eventType string
		payload   string
	}{
		{
			name:      "Ping event",
			eventType: "ping",
			payload:   `{"zen":"Keep it logically awesome."}`,
		},
		{
			name:      "Event type GitHub does not send",
			eventType: "fleet_sync",
			payload:   `{"anything":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &webhookUCMock{scheduled: false}
			handler := controller.NewWebhookHandler(secret, uc)

			payload := []byte(tt.payload)
			req := httptest.NewRequest(http.MethodPost, "/hooks/github/app", bytes.NewReader(payload))
			req.Header.Set("X-GitHub-Event", tt.eventType)
			req.Header.Set("X-Hub-Signature-256", generateSignature(secret, payload))

			w := httptest.NewRecorder()
			handler.Handle(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("Handle() status = %v, want %v", w.Code, http.StatusOK)
			}

			var response map[string]string
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if response["status"] != "event ignored" {
				t.Errorf("Response status = %q, want %q", response["status"], "event ignored")
			}
		})
	}
}

func TestWebhookHandler_MalformedJSON(t *testing.T) {
	secret := "test-secret"
	uc := &webhookUCMock{scheduled: true}
	handler := controller.NewWebhookHandler(secret, uc)

	payload := []byte(`{not json`)

	req := httptest.NewRequest(http.MethodPost, "/hooks/github/app", bytes.NewReader(payload))
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-Hub-Signature-256", generateSignature(secret, payload))

	w := httptest.NewRecorder()
	handler.Handle(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Handle() status = %v, want %v", w.Code, http.StatusBadRequest)
	}
}

func TestWebhookHandler_EmptySecretDisablesVerification(t *testing.T) {
	uc := &webhookUCMock{scheduled: true}
	handler := controller.NewWebhookHandler("", uc)

	payloadBytes, _ := json.Marshal(pullRequestPayload())

	req := httptest.NewRequest(http.MethodPost, "/hooks/github/app", bytes.NewReader(payloadBytes))
	req.Header.Set("X-GitHub-Event", "pull_request")
	// No signature header at all.

	w := httptest.NewRecorder()
	handler.Handle(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Handle() status = %v, want %v", w.Code, http.StatusOK)
	}
}

func TestWebhookHandler_Integration(t *testing.T) {
	ctx := context.Background()
	secret := "integration-test-secret"
	uc := &webhookUCMock{scheduled: true}

	server, err := controller.NewServer(
		ctx,
		uc,
		&vaultStub{secrets: map[int64]string{}},
		controller.WithAddr("localhost:0"),
		controller.WithWebhookSecret(secret),
	)
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}

	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	payloadBytes, _ := json.Marshal(pullRequestPayload())
	signature := generateSignature(secret, payloadBytes)

	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/hooks/github/app", bytes.NewReader(payloadBytes))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", "pull_request")
	req.Header.Set("X-GitHub-Delivery", "integration-test")
	req.Header.Set("X-Hub-Signature-256", signature)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Status code = %v, want %v", resp.StatusCode, http.StatusOK)
	}
}
