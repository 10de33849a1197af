package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/smartreview-app/smartreview/pkg/domain/interfaces"
)

// CredentialHandler manages per-user analysis service API keys. The
// key appears only in the request body; it is never logged or echoed
// back.
type CredentialHandler struct {
	vault interfaces.Vault
}

// NewCredentialHandler creates a new CredentialHandler.
func NewCredentialHandler(vault interfaces.Vault) *CredentialHandler {
	return &CredentialHandler{vault: vault}
}

type putCredentialRequest struct {
	APIKey string `json:"api_key"`
}

// Put stores (or replaces) the owner's API key.
func (h *CredentialHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	ownerID, err := strconv.ParseInt(chi.URLParam(r, "ownerID"), 10, 64)
	if err != nil {
		writeError(w, goerr.New("invalid owner ID"), http.StatusBadRequest)
		return
	}

	var req putCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, goerr.New("invalid request body"), http.StatusBadRequest)
		return
	}
	if req.APIKey == "" {
		writeError(w, goerr.New("api_key is required"), http.StatusBadRequest)
		return
	}

	if err := h.vault.Store(ctx, ownerID, req.APIKey); err != nil {
		logger.Error("Failed to store credential", "error", err, "owner_id", ownerID)
		writeError(w, goerr.New("failed to store credential"), http.StatusInternalServerError)
		return
	}

	logger.Info("Credential stored", "owner_id", ownerID)
	writeStatus(w, "credential stored")
}

// Delete removes the owner's API key.
func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	ownerID, err := strconv.ParseInt(chi.URLParam(r, "ownerID"), 10, 64)
	if err != nil {
		writeError(w, goerr.New("invalid owner ID"), http.StatusBadRequest)
		return
	}

	existed, err := h.vault.Delete(ctx, ownerID)
	if err != nil {
		logger.Error("Failed to delete credential", "error", err, "owner_id", ownerID)
		writeError(w, goerr.New("failed to delete credential"), http.StatusInternalServerError)
		return
	}
	if !existed {
		writeError(w, goerr.New("credential not found"), http.StatusNotFound)
		return
	}

	logger.Info("Credential deleted", "owner_id", ownerID)
	writeStatus(w, "credential deleted")
}
