package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/evcraddock/offer-form/internal/auth"
)

// apikeyHandlers holds API key management HTTP handlers.
type apikeyHandlers struct {
	apiKeys *auth.APIKeyStore
}

type apiKeyResponse struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	KeyPrefix  string  `json:"key_prefix"`
	CreatedAt  string  `json:"created_at"`
	LastUsedAt *string `json:"last_used_at,omitempty"`
}

type apiKeyCreateResponse struct {
	Key    string         `json:"key"` // raw key, shown once
	APIKey apiKeyResponse `json:"api_key"`
}

func toAPIKeyResponse(k auth.APIKey) apiKeyResponse {
	resp := apiKeyResponse{
		ID:        k.ID,
		Name:      k.Name,
		KeyPrefix: k.KeyPrefix,
		CreatedAt: k.CreatedAt.UTC().Format(time.RFC3339),
	}
	if k.LastUsedAt != nil {
		s := k.LastUsedAt.UTC().Format(time.RFC3339)
		resp.LastUsedAt = &s
	}
	return resp
}

// handleCreateKey generates a new API key.
func (h *apikeyHandlers) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, maxBodyBytes, &body) {
		return
	}

	name := strings.TrimSpace(body.Name)
	if name == "" {
		name = "API Key"
	}

	rawKey, key, err := h.apiKeys.Create(name)
	if err != nil {
		internalError(w, "creating api key", err)
		return
	}

	apiJSON(w, apiKeyCreateResponse{Key: rawKey, APIKey: toAPIKeyResponse(*key)}, http.StatusCreated)
}

// handleListKeys returns all API keys (without raw keys).
func (h *apikeyHandlers) handleListKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.apiKeys.List()
	if err != nil {
		internalError(w, "listing api keys", err)
		return
	}

	resp := make([]apiKeyResponse, len(keys))
	for i, k := range keys {
		resp[i] = toAPIKeyResponse(k)
	}
	apiJSON(w, resp, http.StatusOK)
}

// handleDeleteKey revokes an API key.
func (h *apikeyHandlers) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		apiError(w, "invalid key ID", http.StatusBadRequest)
		return
	}

	if err := h.apiKeys.Delete(id); err != nil {
		if errors.Is(err, auth.ErrKeyNotFound) {
			apiError(w, "key not found", http.StatusNotFound)
			return
		}
		internalError(w, "deleting api key", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
