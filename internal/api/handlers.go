package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/twitter-agent/internal/apperrors"
	"github.com/twitter-agent/internal/campaign"
	"github.com/twitter-agent/internal/models"
	"github.com/twitter-agent/internal/scheduler"
	"github.com/twitter-agent/internal/secrets"
	"github.com/twitter-agent/internal/storage"
	"github.com/twitter-agent/pkg/logger"
)

type handlers struct {
	campaigns *campaign.Service
	loop      *scheduler.Loop
	secrets   *secrets.Store
	repo      storage.Repository
	log       *logger.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

func (h *handlers) listCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.campaigns.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (h *handlers) createCampaign(w http.ResponseWriter, r *http.Request) {
	var in campaign.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, apperrors.Validationf("invalid request body: %v", err))
		return
	}
	created, err := h.campaigns.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handlers) getCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}
	got, err := h.campaigns.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, got)
}

func (h *handlers) updateCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}
	var in campaign.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, apperrors.Validationf("invalid request body: %v", err))
		return
	}
	updated, err := h.campaigns.Update(r.Context(), id, in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handlers) startCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}
	if !h.requireCredentials(w, r) {
		return
	}
	started, err := h.campaigns.Start(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, started)
}

func (h *handlers) stopCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}
	stopped, err := h.campaigns.Stop(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stopped)
}

func (h *handlers) postNow(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}
	if !h.requireCredentials(w, r) {
		return
	}
	record, err := h.loop.PostNow(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *handlers) schedulerStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.loop.Status(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *handlers) listPosts(w http.ResponseWriter, r *http.Request) {
	filter := storage.DefaultPostFilter()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			h.writeError(w, apperrors.Validationf("invalid limit %q", raw))
			return
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.PostStatus(raw)
		if status != models.PostStatusPosted && status != models.PostStatusFailed {
			h.writeError(w, apperrors.Validationf("invalid status %q", raw))
			return
		}
		filter.Status = &status
	}

	records, err := h.repo.ListPostRecords(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handlers) listCampaignPosts(w http.ResponseWriter, r *http.Request) {
	id, ok := h.campaignID(w, r)
	if !ok {
		return
	}
	if _, err := h.campaigns.Get(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	filter := storage.DefaultPostFilter()
	filter.CampaignID = &id
	records, err := h.repo.ListPostRecords(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handlers) credentialsStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.secrets.Status(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// credentialsRequest carries new credential values. Empty fields keep their
// stored value, so operators can rotate one secret at a time.
type credentialsRequest struct {
	TwitterClientID     string `json:"twitter_client_id"`
	TwitterClientSecret string `json:"twitter_client_secret"`
	TwitterAccessToken  string `json:"twitter_access_token"`
	TwitterRefreshToken string `json:"twitter_refresh_token"`
	TwitterTokenExpiry  string `json:"twitter_token_expiry"` // RFC 3339, optional
	AnthropicAPIKey     string `json:"anthropic_api_key"`
}

func (h *handlers) saveCredentials(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.Validationf("invalid request body: %v", err))
		return
	}

	creds, err := h.secrets.Get(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	if req.TwitterClientID != "" {
		creds.TwitterClientID = req.TwitterClientID
	}
	if req.TwitterClientSecret != "" {
		creds.TwitterClientSecret = req.TwitterClientSecret
	}
	if req.TwitterAccessToken != "" {
		creds.TwitterAccessToken = req.TwitterAccessToken
	}
	if req.TwitterRefreshToken != "" {
		creds.TwitterRefreshToken = req.TwitterRefreshToken
	}
	if req.TwitterTokenExpiry != "" {
		expiry, err := time.Parse(time.RFC3339, req.TwitterTokenExpiry)
		if err != nil {
			h.writeError(w, apperrors.Validationf("invalid twitter_token_expiry: %v", err))
			return
		}
		creds.TwitterTokenExpiry = expiry
	}
	if req.AnthropicAPIKey != "" {
		creds.AnthropicAPIKey = req.AnthropicAPIKey
	}

	if err := h.secrets.Save(r.Context(), creds); err != nil {
		h.writeError(w, err)
		return
	}

	status, err := h.secrets.Status(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// requireCredentials rejects posting operations until both credential
// groups are configured
func (h *handlers) requireCredentials(w http.ResponseWriter, r *http.Request) bool {
	creds, err := h.secrets.Get(r.Context())
	if err != nil {
		h.writeError(w, err)
		return false
	}
	if !creds.Complete() {
		h.writeError(w, apperrors.Validationf("twitter and anthropic credentials must be configured first"))
		return false
	}
	return true
}

// campaignID parses the {id} path parameter
func (h *handlers) campaignID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		h.writeError(w, apperrors.Validationf("invalid campaign id %q", raw))
		return 0, false
	}
	return uint(id), true
}

// writeError maps the error taxonomy onto HTTP status codes
func (h *handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperrors.IsValidation(err):
		status = http.StatusBadRequest
	case apperrors.IsNotFound(err):
		status = http.StatusNotFound
	case apperrors.IsConflict(err):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
