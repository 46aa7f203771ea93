package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/chatsync/internal/middleware"
	"github.com/chatsync/internal/repository"
	"github.com/chatsync/internal/ws"
)

type UserHandler struct {
	userRepo *repository.UserRepository
	hub      *ws.Hub
}

func NewUserHandler(userRepo *repository.UserRepository, hub *ws.Hub) *UserHandler {
	return &UserHandler{userRepo: userRepo, hub: hub}
}

type SyncUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	ImageURL string `json:"image_url"`
}

// SyncUser mirrors the identity-provider profile into the local users table.
// The external id comes from the verified token, never from the body.
// Idempotent: safe to call on every sign-in.
func (h *UserHandler) SyncUser(w http.ResponseWriter, r *http.Request) {
	externalID := middleware.GetUserID(r.Context())
	var req SyncUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	user, err := h.userRepo.Upsert(r.Context(), externalID,
		strings.TrimSpace(req.Name), strings.TrimSpace(req.Email), strings.TrimSpace(req.ImageURL))
	if err != nil {
		writeRepoError(w, err, "failed to sync user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type UpdateStatusRequest struct {
	IsOnline bool `json:"is_online"`
}

// UpdateStatus is the heartbeat/visibility endpoint. Unknown users are a
// no-op so a heartbeat racing the first sync never fails.
func (h *UserHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	externalID := middleware.GetUserID(r.Context())
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if err := h.userRepo.SetOnline(r.Context(), externalID, req.IsOnline); err != nil {
		writeRepoError(w, err, "failed to update status")
		return
	}
	h.hub.BroadcastUserStatus(externalID, req.IsOnline)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetUsers returns everyone except the caller, for the contact picker.
func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	externalID := middleware.GetUserID(r.Context())
	users, err := h.userRepo.ListAllExcept(r.Context(), externalID)
	if err != nil {
		writeRepoError(w, err, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	externalID := chi.URLParam(r, "externalId")
	user, err := h.userRepo.GetByExternalID(r.Context(), externalID)
	if err != nil {
		writeRepoError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type BatchUsersRequest struct {
	ExternalIDs []string `json:"external_ids"`
}

// BatchUsers resolves a list of external ids; unknown ids are skipped, the
// caller matches results back by external_id.
func (h *UserHandler) BatchUsers(w http.ResponseWriter, r *http.Request) {
	var req BatchUsersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	users, err := h.userRepo.ListByExternalIDs(r.Context(), req.ExternalIDs)
	if err != nil {
		writeRepoError(w, err, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}
