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

type ConversationHandler struct {
	convRepo *repository.ConversationRepository
	hub      *ws.Hub
}

func NewConversationHandler(convRepo *repository.ConversationRepository, hub *ws.Hub) *ConversationHandler {
	return &ConversationHandler{convRepo: convRepo, hub: hub}
}

type CreateDirectRequest struct {
	OtherUserID string `json:"other_user_id"`
}

// CreateDirect returns the caller's direct conversation with the other user,
// creating it on first contact. The counterpart is notified only when the
// row is actually new.
func (h *ConversationHandler) CreateDirect(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var req CreateDirectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	conv, created, err := h.convRepo.GetOrCreateDirect(r.Context(), userID, strings.TrimSpace(req.OtherUserID))
	if err != nil {
		writeRepoError(w, err, "failed to create conversation")
		return
	}
	if created {
		h.hub.NotifyUsers([]string{req.OtherUserID}, ws.OutgoingMessage{
			Type:    ws.EventConversationCreated,
			Payload: conv,
		})
	}
	writeJSON(w, http.StatusOK, conv)
}

type CreateGroupRequest struct {
	Name       string   `json:"name"`
	MemberIDs  []string `json:"member_ids"`
	GroupImage string   `json:"group_image"`
}

func (h *ConversationHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	conv, err := h.convRepo.CreateGroup(r.Context(), userID, req.MemberIDs,
		strings.TrimSpace(req.Name), strings.TrimSpace(req.GroupImage))
	if err != nil {
		writeRepoError(w, err, "failed to create group")
		return
	}

	others := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		if p != userID {
			others = append(others, p)
		}
	}
	h.hub.NotifyUsers(others, ws.OutgoingMessage{
		Type:    ws.EventConversationCreated,
		Payload: conv,
	})
	writeJSON(w, http.StatusCreated, conv)
}

// GetConversations returns the caller's sidebar, newest activity first.
func (h *ConversationHandler) GetConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convs, err := h.convRepo.ListForUser(r.Context(), userID)
	if err != nil {
		writeRepoError(w, err, "failed to list conversations")
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *ConversationHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id := chi.URLParam(r, "id")
	conv, err := h.convRepo.GetByID(r.Context(), id)
	if err != nil {
		writeRepoError(w, err, "conversation not found")
		return
	}
	if !conv.HasParticipant(userID) {
		writeError(w, http.StatusForbidden, "not a participant")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}
