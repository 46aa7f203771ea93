package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chatsync/internal/middleware"
	"github.com/chatsync/internal/model"
	"github.com/chatsync/internal/repository"
	"github.com/chatsync/internal/storage"
	"github.com/chatsync/internal/ws"
)

type TypingHandler struct {
	typing   storage.TypingStore
	convRepo *repository.ConversationRepository
	hub      *ws.Hub
}

func NewTypingHandler(typing storage.TypingStore, convRepo *repository.ConversationRepository, hub *ws.Hub) *TypingHandler {
	return &TypingHandler{typing: typing, convRepo: convRepo, hub: hub}
}

type SetTypingRequest struct {
	IsTyping bool `json:"is_typing"`
}

// SetTyping upserts or clears the caller's typing marker. Clearing an absent
// marker is fine; the client fires stop events liberally.
func (h *TypingHandler) SetTyping(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID := chi.URLParam(r, "id")
	var req SetTypingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	var err error
	if req.IsTyping {
		err = h.typing.SetTyping(r.Context(), conversationID, userID, time.Now().UTC())
	} else {
		err = h.typing.ClearTyping(r.Context(), conversationID, userID)
	}
	if err != nil {
		writeRepoError(w, err, "failed to update typing state")
		return
	}

	participants, err := h.convRepo.GetParticipants(r.Context(), conversationID)
	if err == nil {
		others := make([]string, 0, len(participants))
		for _, p := range participants {
			if p != userID {
				others = append(others, p)
			}
		}
		h.hub.NotifyUsers(others, ws.OutgoingMessage{
			Type: ws.EventTyping,
			Payload: ws.TypingPayload{
				ConversationID: conversationID,
				UserID:         userID,
				IsTyping:       req.IsTyping,
			},
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetTyping returns who is composing right now, excluding the caller. The
// freshness window is applied at read time so a marker the store has not yet
// reclaimed still drops out after 2 seconds.
func (h *TypingHandler) GetTyping(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID := chi.URLParam(r, "id")
	markers, err := h.typing.ListTyping(r.Context(), conversationID)
	if err != nil {
		writeRepoError(w, err, "failed to list typing state")
		return
	}
	writeJSON(w, http.StatusOK, model.FreshTyping(markers, userID, time.Now().UTC()))
}
