package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/middleware"
	"github.com/chatsync/internal/repository"
	"github.com/chatsync/internal/storage"
	"github.com/chatsync/internal/ws"
)

type MessageHandler struct {
	msgRepo     *repository.MessageRepository
	convRepo    *repository.ConversationRepository
	receiptRepo *repository.ReadReceiptRepository
	typing      storage.TypingStore
	hub         *ws.Hub
}

func NewMessageHandler(
	msgRepo *repository.MessageRepository,
	convRepo *repository.ConversationRepository,
	receiptRepo *repository.ReadReceiptRepository,
	typing storage.TypingStore,
	hub *ws.Hub,
) *MessageHandler {
	return &MessageHandler{
		msgRepo:     msgRepo,
		convRepo:    convRepo,
		receiptRepo: receiptRepo,
		typing:      typing,
		hub:         hub,
	}
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID := chi.URLParam(r, "id")
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content required")
		return
	}

	m, err := h.msgRepo.Send(r.Context(), conversationID, userID, req.Content)
	if err != nil {
		writeRepoError(w, err, "failed to send message")
		return
	}

	// Sending ends the composing state.
	if err := h.typing.ClearTyping(r.Context(), conversationID, userID); err != nil {
		logger.Errorf("send clear typing conversation=%s user=%s: %v", conversationID, userID, err)
	}

	h.hub.BroadcastToConversation(r.Context(), conversationID, ws.OutgoingMessage{
		Type:    ws.EventNewMessage,
		Payload: m,
	})
	writeJSON(w, http.StatusCreated, m)
}

// GetMessages returns the conversation's full log, oldest first, with
// deleted messages masked. Participants only.
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID := chi.URLParam(r, "id")
	conv, err := h.convRepo.GetByID(r.Context(), conversationID)
	if err != nil {
		writeRepoError(w, err, "conversation not found")
		return
	}
	if !conv.HasParticipant(userID) {
		writeError(w, http.StatusForbidden, "not a participant")
		return
	}
	messages, err := h.msgRepo.ListByConversation(r.Context(), conversationID)
	if err != nil {
		writeRepoError(w, err, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID := chi.URLParam(r, "id")
	m, err := h.msgRepo.SoftDelete(r.Context(), messageID, userID)
	if err != nil {
		writeRepoError(w, err, "failed to delete message")
		return
	}
	h.hub.BroadcastToConversation(r.Context(), m.ConversationID, ws.OutgoingMessage{
		Type: ws.EventMessageDeleted,
		Payload: ws.MessageDeletedPayload{
			MessageID:      m.ID,
			ConversationID: m.ConversationID,
		},
	})
	writeJSON(w, http.StatusOK, m)
}

type ToggleReactionRequest struct {
	Emoji string `json:"emoji"`
}

func (h *MessageHandler) ToggleReaction(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	messageID := chi.URLParam(r, "id")
	var req ToggleReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	m, err := h.msgRepo.ToggleReaction(r.Context(), messageID, userID, req.Emoji)
	if err != nil {
		writeRepoError(w, err, "failed to toggle reaction")
		return
	}
	h.hub.BroadcastToConversation(r.Context(), m.ConversationID, ws.OutgoingMessage{
		Type: ws.EventReactionToggled,
		Payload: ws.ReactionPayload{
			MessageID:      m.ID,
			ConversationID: m.ConversationID,
			UserID:         userID,
			Reactions:      m.Reactions,
		},
	})
	writeJSON(w, http.StatusOK, m)
}

// MarkAsRead moves the caller's watermark to now and tells the other
// participants their checkmarks can update.
func (h *MessageHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID := chi.URLParam(r, "id")
	rec, err := h.receiptRepo.MarkAsRead(r.Context(), conversationID, userID)
	if err != nil {
		writeRepoError(w, err, "failed to mark as read")
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
			Type: ws.EventMessageRead,
			Payload: ws.MessageReadPayload{
				ConversationID: conversationID,
				UserID:         userID,
			},
		})
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *MessageHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID := chi.URLParam(r, "id")
	count, err := h.msgRepo.UnreadCount(r.Context(), conversationID, userID)
	if err != nil {
		writeRepoError(w, err, "failed to count unread")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// GetAllUnreadCounts returns conversation id -> unread count for the
// caller's conversations; ids with nothing unread are absent.
func (h *MessageHandler) GetAllUnreadCounts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	counts, err := h.msgRepo.AllUnreadCounts(r.Context(), userID)
	if err != nil {
		writeRepoError(w, err, "failed to count unread")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

type LastMessagesRequest struct {
	ConversationIDs []string `json:"conversation_ids"`
}

// GetLastMessages returns the latest message per requested conversation for
// sidebar previews; conversations without messages are simply absent.
func (h *MessageHandler) GetLastMessages(w http.ResponseWriter, r *http.Request) {
	var req LastMessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	messages, err := h.msgRepo.LastMessages(r.Context(), req.ConversationIDs)
	if err != nil {
		writeRepoError(w, err, "failed to get last messages")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}
