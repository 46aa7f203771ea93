package ws

import (
	"github.com/chatsync/internal/model"
)

type EventType string

const (
	EventNewMessage          EventType = "new_message"
	EventMessageDeleted      EventType = "message_deleted"
	EventReactionToggled     EventType = "reaction_toggled"
	EventMessageRead         EventType = "message_read"
	EventTyping              EventType = "typing"
	EventUserOnline          EventType = "user_online"
	EventUserOffline         EventType = "user_offline"
	EventConversationCreated EventType = "conversation_created"
	EventError               EventType = "error"
)

// IncomingMessage is what the client sends to the server.
type IncomingMessage struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Content        string    `json:"content,omitempty"`

	// For delete/reactions
	MessageID string `json:"message_id,omitempty"`
	Emoji     string `json:"emoji,omitempty"`

	// For typing
	IsTyping bool `json:"is_typing,omitempty"`
}

// OutgoingMessage is what the server pushes to subscribers.
// Payload uses typed structs to avoid heap-heavy map[string]any.
type OutgoingMessage struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// MessageDeletedPayload is broadcast when a message is soft-deleted.
type MessageDeletedPayload struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
}

// ReactionPayload carries the full post-toggle reaction set so clients can
// replace rather than patch their local state.
type ReactionPayload struct {
	MessageID      string           `json:"message_id"`
	ConversationID string           `json:"conversation_id"`
	UserID         string           `json:"user_id"`
	Reactions      []model.Reaction `json:"reactions"`
}

// TypingPayload is broadcast when a user starts or stops composing.
type TypingPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	IsTyping       bool   `json:"is_typing"`
}

// MessageReadPayload is broadcast when a user's watermark moves.
type MessageReadPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

// UserStatusPayload is broadcast for online/offline transitions.
type UserStatusPayload struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}
