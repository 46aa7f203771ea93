package model

import "time"

// TypingFreshWindow is how long a typing marker counts as live. Older
// markers are treated as absent at read time even if the store still holds
// them.
const TypingFreshWindow = 2 * time.Second

// TypingMarker records that a user was composing in a conversation.
type TypingMarker struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	LastTyped      time.Time `json:"last_typed"`
}

// FreshTyping filters markers down to those still inside the freshness
// window at now, excluding the requesting user's own marker.
func FreshTyping(markers []TypingMarker, excludeUserID string, now time.Time) []TypingMarker {
	out := make([]TypingMarker, 0, len(markers))
	for _, m := range markers {
		if m.UserID == excludeUserID {
			continue
		}
		if now.Sub(m.LastTyped) >= TypingFreshWindow {
			continue
		}
		out = append(out, m)
	}
	return out
}
