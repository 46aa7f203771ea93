package model

import "time"

type Message struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Content        string     `json:"content"`
	IsDeleted      bool       `json:"is_deleted"`
	Reactions      []Reaction `json:"reactions"`
	CreatedAt      time.Time  `json:"created_at"`
}

type Reaction struct {
	UserID string `json:"user_id"`
	Emoji  string `json:"emoji"`
}

// ToggleReaction returns the reaction set after userID toggles emoji.
// Toggling an emoji the user already placed removes it; any other emoji
// replaces the user's previous entry, so the set never holds more than one
// reaction per user.
func ToggleReaction(reactions []Reaction, userID, emoji string) []Reaction {
	out := make([]Reaction, 0, len(reactions)+1)
	removed := false
	for _, r := range reactions {
		if r.UserID == userID {
			if r.Emoji == emoji {
				removed = true
			}
			continue
		}
		out = append(out, r)
	}
	if !removed {
		out = append(out, Reaction{UserID: userID, Emoji: emoji})
	}
	return out
}
