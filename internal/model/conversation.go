package model

import "time"

type Conversation struct {
	ID              string    `json:"id"`
	Participants    []string  `json:"participants"` // external user ids
	IsGroup         bool      `json:"is_group"`
	GroupName       string    `json:"group_name,omitempty"`
	GroupImage      string    `json:"group_image,omitempty"`
	LastMessageTime time.Time `json:"last_message_time"`
	CreatedAt       time.Time `json:"created_at"`
}

// HasParticipant reports whether userID is a member of the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// DirectKey normalizes an unordered user pair into the unique key that
// guarantees at most one direct conversation per pair.
func DirectKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}
