package model

import "time"

// ReadReceipt is a per-(conversation, user) watermark: everything created
// at or before LastReadTime counts as read.
type ReadReceipt struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	LastReadTime   time.Time `json:"last_read_time"`
}
