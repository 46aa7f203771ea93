package storage

import (
	"context"
	"time"

	"github.com/chatsync/internal/model"
)

// TypingStore holds short-lived typing markers keyed by (conversation, user).
// Implementations: redis.Client (TTL-backed so stale markers are reclaimed),
// memory.Client (for -dev without Redis).
//
// ListTyping returns raw markers; callers apply the freshness window with
// model.FreshTyping so both implementations stay dumb about expiry policy.
type TypingStore interface {
	SetTyping(ctx context.Context, conversationID, userID string, at time.Time) error
	ClearTyping(ctx context.Context, conversationID, userID string) error
	ListTyping(ctx context.Context, conversationID string) ([]model.TypingMarker, error)
	Close() error
}
