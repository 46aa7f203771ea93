package memory

import (
	"context"
	"sync"
	"time"

	"github.com/chatsync/internal/model"
)

// markerTTL matches the Redis hash TTL; anything older is pruned on write so
// the map cannot grow without bound.
const markerTTL = 30 * time.Second

type Client struct {
	mu     sync.RWMutex
	typing map[string]map[string]time.Time // conversation id -> user id -> last typed
}

func New() *Client {
	return &Client{typing: make(map[string]map[string]time.Time)}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetTyping(ctx context.Context, conversationID, userID string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, ok := c.typing[conversationID]
	if !ok {
		conv = make(map[string]time.Time)
		c.typing[conversationID] = conv
	}
	conv[userID] = at
	c.pruneLocked(conversationID, at)
	return nil
}

func (c *Client) ClearTyping(ctx context.Context, conversationID, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if conv, ok := c.typing[conversationID]; ok {
		delete(conv, userID)
		if len(conv) == 0 {
			delete(c.typing, conversationID)
		}
	}
	return nil
}

func (c *Client) ListTyping(ctx context.Context, conversationID string) ([]model.TypingMarker, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	conv := c.typing[conversationID]
	markers := make([]model.TypingMarker, 0, len(conv))
	for userID, at := range conv {
		markers = append(markers, model.TypingMarker{
			ConversationID: conversationID,
			UserID:         userID,
			LastTyped:      at,
		})
	}
	return markers, nil
}

func (c *Client) pruneLocked(conversationID string, now time.Time) {
	conv := c.typing[conversationID]
	for userID, at := range conv {
		if now.Sub(at) > markerTTL {
			delete(conv, userID)
		}
	}
	if len(conv) == 0 {
		delete(c.typing, conversationID)
	}
}
