package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chatsync/internal/model"
)

// Typing markers live in one hash per conversation: typing:{id} maps user id
// to the unix-ms of the last keystroke. The hash TTL reclaims conversations
// nobody types in anymore; the 2s freshness window is applied by readers.
const typingHashTTL = 30 * time.Second

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func typingKey(conversationID string) string {
	return "typing:" + conversationID
}

func (c *Client) SetTyping(ctx context.Context, conversationID, userID string, at time.Time) error {
	key := typingKey(conversationID)
	if err := c.cli.HSet(ctx, key, userID, at.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("redis set typing: %w", err)
	}
	// Refresh the hash TTL on every keystroke.
	if err := c.cli.Expire(ctx, key, typingHashTTL).Err(); err != nil {
		return fmt.Errorf("redis typing expire: %w", err)
	}
	return nil
}

// ClearTyping removes the marker; a missing marker is not an error.
func (c *Client) ClearTyping(ctx context.Context, conversationID, userID string) error {
	if err := c.cli.HDel(ctx, typingKey(conversationID), userID).Err(); err != nil {
		return fmt.Errorf("redis clear typing: %w", err)
	}
	return nil
}

func (c *Client) ListTyping(ctx context.Context, conversationID string) ([]model.TypingMarker, error) {
	entries, err := c.cli.HGetAll(ctx, typingKey(conversationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list typing: %w", err)
	}
	markers := make([]model.TypingMarker, 0, len(entries))
	for userID, raw := range entries {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		markers = append(markers, model.TypingMarker{
			ConversationID: conversationID,
			UserID:         userID,
			LastTyped:      time.UnixMilli(ms).UTC(),
		})
	}
	return markers, nil
}
