package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/model"
)

const messageCols = `id, conversation_id, sender_id, content, is_deleted, reactions, created_at`

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func scanMessage(s interface{ Scan(dest ...any) error }, m *model.Message) error {
	if err := s.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.IsDeleted, &m.Reactions, &m.CreatedAt); err != nil {
		return err
	}
	maskDeleted(m)
	return nil
}

// maskDeleted hides the content of soft-deleted messages. The row keeps the
// text, but no read path may hand it to a client.
func maskDeleted(m *model.Message) {
	if m.IsDeleted {
		m.Content = ""
		m.Reactions = []model.Reaction{}
	}
	if m.Reactions == nil {
		m.Reactions = []model.Reaction{}
	}
}

// Send inserts a message and bumps the conversation's last_message_time in
// one transaction, so the sidebar order can never observe one write without
// the other. The conversation row is locked first, which also serializes
// concurrent sends into distinct created_at order.
func (r *MessageRepository) Send(ctx context.Context, conversationID, senderID, content string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.Send", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.Send begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var participants []string
	err = tx.QueryRow(ctx,
		`SELECT participants FROM conversations WHERE id = $1 FOR UPDATE`, conversationID,
	).Scan(&participants)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("msgRepo.Send lock conversation: %w", err)
	}

	member := false
	for _, p := range participants {
		if p == senderID {
			member = true
			break
		}
	}
	if !member {
		return nil, fmt.Errorf("msgRepo.Send: sender %s is not a participant: %w", senderID, ErrForbidden)
	}

	now := time.Now().UTC()
	m := &model.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Reactions:      []model.Reaction{},
		CreatedAt:      now,
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, content, is_deleted, reactions, created_at)
		 VALUES ($1, $2, $3, $4, false, $5, $6)`,
		m.ID, m.ConversationID, m.SenderID, m.Content, m.Reactions, m.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("msgRepo.Send insert: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE conversations SET last_message_time = $1 WHERE id = $2`, now, conversationID,
	); err != nil {
		return nil, fmt.Errorf("msgRepo.Send bump conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("msgRepo.Send commit: %w", err)
	}
	return m, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.GetByID", time.Now())()
	m := &model.Message{}
	row := r.pool.QueryRow(ctx, `SELECT `+messageCols+` FROM messages WHERE id = $1`, id)
	if err := scanMessage(row, m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("msgRepo.GetByID: %w", err)
	}
	return m, nil
}

// ListByConversation returns the full message log oldest first; ties on
// created_at fall back to id so the order is total and stable.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.ListByConversation", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageCols+` FROM messages
		 WHERE conversation_id = $1
		 ORDER BY created_at, id`, conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListByConversation query: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0, 64)
	for rows.Next() {
		var m model.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("msgRepo.ListByConversation scan: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.ListByConversation rows: %w", err)
	}
	return messages, nil
}

// SoftDelete marks the sender's own message deleted and clears its
// reactions in the same statement, so a deleted message can never be seen
// with a stale reaction set. Deleting an already-deleted message is a no-op.
func (r *MessageRepository) SoftDelete(ctx context.Context, messageID, requestingUserID string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.SoftDelete", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.SoftDelete begin: %w", err)
	}
	defer tx.Rollback(ctx)

	m := &model.Message{}
	row := tx.QueryRow(ctx, `SELECT `+messageCols+` FROM messages WHERE id = $1 FOR UPDATE`, messageID)
	if err := scanMessage(row, m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("msgRepo.SoftDelete lock: %w", err)
	}
	if m.SenderID != requestingUserID {
		return nil, fmt.Errorf("msgRepo.SoftDelete: only the sender may delete: %w", ErrUnauthorized)
	}
	if m.IsDeleted {
		return m, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE messages SET is_deleted = true, reactions = '[]' WHERE id = $1`, messageID,
	); err != nil {
		return nil, fmt.Errorf("msgRepo.SoftDelete update: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("msgRepo.SoftDelete commit: %w", err)
	}

	m.IsDeleted = true
	maskDeleted(m)
	return m, nil
}

// ToggleReaction recomputes the message's whole reaction set under a row
// lock: same emoji again removes it, a different emoji replaces the user's
// previous one. Deleted messages are left untouched.
func (r *MessageRepository) ToggleReaction(ctx context.Context, messageID, userID, emoji string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.ToggleReaction", time.Now())()
	if emoji == "" {
		return nil, fmt.Errorf("msgRepo.ToggleReaction: empty emoji: %w", ErrInvalidArgument)
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ToggleReaction begin: %w", err)
	}
	defer tx.Rollback(ctx)

	m := &model.Message{}
	row := tx.QueryRow(ctx, `SELECT `+messageCols+` FROM messages WHERE id = $1 FOR UPDATE`, messageID)
	if err := scanMessage(row, m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("msgRepo.ToggleReaction lock: %w", err)
	}
	if m.IsDeleted {
		// Reactions on deleted messages have no visible effect.
		return m, tx.Commit(ctx)
	}

	m.Reactions = model.ToggleReaction(m.Reactions, userID, emoji)
	if _, err := tx.Exec(ctx,
		`UPDATE messages SET reactions = $1 WHERE id = $2`, m.Reactions, messageID,
	); err != nil {
		return nil, fmt.Errorf("msgRepo.ToggleReaction update: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("msgRepo.ToggleReaction commit: %w", err)
	}
	return m, nil
}

// LastMessages returns the most recent message per conversation; ids with
// no messages are simply absent from the result.
func (r *MessageRepository) LastMessages(ctx context.Context, conversationIDs []string) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.LastMessages", time.Now())()
	if len(conversationIDs) == 0 {
		return []model.Message{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ON (conversation_id) `+messageCols+`
		 FROM messages
		 WHERE conversation_id = ANY($1)
		 ORDER BY conversation_id, created_at DESC, id DESC`, conversationIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.LastMessages query: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0, len(conversationIDs))
	for rows.Next() {
		var m model.Message
		if err := scanMessage(rows, &m); err != nil {
			return nil, fmt.Errorf("msgRepo.LastMessages scan: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.LastMessages rows: %w", err)
	}
	return messages, nil
}

// UnreadCount counts non-deleted messages from other senders created after
// the user's read watermark (all of them when no receipt exists).
func (r *MessageRepository) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	defer logger.DeferLogDuration("msg.UnreadCount", time.Now())()
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages m
		 WHERE m.conversation_id = $1
		   AND m.sender_id != $2
		   AND m.is_deleted = false
		   AND m.created_at > COALESCE(
		       (SELECT last_read_time FROM read_receipts WHERE conversation_id = $1 AND user_id = $2),
		       'epoch')`,
		conversationID, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("msgRepo.UnreadCount: %w", err)
	}
	return count, nil
}

// AllUnreadCounts returns conversation id -> unread count across the user's
// conversations. Conversations with nothing unread are absent from the map.
func (r *MessageRepository) AllUnreadCounts(ctx context.Context, userID string) (map[string]int, error) {
	defer logger.DeferLogDuration("msg.AllUnreadCounts", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT m.conversation_id, COUNT(*)
		 FROM messages m
		 JOIN conversations c ON c.id = m.conversation_id
		 LEFT JOIN read_receipts rr ON rr.conversation_id = m.conversation_id AND rr.user_id = $1
		 WHERE $1 = ANY(c.participants)
		   AND m.sender_id != $1
		   AND m.is_deleted = false
		   AND m.created_at > COALESCE(rr.last_read_time, 'epoch')
		 GROUP BY m.conversation_id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.AllUnreadCounts query: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int, 16)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("msgRepo.AllUnreadCounts scan: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.AllUnreadCounts rows: %w", err)
	}
	return counts, nil
}
