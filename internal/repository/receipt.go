package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chatsync/internal/logger"
	"github.com/chatsync/internal/model"
)

type ReadReceiptRepository struct {
	pool *pgxpool.Pool
}

func NewReadReceiptRepository(pool *pgxpool.Pool) *ReadReceiptRepository {
	return &ReadReceiptRepository{pool: pool}
}

// MarkAsRead moves the user's watermark for the conversation to now. The
// store does not enforce monotonicity; callers only invoke this when caught
// up.
func (r *ReadReceiptRepository) MarkAsRead(ctx context.Context, conversationID, userID string) (*model.ReadReceipt, error) {
	defer logger.DeferLogDuration("receipt.MarkAsRead", time.Now())()
	rec := &model.ReadReceipt{ConversationID: conversationID, UserID: userID}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO read_receipts (conversation_id, user_id, last_read_time)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (conversation_id, user_id) DO UPDATE SET last_read_time = EXCLUDED.last_read_time
		 RETURNING last_read_time`,
		conversationID, userID, time.Now().UTC(),
	).Scan(&rec.LastReadTime)
	if err != nil {
		return nil, fmt.Errorf("receiptRepo.MarkAsRead: %w", err)
	}
	return rec, nil
}

// Get returns the receipt for the pair, or ErrNotFound when the user never
// read the conversation.
func (r *ReadReceiptRepository) Get(ctx context.Context, conversationID, userID string) (*model.ReadReceipt, error) {
	defer logger.DeferLogDuration("receipt.Get", time.Now())()
	rec := &model.ReadReceipt{ConversationID: conversationID, UserID: userID}
	err := r.pool.QueryRow(ctx,
		`SELECT last_read_time FROM read_receipts WHERE conversation_id = $1 AND user_id = $2`,
		conversationID, userID,
	).Scan(&rec.LastReadTime)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("receiptRepo.Get: %w", err)
	}
	return rec, nil
}
