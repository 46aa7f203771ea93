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

const conversationCols = `id, participants, is_group, COALESCE(group_name,''), COALESCE(group_image,''), last_message_time, created_at`

type ConversationRepository struct {
	pool *pgxpool.Pool
}

func NewConversationRepository(pool *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{pool: pool}
}

func scanConversation(s interface{ Scan(dest ...any) error }, c *model.Conversation) error {
	return s.Scan(&c.ID, &c.Participants, &c.IsGroup, &c.GroupName, &c.GroupImage, &c.LastMessageTime, &c.CreatedAt)
}

// GetOrCreateDirect returns the direct conversation for the unordered pair,
// creating it when missing. The unique index on direct_key makes concurrent
// calls for the same pair converge on a single row: the loser's insert hits
// the conflict and reads the winner's conversation back. The second return
// reports whether this call created the row.
func (r *ConversationRepository) GetOrCreateDirect(ctx context.Context, userA, userB string) (*model.Conversation, bool, error) {
	defer logger.DeferLogDuration("conv.GetOrCreateDirect", time.Now())()
	if userA == "" || userB == "" || userA == userB {
		return nil, false, fmt.Errorf("convRepo.GetOrCreateDirect: need two distinct users: %w", ErrInvalidArgument)
	}

	key := model.DirectKey(userA, userB)
	now := time.Now().UTC()
	c := &model.Conversation{}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO conversations (id, participants, is_group, direct_key, last_message_time, created_at)
		 VALUES ($1, $2, false, $3, $4, $4)
		 ON CONFLICT (direct_key) DO NOTHING
		 RETURNING `+conversationCols,
		uuid.New().String(), []string{userA, userB}, key, now,
	)
	err := scanConversation(row, c)
	if err == nil {
		return c, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("convRepo.GetOrCreateDirect insert: %w", err)
	}

	// Conflict: the pair already has a conversation.
	row = r.pool.QueryRow(ctx,
		`SELECT `+conversationCols+` FROM conversations WHERE direct_key = $1`, key,
	)
	if err := scanConversation(row, c); err != nil {
		return nil, false, fmt.Errorf("convRepo.GetOrCreateDirect select: %w", err)
	}
	return c, false, nil
}

// CreateGroup creates a named group conversation. The creator is always a
// participant even when omitted from memberIDs.
func (r *ConversationRepository) CreateGroup(ctx context.Context, creator string, memberIDs []string, groupName, groupImage string) (*model.Conversation, error) {
	defer logger.DeferLogDuration("conv.CreateGroup", time.Now())()
	if groupName == "" {
		return nil, fmt.Errorf("convRepo.CreateGroup: empty group name: %w", ErrInvalidArgument)
	}
	if len(memberIDs) == 0 {
		return nil, fmt.Errorf("convRepo.CreateGroup: no members: %w", ErrInvalidArgument)
	}

	participants := make([]string, 0, len(memberIDs)+1)
	seen := map[string]struct{}{creator: {}}
	participants = append(participants, creator)
	for _, id := range memberIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		participants = append(participants, id)
	}
	if len(participants) < 2 {
		return nil, fmt.Errorf("convRepo.CreateGroup: a group needs at least one other member: %w", ErrInvalidArgument)
	}

	now := time.Now().UTC()
	c := &model.Conversation{}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO conversations (id, participants, is_group, group_name, group_image, last_message_time, created_at)
		 VALUES ($1, $2, true, $3, $4, $5, $5)
		 RETURNING `+conversationCols,
		uuid.New().String(), participants, groupName, groupImage, now,
	)
	if err := scanConversation(row, c); err != nil {
		return nil, fmt.Errorf("convRepo.CreateGroup: %w", err)
	}
	return c, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	defer logger.DeferLogDuration("conv.GetByID", time.Now())()
	c := &model.Conversation{}
	row := r.pool.QueryRow(ctx, `SELECT `+conversationCols+` FROM conversations WHERE id = $1`, id)
	if err := scanConversation(row, c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("convRepo.GetByID: %w", err)
	}
	return c, nil
}

// ListForUser returns the user's conversations newest-activity first, the
// sidebar order.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	defer logger.DeferLogDuration("conv.ListForUser", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+conversationCols+` FROM conversations
		 WHERE $1 = ANY(participants)
		 ORDER BY last_message_time DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("convRepo.ListForUser query: %w", err)
	}
	defer rows.Close()

	convs := make([]model.Conversation, 0, 16)
	for rows.Next() {
		var c model.Conversation
		if err := scanConversation(rows, &c); err != nil {
			return nil, fmt.Errorf("convRepo.ListForUser scan: %w", err)
		}
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("convRepo.ListForUser rows: %w", err)
	}
	return convs, nil
}

// GetParticipants returns the participant ids for a conversation.
func (r *ConversationRepository) GetParticipants(ctx context.Context, id string) ([]string, error) {
	defer logger.DeferLogDuration("conv.GetParticipants", time.Now())()
	var participants []string
	err := r.pool.QueryRow(ctx,
		`SELECT participants FROM conversations WHERE id = $1`, id,
	).Scan(&participants)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("convRepo.GetParticipants: %w", err)
	}
	return participants, nil
}
