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

const userCols = `id, external_id, name, email, image_url, is_online, last_seen, created_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// scanUser scans a row into model.User (column order matches userCols).
func scanUser(s interface{ Scan(dest ...any) error }, u *model.User) error {
	return s.Scan(&u.ID, &u.ExternalID, &u.Name, &u.Email, &u.ImageURL, &u.IsOnline, &u.LastSeen, &u.CreatedAt)
}

// Upsert creates or updates a user keyed by external id. Creation defaults
// the user to online with last_seen = now; updates touch profile fields only
// so presence set by heartbeats is never clobbered by a profile sync.
func (r *UserRepository) Upsert(ctx context.Context, externalID, name, email, imageURL string) (*model.User, error) {
	defer logger.DeferLogDuration("user.Upsert", time.Now())()
	if externalID == "" {
		return nil, fmt.Errorf("userRepo.Upsert: empty external id: %w", ErrInvalidArgument)
	}
	u := &model.User{}
	now := time.Now().UTC()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, external_id, name, email, image_url, is_online, last_seen, created_at)
		 VALUES ($1, $2, $3, $4, $5, true, $6, $6)
		 ON CONFLICT (external_id) DO UPDATE
		 SET name = EXCLUDED.name, email = EXCLUDED.email, image_url = EXCLUDED.image_url
		 RETURNING `+userCols,
		uuid.New().String(), externalID, name, email, imageURL, now,
	)
	if err := scanUser(row, u); err != nil {
		return nil, fmt.Errorf("userRepo.Upsert: %w", err)
	}
	return u, nil
}

func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	defer logger.DeferLogDuration("user.GetByExternalID", time.Now())()
	u := &model.User{}
	row := r.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE external_id = $1`, externalID)
	if err := scanUser(row, u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("userRepo.GetByExternalID: %w", err)
	}
	return u, nil
}

// ListAllExcept returns every user except the given one, for the contact
// picker.
func (r *UserRepository) ListAllExcept(ctx context.Context, externalID string) ([]model.User, error) {
	defer logger.DeferLogDuration("user.ListAllExcept", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+userCols+` FROM users WHERE external_id != $1 ORDER BY name`, externalID,
	)
	if err != nil {
		return nil, fmt.Errorf("userRepo.ListAllExcept query: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, 16)
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("userRepo.ListAllExcept scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("userRepo.ListAllExcept rows: %w", err)
	}
	return users, nil
}

// ListByExternalIDs returns users for the given ids; unknown ids are
// silently skipped.
func (r *UserRepository) ListByExternalIDs(ctx context.Context, externalIDs []string) ([]model.User, error) {
	defer logger.DeferLogDuration("user.ListByExternalIDs", time.Now())()
	if len(externalIDs) == 0 {
		return []model.User{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+userCols+` FROM users WHERE external_id = ANY($1) ORDER BY name`, externalIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("userRepo.ListByExternalIDs query: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0, len(externalIDs))
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, fmt.Errorf("userRepo.ListByExternalIDs scan: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("userRepo.ListByExternalIDs rows: %w", err)
	}
	return users, nil
}

// SetOnline flips the online flag and refreshes last_seen. Unknown users are
// a no-op, matching heartbeat semantics.
func (r *UserRepository) SetOnline(ctx context.Context, externalID string, online bool) error {
	defer logger.DeferLogDuration("user.SetOnline", time.Now())()
	_, err := r.pool.Exec(ctx,
		`UPDATE users SET is_online = $1, last_seen = $2 WHERE external_id = $3`,
		online, time.Now().UTC(), externalID,
	)
	if err != nil {
		return fmt.Errorf("userRepo.SetOnline: %w", err)
	}
	return nil
}

// MarkAllOffline resets every online flag; run at boot since no client can
// be connected to a server that just started.
func (r *UserRepository) MarkAllOffline(ctx context.Context) error {
	defer logger.DeferLogDuration("user.MarkAllOffline", time.Now())()
	_, err := r.pool.Exec(ctx, `UPDATE users SET is_online = false`)
	if err != nil {
		return fmt.Errorf("userRepo.MarkAllOffline: %w", err)
	}
	return nil
}

// MarkStaleOffline flips users offline whose last_seen is older than the
// threshold. Used by the presence sweeper for clients that vanished without
// a teardown signal.
func (r *UserRepository) MarkStaleOffline(ctx context.Context, olderThan time.Duration) (int64, error) {
	defer logger.DeferLogDuration("user.MarkStaleOffline", time.Now())()
	cutoff := time.Now().UTC().Add(-olderThan)
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET is_online = false WHERE is_online = true AND last_seen < $1`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("userRepo.MarkStaleOffline: %w", err)
	}
	return tag.RowsAffected(), nil
}
