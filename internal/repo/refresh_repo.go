package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/newsfeed/server/internal/model"
)

// RefreshRepo stores at most one refresh token hash per user
type RefreshRepo interface {
	Upsert(ctx context.Context, userID int64, tokenHash string) error
	FindByUserID(ctx context.Context, userID int64) (model.RefreshToken, error)
	Revoke(ctx context.Context, userID int64) error
}

type refreshRepo struct {
	db *sql.DB
}

// NewRefreshRepo creates a new RefreshRepo instance
func NewRefreshRepo(db *sql.DB) RefreshRepo {
	return &refreshRepo{db: db}
}

// Upsert replaces the user's refresh token hash in a single statement, creating the row on first use
func (r *refreshRepo) Upsert(ctx context.Context, userID int64, tokenHash string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO refresh_tokens (user_id, refresh_token)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET refresh_token = EXCLUDED.refresh_token, updated_at = now()
	`, userID, tokenHash)
	if err != nil {
		return fmt.Errorf("upsert refresh token: %w", err)
	}
	return nil
}

// FindByUserID returns the user's refresh token slot
func (r *refreshRepo) FindByUserID(ctx context.Context, userID int64) (model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, refresh_token, created_at, updated_at
		FROM refresh_tokens
		WHERE user_id = $1
	`, userID).Scan(
		&t.ID,
		&t.UserID,
		&t.TokenHash,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.RefreshToken{}, fmt.Errorf("refresh token not found: %w", ErrNotFound)
		}
		return model.RefreshToken{}, fmt.Errorf("find refresh token: %w", err)
	}
	return t, nil
}

// Revoke clears the user's refresh token hash. A user without a slot is left as is.
func (r *refreshRepo) Revoke(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET refresh_token = NULL, updated_at = now() WHERE user_id = $1
	`, userID)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}
