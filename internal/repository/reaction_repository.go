package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/noticeboard-api/internal/models"
)

// ReactionRepository persists likes on notices.
type ReactionRepository struct {
	db *sqlx.DB
}

// NewReactionRepository creates the repository.
func NewReactionRepository(db *sqlx.DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// Delete removes the viewer's reaction and reports whether one existed.
func (r *ReactionRepository) Delete(ctx context.Context, noticeID, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reactions WHERE notice_id = $1 AND user_id = $2`, noticeID, userID)
	if err != nil {
		return false, fmt.Errorf("delete reaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete reaction: %w", err)
	}
	return affected > 0, nil
}

// Insert stores a like. Constraint violations are returned wrapped so callers
// can tell a duplicate from a missing notice.
func (r *ReactionRepository) Insert(ctx context.Context, noticeID, userID int64, at time.Time) error {
	const query = `INSERT INTO reactions (notice_id, user_id, reaction_type, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, noticeID, userID, models.ReactionLike, at); err != nil {
		return fmt.Errorf("insert reaction: %w", err)
	}
	return nil
}
