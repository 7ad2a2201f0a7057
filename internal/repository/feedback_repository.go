package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/noticeboard-api/internal/models"
)

const feedbackSelect = `SELECT f.id, f.notice_id, f.user_id, f.message, f.reply_to, f.created_at, u.name AS user_name, u.role AS user_role
FROM feedback f JOIN users u ON u.id = f.user_id`

// FeedbackRepository persists comments on notices.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository creates the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// ListByNotice returns every entry of a notice, oldest first.
func (r *FeedbackRepository) ListByNotice(ctx context.Context, noticeID int64) ([]models.Feedback, error) {
	query := feedbackSelect + ` WHERE f.notice_id = $1 ORDER BY f.created_at ASC, f.id ASC`
	var entries []models.Feedback
	if err := r.db.SelectContext(ctx, &entries, query, noticeID); err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	return entries, nil
}

// GetByID returns a feedback entry joined with its author.
func (r *FeedbackRepository) GetByID(ctx context.Context, id int64) (*models.Feedback, error) {
	query := feedbackSelect + ` WHERE f.id = $1`
	var entry models.Feedback
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get feedback: %w", err)
	}
	return &entry, nil
}

// Create inserts the entry and returns it joined with author name and role.
func (r *FeedbackRepository) Create(ctx context.Context, entry *models.Feedback) (*models.Feedback, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `WITH ins AS (
INSERT INTO feedback (notice_id, user_id, message, reply_to, created_at) VALUES ($1, $2, $3, $4, $5)
RETURNING id, notice_id, user_id, message, reply_to, created_at)
SELECT ins.id, ins.notice_id, ins.user_id, ins.message, ins.reply_to, ins.created_at, u.name AS user_name, u.role AS user_role
FROM ins JOIN users u ON u.id = ins.user_id`
	var created models.Feedback
	if err := r.db.GetContext(ctx, &created, query, entry.NoticeID, entry.UserID, entry.Message, entry.ReplyTo, entry.CreatedAt); err != nil {
		return nil, fmt.Errorf("create feedback: %w", err)
	}
	return &created, nil
}

// Delete removes an entry; replies cascade.
func (r *FeedbackRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM feedback WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	return nil
}
