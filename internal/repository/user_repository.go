package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/noticeboard-api/internal/models"
)

const userColumns = `id, name, email, password_hash, role, department, created_at`

// UserRepository provides database access for accounts and reset tokens.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address (case-insensitive).
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// Create inserts a new user and fills in its identifier.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	const query = `INSERT INTO users (name, email, password_hash, role, department, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.GetContext(ctx, &user.ID, query, user.Name, user.Email, user.PasswordHash, user.Role, user.Department, user.CreatedAt); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Delete removes the user; notices, reactions, feedback and tokens cascade.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// ListEmailsByRoles returns distinct addresses of users holding any of roles.
func (r *UserRepository) ListEmailsByRoles(ctx context.Context, roles []models.UserRole) ([]string, error) {
	values := make([]string, len(roles))
	for i, role := range roles {
		values[i] = string(role)
	}
	var emails []string
	if err := r.db.SelectContext(ctx, &emails, `SELECT DISTINCT email FROM users WHERE role = ANY($1) ORDER BY email`, pq.Array(values)); err != nil {
		return nil, fmt.Errorf("list recipient emails: %w", err)
	}
	return emails, nil
}

// CreateResetToken persists a password reset token.
func (r *UserRepository) CreateResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO password_reset_tokens (user_id, token, expires_at, used, created_at) VALUES ($1, $2, $3, FALSE, $4) RETURNING id`
	if err := r.db.GetContext(ctx, &token.ID, query, token.UserID, token.Token, token.ExpiresAt, token.CreatedAt); err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}
	return nil
}

// ResetPassword consumes an unexpired, unused token and stores the new hash in
// one transaction. sql.ErrNoRows means the token is unknown, used or expired.
func (r *UserRepository) ResetPassword(ctx context.Context, token, passwordHash string, now time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin reset password: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const consume = `UPDATE password_reset_tokens SET used = TRUE WHERE token = $1 AND used = FALSE AND expires_at > $2 RETURNING user_id`
	var userID int64
	if err := tx.GetContext(ctx, &userID, consume, token, now); err != nil {
		if err == sql.ErrNoRows {
			return 0, err
		}
		return 0, fmt.Errorf("consume reset token: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, userID, passwordHash); err != nil {
		return 0, fmt.Errorf("update password: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit reset password: %w", err)
	}
	return userID, nil
}
