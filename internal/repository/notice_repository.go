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

const (
	defaultNoticePageSize = 10
	maxNoticePageSize     = 50
)

const noticeColumns = `n.id, n.title, n.content, n.category, n.department, n.author_id, n.status,
(n.status = 'approved') AS approved, n.comment_enabled, n.created_at, n.updated_at`

const attachmentColumns = `id, notice_id, filename, original_filename, file_type, file_size, created_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// NoticeRepository provides persistence for notices and their attachments.
type NoticeRepository struct {
	db *sqlx.DB
}

// NewNoticeRepository creates the repository.
func NewNoticeRepository(db *sqlx.DB) *NoticeRepository {
	return &NoticeRepository{db: db}
}

// List returns the annotated notices matching filter together with the total
// count under the same predicate.
func (r *NoticeRepository) List(ctx context.Context, filter models.NoticeFilter) ([]models.NoticeView, int, error) {
	where, args := noticeConditions(filter)
	whereClause := strings.Join(where, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = defaultNoticePageSize
	}
	if size > maxNoticePageSize {
		size = maxNoticePageSize
	}
	offset := (page - 1) * size

	viewerArg := len(args) + 1
	query := fmt.Sprintf(`SELECT %s, u.name AS author_name,
(SELECT COUNT(*) FROM reactions r WHERE r.notice_id = n.id) AS like_count,
EXISTS (SELECT 1 FROM reactions r WHERE r.notice_id = n.id AND r.user_id = $%d) AS viewer_liked
FROM notices n JOIN users u ON u.id = n.author_id
WHERE %s
ORDER BY n.created_at DESC, n.id DESC
LIMIT %d OFFSET %d`, noticeColumns, viewerArg, whereClause, size, offset)

	listArgs := append(append([]interface{}{}, args...), filter.ViewerID)
	notices := make([]models.NoticeView, 0)
	if err := r.db.SelectContext(ctx, &notices, query, listArgs...); err != nil {
		return nil, 0, fmt.Errorf("list notices: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM notices n WHERE %s", whereClause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count notices: %w", err)
	}
	return notices, total, nil
}

func noticeConditions(filter models.NoticeFilter) ([]string, []interface{}) {
	var where []string
	var args []interface{}

	switch filter.Scope {
	case models.NoticeScopeModeration:
		where = append(where, "n.status IN ('pending', 'rejected')")
	case models.NoticeScopeMine:
		args = append(args, filter.AuthorID)
		where = append(where, fmt.Sprintf("n.author_id = $%d", len(args)))
	default:
		where = append(where, "n.status = 'approved'")
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+likeEscaper.Replace(q)+"%")
		where = append(where, fmt.Sprintf("(n.title ILIKE $%d OR n.content ILIKE $%d)", len(args), len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("n.category = $%d", len(args)))
	}
	if filter.Department != "" {
		args = append(args, filter.Department)
		where = append(where, fmt.Sprintf("n.department = $%d", len(args)))
	}
	return where, args
}

// GetByID returns a notice by identifier.
func (r *NoticeRepository) GetByID(ctx context.Context, id int64) (*models.Notice, error) {
	query := fmt.Sprintf(`SELECT %s FROM notices n WHERE n.id = $1`, noticeColumns)
	var notice models.Notice
	if err := r.db.GetContext(ctx, &notice, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get notice: %w", err)
	}
	return &notice, nil
}

// GetView returns a single notice annotated for viewerID. Attachments are not loaded.
func (r *NoticeRepository) GetView(ctx context.Context, id, viewerID int64) (*models.NoticeView, error) {
	query := fmt.Sprintf(`SELECT %s, u.name AS author_name,
(SELECT COUNT(*) FROM reactions r WHERE r.notice_id = n.id) AS like_count,
EXISTS (SELECT 1 FROM reactions r WHERE r.notice_id = n.id AND r.user_id = $2) AS viewer_liked
FROM notices n JOIN users u ON u.id = n.author_id
WHERE n.id = $1`, noticeColumns)
	var view models.NoticeView
	if err := r.db.GetContext(ctx, &view, query, id, viewerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get notice view: %w", err)
	}
	return &view, nil
}

// Create inserts a new notice and fills in its identifier and timestamps.
func (r *NoticeRepository) Create(ctx context.Context, notice *models.Notice) error {
	now := time.Now().UTC()
	if notice.CreatedAt.IsZero() {
		notice.CreatedAt = now
	}
	notice.UpdatedAt = notice.CreatedAt
	notice.Approved = notice.Status == models.NoticeStatusApproved

	const query = `INSERT INTO notices (title, content, category, department, author_id, status, comment_enabled, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`
	if err := r.db.GetContext(ctx, &notice.ID, query,
		notice.Title, notice.Content, notice.Category, notice.Department, notice.AuthorID,
		notice.Status, notice.CommentEnabled, notice.CreatedAt, notice.UpdatedAt,
	); err != nil {
		return fmt.Errorf("create notice: %w", err)
	}
	return nil
}

type updatedNotice struct {
	models.Notice
	PreviousStatus models.NoticeStatus `db:"previous_status"`
}

// Update applies changes in a single statement and returns the stored notice
// together with the status it had before the update. A status change that
// matches the current status is a no-op for that column.
func (r *NoticeRepository) Update(ctx context.Context, id int64, changes models.NoticeChanges, at time.Time) (*models.Notice, models.NoticeStatus, error) {
	var sets []string
	args := []interface{}{id}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if changes.Title != nil {
		add("title", *changes.Title)
	}
	if changes.Content != nil {
		add("content", *changes.Content)
	}
	if changes.Category != nil {
		add("category", *changes.Category)
	}
	if changes.Department != nil {
		add("department", *changes.Department)
	}
	if changes.CommentEnabled != nil {
		add("comment_enabled", *changes.CommentEnabled)
	}
	if changes.Status != nil {
		add("status", *changes.Status)
	}
	add("updated_at", at)

	query := fmt.Sprintf(`WITH prev AS (SELECT id, status FROM notices WHERE id = $1 FOR UPDATE)
UPDATE notices n SET %s FROM prev WHERE n.id = prev.id
RETURNING %s, prev.status AS previous_status`, strings.Join(sets, ", "), noticeColumns)

	var row updatedNotice
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("update notice: %w", err)
	}
	return &row.Notice, row.PreviousStatus, nil
}

// TransitionStatus moves the notice to status unless it is already there.
// It reports whether this call performed the transition.
func (r *NoticeRepository) TransitionStatus(ctx context.Context, id int64, status models.NoticeStatus, at time.Time) (bool, error) {
	const query = `UPDATE notices SET status = $2, updated_at = $3 WHERE id = $1 AND status <> $2`
	res, err := r.db.ExecContext(ctx, query, id, status, at)
	if err != nil {
		return false, fmt.Errorf("transition notice status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition notice status: %w", err)
	}
	return affected == 1, nil
}

// Delete removes a notice; attachments, feedback and reactions cascade.
// It reports whether a row was removed.
func (r *NoticeRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM notices WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete notice: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete notice: %w", err)
	}
	return affected > 0, nil
}

// CreateAttachment inserts attachment metadata for an already stored file.
func (r *NoticeRepository) CreateAttachment(ctx context.Context, attachment *models.Attachment) error {
	if attachment.CreatedAt.IsZero() {
		attachment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attachments (notice_id, filename, original_filename, file_type, file_size, created_at)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	if err := r.db.GetContext(ctx, &attachment.ID, query,
		attachment.NoticeID, attachment.Filename, attachment.OriginalFilename,
		attachment.FileType, attachment.FileSize, attachment.CreatedAt,
	); err != nil {
		return fmt.Errorf("create attachment: %w", err)
	}
	return nil
}

// ListAttachments loads the attachments of every given notice in one query.
func (r *NoticeRepository) ListAttachments(ctx context.Context, noticeIDs []int64) (map[int64][]models.Attachment, error) {
	result := make(map[int64][]models.Attachment, len(noticeIDs))
	if len(noticeIDs) == 0 {
		return result, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM attachments WHERE notice_id = ANY($1) ORDER BY id ASC`, attachmentColumns)
	var rows []models.Attachment
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(noticeIDs)); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	for _, row := range rows {
		result[row.NoticeID] = append(result[row.NoticeID], row)
	}
	return result, nil
}

// FindAttachmentByFilename resolves a stored filename to its attachment and
// the owning notice's access fields.
func (r *NoticeRepository) FindAttachmentByFilename(ctx context.Context, filename string) (*models.AttachmentAccess, error) {
	const query = `SELECT a.id, a.notice_id, a.filename, a.original_filename, a.file_type, a.file_size, a.created_at,
n.author_id AS notice_author_id, n.status AS notice_status, n.department AS notice_department
FROM attachments a JOIN notices n ON n.id = a.notice_id
WHERE a.filename = $1`
	var access models.AttachmentAccess
	if err := r.db.GetContext(ctx, &access, query, filename); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find attachment: %w", err)
	}
	return &access, nil
}
