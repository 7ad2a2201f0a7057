package models

import "time"

// NoticeStatus is the moderation state of a notice.
type NoticeStatus string

const (
	NoticeStatusPending  NoticeStatus = "pending"
	NoticeStatusApproved NoticeStatus = "approved"
	NoticeStatusRejected NoticeStatus = "rejected"
)

// Notice represents a persisted notice row. Approved is derived from Status
// by every query and is never written.
type Notice struct {
	ID             int64        `db:"id" json:"id"`
	Title          string       `db:"title" json:"title"`
	Content        string       `db:"content" json:"content"`
	Category       string       `db:"category" json:"category"`
	Department     string       `db:"department" json:"department"`
	AuthorID       int64        `db:"author_id" json:"author_id"`
	Status         NoticeStatus `db:"status" json:"status"`
	Approved       bool         `db:"approved" json:"approved"`
	CommentEnabled bool         `db:"comment_enabled" json:"comment_enabled"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

// NoticeView is a notice annotated for a specific viewer.
type NoticeView struct {
	Notice
	AuthorName  string           `db:"author_name" json:"author_name"`
	LikeCount   int              `db:"like_count" json:"like_count"`
	ViewerLiked bool             `db:"viewer_liked" json:"viewer_liked"`
	Attachments []AttachmentView `db:"-" json:"attachments"`
}

// NoticeScope selects the status/ownership predicate of a listing.
type NoticeScope string

const (
	// NoticeScopePublic lists approved notices.
	NoticeScopePublic NoticeScope = "public"
	// NoticeScopeModeration lists pending and rejected notices (admins only).
	NoticeScopeModeration NoticeScope = "moderation"
	// NoticeScopeMine lists the viewer's own notices in any status.
	NoticeScopeMine NoticeScope = "mine"
)

// NoticeFilter captures filtering criteria for listing notices.
type NoticeFilter struct {
	Query      string
	Category   string
	Department string
	Scope      NoticeScope
	AuthorID   int64
	ViewerID   int64
	Page       int
	PageSize   int
}

// NoticeChanges carries a partial update. Nil fields keep their stored value.
type NoticeChanges struct {
	Title          *string
	Content        *string
	Category       *string
	Department     *string
	CommentEnabled *bool
	Status         *NoticeStatus
}

// Empty reports whether nothing would change.
func (c NoticeChanges) Empty() bool {
	return c.Title == nil && c.Content == nil && c.Category == nil &&
		c.Department == nil && c.CommentEnabled == nil && c.Status == nil
}
