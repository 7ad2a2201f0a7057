package dto

import (
	"io"

	"github.com/noah-isme/noticeboard-api/internal/models"
)

// ListNoticesQuery captures the listing query string.
type ListNoticesQuery struct {
	Q              string `form:"q"`
	Category       string `form:"category"`
	Department     string `form:"department"`
	Page           *int   `form:"page" validate:"omitempty,min=1"`
	PageSize       *int   `form:"pageSize" validate:"omitempty,min=1,max=50"`
	Pending        string `form:"pending" validate:"omitempty,oneof=0 1"`
	AllUserNotices string `form:"all_user_notices" validate:"omitempty,oneof=0 1"`
}

// NoticeListResponse is the paginated listing payload.
type NoticeListResponse struct {
	Items    []models.NoticeView `json:"items"`
	Total    int                 `json:"total"`
	Page     int                 `json:"page"`
	PageSize int                 `json:"pageSize"`
}

// UploadedFile is a file received with a create request.
type UploadedFile struct {
	Filename    string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// CreateNoticeRequest is the multipart form of a new notice.
type CreateNoticeRequest struct {
	Title          string         `form:"title" json:"title" validate:"required,max=200"`
	Content        string         `form:"content" json:"content" validate:"required"`
	Category       string         `form:"category" json:"category" validate:"required,max=100"`
	Department     string         `form:"department" json:"department" validate:"required,max=100"`
	CommentEnabled *bool          `form:"comment_enabled" json:"comment_enabled"`
	Files          []UploadedFile `form:"-" json:"-" validate:"-"`
}

// UpdateNoticeRequest is a partial update; omitted fields keep their value.
type UpdateNoticeRequest struct {
	Title          *string `json:"title" validate:"omitempty,min=3,max=200"`
	Content        *string `json:"content" validate:"omitempty,min=3"`
	Category       *string `json:"category" validate:"omitempty,min=1,max=100"`
	Department     *string `json:"department" validate:"omitempty,min=1,max=100"`
	CommentEnabled *bool   `json:"comment_enabled"`
	Approved       *bool   `json:"approved"`
}

// RejectNoticeRequest carries the optional moderation reason.
type RejectNoticeRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// ToggleLikeResponse reports the viewer's like state after a toggle.
type ToggleLikeResponse struct {
	Liked bool `json:"liked"`
}

// OKResponse acknowledges a destructive operation.
type OKResponse struct {
	OK bool `json:"ok"`
}

// NoticeFile is an attachment opened for download.
type NoticeFile struct {
	Content          io.ReadSeekCloser
	Size             int64
	ContentType      string
	OriginalFilename string
}

// NoticePDF is a rendered notice document.
type NoticePDF struct {
	Filename string
	Content  []byte
}
