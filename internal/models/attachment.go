package models

import "time"

// Attachment represents a file uploaded alongside a notice.
type Attachment struct {
	ID               int64     `db:"id" json:"id"`
	NoticeID         int64     `db:"notice_id" json:"notice_id"`
	Filename         string    `db:"filename" json:"filename"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	FileType         string    `db:"file_type" json:"file_type"`
	FileSize         int64     `db:"file_size" json:"file_size"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// AttachmentView is the client facing attachment with its download URL.
type AttachmentView struct {
	ID               int64  `json:"id"`
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename"`
	FileType         string `json:"file_type"`
	FileSize         int64  `json:"file_size"`
	URL              string `json:"url"`
}

// AttachmentAccess joins an attachment with the notice fields needed to authorize a download.
type AttachmentAccess struct {
	Attachment
	NoticeAuthorID   int64        `db:"notice_author_id"`
	NoticeStatus     NoticeStatus `db:"notice_status"`
	NoticeDepartment string       `db:"notice_department"`
}

// Notice returns the owning notice projection used by the access policy.
func (a AttachmentAccess) Notice() Notice {
	return Notice{
		ID:         a.NoticeID,
		AuthorID:   a.NoticeAuthorID,
		Status:     a.NoticeStatus,
		Approved:   a.NoticeStatus == NoticeStatusApproved,
		Department: a.NoticeDepartment,
	}
}
