package models

import "time"

// Feedback is a comment on a notice, optionally replying to another comment.
type Feedback struct {
	ID        int64     `db:"id" json:"id"`
	NoticeID  int64     `db:"notice_id" json:"notice_id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Message   string    `db:"message" json:"message"`
	ReplyTo   *int64    `db:"reply_to" json:"reply_to"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UserName  string    `db:"user_name" json:"user_name"`
	UserRole  UserRole  `db:"user_role" json:"user_role"`
}

// FeedbackThread is a top level comment with its direct replies.
type FeedbackThread struct {
	Feedback
	Replies []Feedback `json:"replies"`
}
