package dto

// CreateFeedbackRequest posts a comment or a reply.
type CreateFeedbackRequest struct {
	Message string `json:"message" validate:"required,max=2000"`
	ReplyTo *int64 `json:"reply_to" validate:"omitempty,gt=0"`
}
