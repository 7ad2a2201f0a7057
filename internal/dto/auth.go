package dto

// MessageResponse is a human readable acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}
