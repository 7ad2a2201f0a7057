package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/noticeboard-api/internal/dto"
	"github.com/noah-isme/noticeboard-api/internal/models"
	appErrors "github.com/noah-isme/noticeboard-api/pkg/errors"
	"github.com/noah-isme/noticeboard-api/pkg/response"
)

type feedbackService interface {
	List(ctx context.Context, viewer models.Viewer, noticeID int64) ([]models.FeedbackThread, error)
	Post(ctx context.Context, viewer models.Viewer, noticeID int64, req dto.CreateFeedbackRequest) (*models.Feedback, error)
	Delete(ctx context.Context, viewer models.Viewer, feedbackID int64) error
}

// FeedbackHandler exposes notice feedback endpoints.
type FeedbackHandler struct {
	service feedbackService
}

// NewFeedbackHandler constructs a feedback handler.
func NewFeedbackHandler(svc feedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: svc}
}

// List godoc
// @Summary List feedback
// @Description Top level comments of a notice with their replies
// @Tags Feedback
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notice ID"
// @Success 200 {object} response.Envelope{data=[]models.FeedbackThread}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /feedback/{id} [get]
func (h *FeedbackHandler) List(c *gin.Context) {
	noticeID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	threads, err := h.service.List(c.Request.Context(), viewerFromContext(c), noticeID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, threads, nil)
}

// Create godoc
// @Summary Post feedback
// @Tags Feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notice ID"
// @Param payload body dto.CreateFeedbackRequest true "Comment"
// @Success 201 {object} response.Envelope{data=models.Feedback}
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /feedback/{id} [post]
func (h *FeedbackHandler) Create(c *gin.Context) {
	noticeID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.CreateFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid feedback payload"))
		return
	}

	feedback, err := h.service.Post(c.Request.Context(), viewerFromContext(c), noticeID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, feedback)
}

// Delete godoc
// @Summary Delete feedback
// @Description Authors delete their own comments; admins delete any
// @Tags Feedback
// @Produce json
// @Security BearerAuth
// @Param id path int true "Feedback ID"
// @Success 200 {object} response.Envelope{data=dto.OKResponse}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /feedback/{id} [delete]
func (h *FeedbackHandler) Delete(c *gin.Context) {
	feedbackID, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), viewerFromContext(c), feedbackID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.OKResponse{OK: true}, nil)
}
