package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/noticeboard-api/internal/dto"
	"github.com/noah-isme/noticeboard-api/internal/models"
	appErrors "github.com/noah-isme/noticeboard-api/pkg/errors"
	"github.com/noah-isme/noticeboard-api/pkg/response"
)

const uploadField = "files"

type noticeService interface {
	List(ctx context.Context, viewer models.Viewer, query dto.ListNoticesQuery) (*dto.NoticeListResponse, error)
	Get(ctx context.Context, viewer models.Viewer, id int64) (*models.NoticeView, error)
	Create(ctx context.Context, viewer models.Viewer, req dto.CreateNoticeRequest) (*models.NoticeView, error)
	Edit(ctx context.Context, viewer models.Viewer, id int64, req dto.UpdateNoticeRequest) (*models.NoticeView, error)
	Approve(ctx context.Context, viewer models.Viewer, id int64) (*models.NoticeView, error)
	Reject(ctx context.Context, viewer models.Viewer, id int64, req dto.RejectNoticeRequest) (*models.NoticeView, error)
	Delete(ctx context.Context, viewer models.Viewer, id int64) error
}

type reactionService interface {
	ToggleLike(ctx context.Context, viewer models.Viewer, noticeID int64) (*dto.ToggleLikeResponse, error)
}

type attachmentService interface {
	Open(ctx context.Context, viewer models.Viewer, filename string) (*dto.NoticeFile, error)
}

type exportService interface {
	ExportPDF(ctx context.Context, viewer models.Viewer, id int64) (*dto.NoticePDF, error)
}

// NoticeHandler exposes notice endpoints.
type NoticeHandler struct {
	notices     noticeService
	reactions   reactionService
	attachments attachmentService
	exports     exportService
}

// NewNoticeHandler constructs a notice handler.
func NewNoticeHandler(notices noticeService, reactions reactionService, attachments attachmentService, exports exportService) *NoticeHandler {
	return &NoticeHandler{notices: notices, reactions: reactions, attachments: attachments, exports: exports}
}

// List godoc
// @Summary List notices
// @Description Approved notices by default; pending=1 shows the moderation queue (admins), all_user_notices=1 shows the caller's own notices
// @Tags Notices
// @Produce json
// @Security BearerAuth
// @Param q query string false "Search in title and content"
// @Param category query string false "Category"
// @Param department query string false "Department"
// @Param page query int false "Page (default 1)"
// @Param pageSize query int false "Page size (default 10, max 50)"
// @Param pending query string false "1 to list pending and rejected notices"
// @Param all_user_notices query string false "1 to list the caller's notices"
// @Success 200 {object} response.Envelope{data=dto.NoticeListResponse}
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /notices [get]
func (h *NoticeHandler) List(c *gin.Context) {
	var query dto.ListNoticesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}

	result, err := h.notices.List(c.Request.Context(), viewerFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, result, result.Page, result.PageSize, result.Total)
}

// Get godoc
// @Summary Get notice
// @Tags Notices
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notice ID"
// @Success 200 {object} response.Envelope{data=models.NoticeView}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notices/{id} [get]
func (h *NoticeHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	notice, err := h.notices.Get(c.Request.Context(), viewerFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notice, nil)
}

// Create godoc
// @Summary Create notice
// @Description Teachers create pending notices; admin notices are published immediately
// @Tags Notices
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param title formData string true "Title"
// @Param content formData string true "Content"
// @Param category formData string true "Category"
// @Param department formData string true "Department or all"
// @Param comment_enabled formData bool false "Allow feedback (default true)"
// @Param files formData file false "Attachments (repeatable)"
// @Success 201 {object} response.Envelope{data=models.NoticeView}
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /notices [post]
func (h *NoticeHandler) Create(c *gin.Context) {
	var req dto.CreateNoticeRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid notice payload"))
		return
	}
	if form, err := c.MultipartForm(); err == nil && form != nil {
		req.Files = uploadedFiles(form.File[uploadField])
	}

	notice, err := h.notices.Create(c.Request.Context(), viewerFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, notice)
}

func uploadedFiles(headers []*multipart.FileHeader) []dto.UploadedFile {
	files := make([]dto.UploadedFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, dto.UploadedFile{
			Filename:    fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Open: func() (io.ReadCloser, error) {
				return fh.Open()
			},
		})
	}
	return files
}

// Update godoc
// @Summary Update notice
// @Description Partial update by the author or an admin. Only admins may change approved.
// @Tags Notices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notice ID"
// @Param payload body dto.UpdateNoticeRequest true "Fields to change"
// @Success 200 {object} response.Envelope{data=models.NoticeView}
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notices/{id} [put]
func (h *NoticeHandler) Update(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.UpdateNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid notice payload"))
		return
	}

	notice, err := h.notices.Edit(c.Request.Context(), viewerFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notice, nil)
}

// Approve godoc
// @Summary Approve notice
// @Tags Moderation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notice ID"
// @Success 200 {object} response.Envelope{data=models.NoticeView}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notices/{id}/approve [post]
func (h *NoticeHandler) Approve(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	notice, err := h.notices.Approve(c.Request.Context(), viewerFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notice, nil)
}

// Disapprove godoc
// @Summary Reject notice
// @Tags Moderation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notice ID"
// @Param payload body dto.RejectNoticeRequest false "Optional reason"
// @Success 200 {object} response.Envelope{data=models.NoticeView}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notices/{id}/disapprove [post]
func (h *NoticeHandler) Disapprove(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.RejectNoticeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reject payload"))
		return
	}

	notice, err := h.notices.Reject(c.Request.Context(), viewerFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notice, nil)
}

// Delete godoc
// @Summary Delete notice
// @Tags Notices
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notice ID"
// @Success 200 {object} response.Envelope{data=dto.OKResponse}
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notices/{id} [delete]
func (h *NoticeHandler) Delete(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.notices.Delete(c.Request.Context(), viewerFromContext(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.OKResponse{OK: true}, nil)
}

// Like godoc
// @Summary Toggle like
// @Tags Notices
// @Produce json
// @Security BearerAuth
// @Param id path int true "Notice ID"
// @Success 200 {object} response.Envelope{data=dto.ToggleLikeResponse}
// @Failure 404 {object} response.Envelope
// @Router /notices/{id}/like [post]
func (h *NoticeHandler) Like(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.reactions.ToggleLike(c.Request.Context(), viewerFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// DownloadFile godoc
// @Summary Download attachment
// @Description Students may only download files of approved notices for their department or all
// @Tags Notices
// @Produce octet-stream
// @Security BearerAuth
// @Param filename path string true "Stored file name"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notices/files/{filename} [get]
func (h *NoticeHandler) DownloadFile(c *gin.Context) {
	file, err := h.attachments.Open(c.Request.Context(), viewerFromContext(c), c.Param("filename"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Content.Close() //nolint:errcheck

	c.Header("Content-Type", file.ContentType)
	c.Header("Content-Disposition", contentDisposition("inline", file.OriginalFilename))
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Cache-Control", "private, no-store")
	http.ServeContent(c.Writer, c.Request, file.OriginalFilename, time.Time{}, file.Content)
}

// ExportPDF godoc
// @Summary Export notice as PDF
// @Tags Notices
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "Notice ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notices/{id}/export/pdf [get]
func (h *NoticeHandler) ExportPDF(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	doc, err := h.exports.ExportPDF(c.Request.Context(), viewerFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", contentDisposition("attachment", doc.Filename))
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, "application/pdf", doc.Content)
}

func contentDisposition(disposition, filename string) string {
	if filename == "" {
		return disposition
	}
	if value := mime.FormatMediaType(disposition, map[string]string{"filename": filename}); value != "" {
		return value
	}
	return disposition
}
