package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/noticeboard-api/internal/dto"
	"github.com/noah-isme/noticeboard-api/internal/models"
	"github.com/noah-isme/noticeboard-api/internal/policy"
	"github.com/noah-isme/noticeboard-api/pkg/cache"
	"github.com/noah-isme/noticeboard-api/pkg/export"
	appErrors "github.com/noah-isme/noticeboard-api/pkg/errors"
)

type noticeViewReader interface {
	GetView(ctx context.Context, id, viewerID int64) (*models.NoticeView, error)
}

type pdfRenderer interface {
	RenderNotice(doc export.NoticeDocument) ([]byte, error)
}

type pdfCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

// ExportService renders notices as PDF documents and caches the output per revision.
type ExportService struct {
	notices noticeViewReader
	pdf     pdfRenderer
	cache   pdfCache
	ttl     time.Duration
	logger  *zap.Logger
}

// NewExportService constructs an ExportService. cache may be nil.
func NewExportService(notices noticeViewReader, pdf pdfRenderer, cache pdfCache, ttl time.Duration, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{notices: notices, pdf: pdf, cache: cache, ttl: ttl, logger: logger}
}

// ExportPDF renders the notice for download.
func (s *ExportService) ExportPDF(ctx context.Context, viewer models.Viewer, id int64) (*dto.NoticePDF, error) {
	view, err := s.notices.GetView(ctx, id, viewer.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, storeError(err, "failed to load notice")
	}
	if !policy.CanViewNotice(viewer, view.Notice) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "notice is not available to you")
	}

	filename := fmt.Sprintf("notice-%d.pdf", id)
	key := cache.NoticePDFKey(id, view.UpdatedAt)
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, key); ok {
			return &dto.NoticePDF{Filename: filename, Content: cached}, nil
		}
	}

	content, err := s.pdf.RenderNotice(export.NoticeDocument{
		Title:      view.Title,
		Category:   view.Category,
		Department: view.Department,
		Author:     view.AuthorName,
		CreatedAt:  view.CreatedAt,
		Content:    view.Content,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render notice")
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, content, s.ttl)
	}
	s.logger.Debug("notice exported", zap.Int64("notice_id", id), zap.Int("bytes", len(content)))
	return &dto.NoticePDF{Filename: filename, Content: content}, nil
}
