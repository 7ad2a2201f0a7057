package service

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/noticeboard-api/internal/dto"
	"github.com/noah-isme/noticeboard-api/internal/models"
	"github.com/noah-isme/noticeboard-api/internal/policy"
	appErrors "github.com/noah-isme/noticeboard-api/pkg/errors"
)

type attachmentLookup interface {
	FindAttachmentByFilename(ctx context.Context, filename string) (*models.AttachmentAccess, error)
}

type fileOpener interface {
	Open(filename string) (*os.File, int64, error)
}

// AttachmentService authorizes and opens stored attachment files.
type AttachmentService struct {
	repo   attachmentLookup
	files  fileOpener
	logger *zap.Logger
}

// NewAttachmentService constructs an AttachmentService.
func NewAttachmentService(repo attachmentLookup, files fileOpener, logger *zap.Logger) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{repo: repo, files: files, logger: logger}
}

// Open returns the stored file when viewer may see the owning notice.
func (s *AttachmentService) Open(ctx context.Context, viewer models.Viewer, filename string) (*dto.NoticeFile, error) {
	if filename == "" || filename != filepath.Base(filename) || strings.ContainsAny(filename, `/\`) || strings.HasPrefix(filename, ".") {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
	}

	access, err := s.repo.FindAttachmentByFilename(ctx, filename)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, storeError(err, "failed to load attachment")
	}
	if !policy.CanViewAttachment(viewer, access.Notice()) {
		s.logger.Info("attachment access denied",
			zap.String("filename", filename),
			zap.Int64("notice_id", access.NoticeID),
			zap.Int64("user_id", viewer.ID),
		)
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you do not have access to this file")
	}

	file, size, err := s.files.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("attachment missing on disk", zap.String("filename", filename), zap.Int64("notice_id", access.NoticeID))
			return nil, appErrors.Clone(appErrors.ErrNotFound, "file not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open attachment")
	}

	return &dto.NoticeFile{
		Content:          file,
		Size:             size,
		ContentType:      access.FileType,
		OriginalFilename: access.OriginalFilename,
	}, nil
}
