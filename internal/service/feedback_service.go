package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/noticeboard-api/internal/dto"
	"github.com/noah-isme/noticeboard-api/internal/models"
	"github.com/noah-isme/noticeboard-api/internal/policy"
	"github.com/noah-isme/noticeboard-api/pkg/database"
	appErrors "github.com/noah-isme/noticeboard-api/pkg/errors"
)

type feedbackRepository interface {
	ListByNotice(ctx context.Context, noticeID int64) ([]models.Feedback, error)
	GetByID(ctx context.Context, id int64) (*models.Feedback, error)
	Create(ctx context.Context, entry *models.Feedback) (*models.Feedback, error)
	Delete(ctx context.Context, id int64) error
}

type noticeReader interface {
	GetByID(ctx context.Context, id int64) (*models.Notice, error)
}

// FeedbackService manages comment threads on notices. Threads are one level deep.
type FeedbackService struct {
	repo      feedbackRepository
	notices   noticeReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFeedbackService constructs a FeedbackService.
func NewFeedbackService(repo feedbackRepository, notices noticeReader, validate *validator.Validate, logger *zap.Logger) *FeedbackService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FeedbackService{repo: repo, notices: notices, validator: validate, logger: logger}
}

// List returns top level entries oldest first, each with its direct replies.
func (s *FeedbackService) List(ctx context.Context, viewer models.Viewer, noticeID int64) ([]models.FeedbackThread, error) {
	if _, err := s.threadNotice(ctx, viewer, noticeID); err != nil {
		return nil, err
	}

	entries, err := s.repo.ListByNotice(ctx, noticeID)
	if err != nil {
		return nil, storeError(err, "failed to list feedback")
	}
	return buildThreads(entries), nil
}

func buildThreads(entries []models.Feedback) []models.FeedbackThread {
	threads := make([]models.FeedbackThread, 0)
	index := make(map[int64]int)
	for _, entry := range entries {
		if entry.ReplyTo != nil {
			continue
		}
		index[entry.ID] = len(threads)
		threads = append(threads, models.FeedbackThread{Feedback: entry, Replies: []models.Feedback{}})
	}
	for _, entry := range entries {
		if entry.ReplyTo == nil {
			continue
		}
		if i, ok := index[*entry.ReplyTo]; ok {
			threads[i].Replies = append(threads[i].Replies, entry)
		}
	}
	return threads
}

// Post adds a comment, or a reply when ReplyTo names a top level entry of the same notice.
func (s *FeedbackService) Post(ctx context.Context, viewer models.Viewer, noticeID int64, req dto.CreateFeedbackRequest) (*models.Feedback, error) {
	req.Message = strings.TrimSpace(req.Message)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}

	notice, err := s.threadNotice(ctx, viewer, noticeID)
	if err != nil {
		return nil, err
	}
	if !notice.CommentEnabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "comments are disabled for this notice")
	}

	if req.ReplyTo != nil {
		parent, err := s.repo.GetByID(ctx, *req.ReplyTo)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "parent feedback not found")
			}
			return nil, storeError(err, "failed to load parent feedback")
		}
		if parent.NoticeID != noticeID {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "parent feedback not found")
		}
		if parent.ReplyTo != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "replies cannot be nested")
		}
	}

	created, err := s.repo.Create(ctx, &models.Feedback{
		NoticeID:  noticeID,
		UserID:    viewer.ID,
		Message:   req.Message,
		ReplyTo:   req.ReplyTo,
		CreatedAt: time.Now().UTC(),
	})
	switch {
	case err == nil:
	case database.IsForeignKeyViolation(err):
		// notice or parent removed after the checks above
		return nil, appErrors.Clone(appErrors.ErrNotFound, "notice or parent feedback not found")
	default:
		return nil, storeError(err, "failed to create feedback")
	}
	s.logger.Info("feedback posted", zap.Int64("notice_id", noticeID), zap.Int64("feedback_id", created.ID), zap.Int64("user_id", viewer.ID))
	return created, nil
}

// Delete removes an entry and its replies.
func (s *FeedbackService) Delete(ctx context.Context, viewer models.Viewer, feedbackID int64) error {
	entry, err := s.repo.GetByID(ctx, feedbackID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "feedback not found")
		}
		return storeError(err, "failed to load feedback")
	}
	if !policy.CanDeleteFeedback(viewer, *entry) {
		return appErrors.Clone(appErrors.ErrForbidden, "you can only delete your own feedback")
	}
	if err := s.repo.Delete(ctx, feedbackID); err != nil {
		return storeError(err, "failed to delete feedback")
	}
	s.logger.Info("feedback deleted", zap.Int64("feedback_id", feedbackID), zap.Int64("actor_id", viewer.ID))
	return nil
}

func (s *FeedbackService) threadNotice(ctx context.Context, viewer models.Viewer, noticeID int64) (*models.Notice, error) {
	notice, err := s.notices.GetByID(ctx, noticeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, storeError(err, "failed to load notice")
	}
	if !policy.CanReadFeedback(viewer, *notice) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "notice is not available to you")
	}
	return notice, nil
}
