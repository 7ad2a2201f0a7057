package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/noticeboard-api/internal/dto"
	"github.com/noah-isme/noticeboard-api/internal/models"
	"github.com/noah-isme/noticeboard-api/pkg/database"
	appErrors "github.com/noah-isme/noticeboard-api/pkg/errors"
)

type reactionRepository interface {
	Delete(ctx context.Context, noticeID, userID int64) (bool, error)
	Insert(ctx context.Context, noticeID, userID int64, at time.Time) error
}

// ReactionService toggles likes on notices.
type ReactionService struct {
	repo   reactionRepository
	logger *zap.Logger
}

// NewReactionService constructs a ReactionService.
func NewReactionService(repo reactionRepository, logger *zap.Logger) *ReactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReactionService{repo: repo, logger: logger}
}

// ToggleLike removes the viewer's like when present and adds it otherwise.
func (s *ReactionService) ToggleLike(ctx context.Context, viewer models.Viewer, noticeID int64) (*dto.ToggleLikeResponse, error) {
	if viewer.ID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}

	removed, err := s.repo.Delete(ctx, noticeID, viewer.ID)
	if err != nil {
		return nil, storeError(err, "failed to toggle like")
	}
	if removed {
		return &dto.ToggleLikeResponse{Liked: false}, nil
	}

	err = s.repo.Insert(ctx, noticeID, viewer.ID, time.Now().UTC())
	switch {
	case err == nil:
		return &dto.ToggleLikeResponse{Liked: true}, nil
	case database.IsUniqueViolation(err):
		// a concurrent toggle from the same viewer inserted first
		s.logger.Debug("like already recorded", zap.Int64("notice_id", noticeID), zap.Int64("user_id", viewer.ID))
		return &dto.ToggleLikeResponse{Liked: true}, nil
	case database.IsForeignKeyViolation(err):
		return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
	default:
		return nil, storeError(err, "failed to toggle like")
	}
}
