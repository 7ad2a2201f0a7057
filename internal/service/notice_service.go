package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/noticeboard-api/internal/dto"
	"github.com/noah-isme/noticeboard-api/internal/models"
	"github.com/noah-isme/noticeboard-api/internal/policy"
	"github.com/noah-isme/noticeboard-api/pkg/cache"
	appErrors "github.com/noah-isme/noticeboard-api/pkg/errors"
)

const (
	defaultPage     = 1
	defaultPageSize = 10
)

// mimeByExtension pairs every uploadable extension with the media type a client must declare for it.
var mimeByExtension = map[string]string{
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain",
}

type noticeRepository interface {
	List(ctx context.Context, filter models.NoticeFilter) ([]models.NoticeView, int, error)
	GetByID(ctx context.Context, id int64) (*models.Notice, error)
	GetView(ctx context.Context, id, viewerID int64) (*models.NoticeView, error)
	Create(ctx context.Context, notice *models.Notice) error
	Update(ctx context.Context, id int64, changes models.NoticeChanges, at time.Time) (*models.Notice, models.NoticeStatus, error)
	TransitionStatus(ctx context.Context, id int64, status models.NoticeStatus, at time.Time) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	CreateAttachment(ctx context.Context, attachment *models.Attachment) error
	ListAttachments(ctx context.Context, noticeIDs []int64) (map[int64][]models.Attachment, error)
}

type attachmentStore interface {
	SaveStream(filename string, r io.Reader) (int64, error)
	Delete(filename string) error
}

type noticeNotifier interface {
	NotifyNoticePublished(notice models.Notice, authorName string)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string)
}

// NoticeConfig bounds uploads and shapes attachment URLs.
type NoticeConfig struct {
	FileURLPrefix     string
	MaxFileSize       int64
	MaxFiles          int
	AllowedExtensions []string
}

// NoticeService owns the moderation lifecycle and the visibility rules of notice listings.
type NoticeService struct {
	repo      noticeRepository
	files     attachmentStore
	notifier  noticeNotifier
	cache     cacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    NoticeConfig
	allowed   map[string]string
	now       func() time.Time
}

// NewNoticeService constructs a NoticeService.
func NewNoticeService(repo noticeRepository, files attachmentStore, notifier noticeNotifier, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg NoticeConfig) *NoticeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = 10
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 10 * 1024 * 1024
	}
	allowed := make(map[string]string, len(mimeByExtension))
	if len(cfg.AllowedExtensions) == 0 {
		for ext, mt := range mimeByExtension {
			allowed[ext] = mt
		}
	}
	for _, ext := range cfg.AllowedExtensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if mt, ok := mimeByExtension[ext]; ok {
			allowed[ext] = mt
		}
	}
	return &NoticeService{
		repo:      repo,
		files:     files,
		notifier:  notifier,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		config:    cfg,
		allowed:   allowed,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// List returns the page of notices visible to viewer under the requested scope.
func (s *NoticeService) List(ctx context.Context, viewer models.Viewer, query dto.ListNoticesQuery) (*dto.NoticeListResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid listing query")
	}
	pending := query.Pending == "1"
	mine := query.AllUserNotices == "1"
	if pending && mine {
		return nil, appErrors.Clone(appErrors.ErrValidation, "pending and all_user_notices cannot be combined")
	}

	scope := models.NoticeScopePublic
	switch {
	case pending:
		scope = models.NoticeScopeModeration
	case mine:
		scope = models.NoticeScopeMine
	}
	if !policy.CanRequestScope(viewer, scope) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can view the moderation queue")
	}

	page, pageSize := defaultPage, defaultPageSize
	if query.Page != nil {
		page = *query.Page
	}
	if query.PageSize != nil {
		pageSize = *query.PageSize
	}

	filter := models.NoticeFilter{
		Query:      strings.TrimSpace(query.Q),
		Category:   strings.TrimSpace(query.Category),
		Department: strings.TrimSpace(query.Department),
		Scope:      scope,
		ViewerID:   viewer.ID,
		Page:       page,
		PageSize:   pageSize,
	}
	if scope == models.NoticeScopeMine {
		filter.AuthorID = viewer.ID
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "failed to list notices")
	}
	if err := s.attachFiles(ctx, items); err != nil {
		return nil, err
	}

	return &dto.NoticeListResponse{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// Get returns a single annotated notice when the viewer may see it.
func (s *NoticeService) Get(ctx context.Context, viewer models.Viewer, id int64) (*models.NoticeView, error) {
	view, err := s.loadView(ctx, id, viewer.ID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewNotice(viewer, view.Notice) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "notice is not available to you")
	}
	return view, nil
}

// Create stores a new notice and its attachments. Admin notices are published immediately.
func (s *NoticeService) Create(ctx context.Context, viewer models.Viewer, req dto.CreateNoticeRequest) (*models.NoticeView, error) {
	if !policy.CanAuthor(viewer) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only teachers and admins can post notices")
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Content = strings.TrimSpace(req.Content)
	req.Category = strings.TrimSpace(req.Category)
	req.Department = strings.TrimSpace(req.Department)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice payload")
	}
	types, err := s.validateFiles(req.Files)
	if err != nil {
		return nil, err
	}

	status := models.NoticeStatusPending
	if viewer.Role == models.RoleAdmin {
		status = models.NoticeStatusApproved
	}
	commentEnabled := true
	if req.CommentEnabled != nil {
		commentEnabled = *req.CommentEnabled
	}

	notice := &models.Notice{
		Title:          req.Title,
		Content:        req.Content,
		Category:       req.Category,
		Department:     req.Department,
		AuthorID:       viewer.ID,
		Status:         status,
		CommentEnabled: commentEnabled,
		CreatedAt:      s.now(),
	}
	if err := s.repo.Create(ctx, notice); err != nil {
		return nil, storeError(err, "failed to create notice")
	}

	attachments := make([]models.AttachmentView, 0, len(req.Files))
	for i, file := range req.Files {
		stored, err := s.storeAttachment(ctx, notice.ID, file, types[i])
		if err != nil {
			s.logger.Error("attachment not saved",
				zap.Int64("notice_id", notice.ID),
				zap.String("original_filename", file.Filename),
				zap.Error(err),
			)
			continue
		}
		attachments = append(attachments, s.attachmentView(*stored))
	}

	s.logger.Info("notice created",
		zap.Int64("notice_id", notice.ID),
		zap.Int64("actor_id", viewer.ID),
		zap.String("status", string(status)),
		zap.Int("attachments", len(attachments)),
	)
	if status == models.NoticeStatusApproved {
		s.metrics.RecordTransition(status)
		s.notifier.NotifyNoticePublished(*notice, viewer.Name)
	}

	return &models.NoticeView{Notice: *notice, AuthorName: viewer.Name, Attachments: attachments}, nil
}

// Approve publishes a notice. Only the call that performs the transition notifies readers.
func (s *NoticeService) Approve(ctx context.Context, viewer models.Viewer, id int64) (*models.NoticeView, error) {
	if !policy.CanModerate(viewer) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can approve notices")
	}
	view, transitioned, err := s.transition(ctx, viewer, id, models.NoticeStatusApproved)
	if err != nil {
		return nil, err
	}
	if transitioned {
		s.notifier.NotifyNoticePublished(view.Notice, view.AuthorName)
	}
	return view, nil
}

// Reject moves a notice out of the public board. The reason is logged only.
func (s *NoticeService) Reject(ctx context.Context, viewer models.Viewer, id int64, req dto.RejectNoticeRequest) (*models.NoticeView, error) {
	if !policy.CanModerate(viewer) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only admins can reject notices")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reject payload")
	}
	view, transitioned, err := s.transition(ctx, viewer, id, models.NoticeStatusRejected)
	if err != nil {
		return nil, err
	}
	if transitioned {
		s.logger.Info("notice rejected", zap.Int64("notice_id", id), zap.Int64("actor_id", viewer.ID), zap.String("reason", req.Reason))
	}
	return view, nil
}

func (s *NoticeService) transition(ctx context.Context, viewer models.Viewer, id int64, target models.NoticeStatus) (*models.NoticeView, bool, error) {
	transitioned, err := s.repo.TransitionStatus(ctx, id, target, s.now())
	if err != nil {
		return nil, false, storeError(err, "failed to update notice status")
	}
	view, err := s.loadView(ctx, id, viewer.ID)
	if err != nil {
		return nil, false, err
	}
	if transitioned {
		s.metrics.RecordTransition(target)
		s.invalidateExport(ctx, id)
		s.logger.Info("notice status changed", zap.Int64("notice_id", id), zap.Int64("actor_id", viewer.ID), zap.String("status", string(target)))
	}
	return view, transitioned, nil
}

// Edit applies a partial update. Only admins may move the approval flag.
func (s *NoticeService) Edit(ctx context.Context, viewer models.Viewer, id int64, req dto.UpdateNoticeRequest) (*models.NoticeView, error) {
	req.Title = trimmedPtr(req.Title)
	req.Content = trimmedPtr(req.Content)
	req.Category = trimmedPtr(req.Category)
	req.Department = trimmedPtr(req.Department)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid notice payload")
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.notFoundOrInternal(err, "failed to load notice")
	}
	if !policy.CanMutateNotice(viewer, *existing) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you can only edit your own notices")
	}

	changes := models.NoticeChanges{
		Title:          req.Title,
		Content:        req.Content,
		Category:       req.Category,
		Department:     req.Department,
		CommentEnabled: req.CommentEnabled,
	}
	if req.Approved != nil && policy.CanModerate(viewer) {
		switch {
		case *req.Approved:
			approved := models.NoticeStatusApproved
			changes.Status = &approved
		case existing.Status == models.NoticeStatusApproved:
			pending := models.NoticeStatusPending
			changes.Status = &pending
		}
	}
	if changes.Empty() {
		return s.loadView(ctx, id, viewer.ID)
	}

	updated, previous, err := s.repo.Update(ctx, id, changes, s.now())
	if err != nil {
		return nil, s.notFoundOrInternal(err, "failed to update notice")
	}
	s.invalidateExport(ctx, id)

	view, err := s.loadView(ctx, id, viewer.ID)
	if err != nil {
		return nil, err
	}
	if updated.Status != previous {
		s.metrics.RecordTransition(updated.Status)
		if updated.Status == models.NoticeStatusApproved {
			s.notifier.NotifyNoticePublished(*updated, view.AuthorName)
		}
	}
	s.logger.Info("notice edited", zap.Int64("notice_id", id), zap.Int64("actor_id", viewer.ID))
	return view, nil
}

// Delete removes the notice and everything that hangs off it.
func (s *NoticeService) Delete(ctx context.Context, viewer models.Viewer, id int64) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.notFoundOrInternal(err, "failed to load notice")
	}
	if !policy.CanMutateNotice(viewer, *existing) {
		return appErrors.Clone(appErrors.ErrForbidden, "you can only delete your own notices")
	}

	attachments, err := s.repo.ListAttachments(ctx, []int64{id})
	if err != nil {
		return storeError(err, "failed to load attachments")
	}
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return storeError(err, "failed to delete notice")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "notice not found")
	}

	for _, attachment := range attachments[id] {
		if err := s.files.Delete(attachment.Filename); err != nil {
			s.logger.Warn("failed to remove attachment file", zap.Int64("notice_id", id), zap.String("filename", attachment.Filename), zap.Error(err))
		}
	}
	s.invalidateExport(ctx, id)
	s.logger.Info("notice deleted", zap.Int64("notice_id", id), zap.Int64("actor_id", viewer.ID))
	return nil
}

func (s *NoticeService) loadView(ctx context.Context, id, viewerID int64) (*models.NoticeView, error) {
	view, err := s.repo.GetView(ctx, id, viewerID)
	if err != nil {
		return nil, s.notFoundOrInternal(err, "failed to load notice")
	}
	items := []models.NoticeView{*view}
	if err := s.attachFiles(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (s *NoticeService) attachFiles(ctx context.Context, items []models.NoticeView) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	grouped, err := s.repo.ListAttachments(ctx, ids)
	if err != nil {
		return storeError(err, "failed to load attachments")
	}
	for i := range items {
		files := grouped[items[i].ID]
		items[i].Attachments = make([]models.AttachmentView, 0, len(files))
		for _, file := range files {
			items[i].Attachments = append(items[i].Attachments, s.attachmentView(file))
		}
	}
	return nil
}

func (s *NoticeService) attachmentView(a models.Attachment) models.AttachmentView {
	return models.AttachmentView{
		ID:               a.ID,
		Filename:         a.Filename,
		OriginalFilename: a.OriginalFilename,
		FileType:         a.FileType,
		FileSize:         a.FileSize,
		URL:              strings.TrimRight(s.config.FileURLPrefix, "/") + "/" + a.Filename,
	}
}

// validateFiles checks every upload before anything is written and returns the media type of each.
func (s *NoticeService) validateFiles(files []dto.UploadedFile) ([]string, error) {
	if len(files) > s.config.MaxFiles {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d files can be attached", s.config.MaxFiles))
	}
	types := make([]string, len(files))
	for i, file := range files {
		if file.Open == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "file upload is unreadable")
		}
		if file.Size > s.config.MaxFileSize {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file %q exceeds the %d byte limit", file.Filename, s.config.MaxFileSize))
		}
		ext := strings.ToLower(filepath.Ext(file.Filename))
		expected, ok := s.allowed[ext]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file %q has an unsupported type. Allowed: images, PDF, DOC, TXT", file.Filename))
		}
		mediaType, _, err := mime.ParseMediaType(file.ContentType)
		if err != nil || mediaType != expected {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file %q has an unsupported type. Allowed: images, PDF, DOC, TXT", file.Filename))
		}
		types[i] = mediaType
	}
	return types, nil
}

func (s *NoticeService) storeAttachment(ctx context.Context, noticeID int64, file dto.UploadedFile, mediaType string) (*models.Attachment, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close() //nolint:errcheck

	name := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	size, err := s.files.SaveStream(name, io.LimitReader(src, s.config.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if size > s.config.MaxFileSize {
		s.removeFile(noticeID, name)
		return nil, fmt.Errorf("upload exceeds %d bytes", s.config.MaxFileSize)
	}

	attachment := &models.Attachment{
		NoticeID:         noticeID,
		Filename:         name,
		OriginalFilename: filepath.Base(file.Filename),
		FileType:         mediaType,
		FileSize:         size,
		CreatedAt:        s.now(),
	}
	if err := s.repo.CreateAttachment(ctx, attachment); err != nil {
		s.removeFile(noticeID, name)
		return nil, err
	}
	return attachment, nil
}

func (s *NoticeService) removeFile(noticeID int64, name string) {
	if err := s.files.Delete(name); err != nil {
		s.logger.Warn("failed to clean up attachment file", zap.Int64("notice_id", noticeID), zap.String("filename", name), zap.Error(err))
	}
}

func (s *NoticeService) invalidateExport(ctx context.Context, id int64) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, cache.NoticePDFPattern(id))
	}
}

func (s *NoticeService) notFoundOrInternal(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "notice not found")
	}
	return storeError(err, message)
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	return &trimmed
}
