package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/noah-isme/noticeboard-api/internal/models"
	"github.com/noah-isme/noticeboard-api/pkg/jobs"
	"github.com/noah-isme/noticeboard-api/pkg/mailer"
)

const (
	jobNoticePublished = "notice.published"
	jobPasswordReset   = "auth.password_reset"

	previewLength = 200
)

var notifiedRoles = []models.UserRole{models.RoleStudent, models.RoleTeacher}

type recipientRepository interface {
	ListEmailsByRoles(ctx context.Context, roles []models.UserRole) ([]string, error)
}

// NotificationConfig configures the dispatcher worker pool and message content.
type NotificationConfig struct {
	Enabled      bool
	Workers      int
	BufferSize   int
	MaxRetries   int
	RetryDelay   time.Duration
	ClientOrigin string
	AppName      string
}

type noticePublishedPayload struct {
	NoticeID   int64
	Title      string
	Content    string
	AuthorName string
}

type passwordResetPayload struct {
	Email string
	Name  string
	Token string
}

// NotificationService hands notification work to a background queue so
// request handlers never wait on email delivery.
type NotificationService struct {
	repo    recipientRepository
	mailer  mailer.Mailer
	metrics *MetricsService
	logger  *zap.Logger
	config  NotificationConfig
	queue   *jobs.Queue
}

// NewNotificationService constructs the dispatcher and its queue.
func NewNotificationService(repo recipientRepository, m mailer.Mailer, metrics *MetricsService, logger *zap.Logger, cfg NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.AppName == "" {
		cfg.AppName = "Campus Notice Board"
	}
	s := &NotificationService{repo: repo, mailer: m, metrics: metrics, logger: logger, config: cfg}
	s.queue = jobs.NewQueue("notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
		OnFailure: func(job jobs.Job, err error) {
			metrics.RecordNotification(NotificationDropped, 1)
		},
	})
	return s
}

// Start launches the worker pool.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// NotifyNoticePublished schedules emails announcing a newly visible notice.
// It never blocks and never fails the caller.
func (s *NotificationService) NotifyNoticePublished(notice models.Notice, authorName string) {
	if !s.config.Enabled {
		s.logger.Debug("notifications disabled, skipping", zap.Int64("notice_id", notice.ID))
		return
	}
	s.enqueue(jobs.Job{
		ID:   fmt.Sprintf("notice-%d-%d", notice.ID, notice.UpdatedAt.UnixNano()),
		Type: jobNoticePublished,
		Payload: noticePublishedPayload{
			NoticeID:   notice.ID,
			Title:      notice.Title,
			Content:    notice.Content,
			AuthorName: authorName,
		},
	}, zap.Int64("notice_id", notice.ID))
}

// SendPasswordReset schedules a reset link email.
func (s *NotificationService) SendPasswordReset(email, name, token string) {
	s.enqueue(jobs.Job{
		ID:      "reset-" + email,
		Type:    jobPasswordReset,
		Payload: passwordResetPayload{Email: email, Name: name, Token: token},
	}, zap.String("to", email))
}

func (s *NotificationService) enqueue(job jobs.Job, fields ...zap.Field) {
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.RecordNotification(NotificationDropped, 1)
		s.logger.Error("failed to enqueue notification", append(fields, zap.String("type", job.Type), zap.Error(err))...)
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	switch payload := job.Payload.(type) {
	case noticePublishedPayload:
		return s.deliverNoticePublished(ctx, payload)
	case passwordResetPayload:
		return s.deliverPasswordReset(ctx, payload)
	default:
		s.logger.Warn("unknown notification job", zap.String("type", job.Type))
		return nil
	}
}

func (s *NotificationService) deliverNoticePublished(ctx context.Context, p noticePublishedPayload) error {
	recipients, err := s.repo.ListEmailsByRoles(ctx, notifiedRoles)
	if err != nil {
		return fmt.Errorf("load notification recipients: %w", err)
	}
	if len(recipients) == 0 {
		s.logger.Info("no recipients to notify", zap.Int64("notice_id", p.NoticeID))
		return nil
	}

	subject, body := noticePublishedTemplate(p, s.config.ClientOrigin, s.config.AppName)
	sent, failed := 0, 0
	for _, to := range recipients {
		if ctx.Err() != nil {
			break
		}
		err := s.mailer.Send(ctx, mailer.Message{To: to, Subject: subject, Text: body, Tag: "notice_published"})
		if err != nil {
			failed++
			s.logger.Warn("notice email failed", zap.Int64("notice_id", p.NoticeID), zap.String("to", to), zap.Error(err))
			continue
		}
		sent++
	}
	s.metrics.RecordNotification(NotificationSent, sent)
	s.metrics.RecordNotification(NotificationFailed, failed)
	s.logger.Info("notice notifications delivered",
		zap.Int64("notice_id", p.NoticeID),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)
	return nil
}

func (s *NotificationService) deliverPasswordReset(ctx context.Context, p passwordResetPayload) error {
	link := strings.TrimRight(s.config.ClientOrigin, "/") + "/reset-password?token=" + p.Token
	subject := "Password Reset Request"
	body := fmt.Sprintf("Hello %s,\n\nWe received a request to reset your %s password.\n"+
		"Open the link below within one hour to choose a new password:\n\n%s\n\n"+
		"If you did not request this, you can ignore this email.\n", p.Name, s.config.AppName, link)
	if err := s.mailer.Send(ctx, mailer.Message{To: p.Email, Subject: subject, Text: body, Tag: "password_reset"}); err != nil {
		s.metrics.RecordNotification(NotificationFailed, 1)
		return err
	}
	s.metrics.RecordNotification(NotificationSent, 1)
	return nil
}

func noticePublishedTemplate(p noticePublishedPayload, origin, appName string) (string, string) {
	subject := "New Notice: " + p.Title
	var b strings.Builder
	fmt.Fprintf(&b, "A new notice has been posted on the %s.\n\n", appName)
	fmt.Fprintf(&b, "%s\nPosted by: %s\n\n", p.Title, p.AuthorName)
	b.WriteString(preview(p.Content, previewLength))
	b.WriteString("\n\n")
	if origin != "" {
		fmt.Fprintf(&b, "View on Notice Board: %s\n", origin)
	}
	return subject, b.String()
}

func preview(content string, limit int) string {
	if utf8.RuneCountInString(content) <= limit {
		return content
	}
	runes := []rune(content)
	return string(runes[:limit]) + "..."
}
