package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/noticeboard-api/api/swagger"
	"github.com/noah-isme/noticeboard-api/internal/handler"
	"github.com/noah-isme/noticeboard-api/internal/repository"
	"github.com/noah-isme/noticeboard-api/internal/router"
	"github.com/noah-isme/noticeboard-api/internal/service"
	"github.com/noah-isme/noticeboard-api/pkg/cache"
	"github.com/noah-isme/noticeboard-api/pkg/config"
	"github.com/noah-isme/noticeboard-api/pkg/database"
	"github.com/noah-isme/noticeboard-api/pkg/export"
	"github.com/noah-isme/noticeboard-api/pkg/logger"
	"github.com/noah-isme/noticeboard-api/pkg/mailer"
	"github.com/noah-isme/noticeboard-api/pkg/storage"
)

// @title Campus Notice Board API
// @version 1.0.0
// @description Notices with moderation, attachments, likes and threaded feedback
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	files, err := storage.NewLocalStorage(cfg.Uploads.Dir)
	if err != nil {
		logr.Fatal("failed to prepare upload directory", zap.Error(err), zap.String("dir", cfg.Uploads.Dir))
	}

	metrics := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, export cache disabled", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck
			cacheRepo = repository.NewCacheRepository(client, logr)
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.ExportTTL, logr, cfg.Cache.Enabled && cacheRepo != nil)

	noticeRepo := repository.NewNoticeRepository(db)
	userRepo := repository.NewUserRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)

	mail := mailer.New(mailer.Config{
		APIKey:    cfg.Notifications.ResendAPIKey,
		FromEmail: cfg.Notifications.FromEmail,
		DevMode:   !cfg.IsProduction(),
	}, logr)
	notifications := service.NewNotificationService(userRepo, mail, metrics, logr, service.NotificationConfig{
		Enabled:      cfg.Notifications.Enabled,
		Workers:      cfg.Notifications.Workers,
		BufferSize:   cfg.Notifications.BufferSize,
		MaxRetries:   cfg.Notifications.MaxRetries,
		RetryDelay:   cfg.Notifications.RetryDelay,
		ClientOrigin: cfg.Notifications.ClientOrigin,
		AppName:      "Campus Notice Board",
	})
	notifications.Start(ctx)

	authSvc := service.NewAuthService(userRepo, notifications, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
		ResetTokenTTL:     cfg.PasswordReset.TokenTTL,
	})
	noticeSvc := service.NewNoticeService(noticeRepo, files, notifications, cacheSvc, metrics, validate, logr, service.NoticeConfig{
		FileURLPrefix:     cfg.APIPrefix + "/notices/files",
		MaxFileSize:       cfg.Uploads.MaxFileSizeBytes,
		MaxFiles:          cfg.Uploads.MaxFiles,
		AllowedExtensions: cfg.Uploads.AllowedExtensions,
	})
	reactionSvc := service.NewReactionService(reactionRepo, logr)
	feedbackSvc := service.NewFeedbackService(feedbackRepo, noticeRepo, validate, logr)
	attachmentSvc := service.NewAttachmentService(noticeRepo, files, logr)
	exportSvc := service.NewExportService(noticeRepo, export.NewPDFExporter(time.Local), cacheSvc, cfg.Cache.ExportTTL, logr)

	engine := router.New(router.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Notices:  handler.NewNoticeHandler(noticeSvc, reactionSvc, attachmentSvc, exportSvc),
		Feedback: handler.NewFeedbackHandler(feedbackSvc),
		Metrics:  handler.NewMetricsHandler(metrics, db, logr),
	}, router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     !cfg.IsProduction(),
		Tokens:         authSvc,
		Metrics:        metrics,
		Logger:         logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	notifications.Stop()
}
