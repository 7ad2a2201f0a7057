package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/noticeboard-api/internal/handler"
	"github.com/noah-isme/noticeboard-api/internal/middleware"
	"github.com/noah-isme/noticeboard-api/internal/models"
	"github.com/noah-isme/noticeboard-api/internal/service"
	"github.com/noah-isme/noticeboard-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/noticeboard-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/noticeboard-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Auth     *handler.AuthHandler
	Notices  *handler.NoticeHandler
	Feedback *handler.FeedbackHandler
	Metrics  *handler.MetricsHandler
}

// Options controls router wide middleware.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Tokens         middleware.TokenValidator
	Metrics        *service.MetricsService
	Logger         *zap.Logger
}

// New builds the gin engine with every route of the API.
func New(h Handlers, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
	}

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(opts.APIPrefix)
	authRequired := middleware.JWT(opts.Tokens)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	auth := api.Group("/auth")
	auth.POST("/signup", h.Auth.Signup)
	auth.POST("/login", h.Auth.Login)
	auth.POST("/forgot-password", h.Auth.ForgotPassword)
	auth.POST("/reset-password", h.Auth.ResetPassword)
	auth.GET("/me", authRequired, h.Auth.Me)
	auth.POST("/delete-account", authRequired, h.Auth.DeleteAccount)

	notices := api.Group("/notices", authRequired)
	notices.GET("", h.Notices.List)
	notices.POST("", h.Notices.Create)
	notices.GET("/files/:filename", h.Notices.DownloadFile)
	notices.GET("/:id", h.Notices.Get)
	notices.PUT("/:id", h.Notices.Update)
	notices.DELETE("/:id", h.Notices.Delete)
	notices.POST("/:id/approve", adminOnly, h.Notices.Approve)
	notices.POST("/:id/disapprove", adminOnly, h.Notices.Disapprove)
	notices.POST("/:id/like", h.Notices.Like)
	notices.GET("/:id/export/pdf", h.Notices.ExportPDF)

	feedback := api.Group("/feedback", authRequired)
	feedback.GET("/:id", h.Feedback.List)
	feedback.POST("/:id", h.Feedback.Create)
	feedback.DELETE("/:id", h.Feedback.Delete)

	api.GET("/metrics/snapshot", authRequired, adminOnly, h.Metrics.Snapshot)

	return r
}
