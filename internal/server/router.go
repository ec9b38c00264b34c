package server

import (
	"time"

	"github.com/abduss/foldershare/internal/auth"
	"github.com/abduss/foldershare/internal/config"
	"github.com/abduss/foldershare/internal/file"
	"github.com/abduss/foldershare/internal/folder"
	"github.com/abduss/foldershare/internal/logger"
	"github.com/abduss/foldershare/internal/metrics"
	"github.com/abduss/foldershare/internal/share"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config        config.Config
	Log           *zap.Logger
	DB            Pinger
	Blob          Pinger
	AuthService   *auth.Service
	FolderService *folder.Service
	FileService   *file.Service
	ShareService  *share.Service
	ShareLimiter  *RateLimiter
}

// newEngine returns a bare engine that only trusts forwarding headers from the
// configured proxies, so ClientIP is the socket peer unless a trusted proxy says otherwise.
func newEngine(cfg config.ServerConfig, log *zap.Logger) *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("invalid trusted proxies, ignoring forwarding headers", zap.Strings("proxies", cfg.TrustedProxies), zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery())
	return router
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	router := newEngine(deps.Config.Server, log)
	router.Use(logger.Middleware(log))
	router.Use(metrics.Middleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     deps.Config.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", logger.CorrelationIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", logger.CorrelationIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(auth.SessionMiddleware(deps.Config.Auth))

	registerHealthRoutes(router, deps, log)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	if deps.AuthService == nil {
		return router
	}
	auth.RegisterRoutes(api, deps.AuthService, log)

	protected := api.Group("")
	protected.Use(auth.AuthMiddleware(deps.AuthService))

	if deps.FolderService != nil {
		var files folder.FileLister
		if deps.FileService != nil {
			files = deps.FileService
		}
		folder.RegisterRoutes(protected, deps.FolderService, files, log)
	}
	if deps.FileService != nil {
		file.RegisterRoutes(protected, deps.FileService, log)
	}
	if deps.ShareService != nil {
		public := api.Group("")
		if deps.ShareLimiter != nil {
			public.Use(deps.ShareLimiter.Middleware())
		}
		share.RegisterRoutes(protected, public, deps.ShareService, log)
	}

	return router
}
