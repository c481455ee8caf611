package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/creatorkit/internal/api/handler"
	"github.com/timmy/creatorkit/internal/api/middleware"
	"github.com/timmy/creatorkit/internal/chat"
	"github.com/timmy/creatorkit/internal/config"
	"github.com/timmy/creatorkit/internal/logger"
	"github.com/timmy/creatorkit/internal/ratelimit"
	"github.com/timmy/creatorkit/internal/render"
	"github.com/timmy/creatorkit/internal/service"
)

// Dependencies are the constructed services the router wires into handlers.
type Dependencies struct {
	Videos       *service.VideoService
	Images       *service.ImageService
	Backfill     *service.BackfillService
	Orchestrator *chat.Orchestrator
	Renderer     *render.Renderer
	Verifier     middleware.TokenVerifier
	// Limiter is optional; nil disables rate limiting.
	Limiter      ratelimit.Limiter
	HealthChecks map[string]handler.HealthCheck
	Logger       *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(cfg *config.Config, deps *Dependencies) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Logger))
	r.Use(middleware.CORS(cfg.Server.CORS))

	healthHandler := handler.NewHealthHandler(deps.HealthChecks)
	chatHandler := handler.NewChatHandler(deps.Orchestrator, cfg.Chat.MaxDuration)
	videoHandler := handler.NewVideoHandler(deps.Videos, deps.Images, cfg.Server.AnalysisPath)
	renderHandler := handler.NewRenderHandler(deps.Renderer)
	adminHandler := handler.NewAdminHandler(deps.Backfill, deps.Logger)

	requireAuth := middleware.RequireAuth(deps.Verifier)
	limited := func(c *gin.Context) { c.Next() }
	if deps.Limiter != nil {
		limited = middleware.RateLimit(deps.Limiter)
	}

	// Health check
	r.GET("/health", healthHandler.Health)

	// Video analysis form target
	r.POST("/analyze", middleware.OptionalAuth(deps.Verifier), limited, videoHandler.Analyze)

	// Streaming chat
	r.POST("/api/chat", requireAuth, limited, chatHandler.Chat)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/render", renderHandler.Render)

		videos := v1.Group("/videos", requireAuth)
		{
			videos.GET("", videoHandler.ListVideos)
			videos.GET("/:videoId", videoHandler.GetVideo)
			videos.GET("/:videoId/images", videoHandler.ListImages)
			videos.DELETE("/:videoId/images/:imageId", videoHandler.DeleteImage)
		}

		admin := v1.Group("/admin", requireAuth, middleware.RequireUser(cfg.Server.AdminUserIDs))
		{
			admin.POST("/backfill", adminHandler.TriggerBackfill)
			admin.GET("/backfill/status", adminHandler.GetBackfillStatus)
		}
	}

	return r
}
