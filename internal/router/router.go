package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/config"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/handler"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/middleware"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/response"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/service"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/session"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
	Monitor *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	registry *session.Registry,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-API-Key"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check, with the live session count for dashboards.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{
			"status":        "ok",
			"live_sessions": registry.Count(),
		})
	})

	// Rate limiter for the join endpoint (10 attempts per minute per IP)
	// to slow down access-code guessing.
	joinLimiter := middleware.NewRateLimiter(10, time.Minute)

	// ─── 1. Join (Public, Rate Limited) ────────────────────────────────
	public := router.Group("/api/v1/sessions")
	{
		public.POST("/:id/join", joinLimiter.Middleware(), handlers.Session.Join)
	}

	// ─── 2. Conducted Session Group (JWT + Single Connection) ──────────
	sessions := router.Group("/api/v1/sessions")
	sessions.Use(
		middleware.RequireCandidateJWT(authService),
		middleware.CheckSingleConnection(authService),
	)
	{
		sessions.GET("/:id/state", handlers.Session.State)
		sessions.POST("/:id/begin", handlers.Session.Begin)
		sessions.POST("/:id/next", handlers.Session.Next)
		sessions.POST("/:id/previous", handlers.Session.Previous)
		sessions.POST("/:id/jump", handlers.Session.Jump)
		sessions.POST("/:id/complete", handlers.Session.Complete)
		sessions.POST("/:id/exit", handlers.Session.Exit)
		sessions.POST("/:id/camera/retry", handlers.Session.RetryCamera)
		sessions.POST("/:id/camera/toggle", handlers.Session.ToggleCamera)
		sessions.POST("/:id/recording/start", handlers.Session.StartRecording)
		sessions.POST("/:id/recording/stop", handlers.Session.StopRecording)
	}

	// ─── 3. WebSocket Group (Candidate WS Auth) ────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireCandidateWSAuth(authService))
	{
		ws.GET("/sessions/:id/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Monitor Group (Service Key) ────────────────────────────────
	monitor := router.Group("/api/v1/monitor")
	monitor.Use(handlers.Monitor.RequireServiceKey())
	{
		monitor.GET("/sessions", handlers.Monitor.LiveSessions)
		monitor.GET("/sessions/:id/security-events", handlers.Monitor.SecurityEvents)
		monitor.GET("/sessions/:id/responses", handlers.Monitor.ResponseAudit)
	}

	return router
}
