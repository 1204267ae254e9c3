package router

import (
	"net/http"
	"time"

	"github.com/eduquest/questgate/internal/config"
	"github.com/eduquest/questgate/internal/handler"
	"github.com/eduquest/questgate/internal/middleware"
	"github.com/eduquest/questgate/internal/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	User    *handler.UserHandler
	Attempt *handler.AttemptHandler
	Bonus   *handler.BonusHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth *middleware.Authenticator,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for session creation (30 requests per minute per IP).
	// Session opens fan out into several upstream calls, so they are the
	// expensive entry point.
	openLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. API Group (Bearer token, resolved against upstream) ────────
	api := router.Group("/api/v1")
	api.Use(auth.RequireUser())
	{
		api.GET("/me", handlers.User.Me)

		api.POST("/sessions", openLimiter.Middleware(), handlers.Attempt.OpenSession)
		api.GET("/sessions/:id", handlers.Attempt.GetSession)
		api.DELETE("/sessions/:id", handlers.Attempt.DropSession)
		api.PUT("/sessions/:id/page", handlers.Attempt.SetPage)
		api.POST("/sessions/:id/answers", handlers.Attempt.ToggleAnswer)
		api.POST("/sessions/:id/hints", handlers.Attempt.MarkHintUsed)
		api.POST("/sessions/:id/explanations", handlers.Attempt.ToggleExplanation)
		api.POST("/sessions/:id/save", handlers.Attempt.Save)
		api.POST("/sessions/:id/submit", handlers.Attempt.Submit)

		api.POST("/sessions/:id/bonus", handlers.Bonus.Open)
		api.GET("/sessions/:id/bonus", handlers.Bonus.State)
		api.DELETE("/sessions/:id/bonus", handlers.Bonus.Close)
		api.PUT("/sessions/:id/bonus/matches", handlers.Bonus.SetMatch)
		api.PUT("/sessions/:id/bonus/order", handlers.Bonus.MoveItem)
		api.POST("/sessions/:id/bonus/claim", handlers.Bonus.Claim)
	}

	// ─── 2. WebSocket Group ────────────────────────────────────────────
	// Browsers cannot set Authorization headers on WebSocket upgrades, so
	// the auth middleware also accepts ?token=.
	ws := router.Group("/ws/v1")
	ws.Use(auth.RequireUser())
	{
		ws.GET("/sessions/:id/bonus", handlers.WS.BonusProgressStream)
	}

	return router
}
