package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/openqb/qbank-backend/internal/config"
	"github.com/openqb/qbank-backend/internal/handler"
	"github.com/openqb/qbank-backend/internal/middleware"
	"github.com/openqb/qbank-backend/internal/model"
	"github.com/openqb/qbank-backend/internal/response"
	"github.com/openqb/qbank-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth     *handler.AuthHandler
	Question *handler.QuestionHandler
	Tag      *handler.TagHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
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

	// Rate limiter for the login endpoint (30 requests per minute per IP).
	loginLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)

		// Authenticated profile routes
		authed := auth.Group("")
		authed.Use(
			middleware.RequireJWT(authService),
			middleware.CheckSession(authService),
		)
		{
			authed.POST("/logout", handlers.Auth.Logout)
			authed.GET("/me", handlers.Auth.Me)
		}
	}

	// ─── 2. Console Group (JWT + Session) ──────────────────────────────
	api := router.Group("/api/v1")
	api.Use(
		middleware.RequireJWT(authService),
		middleware.CheckSession(authService),
	)
	{
		// Question management
		api.GET("/questions", handlers.Question.List)
		api.POST("/questions", handlers.Question.Create)
		api.GET("/questions/:id", handlers.Question.Get)
		api.GET("/questions/:id/history", handlers.Question.History)
		api.PUT("/questions/:id", handlers.Question.Update)
		api.PATCH("/questions/:id/status", handlers.Question.ChangeStatus)
		api.POST("/questions/bulk-edit", handlers.Question.BulkEdit)
		api.POST("/questions/import", handlers.Question.Import)

		// Deleting questions is admin-only; editors manage content but
		// cannot remove it.
		api.DELETE("/questions/:id",
			middleware.RequireRole(model.RoleAdmin),
			handlers.Question.Delete,
		)

		// Tag vocabulary
		api.GET("/tags", handlers.Tag.List)
		api.GET("/tags/categories", handlers.Tag.Categories)
		api.GET("/tags/usage", handlers.Tag.Usage)
	}

	return router
}
