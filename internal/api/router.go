package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/linkgate/urlshortener/internal/config"
	"github.com/linkgate/urlshortener/internal/services"
)

// OwnerHeader carries the authenticated account id, set by the upstream auth proxy.
const OwnerHeader = "X-User-ID"

// GrantCookiePrefix prefixes the per-code password grant cookie name.
const GrantCookiePrefix = "pwd_"

// Dependencies are the services the HTTP handlers call into.
type Dependencies struct {
	Links    *services.LinkService
	Access   *services.AccessService
	Clicks   *services.ClickService
	Redirect *services.RedirectService
	Config   *config.Config
	Log      *zap.Logger
}

// NewRouter builds a gin engine with logging, recovery, optional CORS and all routes.
func NewRouter(deps Dependencies) *gin.Engine {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	router := gin.New()
	router.Use(RequestLogger(deps.Log), gin.Recovery())

	if origins := deps.Config.Server.CORSOrigins; len(origins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", OwnerHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	SetupRoutes(router, deps)
	return router
}

// SetupRoutes configures all Gin API routes and injects necessary dependencies.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	// Health Check Route - used for monitoring service availability
	router.GET("/health", HealthCheckHandler)

	api := router.Group("/api/v1")
	{
		api.POST("/links", CreateShortLinkHandler(deps))
		api.GET("/links", ListLinksHandler(deps))
		api.PATCH("/links/:id", UpdateLinkHandler(deps))
		api.DELETE("/links/:id", DeleteLinkHandler(deps))
		api.GET("/links/:id/analytics", GetLinkAnalyticsHandler(deps))

		api.GET("/codes/:shortCode/status", CheckStatusHandler(deps))
		api.POST("/codes/:shortCode/access", VerifyPasswordHandler(deps))
		api.GET("/codes/:shortCode/stats", GetLinkStatsHandler(deps))

		api.GET("/stats", GetGlobalStatsHandler(deps))
	}

	// Password-entry route, only when it is served by this process.
	if path := deps.Config.Server.PasswordPath; strings.HasPrefix(path, "/") && strings.Trim(path, "/") != "" {
		router.GET(strings.TrimRight(path, "/")+"/:shortCode", PasswordPromptHandler(deps))
	}

	// Redirection Route - handles the actual URL redirection at root level
	router.GET("/:shortCode", RedirectHandler(deps))
}

// RequestLogger logs one structured line per request.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("HTTP request", fields...)
			return
		}
		log.Info("HTTP request", fields...)
	}
}
