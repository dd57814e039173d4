package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ecosense-relay/internal/panel"
	"ecosense-relay/internal/relay"
	"ecosense-relay/internal/services/health"
	"ecosense-relay/internal/shared/config"
	"ecosense-relay/internal/shared/metrics"
	"ecosense-relay/internal/shared/server/middleware"
	"ecosense-relay/internal/shared/server/respond"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config         config.Config
	MessageHandler *relay.Handler
	PanelHandler   *panel.Handler
	Health         *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.RateLimit(rateLimits()),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, deps.Health.Status(c.Request.Context()))
	})
	if deps.MessageHandler != nil {
		deps.MessageHandler.RegisterRoutes(api)
	}
	if deps.PanelHandler != nil {
		deps.PanelHandler.RegisterRoutes(api)
	}

	return r
}

// rateLimits keeps the message ingress tighter than the panel's polling
// surface: the panel refreshes often, page probes should not.
func rateLimits() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor: func(c *gin.Context) string {
			switch {
			case c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/messages":
				return "MESSAGES"
			case c.FullPath() == "/api/v1/panel/state" || c.FullPath() == "/api/v1/store":
				return "PANEL"
			default:
				return ""
			}
		},
		Rules: map[string]middleware.RateLimitRule{
			"MESSAGES": {Rate: 2, Burst: 10},
			"PANEL":    {Rate: 20, Burst: 40},
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
