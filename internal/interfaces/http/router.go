package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/secforge/billing/internal/infrastructure/config"
	"github.com/secforge/billing/internal/interfaces/http/middleware"
	"github.com/secforge/billing/internal/interfaces/http/routes"
	"github.com/secforge/billing/internal/shared/logger"
)

// Router represents the HTTP router configuration
type Router struct {
	*Container
}

// NewRouter creates a new HTTP router with all dependencies
func NewRouter(db *gorm.DB, cfg *config.Config, log logger.Interface) (*Router, error) {
	c, err := NewContainer(db, cfg, log)
	if err != nil {
		return nil, err
	}
	return &Router{Container: c}, nil
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.CustomLogger(r.log, r.metrics))
	r.engine.Use(middleware.Recovery(r.log))
	r.engine.Use(middleware.CORS(r.cfg.Server.AllowedOrigins))
	r.engine.Use(middleware.SecurityHeaders())

	r.engine.GET("/healthz", r.hdlrs.health.Check)
	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.metrics.Registry(), promhttp.HandlerOpts{})))

	routes.SetupAccessRoutes(r.engine, &routes.AccessRouteConfig{
		AccessHandler:  r.hdlrs.access,
		AuthMiddleware: r.authMiddleware,
	})
	routes.SetupPaymentRoutes(r.engine, &routes.PaymentRouteConfig{
		PaymentHandler: r.hdlrs.payment,
		WebhookHandler: r.hdlrs.webhook,
		AuthMiddleware: r.authMiddleware,
		RateLimiter:    r.rateLimiter,
	})
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}

// Shutdown releases the Redis connection.
func (r *Router) Shutdown() {
	if r.redis != nil {
		if err := r.redis.Close(); err != nil {
			r.log.Errorw("failed to close Redis client", "error", err)
		}
	}
}
