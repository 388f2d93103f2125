package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/secforge/billing/internal/interfaces/http/handlers"
	"github.com/secforge/billing/internal/interfaces/http/middleware"
)

// PaymentRouteConfig holds dependencies for payment routes.
type PaymentRouteConfig struct {
	PaymentHandler *handlers.PaymentHandler
	WebhookHandler *handlers.WebhookHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter
}

// SetupPaymentRoutes configures payment and provider webhook routes.
func SetupPaymentRoutes(engine *gin.Engine, cfg *PaymentRouteConfig) {
	engine.POST("/payments", cfg.AuthMiddleware.RequireAuth(), cfg.RateLimiter.Limit(), cfg.PaymentHandler.Handle)

	// Webhooks authenticate by signature, not by token.
	engine.POST("/webhooks/:provider", cfg.WebhookHandler.Handle)
}
